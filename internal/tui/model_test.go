package tui

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/medassist-rag/medassist/internal/api"
	"github.com/medassist-rag/medassist/internal/config"
	"github.com/medassist-rag/medassist/internal/session"
	"github.com/medassist-rag/medassist/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	uploadText string
	uploadErr  error
	answer     string
	askErr     error

	uploads  int
	asks     int
	lastFile string
	lastQ    string
	lastCtx  string
}

func (f *fakeBackend) UploadReport(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	f.uploads++
	f.lastFile = filename
	_, _ = io.Copy(io.Discard, r)
	return f.uploadText, f.uploadErr
}

func (f *fakeBackend) Ask(ctx context.Context, question, reportText string) (string, error) {
	f.asks++
	f.lastQ = question
	f.lastCtx = reportText
	return f.answer, f.askErr
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func newTestModel(t *testing.T, b *fakeBackend, opts ...Option) Model {
	t.Helper()
	cfg := &config.Config{
		APIBaseURL:     "http://ocr.test",
		MaxUploadBytes: utils.DefaultMaxImageSize,
		ExportDir:      t.TempDir(),
		GlamourStyle:   "notty",
	}
	opts = append([]Option{WithRoute(RouteAnalyze)}, opts...)
	return InitialModel(cfg, b, nil, opts...)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// runCmd 执行命令并展开 Batch，丢弃 spinner tick
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func resultOf[T any](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	for _, msg := range runCmd(cmd) {
		if v, ok := msg.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T produced by command", zero)
	return zero
}

func submit(t *testing.T, m Model, input string) (Model, tea.Cmd) {
	t.Helper()
	m.question.SetValue(input)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// uploadReport 走完整的上传流程
func uploadReport(t *testing.T, m Model, b *fakeBackend) Model {
	t.Helper()
	path := writeFile(t, "cbc.png", pngBytes)
	m, cmd := submit(t, m, "/upload "+path)
	require.True(t, m.Session().Uploading())
	res := resultOf[uploadResultMsg](t, cmd)
	m, _ = update(t, m, res)
	require.False(t, m.Session().Uploading())
	return m
}

func lastMessage(m Model) session.Message {
	msgs := m.Session().Messages()
	return msgs[len(msgs)-1]
}

func TestNavigation(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, WithRoute(RouteHome))
	assert.Equal(t, RouteHome, m.Route())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, RouteAnalyze, m.Route())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, RouteAbout, m.Route())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, RouteHome, m.Route())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, RouteAbout, m.Route())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}, Alt: true})
	assert.Equal(t, RouteHome, m.Route())

	// Home 页按回车进入分析页
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, RouteAnalyze, m.Route())

	m, cmd := submit(t, m, "/go about")
	assert.Nil(t, cmd)
	assert.Equal(t, RouteAbout, m.Route())

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestGoUnknownRoute(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m, _ = submit(t, m, "/go settings")
	assert.Equal(t, RouteAnalyze, m.Route())
	assert.Contains(t, m.status, "Unknown page")
}

func TestParseRoute(t *testing.T) {
	for in, want := range map[string]Route{
		"/":        RouteHome,
		"home":     RouteHome,
		"/analyze": RouteAnalyze,
		"ANALYZE":  RouteAnalyze,
		"/about":   RouteAbout,
		"contact":  RouteAbout,
	} {
		got, ok := ParseRoute(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseRoute("/settings")
	assert.False(t, ok)
}

func TestAskBeforeUploadSendsNothing(t *testing.T) {
	b := &fakeBackend{answer: "X"}
	m := newTestModel(t, b)

	m, cmd := submit(t, m, "What is MCV?")
	assert.Nil(t, cmd)
	assert.Equal(t, 0, b.asks)
	assert.Len(t, m.Session().Messages(), 1)
	assert.Contains(t, m.status, "Upload a report")
}

func TestUploadThenAsk(t *testing.T) {
	b := &fakeBackend{uploadText: "ABC", answer: "X"}
	m := newTestModel(t, b)

	m = uploadReport(t, m, b)
	assert.Equal(t, 1, b.uploads)
	assert.Equal(t, "cbc.png", b.lastFile)
	assert.True(t, m.Session().ReportUploaded())
	assert.Equal(t, "ABC", m.Session().ExtractedText())
	assert.Equal(t, session.PhaseReportReady, m.Session().Phase())

	m, cmd := submit(t, m, "  Q  ")
	require.NotNil(t, cmd)
	assert.True(t, m.Session().Asking())
	assert.Equal(t, "", m.question.Value())

	// 请求进行中时不会再发请求
	m, second := submit(t, m, "another")
	assert.Nil(t, second)
	assert.Equal(t, session.PhaseAnswerPending, m.Session().Phase())

	res := resultOf[askResultMsg](t, cmd)
	m, _ = update(t, m, res)
	assert.Equal(t, 1, b.asks)
	assert.Equal(t, "Q", b.lastQ)
	assert.Equal(t, "ABC", b.lastCtx)

	msgs := m.Session().Messages()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, session.Message{Sender: session.SenderUser, Text: "Q"}, msgs[len(msgs)-2])
	assert.Equal(t, session.Message{Sender: session.SenderAssistant, Text: "X"}, msgs[len(msgs)-1])
	assert.Equal(t, session.PhaseReportReady, m.Session().Phase())
}

func TestUploadViaPathInput(t *testing.T) {
	b := &fakeBackend{uploadText: "ABC"}
	m := newTestModel(t, b)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, focusUpload, m.focus)

	m.upload.SetValue(writeFile(t, "scan.png", pngBytes))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	res := resultOf[uploadResultMsg](t, cmd)
	m, _ = update(t, m, res)

	assert.Equal(t, "scan.png", b.lastFile)
	assert.True(t, m.Session().ReportUploaded())
	assert.Equal(t, focusQuestion, m.focus)
	assert.Equal(t, "", m.upload.Value())
}

func TestUploadErrorKeepsNoReport(t *testing.T) {
	b := &fakeBackend{uploadErr: &api.APIError{StatusCode: 200, Message: "bad image"}}
	m := newTestModel(t, b)

	m = uploadReport(t, m, b)
	assert.False(t, m.Session().ReportUploaded())
	assert.Contains(t, lastMessage(m).Text, "bad image")
	assert.Equal(t, "bad image", m.Session().LastError())
	assert.Contains(t, m.errorBanner(), "bad image")
}

func TestUploadRejectsNonImage(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(t, b)

	path := writeFile(t, "notes.txt", []byte("just some text"))
	m, cmd := submit(t, m, "/upload "+path)
	assert.Nil(t, cmd)
	assert.Equal(t, 0, b.uploads)
	assert.False(t, m.Session().Uploading())
	assert.NotEmpty(t, m.Session().LastError())
}

func TestAskTransportError(t *testing.T) {
	b := &fakeBackend{uploadText: "ABC", askErr: &api.TransportError{Op: "ask", Err: errors.New("connection refused")}}
	m := newTestModel(t, b)
	m = uploadReport(t, m, b)

	before := len(m.Session().Messages())
	m, cmd := submit(t, m, "Q")
	m, _ = update(t, m, resultOf[askResultMsg](t, cmd))

	// 用户消息 + 一条助手消息
	assert.Len(t, m.Session().Messages(), before+2)
	assert.Contains(t, lastMessage(m).Text, "network error")
	assert.True(t, m.Session().ReportUploaded())
}

func TestClearRefusedWhileBusy(t *testing.T) {
	b := &fakeBackend{uploadText: "ABC", answer: "X"}
	m := newTestModel(t, b)
	m = uploadReport(t, m, b)

	m, cmd := submit(t, m, "Q")
	m, _ = submit(t, m, "/clear")
	assert.Contains(t, m.status, "Can't clear")
	assert.Greater(t, len(m.Session().Messages()), 1)

	m, _ = update(t, m, resultOf[askResultMsg](t, cmd))
	m, _ = submit(t, m, "/clear")
	assert.Equal(t, []session.Message{{Sender: session.SenderAssistant, Text: session.GreetingText}}, m.Session().Messages())
	assert.Equal(t, "ABC", m.Session().ExtractedText())
	assert.True(t, m.Session().ReportUploaded())
}

func TestExportCommand(t *testing.T) {
	b := &fakeBackend{uploadText: "Hemoglobin 13.5 g/dL", answer: "It is normal."}
	fixed := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	m := newTestModel(t, b, WithClock(func() time.Time { return fixed }))
	m = uploadReport(t, m, b)

	m, cmd := submit(t, m, "/export html")
	res := resultOf[exportDoneMsg](t, cmd)
	require.NoError(t, res.err)
	assert.Equal(t, "medassist-20240301-093000.html", filepath.Base(res.path))

	data, err := os.ReadFile(res.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hemoglobin 13.5 g/dL")

	m, _ = update(t, m, res)
	assert.Contains(t, m.status, "Exported to")

	m, cmd = submit(t, m, "/export pdf")
	assert.Nil(t, cmd)
	assert.Contains(t, m.status, "unknown export format")
}

func TestCopyCommand(t *testing.T) {
	var copied string
	b := &fakeBackend{uploadText: "ABC", answer: "X"}
	m := newTestModel(t, b, WithCopier(func(_ context.Context, text string) error {
		copied = text
		return nil
	}))

	m = uploadReport(t, m, b)
	m, cmd := submit(t, m, "/copy text")
	m, _ = update(t, m, resultOf[copyDoneMsg](t, cmd))
	assert.Equal(t, "ABC", copied)
	assert.Equal(t, "Copied extracted text to clipboard", m.status)

	m, cmd = submit(t, m, "Q")
	m, _ = update(t, m, resultOf[askResultMsg](t, cmd))
	m, cmd = submit(t, m, "/copy")
	m, _ = update(t, m, resultOf[copyDoneMsg](t, cmd))
	assert.Equal(t, "X", copied)

	m, cmd = submit(t, m, "/copy everything")
	assert.Nil(t, cmd)
	assert.Contains(t, m.status, "Unknown copy target")
}

func TestUnknownCommand(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(t, b)
	m, cmd := submit(t, m, "/frobnicate")
	assert.Nil(t, cmd)
	assert.Contains(t, m.status, "Unknown command")
	assert.Equal(t, 0, b.asks)
}

func TestView(t *testing.T) {
	b := &fakeBackend{uploadText: "ABC"}
	m := newTestModel(t, b)
	assert.Equal(t, "Starting...", m.View())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	view := m.View()
	assert.Contains(t, view, brand)
	assert.Contains(t, view, "Analyze")
	assert.Contains(t, view, "Upload a medical report")

	m = uploadReport(t, m, b)
	assert.Contains(t, m.View(), "Extracted Text")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.True(t, strings.Contains(m.View(), "Contact"))
}
