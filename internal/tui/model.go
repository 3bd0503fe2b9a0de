package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/medassist-rag/medassist/internal/clipboard"
	"github.com/medassist-rag/medassist/internal/config"
	"github.com/medassist-rag/medassist/internal/export"
	"github.com/medassist-rag/medassist/internal/logger"
	"github.com/medassist-rag/medassist/internal/session"
	"github.com/medassist-rag/medassist/internal/utils"
)

// Version 是当前的 MedAssist 版本，由 main 包设置
var Version string

const logModule = "tui"

type focusArea int

const (
	focusQuestion focusArea = iota
	focusUpload
)

// Option 配置 Model
type Option func(*Model)

// WithRoute 设置启动页面
func WithRoute(r Route) Option {
	return func(m *Model) { m.route = r }
}

// WithCopier 替换剪贴板实现
func WithCopier(fn func(context.Context, string) error) Option {
	return func(m *Model) { m.copier = fn }
}

// WithClock 替换导出时间戳使用的时钟
func WithClock(fn func() time.Time) Option {
	return func(m *Model) { m.now = fn }
}

type Model struct {
	cfg      *config.Config
	backend  session.Backend
	log      logger.Logger
	session  *session.Session
	exporter *export.Exporter
	parser   *CommandParser
	copier   func(context.Context, string) error
	now      func() time.Time

	viewport viewport.Model
	question textinput.Model
	upload   textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	renderer *glamour.TermRenderer
	wrap     int

	route  Route
	focus  focusArea
	status string
	width  int
	height int
	ready  bool
}

// InitialModel 创建 TUI 模型；backend 通常是 *api.Client
func InitialModel(cfg *config.Config, backend session.Backend, log logger.Logger, opts ...Option) Model {
	if log == nil {
		log = logger.Nop()
	}

	q := textinput.New()
	q.Prompt = "> "
	q.CharLimit = 2000
	q.Focus()

	up := textinput.New()
	up.Prompt = "report: "
	up.Placeholder = "path to a report image (ctrl+o)"
	up.CharLimit = 1024

	sp := spinner.New()
	sp.Spinner = spinner.Points

	h := help.New()
	h.ShowAll = false

	vp := viewport.New(80, 20)

	m := Model{
		cfg:      cfg,
		backend:  backend,
		log:      log,
		session:  session.New(),
		exporter: export.New(cfg.ExportDir),
		parser:   NewCommandParser(),
		copier:   clipboard.Copy,
		now:      time.Now,
		viewport: vp,
		question: q,
		upload:   up,
		spinner:  sp,
		help:     h,
		keys:     defaultKeys(),
		route:    RouteHome,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.updatePlaceholder()
	m.refresh()
	return m
}

// Session 返回模型持有的会话，主要供测试使用
func (m Model) Session() *session.Session {
	return m.session
}

func (m Model) Route() Route {
	return m.route
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case uploadResultMsg:
		m.session.FinishUpload(msg.text, msg.err)
		if msg.err != nil {
			m.log.Error(logModule, "upload failed", map[string]interface{}{
				"file":  msg.file,
				"error": msg.err,
			})
		} else {
			m.log.Info(logModule, "report text extracted", map[string]interface{}{
				"file":  msg.file,
				"chars": len(msg.text),
			})
			m.upload.Reset()
			m.focusOn(focusQuestion)
		}
		m.updatePlaceholder()
		m.refresh()
		return m, nil

	case askResultMsg:
		m.session.FinishAsk(msg.answer, msg.err)
		if msg.err != nil {
			m.log.Error(logModule, "ask failed", map[string]interface{}{"error": msg.err})
		} else {
			m.log.Info(logModule, "answer received", map[string]interface{}{"chars": len(msg.answer)})
		}
		m.updatePlaceholder()
		m.refresh()
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
			m.log.Error(logModule, "export failed", map[string]interface{}{"error": msg.err})
		} else {
			m.status = "Exported to " + msg.path
			m.log.Info(logModule, "transcript exported", map[string]interface{}{"path": msg.path})
		}
		return m, nil

	case copyDoneMsg:
		if msg.err != nil {
			m.status = "Copy failed: " + msg.err.Error()
			m.log.Warn(logModule, "copy failed", map[string]interface{}{"error": msg.err})
		} else {
			m.status = "Copied " + msg.what + " to clipboard"
		}
		return m, nil

	case spinner.TickMsg:
		// 没有进行中的请求时不再续 tick，spinner 自然停止
		if !m.session.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.route == RouteAnalyze {
		var cmd tea.Cmd
		if m.focus == focusUpload {
			m.upload, cmd = m.upload.Update(msg)
		} else {
			m.question, cmd = m.question.Update(msg)
		}
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.NextRoute):
		m.navigate(m.route.next())
		return nil, true
	case key.Matches(msg, m.keys.PrevRoute):
		m.navigate(m.route.prev())
		return nil, true
	case key.Matches(msg, m.keys.Home):
		m.navigate(RouteHome)
		return nil, true
	case key.Matches(msg, m.keys.Analyze):
		m.navigate(RouteAnalyze)
		return nil, true
	case key.Matches(msg, m.keys.About):
		m.navigate(RouteAbout)
		return nil, true
	}

	if m.route != RouteAnalyze {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return tea.Quit, true
		case key.Matches(msg, m.keys.Submit) && m.route == RouteHome:
			m.navigate(RouteAnalyze)
			return nil, true
		}
		// 静态页面忽略其他按键
		return nil, true
	}

	switch {
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return nil, true
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return nil, true
	case key.Matches(msg, m.keys.FocusUpload):
		if m.focus == focusUpload {
			m.focusOn(focusQuestion)
		} else {
			m.focusOn(focusUpload)
		}
		return nil, true
	case key.Matches(msg, m.keys.Esc):
		if m.focus == focusUpload {
			m.focusOn(focusQuestion)
		} else {
			m.question.Reset()
		}
		m.status = ""
		return nil, true
	case key.Matches(msg, m.keys.Submit):
		return m.submit(), true
	}
	return nil, false
}

func (m *Model) submit() tea.Cmd {
	if m.focus == focusUpload {
		path := m.upload.Value()
		return m.startUpload(path)
	}

	input := m.question.Value()
	if strings.TrimSpace(input) == "" {
		return nil
	}
	if cmd := m.parser.Parse(input); cmd != nil {
		m.question.Reset()
		return m.handleCommand(cmd)
	}
	return m.startAsk(input)
}

func (m *Model) handleCommand(cmd *Command) tea.Cmd {
	m.log.Debug(logModule, "command", map[string]interface{}{
		"type": FormatCommandType(cmd.Type),
		"arg":  cmd.Arg,
	})

	switch cmd.Type {
	case CommandTypeUpload:
		if cmd.Arg == "" {
			m.focusOn(focusUpload)
			return nil
		}
		return m.startUpload(cmd.Arg)
	case CommandTypeClear:
		if !m.session.Clear() {
			m.status = "Can't clear while a request is in progress"
			return nil
		}
		m.status = "Conversation cleared"
		m.refresh()
		return nil
	case CommandTypeExport:
		format, err := export.ParseFormat(cmd.Arg)
		if err != nil {
			m.status = err.Error()
			return nil
		}
		return exportCmd(m.exporter, export.FromSession(m.session, m.now()), format)
	case CommandTypeCopy:
		return m.startCopy(cmd.Arg)
	case CommandTypeGo:
		r, ok := ParseRoute(cmd.Arg)
		if !ok {
			m.status = fmt.Sprintf("Unknown page %q", cmd.Arg)
			return nil
		}
		m.navigate(r)
		return nil
	case CommandTypeHelp:
		m.help.ShowAll = !m.help.ShowAll
		m.status = "Commands: /upload <path>  /clear  /export [md|html]  /copy [answer|text]  /go <page>  /help"
		m.resize()
		return nil
	default:
		m.status = fmt.Sprintf("Unknown command %s (try /help)", cmd.Raw)
		return nil
	}
}

func (m *Model) startUpload(path string) tea.Cmd {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if m.session.Busy() {
		m.status = "Please wait for the current request to finish"
		return nil
	}

	img, err := utils.InspectImage(utils.ExpandHome(path), m.cfg.MaxUploadBytes)
	if err != nil {
		m.log.Warn(logModule, "upload rejected", map[string]interface{}{
			"path":  path,
			"error": err,
		})
		m.session.RejectUpload(err)
		m.refresh()
		return nil
	}

	m.session.BeginUpload()
	m.status = ""
	m.log.Info(logModule, "upload started", map[string]interface{}{
		"file":         img.Name,
		"size":         img.Size,
		"content_type": img.ContentType,
	})
	m.updatePlaceholder()
	m.refresh()
	return tea.Batch(m.spinner.Tick, uploadCmd(m.backend, img))
}

func (m *Model) startAsk(input string) tea.Cmd {
	if m.session.Busy() {
		m.status = "Please wait for the current request to finish"
		return nil
	}
	if !m.session.ReportUploaded() {
		m.status = "Upload a report before asking questions"
		return nil
	}

	q, ok := m.session.BeginAsk(input)
	if !ok {
		return nil
	}
	m.question.Reset()
	m.status = ""
	m.log.Info(logModule, "question sent", map[string]interface{}{"chars": len(q)})
	m.updatePlaceholder()
	m.refresh()
	return tea.Batch(m.spinner.Tick, askCmd(m.backend, q, m.session.ExtractedText()))
}

func (m *Model) startCopy(arg string) tea.Cmd {
	var what, text string
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "", "answer":
		what = "answer"
		if msg, ok := m.session.LastAnswer(); ok {
			text = msg.Text
		}
	case "text", "report":
		what = "extracted text"
		text = m.session.ExtractedText()
	default:
		m.status = fmt.Sprintf("Unknown copy target %q (answer|text)", arg)
		return nil
	}
	if text == "" {
		m.status = "Nothing to copy"
		return nil
	}
	return copyCmd(m.copier, what, text)
}

func (m *Model) navigate(r Route) {
	if r == m.route {
		return
	}
	m.log.Debug(logModule, "navigate", map[string]interface{}{
		"from": m.route.Path(),
		"to":   r.Path(),
	})
	m.route = r
	m.status = ""
	m.refresh()
}

func (m *Model) focusOn(f focusArea) {
	m.focus = f
	if f == focusUpload {
		m.question.Blur()
		m.upload.Focus()
		return
	}
	m.upload.Blur()
	m.question.Focus()
}

func (m *Model) updatePlaceholder() {
	switch {
	case m.session.Busy():
		m.question.Placeholder = "Waiting for the current request..."
	case m.session.ReportUploaded():
		m.question.Placeholder = "Ask a question about the report..."
	default:
		m.question.Placeholder = "Upload a report first (ctrl+o or /upload <path>)"
	}
}

// chromeHeight 是视口以外各行占用的高度
func (m Model) chromeHeight() int {
	// navbar(2) + status + help
	h := 4
	if m.route == RouteAnalyze {
		h += 2
		if m.session.LastError() != "" {
			h++
		}
	}
	if m.help.ShowAll {
		h += 4
	}
	return h
}

func (m *Model) resize() {
	if !m.ready {
		return
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(3, m.height-m.chromeHeight())
	m.question.Width = max(10, m.width-len(m.question.Prompt)-1)
	m.upload.Width = max(10, m.width-len(m.upload.Prompt)-1)
	m.help.Width = m.width

	wrap := max(20, m.width-4)
	if m.renderer != nil && m.wrap == wrap {
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.glamourStyle()),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.log.Warn(logModule, "markdown renderer unavailable", map[string]interface{}{"error": err})
		m.renderer = nil
		return
	}
	m.renderer = r
	m.wrap = wrap
}

func (m Model) glamourStyle() string {
	if m.cfg.GlamourStyle != "" {
		return m.cfg.GlamourStyle
	}
	return config.DefaultGlamourStyle
}

// refresh 重新生成视口内容并滚动到底部
func (m *Model) refresh() {
	m.resize()
	m.viewport.SetContent(m.pageContent())
	if m.route == RouteAnalyze {
		m.viewport.GotoBottom()
	} else {
		m.viewport.GotoTop()
	}
}
