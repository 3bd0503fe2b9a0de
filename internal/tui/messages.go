package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/medassist-rag/medassist/internal/export"
	"github.com/medassist-rag/medassist/internal/session"
	"github.com/medassist-rag/medassist/internal/utils"
)

// 异步命令的结果消息，都在 Update 中应用到会话上

type uploadResultMsg struct {
	file string
	text string
	err  error
}

type askResultMsg struct {
	answer string
	err    error
}

type exportDoneMsg struct {
	path string
	err  error
}

type copyDoneMsg struct {
	what string
	err  error
}

const copyTimeout = 3 * time.Second

func uploadCmd(b session.Backend, img utils.ImageFile) tea.Cmd {
	return func() tea.Msg {
		text, err := session.SendFile(context.Background(), b, img)
		return uploadResultMsg{file: img.Name, text: text, err: err}
	}
}

func askCmd(b session.Backend, question, reportText string) tea.Cmd {
	return func() tea.Msg {
		answer, err := b.Ask(context.Background(), question, reportText)
		return askResultMsg{answer: answer, err: err}
	}
}

func exportCmd(e *export.Exporter, t export.Transcript, format export.Format) tea.Cmd {
	return func() tea.Msg {
		path, err := e.Export(t, format)
		return exportDoneMsg{path: path, err: err}
	}
}

func copyCmd(copier func(context.Context, string) error, what, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), copyTimeout)
		defer cancel()
		return copyDoneMsg{what: what, err: copier(ctx, text)}
	}
}
