package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/medassist-rag/medassist/internal/session"
)

const brand = "MedAssist RAG"

func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	parts := []string{m.navbar(), m.viewport.View()}
	if m.route == RouteAnalyze {
		if banner := m.errorBanner(); banner != "" {
			parts = append(parts, banner)
		}
		parts = append(parts, m.upload.View(), m.question.View())
	}
	parts = append(parts, m.statusLine(), m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) navbar() string {
	links := make([]string, 0, len(routes))
	for _, r := range routes {
		style := navStyle
		if r == m.route {
			style = navActiveStyle
		}
		links = append(links, style.Render(r.Title()))
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top,
		brandStyle.Render(brand),
		"  ",
		lipgloss.JoinHorizontal(lipgloss.Top, links...),
	)
	return navBarStyle.Width(max(0, m.width)).Render(bar)
}

func (m Model) errorBanner() string {
	if e := m.session.LastError(); e != "" {
		return errorBannerStyle.Render("Error: " + e)
	}
	return ""
}

func (m Model) statusLine() string {
	var status string
	switch {
	case m.session.Uploading():
		status = m.spinner.View() + " Extracting text..."
	case m.session.Asking():
		status = m.spinner.View() + " Assistant is typing..."
	case m.status != "":
		status = m.status
	}
	if m.route == RouteAnalyze {
		info := mutedStyle.Render(fmt.Sprintf("[%s] %s", m.session.Phase(), m.cfg.APIBaseURL))
		if status == "" {
			return info
		}
		return statusStyle.Render(status) + "  " + info
	}
	return statusStyle.Render(status)
}

func (m Model) pageContent() string {
	switch m.route {
	case RouteAnalyze:
		return m.analyzeContent()
	case RouteAbout:
		return m.aboutContent()
	default:
		return m.homeContent()
	}
}

func (m Model) homeContent() string {
	md := `# Understand your medical reports

MedAssist RAG reads a photo or scan of a lab report, extracts its text and
lets you ask plain-language questions about it.

1. Open the **Analyze** page (press enter or tab).
2. Upload a report image with ` + "`ctrl+o`" + ` or ` + "`/upload <path>`" + `.
3. Ask questions like *"Is my hemoglobin in the normal range?"*

Answers come from a retrieval-augmented assistant that only sees the text of
your report. It is not a substitute for advice from a clinician.
`
	return m.renderMarkdown(md)
}

func (m Model) aboutContent() string {
	var sb strings.Builder
	sb.WriteString("# About MedAssist RAG\n\n")
	sb.WriteString("MedAssist RAG is a terminal client for a report OCR service and a ")
	sb.WriteString("question-answering service. Nothing is stored between runs: the ")
	sb.WriteString("report text and conversation live in memory until you quit.\n\n")
	sb.WriteString("## Contact\n\n")
	if m.cfg.Contact.Email != "" {
		fmt.Fprintf(&sb, "- Email: %s\n", m.cfg.Contact.Email)
	}
	if m.cfg.Contact.URL != "" {
		fmt.Fprintf(&sb, "- Web: %s\n", m.cfg.Contact.URL)
	}
	fmt.Fprintf(&sb, "- Service: %s\n", m.cfg.APIBaseURL)
	if Version != "" {
		fmt.Fprintf(&sb, "\nVersion %s\n", Version)
	}
	return m.renderMarkdown(sb.String())
}

func (m Model) analyzeContent() string {
	var sb strings.Builder

	if text := m.session.ExtractedText(); text != "" {
		sb.WriteString(headingStyle.Render("Extracted Text"))
		sb.WriteString("\n")
		sb.WriteString(extractedStyle.Width(max(20, m.viewport.Width-2)).Render(text))
		sb.WriteString("\n\n")
	}

	for _, msg := range m.session.Messages() {
		if msg.Sender == session.SenderUser {
			sb.WriteString(userLabelStyle.Render(msg.Label() + ": "))
			sb.WriteString(msg.Text)
			sb.WriteString("\n\n")
			continue
		}
		sb.WriteString(assistantLabelStyle.Render(msg.Label() + ":"))
		sb.WriteString("\n")
		sb.WriteString(m.renderMarkdown(msg.Text))
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderMarkdown 用 glamour 渲染，渲染器不可用时返回原文
func (m Model) renderMarkdown(md string) string {
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
