package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/medassist-rag/medassist/internal/session"
	"github.com/russross/blackfriday/v2"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat 接受 md / markdown / html，空串默认 md
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Transcript 是导出时的会话快照
type Transcript struct {
	ExtractedText string
	Messages      []session.Message
	CreatedAt     time.Time
}

func FromSession(s *session.Session, now time.Time) Transcript {
	return Transcript{
		ExtractedText: s.ExtractedText(),
		Messages:      s.Messages(),
		CreatedAt:     now.UTC(),
	}
}

type Exporter struct {
	dir string
}

func New(dir string) *Exporter {
	return &Exporter{dir: strings.TrimSpace(dir)}
}

// Export 写出文件并返回路径，文件只写不读
func (e *Exporter) Export(t Transcript, format Format) (string, error) {
	if e.dir == "" {
		return "", fmt.Errorf("export directory not configured")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	md := BuildTranscriptMarkdown(t)
	var data []byte
	switch format {
	case FormatMarkdown:
		data = []byte(md)
	case FormatHTML:
		data = BuildTranscriptHTML(md)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return writeNew(e.dir, fileName(t.CreatedAt, format), data)
}

const maxNameAttempts = 100

// writeNew 只创建新文件；同一秒内的多次导出依次加上 -2、-3 后缀
func writeNew(dir, name string, data []byte) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxNameAttempts; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("write export file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write export file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("write export file: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("write export file: too many exports named %s", name)
}

func fileName(ts time.Time, format Format) string {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return "medassist-" + ts.UTC().Format("20060102-150405") + "." + string(format)
}

func BuildTranscriptMarkdown(t Transcript) string {
	var b strings.Builder
	b.WriteString("# MedAssist RAG transcript\n\n")
	if !t.CreatedAt.IsZero() {
		b.WriteString("_Exported " + t.CreatedAt.UTC().Format(time.RFC3339) + "_\n\n")
	}

	b.WriteString("## Extracted text\n\n")
	if strings.TrimSpace(t.ExtractedText) == "" {
		b.WriteString("_No report uploaded._\n\n")
	} else {
		b.WriteString("```text\n")
		b.WriteString(strings.TrimRight(t.ExtractedText, "\n") + "\n")
		b.WriteString("```\n\n")
	}

	b.WriteString("## Conversation\n\n")
	for _, m := range t.Messages {
		content := strings.TrimSpace(m.Text)
		if content == "" {
			continue
		}
		b.WriteString("### " + m.Label() + "\n\n")
		b.WriteString(content + "\n\n")
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// BuildTranscriptHTML 把 Markdown 转成独立的 HTML 页面
func BuildTranscriptHTML(md string) []byte {
	body := blackfriday.Run([]byte(md))
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>MedAssist RAG transcript</title>\n</head>\n<body>\n")
	b.Write(body)
	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}
