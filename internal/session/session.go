// Package session holds the per-run state of the report analysis view:
// the message log, the extracted report text and the in-flight flags.
//
// Session is not safe for concurrent use. In the TUI it is owned by the
// bubbletea update loop; network calls run elsewhere and hand their results
// back through FinishUpload / FinishAsk.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/medassist-rag/medassist/internal/api"
	"github.com/medassist-rag/medassist/internal/utils"
)

// Backend 是远端 OCR 与问答服务，*api.Client 实现了它
type Backend interface {
	UploadReport(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
	Ask(ctx context.Context, question, reportText string) (string, error)
}

type Session struct {
	messages       []Message
	extractedText  string
	reportUploaded bool
	uploading      bool
	asking         bool
	lastError      string
}

func New() *Session {
	return &Session{messages: []Message{greeting()}}
}

// Messages 返回消息记录的副本
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastAnswer 返回最后一条助手消息
func (s *Session) LastAnswer() (Message, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Sender == SenderAssistant {
			return s.messages[i], true
		}
	}
	return Message{}, false
}

func (s *Session) ExtractedText() string { return s.extractedText }
func (s *Session) ReportUploaded() bool  { return s.reportUploaded }
func (s *Session) Uploading() bool       { return s.uploading }
func (s *Session) Asking() bool          { return s.asking }
func (s *Session) LastError() string     { return s.lastError }

// Busy 为 true 时上传和发送都被禁用
func (s *Session) Busy() bool {
	return s.uploading || s.asking
}

func (s *Session) Phase() Phase {
	switch {
	case s.uploading:
		return PhaseReportUploading
	case s.asking:
		return PhaseAnswerPending
	case s.reportUploaded:
		return PhaseReportReady
	default:
		return PhaseNoReport
	}
}

// CanAsk 报告已上传、文本非空、问题非空且没有进行中的请求
func (s *Session) CanAsk(question string) bool {
	return !s.Busy() &&
		s.reportUploaded &&
		s.extractedText != "" &&
		strings.TrimSpace(question) != ""
}

func (s *Session) appendAssistant(text string) {
	s.messages = append(s.messages, Message{Sender: SenderAssistant, Text: text})
}

// BeginUpload 进入上传状态并追加处理中提示
func (s *Session) BeginUpload() bool {
	if s.Busy() {
		return false
	}
	s.uploading = true
	s.lastError = ""
	s.appendAssistant(uploadProcessingText)
	return true
}

// FinishUpload 应用上传结果；失败时保留之前的报告文本
func (s *Session) FinishUpload(text string, err error) {
	s.uploading = false
	if err == nil {
		s.extractedText = text
		s.reportUploaded = true
		s.appendAssistant(uploadSuccessText)
		return
	}

	if api.IsTransport(err) {
		s.lastError = err.Error()
		s.appendAssistant(uploadNetworkText)
		return
	}
	msg := err.Error()
	if apiErr, ok := api.AsAPIError(err); ok {
		msg = apiErr.Message
	}
	s.lastError = msg
	s.appendAssistant(uploadFailedPrefix + msg)
}

// RejectUpload 记录本地校验失败，此时不会发出请求
func (s *Session) RejectUpload(err error) {
	if s.Busy() || err == nil {
		return
	}
	s.lastError = err.Error()
	s.appendAssistant(uploadRejectedPrefix + err.Error())
}

// BeginAsk 校验并追加用户问题，返回实际发送的问题
func (s *Session) BeginAsk(question string) (string, bool) {
	if !s.CanAsk(question) {
		return "", false
	}
	question = strings.TrimSpace(question)
	s.messages = append(s.messages, Message{Sender: SenderUser, Text: question})
	s.asking = true
	s.lastError = ""
	return question, true
}

func (s *Session) FinishAsk(answer string, err error) {
	s.asking = false
	if err == nil {
		s.appendAssistant(answer)
		return
	}

	if api.IsTransport(err) {
		s.lastError = err.Error()
		s.appendAssistant(askNetworkText)
		return
	}
	msg := err.Error()
	if apiErr, ok := api.AsAPIError(err); ok {
		msg = apiErr.Message
	}
	s.lastError = msg
	s.appendAssistant(askFailedPrefix + msg)
}

// Clear 把消息记录重置为问候语并清掉错误，报告文本保持不变
func (s *Session) Clear() bool {
	if s.Busy() {
		return false
	}
	s.messages = []Message{greeting()}
	s.lastError = ""
	return true
}

// SendFile 打开已校验的图片并交给 Backend 上传
func SendFile(ctx context.Context, b Backend, img utils.ImageFile) (string, error) {
	f, err := os.Open(img.Path)
	if err != nil {
		return "", fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()
	return b.UploadReport(ctx, img.Name, img.ContentType, f)
}

// Upload 同步完成一次上传：本地校验、发送、应用结果
func (s *Session) Upload(ctx context.Context, b Backend, path string, maxBytes int64) error {
	if s.Busy() {
		return fmt.Errorf("another request is in progress")
	}
	img, err := utils.InspectImage(path, maxBytes)
	if err != nil {
		s.RejectUpload(err)
		return err
	}
	s.BeginUpload()
	text, err := SendFile(ctx, b, img)
	s.FinishUpload(text, err)
	return err
}

// Ask 同步完成一次提问；不满足前置条件时返回 false 且不发请求
func (s *Session) Ask(ctx context.Context, b Backend, question string) (bool, error) {
	q, ok := s.BeginAsk(question)
	if !ok {
		return false, nil
	}
	answer, err := b.Ask(ctx, q, s.extractedText)
	s.FinishAsk(answer, err)
	return true, err
}
