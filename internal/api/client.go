package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/medassist-rag/medassist/internal/logger"
	"github.com/medassist-rag/medassist/internal/utils"
)

const (
	uploadPath = "/upload_report"
	askPath    = "/ask"

	// 非 JSON 错误体最多读取的字节数
	maxErrorBody = 64 * 1024
)

// 全局共享的 Transport，实现连接池化
var (
	sharedTransport *http.Transport
	transportOnce   sync.Once
)

func getSharedTransport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	})
	return sharedTransport
}

type Client struct {
	baseURL string
	doer    utils.Doer
	log     logger.Logger
}

type Option func(*Client)

// WithDoer 替换底层 HTTP 执行者
func WithDoer(d utils.Doer) Option {
	return func(c *Client) { c.doer = d }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient 创建报告问答服务的客户端
// baseURL: 服务根地址，例如 http://localhost:8000
// timeout: 单次请求超时，0 表示不设超时
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		doer: &http.Client{
			Transport: getSharedTransport(),
			Timeout:   timeout,
		},
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadReport 以 multipart 表单字段 file 上传报告图片，返回识别出的文本
func (c *Client) UploadReport(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	if r == nil || strings.TrimSpace(filename) == "" {
		return "", ErrNoFile
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(fileHeader(filename, contentType))
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	n, err := io.Copy(part, r)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	c.log.Info("api", "uploading report", map[string]interface{}{"file": filename, "bytes": n})
	resp, err := c.doer.Do(httpReq)
	if err != nil {
		c.log.Error("api", "upload transport failure", map[string]interface{}{"error": err})
		return "", &TransportError{Op: "upload_report", Err: err}
	}
	defer resp.Body.Close()

	text, err := decodeUpload(resp)
	if err != nil {
		c.log.Warn("api", "upload rejected", map[string]interface{}{"status": resp.StatusCode, "error": err.Error()})
		return "", err
	}
	c.log.Info("api", "report text extracted", map[string]interface{}{"chars": len(text)})
	return text, nil
}

// decodeUpload 按 Content-Type 解析上传结果，非 JSON 的 2xx 响应体当作纯文本
func decodeUpload(resp *http.Response) (string, error) {
	isJSON := isJSONResponse(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if isJSON {
			var data UploadResponse
			if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
				msg = fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
			} else {
				msg = data.Error
			}
		} else {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if !isJSON {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", &TransportError{Op: "upload_report", Err: err}
		}
		return string(raw), nil
	}

	// 响应体无法解析时按网络错误处理，与请求没有完成一样
	var data UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", &TransportError{Op: "upload_report", Err: fmt.Errorf("decode response: %w", err)}
	}
	if data.Error != "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: data.Error}
	}
	return data.Text, nil
}

// Ask 携带报告文本提问，返回回答
func (c *Client) Ask(ctx context.Context, question, reportText string) (string, error) {
	body, err := json.Marshal(AskRequest{Question: question, Context: reportText})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+askPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.log.Info("api", "asking question", map[string]interface{}{"question_chars": len(question), "context_chars": len(reportText)})
	resp, err := c.doer.Do(httpReq)
	if err != nil {
		c.log.Error("api", "ask transport failure", map[string]interface{}{"error": err})
		return "", &TransportError{Op: "ask", Err: err}
	}
	defer resp.Body.Close()

	answer, err := decodeAsk(resp)
	if err != nil {
		c.log.Warn("api", "ask rejected", map[string]interface{}{"status": resp.StatusCode, "error": err.Error()})
		return "", err
	}
	return answer, nil
}

func decodeAsk(resp *http.Response) (string, error) {
	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299

	var data AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		if !ok {
			return "", &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("status %d", resp.StatusCode)}
		}
		return "", &TransportError{Op: "ask", Err: fmt.Errorf("decode response: %w", err)}
	}
	if data.Error != "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: data.Error}
	}
	if !ok {
		return "", &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return data.Answer, nil
}

func isJSONResponse(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return strings.Contains(resp.Header.Get("Content-Type"), "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func fileHeader(filename, contentType string) textproto.MIMEHeader {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return h
}
