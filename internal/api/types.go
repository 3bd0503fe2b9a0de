package api

// UploadResponse 是 /upload_report 的响应体
type UploadResponse struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// AskRequest 是 /ask 的请求体
type AskRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// AskResponse 是 /ask 的响应体
type AskResponse struct {
	Answer string `json:"answer"`
	Error  string `json:"error,omitempty"`
}
