package api

import (
	"errors"
	"fmt"
)

// ErrNoFile 表示上传时没有提供文件
var ErrNoFile = errors.New("no file selected")

// APIError 表示服务端返回的应用错误：非 2xx 状态码或响应中的 error 字段
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API请求失败 (状态码: %d): %s", e.StatusCode, e.Message)
}

// TransportError 表示请求没能完成（网络不可达、连接被重置等）
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport 判断错误链中是否有 TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsAPIError 取出错误链中的 APIError
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
