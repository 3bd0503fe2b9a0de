package utils

import "net/http"

// Doer 接口，http.Client 以及测试中的替身都满足它
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}
