package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request describes one call to the HR API. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON encoded when non-nil

	retry bool // set on the single re-issue after a token refresh
}

// IsRetry reports whether the request is the re-issue that follows a refresh.
func (r *Request) IsRetry() bool {
	return r.retry
}

func Get(path string, query url.Values) *Request {
	return &Request{Method: http.MethodGet, Path: path, Query: query}
}

func Post(path string, body any) *Request {
	return &Request{Method: http.MethodPost, Path: path, Body: body}
}

func Put(path string, body any) *Request {
	return &Request{Method: http.MethodPut, Path: path, Body: body}
}

func Delete(path string) *Request {
	return &Request{Method: http.MethodDelete, Path: path}
}

// Response is a successful (2xx) reply with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
