package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"bookreview/internal/httpx"
)

// NewRequest creates a new HTTP request for testing. body is marshalled to
// JSON unless it is already a string.
func NewRequest(method, path string, body any) *http.Request {
	var bodyBytes []byte
	switch b := body.(type) {
	case nil:
	case string:
		bodyBytes = []byte(b)
	default:
		bodyBytes, _ = json.Marshal(b)
	}
	if bodyBytes == nil {
		return httptest.NewRequest(method, path, nil)
	}
	r := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   []byte
}

// RecordHTTPResponse records the HTTP response
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)
	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyBytes,
	}
}

// ErrorCode decodes the error envelope and returns its code, or "" when the
// body is not an error envelope.
func (r RecordResponse) ErrorCode() string {
	var resp httpx.ErrorResponse
	if err := json.Unmarshal(r.Body, &resp); err != nil {
		return ""
	}
	return resp.Error.Code
}

// AssertResponseCode checks if the response code matches expected
func AssertResponseCode(t interface {
	Errorf(format string, args ...any)
}, got, want int) {
	if got != want {
		t.Errorf("got status code %d, want %d", got, want)
	}
}
