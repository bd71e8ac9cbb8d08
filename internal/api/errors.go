package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

const msgUnreachable = "Could not reach the server"

// RequestError is returned for failed API calls: any status above 399 that
// was not recovered by a token refresh, and transport failures (StatusCode 0).
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	// Message is the user-facing text built from the response body.
	Message string
	// Fields maps each key of a JSON error body to its messages.
	Fields map[string][]string
	Err    error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request failed: %s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("request failed: %s %s (status: %d): %s", e.Method, e.URL, e.StatusCode, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// UserMessage returns the text shown to the user for this error.
func (e *RequestError) UserMessage() string { return e.Message }

// IsStatus reports whether err is a RequestError with the given status code.
func IsStatus(err error, code int) bool {
	var re *RequestError
	return errors.As(err, &re) && re.StatusCode == code
}

// handleError is a generic error handler for failing response (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		re := &RequestError{Message: msgUnreachable, Err: err}
		if res != nil && res.Request != nil {
			re.Method = res.Request.Method
			re.URL = res.Request.URL
		}
		return res, re
	}
	if res.IsError() {
		return res, newRequestError(res)
	}
	return res, nil
}

func newRequestError(res *resty.Response) *RequestError {
	re := &RequestError{
		Method:     res.Request.Method,
		URL:        res.Request.URL,
		StatusCode: res.StatusCode(),
	}
	re.Message, re.Fields = errorMessage(res.Body())
	if re.Message == "" {
		re.Message = http.StatusText(re.StatusCode)
	}
	return re
}

// errorMessage flattens a JSON error body into one message. Object values are
// joined with a space in key order; nested lists and objects are flattened.
// Bodies that are not JSON yield an empty message.
func errorMessage(body []byte) (string, map[string][]string) {
	var v any
	if len(body) == 0 || json.Unmarshal(body, &v) != nil {
		return "", nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return strings.Join(flatten(v), " "), nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(map[string][]string, len(obj))
	var parts []string
	for _, k := range keys {
		msgs := flatten(obj[k])
		fields[k] = msgs
		parts = append(parts, msgs...)
	}
	return strings.Join(parts, " "), fields
}

func flatten(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, flatten(item)...)
		}
		return out
	case map[string]any:
		msg, _ := errorMessage(mustMarshal(t))
		if msg == "" {
			return nil
		}
		return []string{msg}
	default:
		return []string{fmt.Sprint(t)}
	}
}

func mustMarshal(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
