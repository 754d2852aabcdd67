// Package api is the REST client for the work-tracking service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
)

// ErrUnauthorized indicates the service rejected the personal access token.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound indicates the query, work item or attachment does not exist
// or is not visible to the token.
var ErrNotFound = errors.New("not found")

// StatusError is returned for responses outside the expected status range.
type StatusError struct {
	Op         string
	StatusCode int
	// Body is the service message when one could be extracted, otherwise
	// the start of the raw body.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Is matches ErrUnauthorized and ErrNotFound by status code.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == nethttp.StatusUnauthorized ||
			e.StatusCode == nethttp.StatusForbidden ||
			e.StatusCode == nethttp.StatusNonAuthoritativeInfo
	case ErrNotFound:
		return e.StatusCode == nethttp.StatusNotFound
	}
	return false
}

// newStatusError drains up to maxErrorBody bytes of resp and extracts the
// service's error message when the body is the usual JSON envelope:
//
//	{"$id":"1","message":"TF401232: Work item 4711 does not exist...","typeKey":"..."}
func newStatusError(op string, resp *nethttp.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope struct {
		Message string `json:"message"`
	}
	body := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		body = envelope.Message
	} else if strings.HasPrefix(body, "<") {
		// HTML sign-in or error page
		body = ""
	}

	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: body}
}

// IsUnauthorized reports whether err means the token was rejected.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
