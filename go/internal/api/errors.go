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

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")

	// ErrSessionExpired is returned when a rejected request could not be
	// retried because the token refresh failed. The token store is cleared.
	ErrSessionExpired = errors.New("session expired")
)

const defaultErrorMessage = "request failed"

// APIError is a non-2xx response from the backend
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// Unwrap maps the status to a package sentinel so callers can use errors.Is
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status >= http.StatusInternalServerError:
		return ErrServer
	case e.Status >= http.StatusBadRequest:
		return ErrBadRequest
	}
	return nil
}

func mapHTTPError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return &APIError{Status: resp.StatusCode(), Message: errorMessage(resp.Body(), resp.StatusCode())}
}

// errorMessage extracts a readable message from an error body. A plain
// string wins, then "detail", then "error", then field validation errors.
func errorMessage(body []byte, status int) string {
	fallback := http.StatusText(status)
	if fallback == "" {
		fallback = defaultErrorMessage
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fallback
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		// not JSON, e.g. an HTML error page from a proxy
		if len(trimmed) > 200 {
			return fallback
		}
		return trimmed
	}

	switch v := decoded.(type) {
	case string:
		return v
	case map[string]any:
		if detail, ok := v["detail"].(string); ok && detail != "" {
			return detail
		}
		if msg, ok := v["error"].(string); ok && msg != "" {
			return msg
		}
		if fields := fieldErrors(v); fields != "" {
			return fields
		}
	}
	return fallback
}

func fieldErrors(body map[string]any) string {
	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		msg := joinMessages(body[key])
		if msg == "" {
			continue
		}
		if key == "non_field_errors" {
			lines = append(lines, msg)
			continue
		}
		lines = append(lines, key+": "+msg)
	}
	return strings.Join(lines, "\n")
}

func joinMessages(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := joinMessages(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
