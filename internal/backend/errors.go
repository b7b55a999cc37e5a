package backend

import (
	"encoding/json"
	"net/http"
)

// Error is the normalized failure of a backend call. StatusCode is 0 for
// transport failures.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }

// statusPrefix maps an HTTP status to the user-facing category.
func statusPrefix(status int) string {
	switch status {
	case http.StatusForbidden:
		return "access denied"
	case http.StatusNotFound:
		return "not found"
	case http.StatusInternalServerError:
		return "server error"
	default:
		return "network error"
	}
}

func newError(status int, body []byte, cause error) *Error {
	msg := statusPrefix(status)
	detail := ""
	var eb struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &eb) == nil {
		detail = eb.Message
		if detail == "" {
			detail = eb.Error
		}
	}
	if detail == "" && cause != nil {
		detail = cause.Error()
	}
	if detail != "" {
		msg += ": " + detail
	}
	return &Error{StatusCode: status, Message: msg}
}
