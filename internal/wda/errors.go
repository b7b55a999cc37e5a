package wda

import (
	"encoding/json"
	"errors"
	"fmt"
)

const unknownError = "unknown error"

// Error is the single error type for failed WDA calls. StatusCode is 0 for
// transport failures.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("wda request failed: %s", e.Message)
	}
	return fmt.Sprintf("wda request failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a WDA error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var we *Error
	return errors.As(err, &we) && we.StatusCode == status
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Value   struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	} `json:"value"`
}

// errorMessage extracts the most specific message from a WDA error body.
func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		// value may be a string or null; retry without it
		var flat struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(body, &flat) == nil {
			eb.Message, eb.Error = flat.Message, flat.Error
		}
	}
	for _, m := range []string{eb.Message, eb.Error, eb.Value.Message, eb.Value.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

func newTransportError(err error) *Error {
	msg := unknownError
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Error{Message: msg}
}

func newStatusError(status int, body []byte) *Error {
	msg := errorMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("request failed with status code %d", status)
	}
	return &Error{StatusCode: status, Message: msg}
}
