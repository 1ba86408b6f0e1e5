package service

import (
	"encoding/json"
	"fmt"
)

// APIError is a non-2xx response. Message is the backend's "error" field
// when it sent one, otherwise a generic message for the operation.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

func newAPIError(status int, reqID string, raw []byte, fallback string) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &payload)
	msg := payload.Error
	if msg == "" {
		msg = fallback
	}
	return &APIError{Status: status, Message: msg, RequestID: reqID}
}

// DecodeError is a 2xx response whose body was not the expected JSON.
type DecodeError struct {
	Status    int
	RequestID string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response (HTTP %d): %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
