package rest

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrMisroutedResponse marks the transport-level misconfiguration where the
// API base URL points at a static file server and it answered with an HTML
// document instead of JSON.
var ErrMisroutedResponse = errors.New("received an html document from the api; check API_URL")

// RemoteError is a structured server rejection: the HTTP status plus the
// human-readable message extracted from the error envelope. It wraps the
// matching domain sentinel so callers can use errors.Is.
type RemoteError struct {
	Status  int
	Message string
	err     error
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.err
}

// Message returns the server's human-readable message if err carries one,
// and fallback otherwise.
func Message(err error, fallback string) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}

func remoteError(status int, raw []byte) *RemoteError {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(raw, &envelope)
	msg := envelope.Message
	if msg == "" {
		msg = envelope.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RemoteError{Status: status, Message: msg, err: sentinelFor(status)}
}
