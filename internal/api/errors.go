// internal/api/errors.go
package api

import (
	"errors"
	"fmt"
)

// ConnectionError means no usable response came back: the server was unreachable,
// the request timed out, or the body could not be decoded.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection error: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ServerError is a non-success HTTP status carrying the server-supplied message.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server error %d: %s", e.Op, e.Status, e.Message)
}

// connectionMessage is what users see when the server cannot be reached.
const connectionMessage = "Could not reach the server. Check your connection."

// IsConnectionError reports whether err is, or wraps, a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsServerError reports whether err is, or wraps, a ServerError.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// UserMessage renders err for display.
func UserMessage(err error) string {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Message
	}
	if IsConnectionError(err) {
		return connectionMessage
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
