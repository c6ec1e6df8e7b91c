package rpc

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the symbolic error code carried in error envelopes.
type Code string

const (
	ParseError          Code = "PARSE_ERROR"
	BadRequest          Code = "BAD_REQUEST"
	NotFound            Code = "NOT_FOUND"
	MethodNotSupported  Code = "METHOD_NOT_SUPPORTED"
	InternalServerError Code = "INTERNAL_SERVER_ERROR"
)

var codeTable = map[Code]struct {
	rpc    int
	status int
}{
	ParseError:          {-32700, http.StatusBadRequest},
	BadRequest:          {-32600, http.StatusBadRequest},
	NotFound:            {-32004, http.StatusNotFound},
	MethodNotSupported:  {-32005, http.StatusMethodNotAllowed},
	InternalServerError: {-32603, http.StatusInternalServerError},
}

// JSONRPC returns the numeric JSON-RPC code.
func (c Code) JSONRPC() int {
	if e, ok := codeTable[c]; ok {
		return e.rpc
	}
	return codeTable[InternalServerError].rpc
}

func (c Code) HTTPStatus() int {
	if e, ok := codeTable[c]; ok {
		return e.status
	}
	return http.StatusInternalServerError
}

// Error is returned by procedures to control the code reported to the client.
// Any other error is reported as INTERNAL_SERVER_ERROR with its message.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a client-facing message to cause. The cause is logged but
// never sent to the client.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: InternalServerError, Message: err.Error(), Cause: err}
}
