package api

import (
	"encoding/json"
	"net/http"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/log"
)

// Stable error codes of the REST contract
const (
	CodeMissingStoreName       = "MISSING_STORE_NAME"
	CodeInvalidStoreName       = "INVALID_STORE_NAME"
	CodeInvalidEngine          = "INVALID_ENGINE"
	CodeEngineUnavailable      = "ENGINE_UNAVAILABLE"
	CodeQuotaExceeded          = "QUOTA_EXCEEDED"
	CodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeOperationInProgress    = "OPERATION_IN_PROGRESS"
	CodeInvalidJSON            = "INVALID_JSON"
	CodeInternalServerError    = "INTERNAL_SERVER_ERROR"
)

// Error is an operational API error: expected, surfaced to the caller with a
// stable code. Everything else maps to INTERNAL_SERVER_ERROR.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// NewError creates an operational API error
func NewError(statusCode int, code, message string) *Error {
	return &Error{StatusCode: statusCode, Code: code, Message: message}
}

// errorBody is the wire form of the error envelope
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// respond writes a JSON response with the given status code
func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError writes the error envelope for an operational error
func respondError(w http.ResponseWriter, err *Error) {
	respond(w, err.StatusCode, errorEnvelope{Error: errorBody{
		Code:    err.Code,
		Message: err.Message,
	}})
}

// respondInternal writes a 500 envelope. Outside production the raw message
// and stack are included for debuggability; in production the message is
// fixed and the stack omitted.
func respondInternal(w http.ResponseWriter, production bool, message, stack string) {
	body := errorBody{
		Code:    CodeInternalServerError,
		Message: "An unexpected error occurred",
	}
	if !production {
		if message != "" {
			body.Message = message
		}
		body.Stack = stack
	}
	respond(w, http.StatusInternalServerError, errorEnvelope{Error: body})
}
