// Package httputil provides JSON response helpers shared by the console
// host's handlers and middleware.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/plugboard/plugboard/internal/errors"
	"github.com/plugboard/plugboard/internal/logging"
)

// errorBody is the wire format of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorResponse writes a coded error response, echoing the request's
// trace ID when present.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, errorBody{
		Code:    code,
		Message: message,
		TraceID: logging.GetTraceID(r.Context()),
	})
}

// WriteServiceError maps a *ServiceError (or any error, via GetServiceError)
// to a response.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	svcErr := errors.GetServiceError(err)
	WriteErrorResponse(w, r, svcErr.HTTPStatus, svcErr.Code, svcErr.Message)
}

// Unauthorized writes a 401 response with an optional message.
func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "unauthorized"
	}
	WriteErrorResponse(w, r, http.StatusUnauthorized, errors.CodeUnauthorized, message)
}
