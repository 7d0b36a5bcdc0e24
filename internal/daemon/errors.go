package daemon

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes used in API error bodies
const (
	codeBadRequest   = "BAD_REQUEST"
	codeUnauthorized = "UNAUTHORIZED"
	codeNotFound     = "NOT_FOUND"
	codeConflict     = "CONFLICT"
	codeInternal     = "INTERNAL_ERROR"
)

// APIError is the structured error returned by the JSON API
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// ErrorResponse is the JSON envelope for error responses
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// encodeFailureBody is sent when a response cannot be encoded
const encodeFailureBody = `{"error":{"code":"` + codeInternal + `","message":"failed to encode response"}}` + "\n"

// writeJSON writes data with status as a JSON body. The body is encoded
// before the header goes out, so an encoding failure becomes a 500.
func writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(encodeFailureBody))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// writeError logs apiErr with the request context and writes it
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError) {
	attrs := []any{
		"correlation_id", GetCorrelationID(r.Context()),
		"code", apiErr.Code,
		"message", apiErr.Message,
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
	}
	if apiErr.cause != nil {
		attrs = append(attrs, "cause", apiErr.cause.Error())
	}

	if status >= 500 {
		s.logger.Error("api error", attrs...)
	} else {
		s.logger.Warn("api error", attrs...)
	}

	writeJSON(w, status, ErrorResponse{Error: apiErr})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	s.writeError(w, r, http.StatusBadRequest, &APIError{Code: codeBadRequest, Message: message})
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusUnauthorized, &APIError{Code: codeUnauthorized, Message: "not signed in"})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request, resource string) {
	s.writeError(w, r, http.StatusNotFound, &APIError{Code: codeNotFound, Message: resource + " not found"})
}

func (s *Server) conflict(w http.ResponseWriter, r *http.Request, message string) {
	s.writeError(w, r, http.StatusConflict, &APIError{Code: codeConflict, Message: message})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, message string, cause error) {
	s.writeError(w, r, http.StatusInternalServerError, &APIError{Code: codeInternal, Message: message, cause: cause})
}
