package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/ladle/internal/apperr"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Kind  string `json:"kind,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind error) int {
	switch kind {
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrConflict, apperr.ErrAlreadyExists:
		return http.StatusConflict
	case apperr.ErrConfiguration, apperr.ErrAdapter:
		return http.StatusServiceUnavailable
	case apperr.ErrExtractionParse, apperr.ErrMutationParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var kindNames = map[error]string{
	apperr.ErrValidation:      "validation",
	apperr.ErrNotFound:        "not_found",
	apperr.ErrConflict:        "conflict",
	apperr.ErrAlreadyExists:   "already_exists",
	apperr.ErrConfiguration:   "configuration",
	apperr.ErrAdapter:         "adapter",
	apperr.ErrExtractionParse: "extraction_parse",
	apperr.ErrMutationParse:   "mutation_parse",
}

// writeError classifies err and writes the matching status. Unclassified
// errors are logged and reported as "internal error".
func writeError(w http.ResponseWriter, op string, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if kind == nil {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	if status >= http.StatusInternalServerError {
		slog.Warn(op+" failed", slog.String("kind", kindNames[kind]), slog.String("error", err.Error()))
	}
	writeJSON(w, status, errResponse{Error: err.Error(), Kind: kindNames[kind]})
}

// decodeJSON reads a size-limited JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
		case errors.Is(err, io.EOF):
			writeJSON(w, http.StatusBadRequest, errorBody("request body is required"))
		default:
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		}
		return false
	}
	return true
}
