package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"tripledger/internal/auth"
	"tripledger/internal/core"
	applog "tripledger/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and answered with an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := errorStatus(err)
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
	}
	writeJSON(w, status, resp)
}

func errorStatus(err error) (int, errorResponse) {
	var ve *core.ValidationError
	switch {
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Field: ve.Field}
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "Not found"}
	case errors.Is(err, auth.ErrEmailExists):
		return http.StatusConflict, errorResponse{Error: "Email already exists"}
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, errorResponse{Error: "Resource is in use"}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "Invalid credentials"}
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "Unauthorized"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Server error"}
	}
}
