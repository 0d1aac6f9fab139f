package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/duraspace/duplication-policy-manager/internal/validation"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &domain.APIError{
		Code:    status,
		Message: message,
	})
}

// handleError converts domain and validation errors to HTTP errors.
// Validation failures keep their field context; remote failures carry
// enough detail (status code or parse context) to display a useful message.
func handleError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	var terr *domain.TransportError
	var merr *domain.MalformedResponseError

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, verr)
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid input")
	case errors.As(err, &terr):
		respondError(w, http.StatusBadGateway, terr.Error())
	case errors.As(err, &merr):
		respondError(w, http.StatusBadGateway, merr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}
