package handler

import (
	"net/http"

	"github.com/duraspace/duplication-policy-manager/internal/api/middleware"
	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles account endpoints.
type AccountHandler struct{}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler() *AccountHandler {
	return &AccountHandler{}
}

// List lists the accounts recorded in the remote index.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetSession(r.Context()).Service

	accounts, err := svc.Accounts(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, accounts)
}

// Create provisions a new account with an empty policy document.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetSession(r.Context()).Service

	var req domain.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	acct, err := svc.CreateAccount(r.Context(), req.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, acct)
}

// Delete removes an account from the index and deletes its policy document.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetSession(r.Context()).Service

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := svc.DeleteAccount(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
