package handler

import (
	"net/http"

	"github.com/duraspace/duplication-policy-manager/internal/api/middleware"
	"github.com/duraspace/duplication-policy-manager/internal/auth"
	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/duraspace/duplication-policy-manager/internal/service"
)

// ServiceFactory builds the per-session edit service once credentials have
// been verified.
type ServiceFactory func(creds *auth.Credentials) *service.PolicyService

// SessionHandler handles login and logout.
type SessionHandler struct {
	manager    *auth.Manager
	registry   *middleware.SessionRegistry
	newService ServiceFactory
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *auth.Manager, registry *middleware.SessionRegistry, newService ServiceFactory) *SessionHandler {
	return &SessionHandler{manager: manager, registry: registry, newService: newService}
}

// Login verifies the supplied backend credentials and issues a session
// token. No session state is retained when the credential check fails.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Subdomain == "" {
		respondError(w, http.StatusBadRequest, "username, password, and subdomain are required")
		return
	}

	creds, err := h.manager.Authenticate(r.Context(), req.Username, req.Password, req.Subdomain)
	if err != nil {
		handleError(w, err)
		return
	}

	session, err := h.registry.Create(creds, h.newService(creds))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, &domain.LoginResponse{
		Token:     session.Token,
		Subdomain: creds.Subdomain(),
	})
}

// Logout tears down the calling session.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session != nil {
		h.registry.Delete(session.Token)
	}
	w.WriteHeader(http.StatusNoContent)
}
