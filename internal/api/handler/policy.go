package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/duraspace/duplication-policy-manager/internal/api/middleware"
	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/go-chi/chi/v5"
)

// PolicyHandler handles policy, space, and rule endpoints.
type PolicyHandler struct{}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler() *PolicyHandler {
	return &PolicyHandler{}
}

// Get returns the account's policy graph.
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetSession(r.Context()).Service

	policy, err := svc.GetPolicy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, policy)
}

// Providers returns the storage providers available to the account.
func (h *PolicyHandler) Providers(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetSession(r.Context()).Service

	providers, err := svc.Providers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, providers)
}

// AvailableSpaces returns the backend spaces not yet configured on the
// account's policy.
func (h *PolicyHandler) AvailableSpaces(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetSession(r.Context()).Service

	spaces, err := svc.AvailableSpaces(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, spaces)
}

// AddSpace attaches a space to the account's policy.
func (h *PolicyHandler) AddSpace(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetSession(r.Context()).Service

	var req domain.AddSpaceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SpaceID == "" {
		respondError(w, http.StatusBadRequest, "spaceId is required")
		return
	}

	space, err := svc.AddSpace(r.Context(), chi.URLParam(r, "id"), req.SpaceID, req.Ignored)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, space)
}

// RemoveSpace detaches a space from the account's policy.
func (h *PolicyHandler) RemoveSpace(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetSession(r.Context()).Service

	spaceID, _ := url.PathUnescape(chi.URLParam(r, "spaceId"))
	if spaceID == "" {
		respondError(w, http.StatusBadRequest, "spaceId is required")
		return
	}

	if err := svc.RemoveSpace(r.Context(), chi.URLParam(r, "id"), spaceID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddRule adds a duplication rule to a space's collection.
func (h *PolicyHandler) AddRule(w http.ResponseWriter, r *http.Request) {
	spaceID, _ := url.PathUnescape(chi.URLParam(r, "spaceId"))
	if spaceID == "" {
		respondError(w, http.StatusBadRequest, "spaceId is required")
		return
	}
	h.addRule(w, r, spaceID)
}

// AddDefaultRule adds a duplication rule to the policy's default collection.
func (h *PolicyHandler) AddDefaultRule(w http.ResponseWriter, r *http.Request) {
	h.addRule(w, r, "")
}

func (h *PolicyHandler) addRule(w http.ResponseWriter, r *http.Request, spaceID string) {
	svc := middleware.GetSession(r.Context()).Service

	var req domain.AddStorePolicyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := svc.AddStorePolicy(r.Context(), chi.URLParam(r, "id"), spaceID, req.SourceID, req.DestinationID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

// RemoveRule removes a duplication rule from a space's collection.
func (h *PolicyHandler) RemoveRule(w http.ResponseWriter, r *http.Request) {
	spaceID, _ := url.PathUnescape(chi.URLParam(r, "spaceId"))
	if spaceID == "" {
		respondError(w, http.StatusBadRequest, "spaceId is required")
		return
	}
	h.removeRule(w, r, spaceID)
}

// RemoveDefaultRule removes a rule from the policy's default collection.
func (h *PolicyHandler) RemoveDefaultRule(w http.ResponseWriter, r *http.Request) {
	h.removeRule(w, r, "")
}

func (h *PolicyHandler) removeRule(w http.ResponseWriter, r *http.Request, spaceID string) {
	svc := middleware.GetSession(r.Context()).Service

	ruleID := chi.URLParam(r, "ruleId")
	if ruleID == "" {
		respondError(w, http.StatusBadRequest, "ruleId is required")
		return
	}

	if err := svc.RemoveStorePolicy(r.Context(), chi.URLParam(r, "id"), spaceID, ruleID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListVersions lists the recorded policy versions for the account.
func (h *PolicyHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetSession(r.Context()).Service

	limit := 20
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	versions, err := svc.Versions(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, versions)
}

// Rollback restores a previously recorded policy document.
func (h *PolicyHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetSession(r.Context()).Service

	versionID := chi.URLParam(r, "versionId")
	if versionID == "" {
		respondError(w, http.StatusBadRequest, "versionId is required")
		return
	}

	policy, err := svc.Rollback(r.Context(), chi.URLParam(r, "id"), versionID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, policy)
}
