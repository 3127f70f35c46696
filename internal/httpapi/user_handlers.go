package httpapi

import (
	"net/http"
	"strings"

	"legalflow/internal/audit"
	"legalflow/internal/auth"
)

type userStatusRequest struct {
	Active bool `json:"active"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := requireRole(w, r, auth.RoleAdmin, auth.RoleSecretary); !ok {
		return
	}
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users, "total": len(users)})
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	userID := parts[0]

	switch {
	case len(parts) == 1:
		a.getUser(w, r, userID)
	case len(parts) == 2 && parts[1] == "status":
		a.setUserStatus(w, r, userID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	// Clients only see themselves; staff may look up anyone.
	if p.Role == auth.RoleClient && p.UserID != userID {
		writeError(w, r, http.StatusForbidden, "access denied")
		return
	}
	user, profile, err := a.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	resp := map[string]any{"user": user}
	if profile != nil {
		resp["profile"] = profile
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) setUserStatus(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	p, ok := requireRole(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	if p.UserID == userID {
		writeError(w, r, http.StatusBadRequest, "cannot change own status")
		return
	}
	var req userStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.SetUserStatus(r.Context(), userID, req.Active); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.status.update", map[string]any{
		"target_user_id": userID,
		"active":         req.Active,
	})
	w.WriteHeader(http.StatusNoContent)
}
