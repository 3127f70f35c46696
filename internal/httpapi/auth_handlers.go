package httpapi

import (
	"net/http"
	"time"

	"legalflow/internal/audit"
	"legalflow/internal/auth"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Phone     string `json:"phone"`

	BarNumber   string   `json:"bar_number"`
	Specialties []string `json:"specialties"`
	Bio         string   `json:"bio"`

	Address        auth.Address `json:"address"`
	Company        auth.Company `json:"company"`
	Matters        []string     `json:"matters"`
	ReferralSource string       `json:"referral_source"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      *auth.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.auth.Register(r.Context(), auth.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           req.Role,
		Phone:          req.Phone,
		BarNumber:      req.BarNumber,
		Specialties:    req.Specialties,
		Bio:            req.Bio,
		Address:        req.Address,
		Company:        req.Company,
		Matters:        req.Matters,
		ReferralSource: req.ReferralSource,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": session.User.ID,
		"role":    session.User.Role,
	})
	writeJSON(w, http.StatusCreated, sessionResponse{
		User:      session.User,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": session.User.ID,
	})
	writeJSON(w, http.StatusOK, sessionResponse{
		User:      session.User,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	user, profile, err := a.auth.CurrentUser(r.Context(), p.UserID)
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

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// The raw token is returned to the delivery channel only. Unknown emails
	// get the same response, so the endpoint does not leak which accounts
	// exist.
	token, err := a.auth.RequestPasswordReset(r.Context(), req.Email)
	if err == nil {
		_ = audit.LogEvent(r.Context(), "auth.password.reset_requested", map[string]any{
			"email": req.Email,
		})
		a.deliverResetToken(req.Email, token)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
	})
}

// deliverResetToken hands the raw token to the out-of-band channel. Hook
// point for a mailer; the token must never be written to logs.
func (a *API) deliverResetToken(email, token string) {
	_ = email
	_ = token
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.auth.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.reset", map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "password_updated",
	})
}
