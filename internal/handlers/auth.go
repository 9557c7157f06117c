package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/juhojo/blabbermouth/internal/metrics"
	"github.com/juhojo/blabbermouth/internal/models"
	"github.com/juhojo/blabbermouth/internal/services"
	"github.com/juhojo/blabbermouth/pkg/utils"
)

type Authenticator interface {
	RequestPasscode(ctx context.Context, email string) (*models.User, *models.Passcode, error)
	Verify(ctx context.Context, email string, passcode int) (*models.User, error)
}

type TokenIssuer interface {
	Create(user *models.User, now time.Time) (string, time.Time, error)
	Validate(token string) (*services.Claims, error)
}

// PasscodeRequest is the body of POST /auth.
type PasscodeRequest struct {
	Email string `json:"email"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Passcode *int   `json:"passcode"`
}

type LoginResponse struct {
	Token string             `json:"token"`
	Exp   time.Time          `json:"exp"`
	User  services.TokenUser `json:"user"`
}

type ValidateResponse struct {
	Valid bool `json:"valid"`
}

type AuthHandler struct {
	auth    Authenticator
	tokens  TokenIssuer
	log     *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

func NewAuthHandler(auth Authenticator, tokens TokenIssuer, log *slog.Logger, rec metrics.Recorder) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, log: log, metrics: rec, now: time.Now}
}

// RequestPasscode handles POST /auth. Unknown emails are provisioned.
func (h *AuthHandler) RequestPasscode(w http.ResponseWriter, r *http.Request) {
	var req PasscodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	email := utils.NormalizeEmail(req.Email)
	if err := utils.ValidateEmail(email); err != nil {
		writeValidation(w, err)
		return
	}

	if _, _, err := h.auth.RequestPasscode(r.Context(), email); err != nil {
		h.metrics.RecordPasscodeIssued(false)
		writeServiceError(w, r, h.log, err)
		return
	}
	h.metrics.RecordPasscodeIssued(true)
	writeJSON(w, http.StatusOK, emptyObject)
}

// Login handles POST /auth/login. Every credential failure is a plain 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	email := utils.NormalizeEmail(req.Email)
	var issues utils.ValidationErrors
	issues.Add(utils.ValidateEmail(email))
	if req.Passcode == nil {
		issues.Add(&utils.ValidationError{Field: "passcode", Message: "Passcode is required"})
	} else {
		issues.Add(utils.ValidatePasscode(*req.Passcode))
	}
	if err := issues.Err(); err != nil {
		writeValidation(w, err)
		return
	}

	user, err := h.auth.Verify(r.Context(), email, *req.Passcode)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			h.metrics.RecordLogin(metrics.LoginUnauthorized)
		} else {
			h.metrics.RecordLogin(metrics.LoginError)
		}
		writeServiceError(w, r, h.log, err)
		return
	}

	token, exp, err := h.tokens.Create(user, h.now())
	if err != nil {
		h.metrics.RecordLogin(metrics.LoginError)
		writeServiceError(w, r, h.log, err)
		return
	}

	h.metrics.RecordLogin(metrics.LoginSuccess)
	writeJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		Exp:   exp,
		User:  services.TokenUser{ID: user.ID, Email: user.Email},
	})
}

// Validate handles GET /auth/validate?token=. Bad tokens are reported as
// valid:false, never as an error.
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeValidation(w, &utils.ValidationError{Field: "token", Message: "Token is required"})
		return
	}

	_, err := h.tokens.Validate(token)
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: err == nil})
}
