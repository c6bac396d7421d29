package handler

import (
	"net/http"
	"time"

	"github.com/tallyhq/tally/internal/ctxkeys"
	"github.com/tallyhq/tally/internal/middleware"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"
)

type authHandler struct {
	authService *service.AuthService
	isDev       bool
	linker      interface {
		Link(purpose, rawToken string) string
	}
}

func NewAuthHandler(authService *service.AuthService, emailService *service.EmailService, isDev bool) *authHandler {
	return &authHandler{
		authService: authService,
		isDev:       isDev,
		linker:      emailService,
	}
}

func deviceMeta(r *http.Request) model.DeviceMeta {
	return model.DeviceMeta{
		UserAgent: r.UserAgent(),
		IP:        middleware.ClientIP(r),
	}
}

// Register creates an unverified account. In development the response carries
// the verification link so the flow can be exercised without email delivery.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Password == "" || req.Name == "" {
		respondErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "password and name are required")
		return
	}

	account, rawToken, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := map[string]any{"user": account}
	if h.isDev && rawToken != "" {
		resp["verificationLink"] = h.linker.Link(model.PurposeVerifyEmail, rawToken)
	}

	respondJSON(w, http.StatusCreated, resp)
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "email and password are required")
		return
	}

	pair, account, err := h.authService.Login(r.Context(), req.Email, req.Password, deviceMeta(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresIn":    pair.ExpiresIn,
		"user":         account,
	})
}

func (h *authHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		respondErrorCode(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
		return
	}

	pair, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, pair)
}

// Logout is idempotent: revoking an unknown token still reports success.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.RefreshToken != "" {
		err := h.authService.Logout(req.RefreshToken)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// VerifyEmail accepts the token from either the query string (link click) or
// the JSON body.
func (h *authHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" && r.Method == http.MethodPost {
		var req struct {
			Token string `json:"token"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		token = req.Token
	}

	account, err := h.authService.VerifyEmail(token)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"verified": account.IsVerified, "user": account})
}

// ForgotPassword always reports success so the response cannot be used to
// probe which addresses are registered.
func (h *authHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.authService.ForgotPassword(req.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (h *authHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.authService.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

func (h *authHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		respondErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "currentPassword and newPassword are required")
		return
	}

	accountID := ctxkeys.AccountID(r.Context())
	err := h.authService.ChangePassword(r.Context(), accountID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"changed": true})
}

func (h *authHandler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewEmail string `json:"newEmail"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.authService.RequestEmailChange(ctxkeys.AccountID(r.Context()), req.NewEmail)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (h *authHandler) RequestEmailAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewEmail string `json:"newEmail"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.authService.RequestEmailAdd(ctxkeys.AccountID(r.Context()), req.NewEmail)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// ConfirmEmail completes both the change-email and add-email flows.
func (h *authHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" && r.Method == http.MethodPost {
		var req struct {
			Token string `json:"token"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		token = req.Token
	}

	account, err := h.authService.ConfirmEmailChange(token)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"confirmed": true, "user": account})
}

func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.authService.AccountByID(ctxkeys.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": account})
}

// sessionView exposes device metadata only; token hashes never leave the
// repository layer.
type sessionView struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"userAgent"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *authHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.authService.Sessions(ctxkeys.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			IP:        s.IP,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

// DeleteMe requires the account's own email and password as confirmation, then
// cascades over owned transactions before removing the account itself.
func (h *authHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "email and password are required")
		return
	}

	err := h.authService.DeleteAccount(r.Context(), ctxkeys.AccountID(r.Context()), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
