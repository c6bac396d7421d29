package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

type oauthHandler struct {
	authService  *service.AuthService
	googleConfig *oauth2.Config
	githubConfig *oauth2.Config
	isProduction bool
}

func NewOAuthHandler(authService *service.AuthService, cfg *config.Config) *oauthHandler {
	return &oauthHandler{
		authService:  authService,
		isProduction: cfg.IsProduction(),
		googleConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		},
		githubConfig: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/github/callback",
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

func (h *oauthHandler) setState(w http.ResponseWriter) (string, error) {
	buf := make([]byte, 32)
	_, err := rand.Read(buf)
	if err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

// checkState validates the CSRF state parameter against the cookie and clears it.
func (h *oauthHandler) checkState(w http.ResponseWriter, r *http.Request) bool {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie("oauth_state")
	ok := err == nil && state != "" && cookie.Value == state

	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return ok
}

func (h *oauthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	state, err := h.setState(w)
	if err != nil {
		respondError(w, r, err)
		return
	}
	http.Redirect(w, r, h.googleConfig.AuthCodeURL(state), http.StatusSeeOther)
}

func (h *oauthHandler) GitHubAuth(w http.ResponseWriter, r *http.Request) {
	state, err := h.setState(w)
	if err != nil {
		respondError(w, r, err)
		return
	}
	http.Redirect(w, r, h.githubConfig.AuthCodeURL(state), http.StatusSeeOther)
}

func (h *oauthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.checkState(w, r) {
		respondErrorCode(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "oauth state validation failed")
		return
	}

	email, err := h.googleEmail(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Warn("google oauth failed", "error", err)
		respondErrorCode(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "oauth authentication failed")
		return
	}

	h.finish(w, r, email, "google")
}

func (h *oauthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	if !h.checkState(w, r) {
		respondErrorCode(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "oauth state validation failed")
		return
	}

	email, err := h.githubEmail(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Warn("github oauth failed", "error", err)
		respondErrorCode(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "oauth authentication failed")
		return
	}

	h.finish(w, r, email, "github")
}

func (h *oauthHandler) finish(w http.ResponseWriter, r *http.Request, email, provider string) {
	pair, account, err := h.authService.AuthenticateOAuth(email, provider, deviceMeta(r))
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

func (h *oauthHandler) googleEmail(ctx context.Context, code string) (string, error) {
	token, err := h.googleConfig.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	client := h.googleConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return "", err
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	var userInfo struct {
		Email string `json:"email"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil {
		return "", err
	}

	return userInfo.Email, nil
}

func (h *oauthHandler) githubEmail(ctx context.Context, code string) (string, error) {
	token, err := h.githubConfig.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	// GitHub profiles can hide the email; the /user/emails endpoint lists the
	// verified addresses.
	client := h.githubConfig.Client(ctx, token)
	resp, err := client.Get("https://api.github.com/user/emails")
	if err != nil {
		return "", err
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	err = json.NewDecoder(resp.Body).Decode(&emails)
	if err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}

	return "", service.ErrInvalidEmail
}
