package routes

import (
	"net/http"

	"github.com/tallyhq/tally/internal/app"
	"github.com/tallyhq/tally/internal/handler"
	"github.com/tallyhq/tally/internal/middleware"
)

func SetupRoutes(a *app.App) http.Handler {
	auth := handler.NewAuthHandler(a.AuthService, a.EmailService, a.Cfg.IsDevelopment())
	oauth := handler.NewOAuthHandler(a.AuthService, a.Cfg)
	transactions := handler.NewTransactionHandler(a.Transactions)

	mux := http.NewServeMux()

	// The limiter is defense in depth; the auth core enforces its invariants
	// independently of it.
	limited := middleware.RateLimit(middleware.NewRateLimiter(a.Cfg.AuthRateLimit, a.Cfg.AuthRateWindow))

	// Credential flows
	mux.HandleFunc("POST /auth/register", limited(auth.Register))
	mux.HandleFunc("POST /auth/login", limited(auth.Login))
	mux.HandleFunc("POST /auth/refresh", limited(auth.Refresh))
	mux.HandleFunc("POST /auth/logout", auth.Logout)

	// Pending-token flows
	mux.HandleFunc("GET /auth/verify-email", auth.VerifyEmail)
	mux.HandleFunc("POST /auth/verify-email", auth.VerifyEmail)
	mux.HandleFunc("POST /auth/forgot-password", limited(auth.ForgotPassword))
	mux.HandleFunc("POST /auth/reset-password", limited(auth.ResetPassword))
	mux.HandleFunc("GET /auth/confirm-email", auth.ConfirmEmail)
	mux.HandleFunc("POST /auth/confirm-email", auth.ConfirmEmail)

	// OAuth
	mux.HandleFunc("GET /auth/google", limited(oauth.GoogleAuth))
	mux.HandleFunc("GET /auth/google/callback", limited(oauth.GoogleCallback))
	mux.HandleFunc("GET /auth/github", limited(oauth.GitHubAuth))
	mux.HandleFunc("GET /auth/github/callback", limited(oauth.GitHubCallback))

	// Bearer-authenticated account management
	mux.HandleFunc("GET /auth/me", middleware.RequireAuth(auth.Me))
	mux.HandleFunc("DELETE /auth/me", middleware.RequireAuth(auth.DeleteMe))
	mux.HandleFunc("GET /auth/sessions", middleware.RequireAuth(auth.Sessions))
	mux.HandleFunc("POST /auth/change-password", middleware.RequireAuth(auth.ChangePassword))
	mux.HandleFunc("POST /auth/email/change", middleware.RequireAuth(auth.RequestEmailChange))
	mux.HandleFunc("POST /auth/email/add", middleware.RequireAuth(auth.RequestEmailAdd))

	// Owned resources
	mux.HandleFunc("POST /transactions", middleware.RequireAuth(transactions.Record))
	mux.HandleFunc("GET /transactions", middleware.RequireAuth(transactions.List))

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.RequestLogging,
		middleware.BearerAuth(a.Issuer),
	)
}
