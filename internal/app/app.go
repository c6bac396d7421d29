package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/crypto"
	"github.com/tallyhq/tally/internal/db"
	"github.com/tallyhq/tally/internal/repository"
	"github.com/tallyhq/tally/internal/service"
)

type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	AuthService  *service.AuthService
	EmailService *service.EmailService
	Issuer       *service.AccessTokenIssuer
	Sessions     *service.RefreshSessionManager
	Pending      *service.PendingTokenManager
	Transactions *service.TransactionService
	Janitor      *service.Janitor
}

func New(cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	accountRepository := repository.NewAccountRepository(database)
	sessionRepository := repository.NewSessionRepository(database)
	pendingTokenRepository := repository.NewPendingTokenRepository(database)
	transactionRepository := repository.NewTransactionRepository(database)

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	hasher := crypto.NewPasswordHasher(cfg.BcryptCost)
	issuer := service.NewAccessTokenIssuer(cfg.JWTSecret, cfg.AccessTokenExpiry)
	sessions := service.NewRefreshSessionManager(sessionRepository, cfg.RefreshTokenExpiry)
	pending := service.NewPendingTokenManager(accountRepository, pendingTokenRepository, emailService)
	transactionService := service.NewTransactionService(transactionRepository)
	janitor := service.NewJanitor(sessionRepository, pendingTokenRepository, cfg.JanitorRetention)

	authService := service.NewAuthService(
		accountRepository,
		transactionRepository,
		hasher,
		issuer,
		sessions,
		pending,
	)

	return &App{
		Cfg:          cfg,
		DB:           database,
		AuthService:  authService,
		EmailService: emailService,
		Issuer:       issuer,
		Sessions:     sessions,
		Pending:      pending,
		Transactions: transactionService,
		Janitor:      janitor,
	}, nil
}

func (a *App) Close() error {
	return db.Close(a.DB)
}
