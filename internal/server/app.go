// Package server wires the configuration, storage, token services and
// transports together and runs the HTTP and gRPC servers.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/cryptox"
	"github.com/dmitrijs2005/apptracker/internal/logging"
	"github.com/dmitrijs2005/apptracker/internal/server/auth"
	"github.com/dmitrijs2005/apptracker/internal/server/config"
	"github.com/dmitrijs2005/apptracker/internal/server/email"
	"github.com/dmitrijs2005/apptracker/internal/server/httpapi"
	"github.com/dmitrijs2005/apptracker/internal/server/oauth"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/apptracker/internal/server/services"
	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/apptracker/internal/server/grpc"
)

// Services is the set of application services built from one Config.
type Services struct {
	Refresh      *services.RefreshTokenService
	Verification *services.VerificationTokenService
	Auth         *services.AuthService
	OAuth        *services.OAuthService
	Users        *services.UserService
	UserEmail    *services.UserEmailService
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	rdb         *redis.Client
	repomanager repomanager.RepositoryManager
	services    *Services
}

// openDB is a seam for tests.
var openDB = repomanager.Open

// NewApp connects to PostgreSQL and builds every service. Redis is dialled
// lazily, so commands that never touch OAuth work without it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := newLogger(c)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})

	sender, err := newSender(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("email init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()

	svc, err := NewServices(c, db, m, oauth.NewRedisFlowStore(rdb), sender, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{config: c, logger: logger, db: db, rdb: rdb, repomanager: m, services: svc}, nil
}

func newLogger(c *config.Config) logging.Logger {
	var logger logging.Logger = logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	if c.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         c.SentryDSN,
			Environment: c.Environment,
		})
		if err != nil {
			logger.Error(context.Background(), "sentry init failed", "error", err)
		} else {
			logger = logging.NewSentryLogger(logger, sentry.CurrentHub())
		}
	}

	return logger
}

func newSender(ctx context.Context, c *config.Config) (email.Sender, error) {
	switch c.EmailBackend {
	case "sqs":
		return email.NewSQSSenderFromConfig(ctx, email.SQSConfig{
			QueueURL:        c.SQSQueueURL,
			Region:          c.AWSRegion,
			BaseEndpoint:    c.AWSBaseEndpoint,
			AccessKeyID:     c.AWSAccessKeyID,
			SecretAccessKey: c.AWSSecretAccessKey,
		})
	case "smtp":
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
		}), nil
	}
	return email.NewConsoleSender(os.Stdout), nil
}

// NewProviders registers the OAuth providers that have a client id.
func NewProviders(c *config.Config, client *http.Client) *oauth.Registry {
	redirect := strings.TrimSuffix(c.OAuthRedirectURI, "/")

	var google, linkedin oauth.Provider
	if c.GoogleClientID != "" {
		google = oauth.NewGoogle(oauth.Credentials{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURL:  redirect + "/google",
		}, oauth.GoogleEndpoint, client)
	}
	if c.LinkedInClientID != "" {
		linkedin = oauth.NewLinkedIn(oauth.Credentials{
			ClientID:     c.LinkedInClientID,
			ClientSecret: c.LinkedInClientSecret,
			RedirectURL:  redirect + "/linkedin",
		}, oauth.LinkedInEndpoint, client)
	}

	return oauth.NewRegistry(google, linkedin)
}

// NewServices builds the service graph on top of db.
func NewServices(c *config.Config, db *sql.DB, m repomanager.RepositoryManager, flows oauth.FlowStore,
	sender email.Sender, logger logging.Logger) (*Services, error) {

	passwords, err := cryptox.NewPasswordHasher(c.PasswordScheme)
	if err != nil {
		return nil, err
	}

	templates, err := email.NewTemplates()
	if err != nil {
		return nil, err
	}

	strategies := auth.NewStrategies(auth.StrategyConfig{
		Secret:               c.SecretKey,
		AccessLifetime:       c.AccessTokenValidityDuration,
		RefreshLifetime:      c.RefreshTokenValidityDuration,
		VerificationLifetime: c.VerificationTokenValidityDuration,
	})
	hasher := cryptox.NewTokenHasher(c.SecretKey)

	refresh := services.NewRefreshTokenService(db, m, hasher, c.RefreshTokenValidityDuration,
		logger.With("service", "refresh_tokens"), nil)
	verification := services.NewVerificationTokenService(db, m, hasher, c.VerificationTokenValidityDuration, nil)
	authSvc := services.NewAuthService(db, m, passwords, strategies.Access, refresh,
		logger.With("service", "auth"), nil)
	userEmail := services.NewUserEmailService(sender, templates, verification, c.FrontendOrigin)
	users := services.NewUserService(db, m, passwords, verification, refresh, userEmail,
		c.ResendActivationCooldown, logger.With("service", "users"))
	oauthSvc := services.NewOAuthService(db, m, NewProviders(c, &http.Client{Timeout: 10 * time.Second}),
		flows, authSvc, logger.With("service", "oauth"))

	return &Services{
		Refresh:      refresh,
		Verification: verification,
		Auth:         authSvc,
		OAuth:        oauthSvc,
		Users:        users,
		UserEmail:    userEmail,
	}, nil
}

func (app *App) Services() *Services { return app.services }

func (app *App) Logger() logging.Logger { return app.logger }

// Migrate applies the embedded schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	return app.repomanager.RunMigrations(ctx, app.db)
}

func (app *App) Close() error {
	sentry.Flush(2 * time.Second)
	_ = app.rdb.Close()
	return app.db.Close()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.services.Auth, app.services.Auth, app.config.ServiceKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewHTTPServer(httpapi.Options{
		Address:        app.config.EndpointAddrHTTP,
		FrontendOrigin: strings.TrimSuffix(app.config.FrontendOrigin, "/"),
		CookieSecure:   app.config.CookieSecure,
		AuthRateLimit:  app.config.AuthRateLimit,
		AccessLog:      true,
	}, app.logger, app.services.Auth, app.services.OAuth, app.services.Users)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run migrates the schema and serves until a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := app.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	return nil
}
