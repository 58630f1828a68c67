// Package httpapi is the public JSON/form API of the service: password and
// OAuth sign-in, refresh cookie rotation and account management.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/logging"
	"github.com/dmitrijs2005/apptracker/internal/server/auth"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/dmitrijs2005/apptracker/internal/server/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

type AuthAPI interface {
	Login(ctx context.Context, creds services.Credentials) (*services.TokenPair, error)
	Refresh(ctx context.Context, raw, expectedUserID string) (*services.TokenPair, error)
	Logout(ctx context.Context, raw string) error
	LogoutAll(ctx context.Context, userID string) error
	Authenticate(tokenString string) (*auth.Token, error)
}

type OAuthAPI interface {
	Authorize(ctx context.Context, provider string) (*services.AuthorizeResult, error)
	Callback(ctx context.Context, provider, code, state string) (*services.CallbackResult, error)
}

type UserAPI interface {
	Register(ctx context.Context, r services.Registration) error
	Activate(ctx context.Context, rawToken string) (*models.User, error)
	ResendActivation(ctx context.Context, addr string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Get(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, p models.UserProfile) (*models.User, error)
	Delete(ctx context.Context, userID string) error
}

// Options configures the HTTP surface.
type Options struct {
	Address        string
	FrontendOrigin string
	CookieSecure   bool
	// AuthRateLimit caps credential endpoints per client IP and minute;
	// zero disables the limiter.
	AuthRateLimit int
	// AccessLog enables the fiber request log.
	AccessLog bool
}

type HTTPServer struct {
	app    *fiber.App
	opts   Options
	auth   AuthAPI
	oauth  OAuthAPI
	users  UserAPI
	logger logging.Logger
}

func NewHTTPServer(opts Options, l logging.Logger, a AuthAPI, o OAuthAPI, u UserAPI) *HTTPServer {
	s := &HTTPServer{
		opts:   opts,
		auth:   a,
		oauth:  o,
		users:  u,
		logger: l.With("module", "http_server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "apptracker",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()
	return s
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *HTTPServer) App() *fiber.App { return s.app }

func (s *HTTPServer) routes() {
	app := s.app

	app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true}))
	app.Use(recover.New())
	app.Use(requestid.New())
	if s.opts.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
		}))
	}
	if s.opts.FrontendOrigin != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.FrontendOrigin,
			AllowCredentials: true,
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	limited := s.rateLimiter()

	a := app.Group("/auth")
	a.Post("/login", limited, s.login)
	a.Post("/refresh", s.refresh)
	a.Post("/logout", s.logout)
	a.Post("/logout-all", s.requireAccessToken, s.logoutAll)
	a.Get("/oauth/:provider/authorize", s.oauthAuthorize)
	a.Get("/oauth/:provider/callback", s.oauthCallback)

	u := app.Group("/users")
	u.Post("", limited, s.register)
	u.Patch("/activate", s.activate)
	u.Post("/resend-activation", limited, s.resendActivation)
	u.Patch("/change-password", s.requireAccessToken, s.changePassword)
	u.Get("/me", s.requireAccessToken, s.me)
	u.Patch("/me", s.requireAccessToken, s.updateMe)
	u.Delete("/me", s.requireAccessToken, s.deleteMe)
}

func (s *HTTPServer) rateLimiter() fiber.Handler {
	if s.opts.AuthRateLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:               s.opts.AuthRateLimit,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(errorBody{Detail: "Too many requests"})
		},
	})
}

// Run serves until ctx is cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)
	return s.app.Listen(s.opts.Address)
}
