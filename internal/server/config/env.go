package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays Config with environment variables. When -env-file is
// given, the file is loaded first; variables already present in the process
// environment are not overridden by it.
//
// Lifetimes are read in minutes, matching the variable names
// (ACCESS_TOKEN_EXPIRE_MINUTES and friends). Malformed values panic, the
// same way a malformed JSON file or flag does.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	}

	envString(&config.EndpointAddrHTTP, "HTTP_ADDRESS")
	envString(&config.EndpointAddrGRPC, "GRPC_ADDRESS")
	envString(&config.DatabaseDSN, "DATABASE_URL")
	envString(&config.SecretKey, "SECRET_KEY")
	envMinutes(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_EXPIRE_MINUTES")
	envMinutes(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_EXPIRE_MINUTES")
	envMinutes(&config.VerificationTokenValidityDuration, "VERIFICATION_TOKEN_EXPIRE_MINUTES")
	envMinutes(&config.ResendActivationCooldown, "RESEND_ACTIVATION_COOLDOWN_MINUTES")
	envString(&config.PasswordScheme, "PASSWORD_SCHEME")

	envString(&config.FrontendOrigin, "FRONTEND_ORIGIN")
	envBool(&config.CookieSecure, "COOKIE_SECURE")
	envInt(&config.AuthRateLimit, "AUTH_RATE_LIMIT_PER_MINUTE")

	envString(&config.RedisAddr, "REDIS_ADDRESS")
	envString(&config.OAuthRedirectURI, "OAUTH_REDIRECT_URI")
	envString(&config.GoogleClientID, "GOOGLE_CLIENT_ID")
	envString(&config.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	envString(&config.LinkedInClientID, "LINKEDIN_CLIENT_ID")
	envString(&config.LinkedInClientSecret, "LINKEDIN_CLIENT_SECRET")

	envString(&config.EmailBackend, "EMAIL_BACKEND")
	envString(&config.SQSQueueURL, "SQS_QUEUE_URL")
	envString(&config.AWSRegion, "AWS_REGION")
	envString(&config.AWSBaseEndpoint, "AWS_ENDPOINT_URL")
	envString(&config.AWSAccessKeyID, "AWS_ACCESS_KEY_ID")
	envString(&config.AWSSecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	envString(&config.SMTPHost, "SMTP_HOST")
	envInt(&config.SMTPPort, "SMTP_PORT")
	envString(&config.SMTPUsername, "EMAIL_USER")
	envString(&config.SMTPPassword, "EMAIL_PASSWORD")

	envString(&config.ServiceKey, "SERVICE_KEY")
	envString(&config.SentryDSN, "SENTRY_DSN")
	envString(&config.Environment, "ENVIRONMENT")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.LogFormat, "LOG_FORMAT")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envMinutes(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = time.Duration(n) * time.Minute
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = n
}

func envBool(dst *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = b
}
