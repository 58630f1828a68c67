package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/flagx"
	"github.com/dmitrijs2005/apptracker/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. Fields left out of the file keep the value Config already had.
type JsonConfig struct {
	EndpointAddrHTTP                  string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC                  string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                       string         `json:"database_dsn"`
	SecretKey                         string         `json:"secret_key"`
	AccessTokenValidityDuration       timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration      timex.Duration `json:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration timex.Duration `json:"verification_token_validity_duration"`
	ResendActivationCooldown          timex.Duration `json:"resend_activation_cooldown"`
	PasswordScheme                    string         `json:"password_scheme"`
	FrontendOrigin                    string         `json:"frontend_origin"`
	CookieSecure                      *bool          `json:"cookie_secure"`
	AuthRateLimit                     *int           `json:"auth_rate_limit"`
	RedisAddr                         string         `json:"redis_addr"`
	OAuthRedirectURI                  string         `json:"oauth_redirect_uri"`
	GoogleClientID                    string         `json:"google_client_id"`
	GoogleClientSecret                string         `json:"google_client_secret"`
	LinkedInClientID                  string         `json:"linkedin_client_id"`
	LinkedInClientSecret              string         `json:"linkedin_client_secret"`
	EmailBackend                      string         `json:"email_backend"`
	SQSQueueURL                       string         `json:"sqs_queue_url"`
	AWSRegion                         string         `json:"aws_region"`
	AWSBaseEndpoint                   string         `json:"aws_base_endpoint"`
	SMTPHost                          string         `json:"smtp_host"`
	SMTPPort                          *int           `json:"smtp_port"`
	SMTPUsername                      string         `json:"smtp_username"`
	ServiceKey                        string         `json:"service_key"`
	SentryDSN                         string         `json:"sentry_dsn"`
	Environment                       string         `json:"environment"`
	LogLevel                          string         `json:"log_level"`
	LogFormat                         string         `json:"log_format"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
//
// AWS credentials are deliberately absent: they come from the environment
// or the default AWS credential chain.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.VerificationTokenValidityDuration, c.VerificationTokenValidityDuration)
	setDuration(&config.ResendActivationCooldown, c.ResendActivationCooldown)
	setString(&config.PasswordScheme, c.PasswordScheme)
	setString(&config.FrontendOrigin, c.FrontendOrigin)
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	if c.AuthRateLimit != nil {
		config.AuthRateLimit = *c.AuthRateLimit
	}
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.OAuthRedirectURI, c.OAuthRedirectURI)
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.LinkedInClientID, c.LinkedInClientID)
	setString(&config.LinkedInClientSecret, c.LinkedInClientSecret)
	setString(&config.EmailBackend, c.EmailBackend)
	setString(&config.SQSQueueURL, c.SQSQueueURL)
	setString(&config.AWSRegion, c.AWSRegion)
	setString(&config.AWSBaseEndpoint, c.AWSBaseEndpoint)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.ServiceKey, c.ServiceKey)
	setString(&config.SentryDSN, c.SentryDSN)
	setString(&config.Environment, c.Environment)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
