package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http":                   "www.example:8080",
		"endpoint_addr_grpc":                   "www.example:9000",
		"database_dsn":                         "tracker.db",
		"secret_key":                           "my_secret_key",
		"access_token_validity_duration":       "1m",
		"refresh_token_validity_duration":      "3m",
		"verification_token_validity_duration": "2h",
		"resend_activation_cooldown":           "30s",
		"frontend_origin":                      "https://app.example",
		"cookie_secure":                        false,
		"auth_rate_limit":                      3,
		"email_backend":                        "sqs",
		"sqs_queue_url":                        "http://sqs/queue",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{CookieSecure: true, LogLevel: "warn"}
		parseJson(cfg)

		assert.Equal(t, "www.example:8080", cfg.EndpointAddrHTTP)
		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "tracker.db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 1*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 3*time.Minute, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 2*time.Hour, cfg.VerificationTokenValidityDuration)
		assert.Equal(t, 30*time.Second, cfg.ResendActivationCooldown)
		assert.Equal(t, "https://app.example", cfg.FrontendOrigin)
		assert.False(t, cfg.CookieSecure)
		assert.Equal(t, 3, cfg.AuthRateLimit)
		assert.Equal(t, "sqs", cfg.EmailBackend)
		assert.Equal(t, "http://sqs/queue", cfg.SQSQueueURL)
		assert.Equal(t, "warn", cfg.LogLevel, "absent keys keep their value")
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddrGRPC:            "defaults:1234",
			SecretKey:                   "key",
			AccessTokenValidityDuration: 2 * time.Minute,
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrGRPC)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.AccessTokenValidityDuration)
	})

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag}

		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, "tracker.db", cfg.DatabaseDSN)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
