// Package common contains shared constants and sentinel errors used across
// the apptracker server components.
package common

// ServiceKeyHeaderName is the gRPC metadata key carrying the shared key of a
// sibling service calling the token introspection API.
const ServiceKeyHeaderName = "service_key"

// Cookie names issued by the HTTP layer.
const (
	RefreshCookieName    = "refresh"
	RefreshCookiePath    = "/auth"
	OAuthStateCookieName = "oauth_state"
)
