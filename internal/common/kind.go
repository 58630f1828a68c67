package common

import "errors"

// Kind is the closed set of outcomes the auth subsystem reports. Transports
// switch on it instead of on concrete errors so a reuse signal can never be
// folded into a generic authentication failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindTokenInvalid
	KindTokenExpired
	KindRefreshTokenRevoked
	KindRefreshTokenReuse
	KindUserNotFound
	KindUserNotActivated
	KindUserAlreadyExists
	KindUserAlreadyActivated
	KindInvalidPassword
	KindRateLimitExceeded
	KindOAuthTokenExchange
	KindOAuthProvider
	KindOAuthAccountAlreadyLinked
	KindOAuthAccountLinkedToProvider
	KindOAuthStateInvalid
	KindOAuthUnknownProvider
	KindOAuthEmailNotVerified
)

var kindNames = map[Kind]string{
	KindUnknown:                      "unknown",
	KindNotFound:                     "not_found",
	KindTokenInvalid:                 "token_invalid",
	KindTokenExpired:                 "token_expired",
	KindRefreshTokenRevoked:          "refresh_token_revoked",
	KindRefreshTokenReuse:            "refresh_token_reuse",
	KindUserNotFound:                 "user_not_found",
	KindUserNotActivated:             "user_not_activated",
	KindUserAlreadyExists:            "user_already_exists",
	KindUserAlreadyActivated:         "user_already_activated",
	KindInvalidPassword:              "invalid_password",
	KindRateLimitExceeded:            "rate_limit_exceeded",
	KindOAuthTokenExchange:           "oauth_token_exchange",
	KindOAuthProvider:                "oauth_provider",
	KindOAuthAccountAlreadyLinked:    "oauth_account_already_linked",
	KindOAuthAccountLinkedToProvider: "oauth_account_linked_to_provider",
	KindOAuthStateInvalid:            "oauth_state_invalid",
	KindOAuthUnknownProvider:         "oauth_unknown_provider",
	KindOAuthEmailNotVerified:        "oauth_email_not_verified",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// ordered from most to least specific; reuse is checked before anything else
var kindTable = []struct {
	err  error
	kind Kind
}{
	{ErrRefreshTokenReuse, KindRefreshTokenReuse},
	{ErrRefreshTokenRevoked, KindRefreshTokenRevoked},
	{ErrTokenExpired, KindTokenExpired},
	{ErrTokenInvalid, KindTokenInvalid},
	{ErrUserNotFound, KindUserNotFound},
	{ErrUserNotActivated, KindUserNotActivated},
	{ErrUserAlreadyExists, KindUserAlreadyExists},
	{ErrUserAlreadyActivated, KindUserAlreadyActivated},
	{ErrInvalidPassword, KindInvalidPassword},
	{ErrRateLimitExceeded, KindRateLimitExceeded},
	{ErrOAuthTokenExchange, KindOAuthTokenExchange},
	{ErrOAuthProvider, KindOAuthProvider},
	{ErrOAuthAccountAlreadyLinked, KindOAuthAccountAlreadyLinked},
	{ErrOAuthAccountLinkedToProvider, KindOAuthAccountLinkedToProvider},
	{ErrOAuthStateInvalid, KindOAuthStateInvalid},
	{ErrOAuthUnknownProvider, KindOAuthUnknownProvider},
	{ErrOAuthEmailNotVerified, KindOAuthEmailNotVerified},
	{ErrorNotFound, KindNotFound},
}

// KindOf classifies err. Unrecognised errors (including nil) map to KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, e := range kindTable {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindUnknown
}
