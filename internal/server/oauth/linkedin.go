package oauth

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"golang.org/x/oauth2"
)

var LinkedInEndpoint = Endpoint{
	AuthURL:     "https://www.linkedin.com/oauth/v2/authorization",
	TokenURL:    "https://www.linkedin.com/oauth/v2/accessToken",
	UserInfoURL: "https://api.linkedin.com/v2/userinfo",
}

// OpenID Connect userinfo document
type linkedInUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	EmailVerified bool   `json:"email_verified"`
}

// NewLinkedIn returns a LinkedIn provider. LinkedIn rejects PKCE parameters
// for confidential clients, so none are sent.
func NewLinkedIn(creds Credentials, ep Endpoint, client *http.Client) Provider {
	return &provider{
		name: models.ProviderLinkedIn,
		conf: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   ep.AuthURL,
				TokenURL:  ep.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: ep.UserInfoURL,
		client:      client,
		decode: func(ctx context.Context, client *http.Client, url, accessToken string) (*UserInfo, error) {
			var u linkedInUserInfo
			if err := getUserInfo(ctx, client, url, accessToken, &u); err != nil {
				return nil, err
			}
			return &UserInfo{
				OAuthID:       u.Sub,
				Email:         u.Email,
				FirstName:     u.GivenName,
				SecondName:    u.FamilyName,
				EmailVerified: u.EmailVerified,
			}, nil
		},
	}
}
