package oauth

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"golang.org/x/oauth2"
)

var GoogleEndpoint = Endpoint{
	AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL:    "https://oauth2.googleapis.com/token",
	UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
}

// Endpoint groups the three URLs a provider needs. Tests point it at an
// httptest server.
type Endpoint struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	VerifiedEmail bool   `json:"verified_email"`
}

// NewGoogle returns a PKCE-enabled Google provider. client may be nil.
func NewGoogle(creds Credentials, ep Endpoint, client *http.Client) Provider {
	return &provider{
		name: models.ProviderGoogle,
		pkce: true,
		conf: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   ep.AuthURL,
				TokenURL:  ep.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		authOpts: []oauth2.AuthCodeOption{
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent"),
		},
		userInfoURL: ep.UserInfoURL,
		client:      client,
		decode: func(ctx context.Context, client *http.Client, url, accessToken string) (*UserInfo, error) {
			var u googleUserInfo
			if err := getUserInfo(ctx, client, url, accessToken, &u); err != nil {
				return nil, err
			}
			return &UserInfo{
				OAuthID:       u.ID,
				Email:         u.Email,
				FirstName:     u.GivenName,
				SecondName:    u.FamilyName,
				EmailVerified: u.VerifiedEmail,
			}, nil
		},
	}
}
