// Package oauth talks to external identity providers: it builds
// authorization URLs, exchanges codes for provider tokens and reads the
// signed-in identity. Short-lived flow state lives in a FlowStore.
package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/netx"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"golang.org/x/oauth2"
)

// UserInfo is the identity a provider reports for the signed-in account.
type UserInfo struct {
	OAuthID       string
	Email         string
	FirstName     string
	SecondName    string
	EmailVerified bool
}

// Provider is one external identity provider.
type Provider interface {
	Name() models.OAuthProvider
	SupportsPKCE() bool
	// AuthCodeURL returns the consent page URL. challenge is ignored by
	// providers without PKCE support.
	AuthCodeURL(state, challenge string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
}

// Credentials configures a provider client.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// provider is an oauth2.Config plus a userinfo endpoint. Google and LinkedIn
// differ only in their endpoints, options and userinfo document.
type provider struct {
	name        models.OAuthProvider
	pkce        bool
	conf        *oauth2.Config
	authOpts    []oauth2.AuthCodeOption
	userInfoURL string
	decode      func(ctx context.Context, client *http.Client, url, accessToken string) (*UserInfo, error)
	client      *http.Client
}

func (p *provider) Name() models.OAuthProvider { return p.name }

func (p *provider) SupportsPKCE() bool { return p.pkce }

func (p *provider) AuthCodeURL(state, challenge string) string {
	opts := append([]oauth2.AuthCodeOption{}, p.authOpts...)
	if p.pkce && challenge != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", challenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	}
	return p.conf.AuthCodeURL(state, opts...)
}

func (p *provider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}
	var opts []oauth2.AuthCodeOption
	if p.pkce && verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	return p.conf.Exchange(ctx, code, opts...)
}

func (p *provider) UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	info, err := p.decode(ctx, p.client, p.userInfoURL, token.AccessToken)
	if err != nil {
		return nil, err
	}
	if info.OAuthID == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: %s userinfo lacks id or email", common.ErrOAuthProvider, p.name)
	}
	info.Email = strings.ToLower(strings.TrimSpace(info.Email))
	return info, nil
}

// Registry resolves providers by their path name.
type Registry struct {
	providers map[models.OAuthProvider]Provider
}

// NewRegistry registers the given providers; nil entries are skipped so
// unconfigured providers can be passed straight through.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[models.OAuthProvider]Provider)}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Lookup returns common.ErrOAuthUnknownProvider for names that are not
// registered, "local" included.
func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.providers[models.OAuthProvider(strings.ToLower(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrOAuthUnknownProvider, name)
	}
	return p, nil
}

func getUserInfo(ctx context.Context, client *http.Client, url, accessToken string, out any) error {
	if err := netx.GetJSON(ctx, client, url, accessToken, out); err != nil {
		return fmt.Errorf("%w: %v", common.ErrOAuthProvider, err)
	}
	return nil
}
