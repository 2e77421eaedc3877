package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"github.com/secretshare/webserver/config"
)

const (
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v3/userinfo"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)"
)

// OAuthProvider drives the authorization-code flow for one federated
// provider. BeginAuth produces the consent URL; CompleteAuth exchanges
// the callback code and fetches the provider profile.
type OAuthProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	parse       func(data []byte) (Profile, error)
}

// NewOAuthProvider constructs a provider for one of the known names
// with explicit endpoints. Useful when the provider endpoints are
// stubbed out, e.g. in tests.
func NewOAuthProvider(name string, oauthConfig *oauth2.Config, userInfoURL string) (*OAuthProvider, error) {
	var parse func(data []byte) (Profile, error)
	switch name {
	case ProviderGoogle:
		parse = parseGoogleProfile
	case ProviderFacebook:
		parse = parseFacebookProfile
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return &OAuthProvider{
		name:        name,
		config:      oauthConfig,
		userInfoURL: userInfoURL,
		parse:       parse,
	}, nil
}

// NewGoogle constructs the Google provider. The provider is disabled
// when no client id is configured.
func NewGoogle(cfg config.OAuthProviderConfig, callbackURL string) *OAuthProvider {
	provider, _ := NewOAuthProvider(ProviderGoogle, &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  callbackURL,
		Scopes:       []string{"openid", "email", "profile"},
	}, googleUserInfoURL)
	return provider
}

// NewFacebook constructs the Facebook provider.
func NewFacebook(cfg config.OAuthProviderConfig, callbackURL string) *OAuthProvider {
	provider, _ := NewOAuthProvider(ProviderFacebook, &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     facebook.Endpoint,
		RedirectURL:  callbackURL,
		Scopes:       []string{"email", "public_profile"},
	}, facebookUserInfoURL)
	return provider
}

// Name returns the provider name.
func (p *OAuthProvider) Name() string {
	return p.name
}

// Enabled reports whether client credentials are configured.
func (p *OAuthProvider) Enabled() bool {
	return p.config.ClientID != ""
}

// BeginAuth returns the provider consent URL for the given state nonce.
func (p *OAuthProvider) BeginAuth(state string) string {
	return p.config.AuthCodeURL(state)
}

// CompleteAuth exchanges the authorization code and fetches the
// provider's profile for the authenticated identity.
func (p *OAuthProvider) CompleteAuth(ctx context.Context, code string) (Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("token exchange failed: %w", err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return Profile{}, fmt.Errorf("userinfo fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("userinfo fetch failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Profile{}, err
	}
	profile, err := p.parse(data)
	if err != nil {
		return Profile{}, err
	}
	if profile.ID == "" {
		return Profile{}, errors.New("provider profile is missing a stable id")
	}
	profile.Provider = p.name
	return profile, nil
}

func parseGoogleProfile(data []byte) (Profile, error) {
	var payload struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:      payload.Sub,
		Name:    payload.Name,
		Email:   payload.Email,
		Picture: payload.Picture,
	}, nil
}

func parseFacebookProfile(data []byte) (Profile, error) {
	var payload struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:      payload.ID,
		Name:    payload.Name,
		Email:   payload.Email,
		Picture: payload.Picture.Data.URL,
	}, nil
}
