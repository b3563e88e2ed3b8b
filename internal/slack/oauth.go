package slack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mattppal/external-notifier/internal/ioutil"
	"golang.org/x/oauth2"
)

const (
	oauthAccessMethod = "oauth.v2.access"
	// errorBodyLimit bounds how much of an unexpected token response ends up in an error.
	errorBodyLimit = 512
)

// OAuthConfig holds what is needed to run the authorization-code flow.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
}

// OAuth runs Slack's OAuth v2 authorization-code flow.
// The same redirect URI is used to build the authorize URL and to redeem the code.
type OAuth struct {
	config     oauth2.Config
	httpClient *http.Client
}

// NewOAuth creates the OAuth flow. httpClient is used for the token exchange;
// nil means http.DefaultClient.
func NewOAuth(cfg OAuthConfig, httpClient *http.Client) *OAuth {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	var scopes []string
	if len(cfg.Scopes) > 0 {
		// Slack expects a single comma-separated scope parameter
		scopes = []string{strings.Join(cfg.Scopes, ",")}
	}
	return &OAuth{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}
}

// AuthURL generates the authorization URL.
func (o *OAuth) AuthURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// RedirectURI returns the redirect URI sent in both legs of the flow.
func (o *OAuth) RedirectURI() string {
	return o.config.RedirectURL
}

// Exchange redeems an authorization code and returns the access token.
// Transport failures, non-2xx answers, ok:false and responses without a
// token all return an error.
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)

	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			apiErr := &APIError{Method: oauthAccessMethod, Code: rerr.ErrorCode}
			if rerr.Response != nil {
				apiErr.Status = rerr.Response.StatusCode
			}
			if apiErr.Code == "" && len(rerr.Body) > 0 {
				apiErr.Body = ioutil.ReadLimited(bytes.NewReader(rerr.Body), errorBodyLimit)
			}
			return "", apiErr
		}
		return "", fmt.Errorf("%s: %w", oauthAccessMethod, err)
	}

	return token.AccessToken, nil
}
