package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/mattppal/external-notifier/internal/cookie"
	"github.com/mattppal/external-notifier/internal/crypto"
	jsonwriter "github.com/mattppal/external-notifier/internal/json"
	"github.com/mattppal/external-notifier/internal/log"
	"github.com/mattppal/external-notifier/internal/metrics"
)

// OAuthFlow is the provider side of the authorization-code flow.
type OAuthFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// AuthSettings are the deployment values the auth handlers need.
type AuthSettings struct {
	SessionMaxAge time.Duration
	// StateMaxAge is how long the login nonce cookie lives.
	StateMaxAge   time.Duration
	SecureCookies bool
	// HomeURL is where the browser lands after a successful login.
	HomeURL string
}

// oauthState is signed into the state parameter of the authorize redirect.
// Nonce must match the state cookie of the browser that started the login.
type oauthState struct {
	Nonce string `json:"nonce"`
}

var (
	errMissingState  = errors.New("missing state")
	errStateMismatch = errors.New("state not issued to this browser")
)

// AuthHandlers serves the login, callback, status and logout endpoints.
type AuthHandlers struct {
	oauth       OAuthFlow
	stateSigner crypto.TokenSigner
	settings    AuthSettings
	metrics     *metrics.Metrics
}

// NewAuthHandlers creates the auth handlers.
func NewAuthHandlers(oauth OAuthFlow, stateSigner crypto.TokenSigner, settings AuthSettings, m *metrics.Metrics) *AuthHandlers {
	return &AuthHandlers{
		oauth:       oauth,
		stateSigner: stateSigner,
		settings:    settings,
		metrics:     m,
	}
}

// LoginHandler redirects the browser to Slack's consent screen. The signed
// state carries a nonce that is also set in the state cookie.
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	nonce, state, err := h.newState()
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to create OAuth state", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteError(w, http.StatusInternalServerError, "Failed to start login", "")
		return
	}

	cookie.SetState(w, nonce, h.settings.StateMaxAge, h.settings.SecureCookies)
	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusFound)
}

func (h *AuthHandlers) newState() (nonce, state string, err error) {
	nonce, err = crypto.GenerateSecureToken()
	if err != nil {
		return "", "", err
	}
	state, err = h.stateSigner.Sign(oauthState{Nonce: nonce})
	if err != nil {
		return "", "", err
	}
	return nonce, state, nil
}

// verifyState checks the signature and expiry of state and that its nonce
// matches the one stored in this browser.
func (h *AuthHandlers) verifyState(state, nonce string) error {
	if state == "" {
		return errMissingState
	}
	var s oauthState
	if err := h.stateSigner.Verify(state, &s); err != nil {
		return err
	}
	if nonce == "" || subtle.ConstantTimeCompare([]byte(s.Nonce), []byte(nonce)) != 1 {
		return errStateMismatch
	}
	return nil
}

// CallbackHandler redeems the authorization code and stores the access token
// in the session cookie.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	code := q.Get("code")
	if code == "" {
		// Slack sends error=access_denied when the user cancels consent.
		providerErr := q.Get("error")
		log.LogInfoWithFields("auth", "Callback without authorization code", map[string]any{
			"provider_error": providerErr,
		})
		jsonwriter.WriteError(w, http.StatusBadRequest, "No code provided", providerErr)
		return
	}

	// The nonce is single use whatever the outcome.
	nonce := cookie.GetState(r)
	cookie.ClearState(w, h.settings.SecureCookies)

	if err := h.verifyState(q.Get("state"), nonce); err != nil {
		log.LogWarnWithFields("auth", "Rejected callback state", map[string]any{
			"error":   err.Error(),
			"expired": errors.Is(err, crypto.ErrTokenExpired),
		})
		jsonwriter.WriteBadRequest(w, "Invalid state parameter")
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	h.metrics.OAuthExchanges.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		log.LogErrorWithFields("auth", "OAuth exchange failed", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteError(w, http.StatusInternalServerError, "Failed to authenticate", err.Error())
		return
	}

	cookie.SetSession(w, token, h.settings.SessionMaxAge, h.settings.SecureCookies)
	log.LogInfoWithFields("auth", "User authenticated with Slack", nil)

	http.Redirect(w, r, h.settings.HomeURL, http.StatusFound)
}

// StatusHandler reports whether the request carries a session.
func (h *AuthHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	_ = jsonwriter.Write(w, map[string]bool{
		"isAuthenticated": cookie.GetSession(r) != "",
	})
}

// LogoutHandler clears the session cookie. The Slack token itself stays valid.
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	cookie.ClearSession(w, h.settings.SecureCookies)
	_ = jsonwriter.Write(w, map[string]bool{"success": true})
}
