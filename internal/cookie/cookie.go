package cookie

import (
	"net/http"
	"time"

	"github.com/mattppal/external-notifier/internal/log"
)

// SessionCookie holds the Slack user's bearer token. It is the only session state.
const SessionCookie = "slackAccessToken"

// SetSession stores the access token in the session cookie. Secure should be
// false only in development, where the service runs over plain http.
func SetSession(w http.ResponseWriter, token string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogTraceWithFields("cookie", "Session cookie set", map[string]any{
		"maxAge":   maxAge.String(),
		"secure":   secure,
		"sameSite": "Strict",
	})
}

// ClearSession expires the session cookie
func ClearSession(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	log.LogTraceWithFields("cookie", "Session cookie cleared", nil)
}

// GetSession returns the stored access token, or "" when the request carries none.
func GetSession(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// StateCookie binds an OAuth state to the browser that started the login.
const StateCookie = "slackOAuthState"

// statePath limits the state cookie to the auth endpoints.
const statePath = "/api/auth"

// SetState stores the login nonce. SameSite is Lax because the callback
// arrives as a top-level navigation from Slack, which Strict would drop.
func SetState(w http.ResponseWriter, nonce string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    nonce,
		Path:     statePath,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// ClearState expires the login nonce cookie.
func ClearState(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    "",
		Path:     statePath,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// GetState returns the login nonce, or "" when the request carries none.
func GetState(r *http.Request) string {
	c, err := r.Cookie(StateCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
