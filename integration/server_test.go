package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSlackServer imitates the three Slack endpoints the notifier calls.
type fakeSlackServer struct {
	*httptest.Server

	mu     sync.Mutex
	posted []string
}

func newFakeSlackServer(t *testing.T) *fakeSlackServer {
	t.Helper()
	f := &fakeSlackServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/oauth.v2.access", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.FormValue("code") != "it-code" || r.FormValue("client_secret") != "it-secret" {
			_, _ = io.WriteString(w, `{"ok":false,"error":"invalid_code"}`)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"access_token":"xoxb-it","token_type":"bot"}`)
	})
	mux.HandleFunc("POST /api/conversations.list", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer xoxb-it" && r.FormValue("token") != "xoxb-it" {
			_, _ = io.WriteString(w, `{"ok":false,"error":"invalid_auth"}`)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"channels":[{"id":"C1","name":"general","is_channel":true}]}`)
	})
	mux.HandleFunc("POST /api/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.posted = append(f.posted, r.FormValue("channel"))
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func writeTestConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()
	data, err := json.MarshalIndent(cfg, "", "  ")
	require.NoError(t, err)
	path := t.TempDir() + "/config.json"
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// startNotifier runs the binary configured from the environment and waits
// for /health.
func startNotifier(t *testing.T, slackURL string) string {
	t.Helper()
	addr := freeAddr(t)
	baseURL := "http://" + addr

	cmd := exec.Command(binaryPath)
	cmd.Dir = t.TempDir()
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"APP_ENV=development",
		"ADDR=" + addr,
		"BASE_URL=" + baseURL,
		"SLACK_CLIENT_ID=it-client",
		"SLACK_CLIENT_SECRET=it-secret",
		"SLACK_TOKEN_URL=" + slackURL + "/api/oauth.v2.access",
		"SLACK_API_BASE_URL=" + slackURL + "/api",
		"LOG_LEVEL=debug",
	}
	var output strings.Builder
	var outputMu sync.Mutex
	cmd.Stdout = writerFunc(func(p []byte) (int, error) {
		outputMu.Lock()
		defer outputMu.Unlock()
		return output.Write(p)
	})
	cmd.Stderr = cmd.Stdout
	require.NoError(t, cmd.Start())

	t.Cleanup(func() {
		stopNotifier(cmd)
		outputMu.Lock()
		defer outputMu.Unlock()
		logs := output.String()
		assert.NotContains(t, logs, "xoxb-it", "access token must never be logged")
		assert.NotContains(t, logs, "it-secret", "client secret must never be logged")
		assert.NotContains(t, logs, "it-code", "authorization code must never be logged")
		if t.Failed() {
			t.Logf("notifier output:\n%s", logs)
		}
	})

	for range 50 {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return baseURL
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("external-notifier failed to become ready after 5 seconds")
	return ""
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// stopNotifier stops the server gracefully, killing it after 5 seconds
func stopNotifier(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 10 * time.Second,
	}
}

func TestNotifierEndToEnd(t *testing.T) {
	slackAPI := newFakeSlackServer(t)
	baseURL := startNotifier(t, slackAPI.URL)
	client := noRedirectClient()

	// Unauthenticated
	resp, err := client.Get(baseURL + "/api/get-channels")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Login redirects to Slack with our callback
	resp, err = client.Get(baseURL + "/api/auth/login")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, baseURL+"/api/auth/callback", loc.Query().Get("redirect_uri"))
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	var stateCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "slackOAuthState" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)

	// A callback without the login's state cookie is refused
	resp, err = client.Get(fmt.Sprintf("%s/api/auth/callback?code=it-code&state=%s", baseURL, url.QueryEscape(state)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Slack sends the browser back with a code
	callback, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("%s/api/auth/callback?code=it-code&state=%s", baseURL, url.QueryEscape(state)), nil)
	require.NoError(t, err)
	callback.AddCookie(stateCookie)
	resp, err = client.Do(callback)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, baseURL+"/", resp.Header.Get("Location"))

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "slackAccessToken" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.False(t, session.Secure, "development cookies are not Secure")

	get := func(path string) (int, string) {
		req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
		require.NoError(t, err)
		req.AddCookie(session)
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/api/auth/status")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"isAuthenticated":true}`, body)

	status, body = get("/api/get-channels")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"success":true,"channels":[{"id":"C1","name":"general"}]}`, body)

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/send-notification",
		strings.NewReader(`{"channels":["C1","C2"],"message":"integration"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(session)
	resp, err = client.Do(req)
	require.NoError(t, err)
	sent, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"message":"Notification sent successfully!"}`, string(sent))

	slackAPI.mu.Lock()
	assert.ElementsMatch(t, []string{"C1", "C2"}, slackAPI.posted)
	slackAPI.mu.Unlock()

	status, body = get("/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `external_notifier_oauth_exchanges_total{result="success"} 1`)
}
