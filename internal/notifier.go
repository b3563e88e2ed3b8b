package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattppal/external-notifier/internal/config"
	"github.com/mattppal/external-notifier/internal/crypto"
	"github.com/mattppal/external-notifier/internal/log"
	"github.com/mattppal/external-notifier/internal/metrics"
	"github.com/mattppal/external-notifier/internal/notify"
	"github.com/mattppal/external-notifier/internal/server"
	"github.com/mattppal/external-notifier/internal/slack"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// stateTTL bounds how long a user may sit on Slack's consent screen.
	stateTTL = 10 * time.Minute
	// stateKeyInfo binds the derived state key to its single use.
	stateKeyInfo = "external-notifier oauth state v1"

	shutdownTimeout = 30 * time.Second
)

// Notifier represents the complete notifier application
type Notifier struct {
	config     config.Config
	httpServer *server.HTTPServer
}

// NewNotifier creates the application with all dependencies built
func NewNotifier(cfg config.Config) (*Notifier, error) {
	log.LogInfoWithFields("notifier", "Building notifier application", map[string]any{
		"baseURL":     cfg.BaseURL,
		"env":         cfg.Env,
		"redirectURI": cfg.RedirectURI(),
		"scopes":      cfg.Slack.Scopes,
	})

	handler, err := buildHTTPHandler(cfg, metrics.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP handler: %w", err)
	}

	return &Notifier{
		config:     cfg,
		httpServer: server.NewHTTPServer(handler, cfg.Addr),
	}, nil
}

// Run starts the server and blocks until a shutdown signal or server error
func (n *Notifier) Run() error {
	log.LogInfoWithFields("notifier", "Starting notifier", map[string]any{
		"addr": n.config.Addr,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := n.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var shutdownReason string
	var runErr error
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("notifier", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		runErr = err
		log.LogErrorWithFields("notifier", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	}

	log.LogInfoWithFields("notifier", "Starting graceful shutdown", map[string]any{
		"reason":  shutdownReason,
		"timeout": shutdownTimeout.String(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := n.httpServer.Stop(ctx); err != nil {
		log.LogErrorWithFields("notifier", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	log.LogInfoWithFields("notifier", "Application shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return runErr
}

// newStateSigner signs OAuth state with the configured secret, or with a key
// derived from the Slack client secret when none is configured.
func newStateSigner(cfg config.Config) (crypto.TokenSigner, error) {
	if cfg.Session.StateSecret != "" {
		return crypto.NewTokenSigner([]byte(cfg.Session.StateSecret), stateTTL), nil
	}
	key, err := crypto.DeriveKey([]byte(cfg.Slack.ClientSecret), stateKeyInfo)
	if err != nil {
		return crypto.TokenSigner{}, fmt.Errorf("failed to derive state key: %w", err)
	}
	return crypto.NewTokenSigner(key, stateTTL), nil
}

// buildHTTPHandler wires every route. reg receives the application metrics;
// /metrics is only exposed when cfg.Metrics is set.
func buildHTTPHandler(cfg config.Config, reg *prometheus.Registry) (http.Handler, error) {
	stateSigner, err := newStateSigner(cfg)
	if err != nil {
		return nil, err
	}

	appMetrics := metrics.New(reg)

	oauth := slack.NewOAuth(slack.OAuthConfig{
		ClientID:     cfg.Slack.ClientID,
		ClientSecret: string(cfg.Slack.ClientSecret),
		RedirectURI:  cfg.RedirectURI(),
		Scopes:       cfg.Slack.Scopes,
		AuthURL:      cfg.Slack.AuthURL,
		TokenURL:     cfg.Slack.TokenURL,
	}, &http.Client{Timeout: cfg.Slack.HTTPTimeout})
	slackClient := slack.NewClient(cfg.Slack.APIBaseURL, cfg.Slack.HTTPTimeout)
	broadcaster := notify.NewBroadcaster(slackClient, appMetrics)

	authHandlers := server.NewAuthHandlers(oauth, stateSigner, server.AuthSettings{
		SessionMaxAge: cfg.Session.MaxAge,
		StateMaxAge:   stateTTL,
		SecureCookies: !cfg.IsDev(),
		HomeURL:       cfg.HomeURL(),
	}, appMetrics)
	apiHandlers := server.NewAPIHandlers(slackClient, broadcaster, appMetrics)

	mux := http.NewServeMux()

	authMiddleware := []server.MiddlewareFunc{server.NewLoggerMiddleware("auth"), server.NewRecoverMiddleware("auth")}
	apiMiddleware := []server.MiddlewareFunc{server.NewLoggerMiddleware("api"), server.NewRecoverMiddleware("api")}

	mux.Handle("GET /health", server.NewHealthHandler())
	if cfg.Metrics {
		mux.Handle("GET /metrics", metrics.Handler(reg))
	}

	mux.Handle("GET /api/auth/login", server.ChainMiddleware(http.HandlerFunc(authHandlers.LoginHandler), authMiddleware...))
	mux.Handle("GET /api/auth/callback", server.ChainMiddleware(http.HandlerFunc(authHandlers.CallbackHandler), authMiddleware...))
	mux.Handle("GET /api/auth/status", server.ChainMiddleware(http.HandlerFunc(authHandlers.StatusHandler), authMiddleware...))
	mux.Handle("POST /api/auth/logout", server.ChainMiddleware(http.HandlerFunc(authHandlers.LogoutHandler), authMiddleware...))

	mux.Handle("GET /api/get-channels", server.ChainMiddleware(http.HandlerFunc(apiHandlers.ChannelsHandler), apiMiddleware...))
	mux.Handle("POST /api/send-notification", server.ChainMiddleware(http.HandlerFunc(apiHandlers.SendNotificationHandler), apiMiddleware...))

	global := []server.MiddlewareFunc{appMetrics.HTTP.Middleware}
	if len(cfg.AllowedOrigins) > 0 {
		global = append(global, server.NewCORSMiddleware(cfg.AllowedOrigins))
	}
	global = append(global, server.NewRequestIDMiddleware())

	return server.ChainMiddleware(mux, global...), nil
}
