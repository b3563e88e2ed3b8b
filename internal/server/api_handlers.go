package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mattppal/external-notifier/internal/cookie"
	"github.com/mattppal/external-notifier/internal/ioutil"
	jsonwriter "github.com/mattppal/external-notifier/internal/json"
	"github.com/mattppal/external-notifier/internal/log"
	"github.com/mattppal/external-notifier/internal/metrics"
	"github.com/mattppal/external-notifier/internal/slack"
)

// maxRequestBodyBytes bounds the notification request body.
const maxRequestBodyBytes = 1 << 20

// ChannelLister lists the channels visible to a token.
type ChannelLister interface {
	ListChannels(ctx context.Context, token string) ([]slack.Channel, error)
}

// Broadcaster posts one message to many channels.
type Broadcaster interface {
	Broadcast(ctx context.Context, token string, channels []string, message string) error
}

// APIHandlers serves the session-authenticated Slack endpoints.
type APIHandlers struct {
	channels    ChannelLister
	broadcaster Broadcaster
	metrics     *metrics.Metrics
}

// NewAPIHandlers creates the API handlers.
func NewAPIHandlers(channels ChannelLister, broadcaster Broadcaster, m *metrics.Metrics) *APIHandlers {
	return &APIHandlers{
		channels:    channels,
		broadcaster: broadcaster,
		metrics:     m,
	}
}

type channelsResponse struct {
	Success  bool            `json:"success"`
	Channels []slack.Channel `json:"channels"`
}

type notificationRequest struct {
	Channels []string `json:"channels"`
	Message  string   `json:"message"`
}

type notificationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ChannelsHandler returns the caller's channels as {id, name} pairs.
func (h *APIHandlers) ChannelsHandler(w http.ResponseWriter, r *http.Request) {
	token := cookie.GetSession(r)
	if token == "" {
		jsonwriter.WriteUnauthenticated(w)
		return
	}

	channels, err := h.channels.ListChannels(r.Context(), token)
	h.metrics.ChannelFetches.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		log.LogErrorWithFields("api", "Failed to fetch channels", map[string]any{
			"error":      err.Error(),
			"request_id": RequestID(r.Context()),
		})
		jsonwriter.WriteFailure(w, http.StatusInternalServerError, "Failed to fetch channels")
		return
	}
	if channels == nil {
		channels = []slack.Channel{}
	}

	_ = jsonwriter.Write(w, channelsResponse{Success: true, Channels: channels})
}

// SendNotificationHandler posts the message to every requested channel.
func (h *APIHandlers) SendNotificationHandler(w http.ResponseWriter, r *http.Request) {
	token := cookie.GetSession(r)
	if token == "" {
		jsonwriter.WriteUnauthenticated(w)
		return
	}

	body, err := ioutil.ReadAll(r.Body, maxRequestBodyBytes)
	if err != nil {
		log.LogWarnWithFields("api", "Failed to read notification body", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var req notificationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		jsonwriter.WriteFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.broadcaster.Broadcast(r.Context(), token, req.Channels, req.Message); err != nil {
		log.LogErrorWithFields("api", "Failed to send notification", map[string]any{
			"error":      err.Error(),
			"channels":   len(req.Channels),
			"request_id": RequestID(r.Context()),
		})
		jsonwriter.WriteFailure(w, http.StatusInternalServerError, "Failed to send notification")
		return
	}

	_ = jsonwriter.Write(w, notificationResponse{
		Success: true,
		Message: "Notification sent successfully!",
	})
}
