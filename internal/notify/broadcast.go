package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattppal/external-notifier/internal/log"
	"github.com/mattppal/external-notifier/internal/metrics"
	"github.com/mattppal/external-notifier/internal/slack"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// ErrSendFailed is wrapped by Broadcast when at least one channel was not delivered.
var ErrSendFailed = errors.New("notification send failed")

// Poster posts one message to one channel.
type Poster interface {
	PostMessage(ctx context.Context, token, channel, text string) error
}

// Broadcaster fans a message out to a set of channels.
type Broadcaster struct {
	poster  Poster
	metrics *metrics.Metrics
}

// NewBroadcaster creates a broadcaster that posts through poster.
func NewBroadcaster(poster Poster, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		poster:  poster,
		metrics: m,
	}
}

// Broadcast posts message to every channel concurrently and waits for all of
// them. A failing channel does not cancel the others, and cancelling ctx
// does not abort posts already issued; each post is bounded by the Slack
// client's timeout instead. The returned error wraps ErrSendFailed and joins
// every per-channel error. Zero channels is a successful no-op.
func (b *Broadcaster) Broadcast(ctx context.Context, token string, channels []string, message string) error {
	if len(channels) == 0 {
		return nil
	}

	// Keep request-scoped values, drop the client's cancellation.
	ctx = context.WithoutCancel(ctx)

	timer := prometheus.NewTimer(b.metrics.BroadcastDuration)
	defer timer.ObserveDuration()

	// Plain Group, not WithContext: a failure must not cancel the siblings.
	var g errgroup.Group
	errs := make([]error, len(channels))
	for i, channel := range channels {
		g.Go(func() error {
			err := b.poster.PostMessage(ctx, token, channel, message)
			b.metrics.MessagesSent.WithLabelValues(metrics.Result(err)).Inc()
			if err != nil {
				fields := map[string]any{
					"channel": channel,
					"error":   err.Error(),
				}
				var apiErr *slack.APIError
				if errors.As(err, &apiErr) && apiErr.Code != "" {
					fields["slack_error"] = apiErr.Code
				}
				log.LogWarnWithFields("notify", "Failed to post message", fields)
			}
			errs[i] = err
			return err
		})
	}

	if g.Wait() == nil {
		log.LogDebugWithFields("notify", "Notification delivered", map[string]any{
			"channels": len(channels),
		})
		return nil
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}

	log.LogErrorWithFields("notify", "Notification partially failed", map[string]any{
		"channels": len(channels),
		"failed":   failed,
	})

	return fmt.Errorf("%w: %d of %d channels: %w", ErrSendFailed, failed, len(channels), errors.Join(errs...))
}
