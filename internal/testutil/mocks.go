package testutil

import (
	"context"

	"github.com/mattppal/external-notifier/internal/slack"
	"github.com/stretchr/testify/mock"
)

// MockPoster is a testify mock of notify.Poster.
type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) PostMessage(ctx context.Context, token, channel, text string) error {
	args := m.Called(ctx, token, channel, text)
	return args.Error(0)
}

// MockChannelLister is a testify mock of server.ChannelLister.
type MockChannelLister struct {
	mock.Mock
}

func (m *MockChannelLister) ListChannels(ctx context.Context, token string) ([]slack.Channel, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]slack.Channel), args.Error(1)
}

// MockBroadcaster is a testify mock of server.Broadcaster.
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, token string, channels []string, message string) error {
	args := m.Called(ctx, token, channels, message)
	return args.Error(0)
}
