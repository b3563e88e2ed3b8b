package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mattppal/external-notifier/internal/log"
	slackapi "github.com/slack-go/slack"
)

const (
	conversationsListMethod = "conversations.list"
	postMessageMethod       = "chat.postMessage"

	// conversations.list accepts up to 1000; Slack recommends no more than 200.
	channelPageSize = 200
	// maxChannelPages bounds pagination if Slack keeps returning cursors.
	maxChannelPages = 100
)

// Client calls the Slack Web API on behalf of a user token.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// NewClient creates a Web API client rooted at apiBaseURL
// (https://slack.com/api in production).
func NewClient(apiBaseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTPClient(apiBaseURL, &http.Client{Timeout: timeout})
}

// NewClientWithHTTPClient is NewClient with a caller-supplied base client.
func NewClientWithHTTPClient(apiBaseURL string, httpClient *http.Client) *Client {
	return &Client{
		// slack-go appends the method name directly to the API URL
		apiURL:     strings.TrimRight(apiBaseURL, "/") + "/",
		httpClient: httpClient,
	}
}

// api returns a slack-go client bound to one user token.
func (c *Client) api(token string) *slackapi.Client {
	return slackapi.New(token,
		slackapi.OptionAPIURL(c.apiURL),
		slackapi.OptionHTTPClient(c.httpClient),
	)
}

// ListChannels returns every non-archived public and private channel visible
// to the token, following pagination cursors.
func (c *Client) ListChannels(ctx context.Context, token string) ([]Channel, error) {
	api := c.api(token)

	var all []Conversation
	params := &slackapi.GetConversationsParameters{
		Types:           []string{"public_channel", "private_channel"},
		ExcludeArchived: true,
		Limit:           channelPageSize,
	}
	for page := 0; ; page++ {
		if page >= maxChannelPages {
			return nil, fmt.Errorf("%s: exceeded %d pages", conversationsListMethod, maxChannelPages)
		}

		channels, next, err := api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, apiError(conversationsListMethod, err)
		}
		for _, ch := range channels {
			all = append(all, conversationFrom(ch))
		}

		if next == "" {
			break
		}
		params.Cursor = next
	}

	log.LogDebugWithFields("slack", "Listed conversations", map[string]any{
		"count": len(all),
	})

	return ProjectChannels(all), nil
}

// PostMessage posts text to a channel as the token's user.
func (c *Client) PostMessage(ctx context.Context, token, channel, text string) error {
	_, _, err := c.api(token).PostMessageContext(ctx, channel, slackapi.MsgOptionText(text, false))
	if err != nil {
		return apiError(postMessageMethod, err)
	}
	return nil
}

func conversationFrom(ch slackapi.Channel) Conversation {
	return Conversation{
		ID:         ch.ID,
		Name:       ch.Name,
		IsChannel:  ch.IsChannel,
		IsGroup:    ch.IsGroup,
		IsIM:       ch.IsIM,
		IsPrivate:  ch.IsPrivate,
		IsArchived: ch.IsArchived,
	}
}

// apiError maps slack-go errors onto *APIError. Transport and decode errors
// are wrapped unchanged so context errors stay visible to errors.Is.
func apiError(method string, err error) error {
	var slackErr slackapi.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return &APIError{Method: method, Status: http.StatusOK, Code: slackErr.Err}
	}
	var statusErr slackapi.StatusCodeError
	if errors.As(err, &statusErr) {
		return &APIError{Method: method, Status: statusErr.Code}
	}
	var rateErr *slackapi.RateLimitedError
	if errors.As(err, &rateErr) {
		return &APIError{Method: method, Status: http.StatusTooManyRequests, Code: "ratelimited"}
	}
	return fmt.Errorf("slack %s: %w", method, err)
}
