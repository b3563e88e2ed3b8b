package slack

import "fmt"

// Channel is the projection of a Slack conversation returned to the browser.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Conversation is the subset of a conversations.list entry this service reads.
type Conversation struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsChannel  bool   `json:"is_channel"`
	IsGroup    bool   `json:"is_group"`
	IsIM       bool   `json:"is_im"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
}

// APIError is returned when Slack answers with a non-2xx status or ok:false.
// Code carries Slack's error string (e.g. "channel_not_found") when present.
type APIError struct {
	Method string
	Status int
	Code   string
	Body   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
	}
	if e.Body != "" {
		return fmt.Sprintf("slack %s: status %d: %s", e.Method, e.Status, e.Body)
	}
	return fmt.Sprintf("slack %s: status %d", e.Method, e.Status)
}

// ProjectChannels keeps the entries flagged is_channel and reduces them to
// {id, name}, preserving order. The result is never nil.
func ProjectChannels(conversations []Conversation) []Channel {
	channels := make([]Channel, 0, len(conversations))
	for _, c := range conversations {
		if !c.IsChannel {
			continue
		}
		channels = append(channels, Channel{ID: c.ID, Name: c.Name})
	}
	return channels
}
