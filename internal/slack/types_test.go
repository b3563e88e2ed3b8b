package slack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectChannels(t *testing.T) {
	tests := []struct {
		name  string
		input []Conversation
		want  []Channel
	}{
		{
			name:  "nil input renders empty",
			input: nil,
			want:  []Channel{},
		},
		{
			name: "keeps order",
			input: []Conversation{
				{ID: "C2", Name: "random", IsChannel: true},
				{ID: "C1", Name: "general", IsChannel: true},
			},
			want: []Channel{
				{ID: "C2", Name: "random"},
				{ID: "C1", Name: "general"},
			},
		},
		{
			name: "drops non-channel entries",
			input: []Conversation{
				{ID: "C1", Name: "general", IsChannel: true},
				{ID: "G1", Name: "mpdm-a--b", IsGroup: true},
				{ID: "D1", IsIM: true},
				{ID: "C2", Name: "private-ops", IsChannel: true, IsPrivate: true},
			},
			want: []Channel{
				{ID: "C1", Name: "general"},
				{ID: "C2", Name: "private-ops"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectChannels(tt.input))
		})
	}
}

func TestProjectChannels_DoesNotMutateInput(t *testing.T) {
	input := []Conversation{
		{ID: "G1", Name: "group", IsGroup: true},
		{ID: "C1", Name: "general", IsChannel: true},
	}
	snapshot := append([]Conversation(nil), input...)

	first := ProjectChannels(input)
	second := ProjectChannels(input)

	assert.Equal(t, snapshot, input)
	assert.Equal(t, first, second)
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "with code",
			err:  &APIError{Method: "chat.postMessage", Status: 200, Code: "channel_not_found"},
			want: "slack chat.postMessage: channel_not_found",
		},
		{
			name: "with body",
			err:  &APIError{Method: "conversations.list", Status: 502, Body: "bad gateway"},
			want: "slack conversations.list: status 502: bad gateway",
		},
		{
			name: "status only",
			err:  &APIError{Method: "oauth.v2.access", Status: 500},
			want: "slack oauth.v2.access: status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
