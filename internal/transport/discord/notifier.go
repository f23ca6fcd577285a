package discord

import (
	"context"
	"fmt"

	"partyvote/internal/app"
)

// ChannelNotifier posts vote summaries to one channel
type ChannelNotifier struct {
	api       api
	channelID string
}

// NewChannelNotifier creates a notifier for channelID
func NewChannelNotifier(s api, channelID string) *ChannelNotifier {
	return &ChannelNotifier{api: s, channelID: channelID}
}

// Notify posts the summary as a channel message
func (n *ChannelNotifier) Notify(_ context.Context, summary string) error {
	if _, err := n.api.ChannelMessageSend(n.channelID, summary); err != nil {
		return fmt.Errorf("discord notify %s: %w", n.channelID, err)
	}
	return nil
}

var _ app.Notifier = (*ChannelNotifier)(nil)
