package clients

import (
	"context"

	"guessr/models"
)

// MessageSource is the chat-platform adapter the round engine reads history
// through. Fetches are bounded and not restartable; a fresh call re-fetches.
// Implementations own their request timeouts.
type MessageSource interface {
	// ListReadableChannels returns the guild's text channels the bot can read
	// message history in.
	ListReadableChannels(ctx context.Context, guildID string) ([]models.Channel, error)

	// FetchMessagesAfter returns up to limit messages posted after the given
	// timestamp in chronological order.
	FetchMessagesAfter(
		ctx context.Context,
		channelID string,
		afterTimestampMs int64,
		limit int,
	) ([]models.ChannelMessage, error)

	// FetchContext returns the messages immediately before and after the given
	// message, each slice in chronological order.
	FetchContext(
		ctx context.Context,
		channelID, messageID string,
		beforeCount, afterCount int,
	) (before []models.ChannelMessage, after []models.ChannelMessage, err error)
}
