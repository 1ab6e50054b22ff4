package discord

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"guessr/clients"
	"guessr/models"
)

const readHistoryPermissions = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory

// DiscordMessageSource implements clients.MessageSource on top of a discordgo
// session. Request timeouts come from the session's HTTP client.
type DiscordMessageSource struct {
	session *discordgo.Session
}

func NewDiscordMessageSource(session *discordgo.Session) clients.MessageSource {
	return &DiscordMessageSource{session: session}
}

func (c *DiscordMessageSource) ListReadableChannels(
	ctx context.Context,
	guildID string,
) ([]models.Channel, error) {
	guildChannels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list guild channels: %w", err)
	}

	botUserID, err := c.botUserID(ctx)
	if err != nil {
		return nil, err
	}

	var readable []models.Channel
	for _, channel := range guildChannels {
		if channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		permissions, err := c.session.UserChannelPermissions(botUserID, channel.ID, discordgo.WithContext(ctx))
		if err != nil {
			// Channels the bot cannot resolve permissions for are not readable
			continue
		}
		if permissions&readHistoryPermissions != readHistoryPermissions {
			continue
		}
		readable = append(readable, models.Channel{ID: channel.ID, Name: channel.Name})
	}
	return readable, nil
}

func (c *DiscordMessageSource) FetchMessagesAfter(
	ctx context.Context,
	channelID string,
	afterTimestampMs int64,
	limit int,
) ([]models.ChannelMessage, error) {
	afterID := TimestampMsToSnowflake(afterTimestampMs)
	fetched, err := c.session.ChannelMessages(channelID, limit, "", afterID, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	messages := convertMessages(channelID, fetched)
	sortChronological(messages)
	return messages, nil
}

func (c *DiscordMessageSource) FetchContext(
	ctx context.Context,
	channelID, messageID string,
	beforeCount, afterCount int,
) ([]models.ChannelMessage, []models.ChannelMessage, error) {
	var before, after []models.ChannelMessage

	if beforeCount > 0 {
		fetched, err := c.session.ChannelMessages(
			channelID, beforeCount, messageID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch context before message: %w", err)
		}
		before = convertMessages(channelID, fetched)
		sortChronological(before)
	}

	if afterCount > 0 {
		fetched, err := c.session.ChannelMessages(
			channelID, afterCount, "", messageID, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch context after message: %w", err)
		}
		after = convertMessages(channelID, fetched)
		sortChronological(after)
	}

	return before, after, nil
}

func (c *DiscordMessageSource) botUserID(ctx context.Context) (string, error) {
	if c.session.State != nil && c.session.State.User != nil {
		return c.session.State.User.ID, nil
	}
	botUser, err := c.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to resolve bot user: %w", err)
	}
	return botUser.ID, nil
}

func convertMessages(channelID string, fetched []*discordgo.Message) []models.ChannelMessage {
	messages := make([]models.ChannelMessage, 0, len(fetched))
	for _, msg := range fetched {
		messages = append(messages, convertMessage(channelID, msg))
	}
	return messages
}

func convertMessage(channelID string, msg *discordgo.Message) models.ChannelMessage {
	reactionCount := 0
	for _, reaction := range msg.Reactions {
		reactionCount += reaction.Count
	}
	replyCount := 0
	if msg.Thread != nil {
		replyCount = msg.Thread.MessageCount
	}

	converted := models.ChannelMessage{
		ID:            msg.ID,
		ChannelID:     channelID,
		GuildID:       msg.GuildID,
		Content:       msg.Content,
		TimestampMs:   SnowflakeToTimestampMs(msg.ID),
		HasAttachment: len(msg.Attachments) > 0,
		HasEmbed:      len(msg.Embeds) > 0,
		ReactionCount: reactionCount,
		ReplyCount:    replyCount,
	}
	if msg.Author != nil {
		converted.AuthorID = msg.Author.ID
		converted.AuthorIsBot = msg.Author.Bot
	}
	return converted
}

// sortChronological orders messages oldest-first. Discord returns history
// newest-first for before/no-anchor fetches and oldest-first for after
// fetches; sorting by snowflake normalizes both.
func sortChronological(messages []models.ChannelMessage) {
	sort.Slice(messages, func(i, j int) bool {
		a, _ := strconv.ParseUint(messages[i].ID, 10, 64)
		b, _ := strconv.ParseUint(messages[j].ID, 10, 64)
		return a < b
	})
}
