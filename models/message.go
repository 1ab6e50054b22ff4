package models

// ChannelMessage is a historical chat message as observed through the message
// source adapter. Immutable once fetched; the round engine never writes these.
type ChannelMessage struct {
	ID            string `json:"id"`
	ChannelID     string `json:"channel_id"`
	GuildID       string `json:"guild_id"`
	AuthorID      string `json:"author_id"`
	AuthorIsBot   bool   `json:"author_is_bot"`
	Content       string `json:"content"`
	TimestampMs   int64  `json:"timestamp_ms"`
	HasAttachment bool   `json:"has_attachment"`
	HasEmbed      bool   `json:"has_embed"`
	ReactionCount int    `json:"reaction_count"`
	ReplyCount    int    `json:"reply_count"`
}

// Channel is a readable text channel in a guild
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
