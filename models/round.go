package models

import (
	"time"
)

type RoundStatus string

const (
	RoundStatusActive    RoundStatus = "active"
	RoundStatusCompleted RoundStatus = "completed"
	RoundStatusCancelled RoundStatus = "cancelled"
)

// Round is one instance of the guessing game in a (guild, game-channel).
// Target fields are captured at creation time and never mutated; the state
// machine only touches status, ended_at and the timer deadline.
type Round struct {
	ID            string `json:"id"              db:"id"`
	GuildID       string `json:"guild_id"        db:"guild_id"`
	GameChannelID string `json:"game_channel_id" db:"game_channel_id"`

	TargetMessageID   string  `json:"target_message_id"   db:"target_message_id"`
	TargetChannelID   string  `json:"target_channel_id"   db:"target_channel_id"`
	TargetTimestampMs int64   `json:"target_timestamp_ms" db:"target_timestamp_ms"`
	TargetAuthorID    *string `json:"target_author_id"    db:"target_author_id"`

	Status         RoundStatus `json:"status"           db:"status"`
	StartedAt      time.Time   `json:"started_at"       db:"started_at"`
	EndedAt        *time.Time  `json:"ended_at"         db:"ended_at"`
	TimerExpiresAt time.Time   `json:"timer_expires_at" db:"timer_expires_at"`
}

// RoundOptions are per-round overrides of the configured defaults. Zero
// values fall back to the game config.
type RoundOptions struct {
	Timeout         time.Duration `json:"timeout"`
	ContextMessages int           `json:"context_messages"`
}

// RoundStart is returned by StartRound for display: the new round, the target
// message and its surrounding context, and the guild's round counter.
type RoundStart struct {
	Round       *Round           `json:"round"`
	Target      ChannelMessage   `json:"target"`
	Before      []ChannelMessage `json:"before"`
	After       []ChannelMessage `json:"after"`
	RoundNumber int              `json:"round_number"`
}

// RoundReveal is returned by the terminal transition that wins the
// active→completed race: the finished round plus every guess for display.
type RoundReveal struct {
	Round   *Round   `json:"round"`
	Guesses []*Guess `json:"guesses"`
}
