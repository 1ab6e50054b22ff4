package models

import (
	"time"
)

// Guess is a single player's answer for a round. Write-once: the unique
// (round_id, player_id) constraint rejects resubmission instead of updating.
// Correctness flags and the time score are derived at submission time against
// the round's captured target, never re-derived later.
type Guess struct {
	ID                 string    `json:"id"                   db:"id"`
	RoundID            string    `json:"round_id"             db:"round_id"`
	PlayerID           string    `json:"player_id"            db:"player_id"`
	GuessedChannelID   string    `json:"guessed_channel_id"   db:"guessed_channel_id"`
	GuessedTimestampMs int64     `json:"guessed_timestamp_ms" db:"guessed_timestamp_ms"`
	GuessedAuthorID    *string   `json:"guessed_author_id"    db:"guessed_author_id"`
	ChannelCorrect     bool      `json:"channel_correct"      db:"channel_correct"`
	TimeScore          int       `json:"time_score"           db:"time_score"`
	AuthorCorrect      *bool     `json:"author_correct"       db:"author_correct"`
	SubmittedAt        time.Time `json:"submitted_at"         db:"submitted_at"`
}

// GuessSubmission carries a player's raw answer into SubmitGuess. AuthorID is
// optional; leaving it nil skips the author component entirely.
type GuessSubmission struct {
	ChannelID   string
	TimestampMs int64
	AuthorID    *string
}

// ScoreBreakdown is the per-guess point summary returned to the player on
// submission. The author component is only counted when the guess carried an
// author.
type ScoreBreakdown struct {
	ChannelPoints int  `json:"channel_points"`
	TimePoints    int  `json:"time_points"`
	AuthorPoints  int  `json:"author_points"`
	HasAuthor     bool `json:"has_author"`
	Total         int  `json:"total"`
	Perfect       bool `json:"perfect"`
}
