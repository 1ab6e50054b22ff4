package models

// PlayerScore is the per-guild cumulative score record for a player.
// Mutated only inside the completion transaction that folds a finished
// round's guesses; rounds_played increments exactly once per completed
// round the player guessed in.
type PlayerScore struct {
	GuildID        string `json:"guild_id"        db:"guild_id"`
	PlayerID       string `json:"player_id"       db:"player_id"`
	TotalScore     int    `json:"total_score"     db:"total_score"`
	RoundsPlayed   int    `json:"rounds_played"   db:"rounds_played"`
	PerfectGuesses int    `json:"perfect_guesses" db:"perfect_guesses"`
}

// PlayerStats is a player's aggregate plus their leaderboard rank
type PlayerStats struct {
	PlayerScore
	Rank int `json:"rank"`
}
