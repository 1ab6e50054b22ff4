package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	dbtx "guessr/db/tx"
	"guessr/models"
)

type PostgresPlayerScoresRepository struct {
	db     *sqlx.DB
	schema string
}

// DBPlayerScore represents the database schema for the player_scores table
type DBPlayerScore struct {
	GuildID        string `db:"guild_id"`
	PlayerID       string `db:"player_id"`
	TotalScore     int    `db:"total_score"`
	RoundsPlayed   int    `db:"rounds_played"`
	PerfectGuesses int    `db:"perfect_guesses"`
}

// Column names for player_scores table
var playerScoresColumns = []string{
	"guild_id",
	"player_id",
	"total_score",
	"rounds_played",
	"perfect_guesses",
}

func NewPostgresPlayerScoresRepository(db *sqlx.DB, schema string) *PostgresPlayerScoresRepository {
	return &PostgresPlayerScoresRepository{db: db, schema: schema}
}

func dbPlayerScoreToModel(dbScore *DBPlayerScore) *models.PlayerScore {
	return &models.PlayerScore{
		GuildID:        dbScore.GuildID,
		PlayerID:       dbScore.PlayerID,
		TotalScore:     dbScore.TotalScore,
		RoundsPlayed:   dbScore.RoundsPlayed,
		PerfectGuesses: dbScore.PerfectGuesses,
	}
}

// ApplyGuessResult folds one scored guess into the player's aggregate:
// adds the points, bumps rounds_played by exactly one, and counts a perfect
// round. Upserts so a player's first fold creates the row.
func (r *PostgresPlayerScoresRepository) ApplyGuessResult(
	ctx context.Context,
	guildID, playerID string,
	points int,
	perfect bool,
) error {
	db := dbtx.GetTransactional(ctx, r.db)
	perfectIncrement := 0
	if perfect {
		perfectIncrement = 1
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.player_scores (guild_id, player_id, total_score, rounds_played, perfect_guesses)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (guild_id, player_id) DO UPDATE SET
			total_score = %s.player_scores.total_score + $3,
			rounds_played = %s.player_scores.rounds_played + 1,
			perfect_guesses = %s.player_scores.perfect_guesses + $4`,
		r.schema, r.schema, r.schema, r.schema)

	if _, err := db.ExecContext(ctx, query, guildID, playerID, points, perfectIncrement); err != nil {
		return fmt.Errorf("failed to apply guess result: %w", err)
	}
	return nil
}

func (r *PostgresPlayerScoresRepository) GetLeaderboard(
	ctx context.Context,
	guildID string,
	limit int,
) ([]*models.PlayerScore, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(playerScoresColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.player_scores
		WHERE guild_id = $1
		ORDER BY total_score DESC, player_id ASC
		LIMIT $2`, columnsStr, r.schema)

	var dbScores []DBPlayerScore
	err := db.SelectContext(ctx, &dbScores, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	scores := make([]*models.PlayerScore, 0, len(dbScores))
	for _, dbScore := range dbScores {
		scores = append(scores, dbPlayerScoreToModel(&dbScore))
	}
	return scores, nil
}

func (r *PostgresPlayerScoresRepository) GetPlayerScore(
	ctx context.Context,
	guildID, playerID string,
) (mo.Option[*models.PlayerScore], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(playerScoresColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.player_scores
		WHERE guild_id = $1 AND player_id = $2`, columnsStr, r.schema)

	var dbScore DBPlayerScore
	err := db.GetContext(ctx, &dbScore, query, guildID, playerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.PlayerScore](), nil
		}
		return mo.None[*models.PlayerScore](), fmt.Errorf("failed to get player score: %w", err)
	}

	return mo.Some(dbPlayerScoreToModel(&dbScore)), nil
}

// GetPlayerRank returns the player's 1-based leaderboard position: one plus
// the number of players with a strictly greater total.
func (r *PostgresPlayerScoresRepository) GetPlayerRank(
	ctx context.Context,
	guildID, playerID string,
) (int, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT COUNT(*) + 1
		FROM %s.player_scores
		WHERE guild_id = $1 AND total_score > (
			SELECT COALESCE(MAX(total_score), 0)
			FROM %s.player_scores
			WHERE guild_id = $1 AND player_id = $2
		)`, r.schema, r.schema)

	var rank int
	if err := db.GetContext(ctx, &rank, query, guildID, playerID); err != nil {
		return 0, fmt.Errorf("failed to get player rank: %w", err)
	}
	return rank, nil
}
