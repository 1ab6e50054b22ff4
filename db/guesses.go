package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"guessr/core"
	dbtx "guessr/db/tx"
	"guessr/models"
)

type PostgresGuessesRepository struct {
	db     *sqlx.DB
	schema string
}

// DBGuess represents the database schema for the guesses table
type DBGuess struct {
	ID                 string    `db:"id"`
	RoundID            string    `db:"round_id"`
	PlayerID           string    `db:"player_id"`
	GuessedChannelID   string    `db:"guessed_channel_id"`
	GuessedTimestampMs int64     `db:"guessed_timestamp_ms"`
	GuessedAuthorID    *string   `db:"guessed_author_id"`
	ChannelCorrect     bool      `db:"channel_correct"`
	TimeScore          int       `db:"time_score"`
	AuthorCorrect      *bool     `db:"author_correct"`
	SubmittedAt        time.Time `db:"submitted_at"`
}

// Column names for guesses table
var guessesColumns = []string{
	"id",
	"round_id",
	"player_id",
	"guessed_channel_id",
	"guessed_timestamp_ms",
	"guessed_author_id",
	"channel_correct",
	"time_score",
	"author_correct",
	"submitted_at",
}

func NewPostgresGuessesRepository(db *sqlx.DB, schema string) *PostgresGuessesRepository {
	return &PostgresGuessesRepository{db: db, schema: schema}
}

func dbGuessToModel(dbGuess *DBGuess) *models.Guess {
	return &models.Guess{
		ID:                 dbGuess.ID,
		RoundID:            dbGuess.RoundID,
		PlayerID:           dbGuess.PlayerID,
		GuessedChannelID:   dbGuess.GuessedChannelID,
		GuessedTimestampMs: dbGuess.GuessedTimestampMs,
		GuessedAuthorID:    dbGuess.GuessedAuthorID,
		ChannelCorrect:     dbGuess.ChannelCorrect,
		TimeScore:          dbGuess.TimeScore,
		AuthorCorrect:      dbGuess.AuthorCorrect,
		SubmittedAt:        dbGuess.SubmittedAt,
	}
}

// CreateGuess inserts a player's guess. The unique (round_id, player_id)
// constraint is the race-free duplicate check: when two submissions for the
// same player arrive concurrently, exactly one insert wins and the other
// observes core.ErrDuplicateGuess.
func (r *PostgresGuessesRepository) CreateGuess(ctx context.Context, guess *models.Guess) error {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(guessesColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.guesses (id, round_id, player_id, guessed_channel_id, guessed_timestamp_ms,
			guessed_author_id, channel_correct, time_score, author_correct, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING %s`, r.schema, columnsStr)

	var returnedGuess DBGuess
	err := db.QueryRowxContext(ctx, query,
		guess.ID, guess.RoundID, guess.PlayerID, guess.GuessedChannelID,
		guess.GuessedTimestampMs, guess.GuessedAuthorID, guess.ChannelCorrect,
		guess.TimeScore, guess.AuthorCorrect).
		StructScan(&returnedGuess)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return core.ErrDuplicateGuess
		}
		return fmt.Errorf("failed to create guess: %w", err)
	}

	*guess = *dbGuessToModel(&returnedGuess)
	return nil
}

func (r *PostgresGuessesRepository) GetGuessesForRound(
	ctx context.Context,
	roundID string,
) ([]*models.Guess, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(guessesColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.guesses
		WHERE round_id = $1
		ORDER BY submitted_at ASC`, columnsStr, r.schema)

	var dbGuesses []DBGuess
	err := db.SelectContext(ctx, &dbGuesses, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guesses for round: %w", err)
	}

	guesses := make([]*models.Guess, 0, len(dbGuesses))
	for _, dbGuess := range dbGuesses {
		guesses = append(guesses, dbGuessToModel(&dbGuess))
	}
	return guesses, nil
}
