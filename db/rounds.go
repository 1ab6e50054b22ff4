package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/mo"

	"guessr/core"
	dbtx "guessr/db/tx"
	"guessr/models"
)

type PostgresRoundsRepository struct {
	db     *sqlx.DB
	schema string
}

// DBRound represents the database schema for the rounds table
type DBRound struct {
	ID                string     `db:"id"`
	GuildID           string     `db:"guild_id"`
	GameChannelID     string     `db:"game_channel_id"`
	TargetMessageID   string     `db:"target_message_id"`
	TargetChannelID   string     `db:"target_channel_id"`
	TargetTimestampMs int64      `db:"target_timestamp_ms"`
	TargetAuthorID    *string    `db:"target_author_id"`
	Status            string     `db:"status"`
	StartedAt         time.Time  `db:"started_at"`
	EndedAt           *time.Time `db:"ended_at"`
	TimerExpiresAt    time.Time  `db:"timer_expires_at"`
}

// Column names for rounds table
var roundsColumns = []string{
	"id",
	"guild_id",
	"game_channel_id",
	"target_message_id",
	"target_channel_id",
	"target_timestamp_ms",
	"target_author_id",
	"status",
	"started_at",
	"ended_at",
	"timer_expires_at",
}

func NewPostgresRoundsRepository(db *sqlx.DB, schema string) *PostgresRoundsRepository {
	return &PostgresRoundsRepository{db: db, schema: schema}
}

func dbRoundToModel(dbRound *DBRound) *models.Round {
	return &models.Round{
		ID:                dbRound.ID,
		GuildID:           dbRound.GuildID,
		GameChannelID:     dbRound.GameChannelID,
		TargetMessageID:   dbRound.TargetMessageID,
		TargetChannelID:   dbRound.TargetChannelID,
		TargetTimestampMs: dbRound.TargetTimestampMs,
		TargetAuthorID:    dbRound.TargetAuthorID,
		Status:            models.RoundStatus(dbRound.Status),
		StartedAt:         dbRound.StartedAt,
		EndedAt:           dbRound.EndedAt,
		TimerExpiresAt:    dbRound.TimerExpiresAt,
	}
}

// CreateRound persists a new round with status 'active'. The partial unique
// index on (guild_id, game_channel_id) WHERE status = 'active' makes this the
// authoritative check for the one-active-round-per-channel invariant; a
// conflict surfaces as core.ErrRoundAlreadyActive.
func (r *PostgresRoundsRepository) CreateRound(ctx context.Context, round *models.Round) error {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(roundsColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.rounds (id, guild_id, game_channel_id, target_message_id, target_channel_id,
			target_timestamp_ms, target_author_id, status, started_at, ended_at, timer_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', NOW(), NULL, $8)
		RETURNING %s`, r.schema, columnsStr)

	var returnedRound DBRound
	err := db.QueryRowxContext(ctx, query,
		round.ID, round.GuildID, round.GameChannelID, round.TargetMessageID,
		round.TargetChannelID, round.TargetTimestampMs, round.TargetAuthorID,
		round.TimerExpiresAt).
		StructScan(&returnedRound)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return core.ErrRoundAlreadyActive
		}
		return fmt.Errorf("failed to create round: %w", err)
	}

	*round = *dbRoundToModel(&returnedRound)
	return nil
}

func (r *PostgresRoundsRepository) GetRoundByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.Round], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(roundsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.rounds
		WHERE id = $1`, columnsStr, r.schema)

	var dbRound DBRound
	err := db.GetContext(ctx, &dbRound, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.Round](), nil
		}
		return mo.None[*models.Round](), fmt.Errorf("failed to get round: %w", err)
	}

	return mo.Some(dbRoundToModel(&dbRound)), nil
}

func (r *PostgresRoundsRepository) GetActiveRound(
	ctx context.Context,
	guildID, gameChannelID string,
) (mo.Option[*models.Round], error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(roundsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.rounds
		WHERE guild_id = $1 AND game_channel_id = $2 AND status = 'active'`, columnsStr, r.schema)

	var dbRound DBRound
	err := db.GetContext(ctx, &dbRound, query, guildID, gameChannelID)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.Round](), nil
		}
		return mo.None[*models.Round](), fmt.Errorf("failed to get active round: %w", err)
	}

	return mo.Some(dbRoundToModel(&dbRound)), nil
}

// GetActiveRounds returns every round still marked active, across all guilds.
// Used by the recovery scan after a restart.
func (r *PostgresRoundsRepository) GetActiveRounds(ctx context.Context) ([]*models.Round, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	columnsStr := strings.Join(roundsColumns, ", ")
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.rounds
		WHERE status = 'active'
		ORDER BY started_at ASC`, columnsStr, r.schema)

	var dbRounds []DBRound
	err := db.SelectContext(ctx, &dbRounds, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rounds: %w", err)
	}

	rounds := make([]*models.Round, 0, len(dbRounds))
	for _, dbRound := range dbRounds {
		rounds = append(rounds, dbRoundToModel(&dbRound))
	}
	return rounds, nil
}

// TransitionRound moves a round from active to the given terminal status and
// stamps ended_at. The status guard makes racing terminal transitions safe:
// only the caller that observes 'active' gets true, the loser gets false.
func (r *PostgresRoundsRepository) TransitionRound(
	ctx context.Context,
	id string,
	status models.RoundStatus,
) (bool, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.rounds
		SET status = $2, ended_at = NOW()
		WHERE id = $1 AND status = 'active'`, r.schema)

	result, err := db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return false, fmt.Errorf("failed to transition round: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *PostgresRoundsRepository) CountRoundsForGuild(ctx context.Context, guildID string) (int, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s.rounds
		WHERE guild_id = $1`, r.schema)

	var count int
	if err := db.GetContext(ctx, &count, query, guildID); err != nil {
		return 0, fmt.Errorf("failed to count rounds: %w", err)
	}
	return count, nil
}

// TESTS_UpdateTimerExpiresAt rewrites a round's deadline for testing purposes
func (r *PostgresRoundsRepository) TESTS_UpdateTimerExpiresAt(
	ctx context.Context,
	id string,
	expiresAt time.Time,
) (bool, error) {
	db := dbtx.GetTransactional(ctx, r.db)
	query := fmt.Sprintf(`
		UPDATE %s.rounds
		SET timer_expires_at = $2
		WHERE id = $1`, r.schema)

	result, err := db.ExecContext(ctx, query, id, expiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to update timer_expires_at: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
