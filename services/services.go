package services

import (
	"context"
	"time"

	"github.com/samber/mo"

	"guessr/models"
)

// TransactionManager defines the interface for managing database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// RoundsService defines the interface for round lifecycle operations
type RoundsService interface {
	StartRound(
		ctx context.Context,
		guildID, gameChannelID string,
		opts models.RoundOptions,
	) (*models.RoundStart, error)
	SubmitGuess(
		ctx context.Context,
		guildID, gameChannelID, playerID string,
		guess models.GuessSubmission,
	) (*models.Guess, *models.ScoreBreakdown, error)
	ExpireRound(ctx context.Context, roundID string) (mo.Option[*models.RoundReveal], error)
	SkipRound(ctx context.Context, guildID, gameChannelID string) (mo.Option[*models.RoundReveal], error)
	GetActiveRound(ctx context.Context, guildID, gameChannelID string) (mo.Option[*models.Round], error)
}

// ScoresService defines the interface for leaderboard and player stat reads
type ScoresService interface {
	GetLeaderboard(ctx context.Context, guildID string, limit int) ([]*models.PlayerScore, error)
	GetPlayerStats(ctx context.Context, guildID, playerID string) (mo.Option[*models.PlayerStats], error)
}

// TargetSelector defines the interface for picking a round's target message
type TargetSelector interface {
	SelectTarget(ctx context.Context, guildID string) (*models.ChannelMessage, error)
}

// RoundTimerScheduler defines the interface for the in-process round deadline timers
type RoundTimerScheduler interface {
	Schedule(roundID string, expiresAt time.Time)
	Cancel(roundID string)
}
