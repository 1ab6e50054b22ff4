package services

import (
	"context"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"guessr/models"
)

// MockTransactionManager executes the function directly without a real transaction
type MockTransactionManager struct{}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// MockRoundsService is a mock implementation of RoundsService
type MockRoundsService struct {
	mock.Mock
}

func (m *MockRoundsService) StartRound(
	ctx context.Context,
	guildID, gameChannelID string,
	opts models.RoundOptions,
) (*models.RoundStart, error) {
	args := m.Called(ctx, guildID, gameChannelID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoundStart), args.Error(1)
}

func (m *MockRoundsService) SubmitGuess(
	ctx context.Context,
	guildID, gameChannelID, playerID string,
	guess models.GuessSubmission,
) (*models.Guess, *models.ScoreBreakdown, error) {
	args := m.Called(ctx, guildID, gameChannelID, playerID, guess)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Guess), args.Get(1).(*models.ScoreBreakdown), args.Error(2)
}

func (m *MockRoundsService) ExpireRound(
	ctx context.Context,
	roundID string,
) (mo.Option[*models.RoundReveal], error) {
	args := m.Called(ctx, roundID)
	return args.Get(0).(mo.Option[*models.RoundReveal]), args.Error(1)
}

func (m *MockRoundsService) SkipRound(
	ctx context.Context,
	guildID, gameChannelID string,
) (mo.Option[*models.RoundReveal], error) {
	args := m.Called(ctx, guildID, gameChannelID)
	return args.Get(0).(mo.Option[*models.RoundReveal]), args.Error(1)
}

func (m *MockRoundsService) GetActiveRound(
	ctx context.Context,
	guildID, gameChannelID string,
) (mo.Option[*models.Round], error) {
	args := m.Called(ctx, guildID, gameChannelID)
	return args.Get(0).(mo.Option[*models.Round]), args.Error(1)
}

// MockScoresService is a mock implementation of ScoresService
type MockScoresService struct {
	mock.Mock
}

func (m *MockScoresService) GetLeaderboard(
	ctx context.Context,
	guildID string,
	limit int,
) ([]*models.PlayerScore, error) {
	args := m.Called(ctx, guildID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PlayerScore), args.Error(1)
}

func (m *MockScoresService) GetPlayerStats(
	ctx context.Context,
	guildID, playerID string,
) (mo.Option[*models.PlayerStats], error) {
	args := m.Called(ctx, guildID, playerID)
	return args.Get(0).(mo.Option[*models.PlayerStats]), args.Error(1)
}

// MockTargetSelector is a mock implementation of TargetSelector
type MockTargetSelector struct {
	mock.Mock
}

func (m *MockTargetSelector) SelectTarget(
	ctx context.Context,
	guildID string,
) (*models.ChannelMessage, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChannelMessage), args.Error(1)
}

// MockRoundTimerScheduler is a mock implementation of RoundTimerScheduler
type MockRoundTimerScheduler struct {
	mock.Mock
}

func (m *MockRoundTimerScheduler) Schedule(roundID string, expiresAt time.Time) {
	m.Called(roundID, expiresAt)
}

func (m *MockRoundTimerScheduler) Cancel(roundID string) {
	m.Called(roundID)
}
