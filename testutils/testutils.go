package testutils

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"guessr/config"
	"guessr/core"
	"guessr/db"
	"guessr/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// LoadTestConfig loads configuration for tests from environment variables
func LoadTestConfig() (*config.AppConfig, error) {
	databaseURL := os.Getenv("DB_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DB_URL is not set")
	}

	databaseSchema := os.Getenv("DB_SCHEMA")
	if databaseSchema == "" {
		return nil, fmt.Errorf("DB_SCHEMA is not set")
	}

	return &config.AppConfig{
		DatabaseURL:    databaseURL,
		DatabaseSchema: databaseSchema,
	}, nil
}

// CreateTestRound creates an active round with unique IDs to avoid constraint violations
func CreateTestRound(t *testing.T, roundsRepo *db.PostgresRoundsRepository) *models.Round {
	round := &models.Round{
		ID:                core.NewID("rnd"),
		GuildID:           "guild-" + uuid.New().String(),
		GameChannelID:     "chan-" + uuid.New().String(),
		TargetMessageID:   "msg-" + uuid.New().String(),
		TargetChannelID:   "src-" + uuid.New().String(),
		TargetTimestampMs: time.Now().Add(-48*time.Hour).UnixMilli(),
		TimerExpiresAt:    time.Now().Add(time.Minute),
	}

	err := roundsRepo.CreateRound(context.Background(), round)
	require.NoError(t, err, "Failed to create test round")
	return round
}

// CreateTestGuess creates a guess for the given round and player
func CreateTestGuess(
	t *testing.T,
	guessesRepo *db.PostgresGuessesRepository,
	roundID, playerID string,
) *models.Guess {
	guess := &models.Guess{
		ID:                 core.NewID("gs"),
		RoundID:            roundID,
		PlayerID:           playerID,
		GuessedChannelID:   "chan-" + uuid.New().String(),
		GuessedTimestampMs: time.Now().Add(-24*time.Hour).UnixMilli(),
	}

	err := guessesRepo.CreateGuess(context.Background(), guess)
	require.NoError(t, err, "Failed to create test guess")
	return guess
}
