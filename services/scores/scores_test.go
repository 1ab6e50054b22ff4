package scores

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guessr/db"
	"guessr/testutils"
)

func setupTestScoresService(t *testing.T) (*ScoresService, *db.PostgresPlayerScoresRepository, func()) {
	cfg, err := testutils.LoadTestConfig()
	if err != nil {
		t.Skipf("skipping: test database not configured: %v", err)
	}

	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	require.NoError(t, err, "Failed to create database connection")

	repo := db.NewPostgresPlayerScoresRepository(dbConn, cfg.DatabaseSchema)
	service := NewScoresService(repo)

	return service, repo, func() { dbConn.Close() }
}

func TestScoresService(t *testing.T) {
	service, repo, cleanup := setupTestScoresService(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("GetLeaderboard", func(t *testing.T) {
		t.Run("OrdersByTotalScore", func(t *testing.T) {
			guildID := "guild-" + uuid.New().String()

			require.NoError(t, repo.ApplyGuessResult(ctx, guildID, "p-low", 300, false))
			require.NoError(t, repo.ApplyGuessResult(ctx, guildID, "p-high", 1500, true))
			require.NoError(t, repo.ApplyGuessResult(ctx, guildID, "p-mid", 900, false))

			leaderboard, err := service.GetLeaderboard(ctx, guildID, 10)
			require.NoError(t, err)
			require.Len(t, leaderboard, 3)
			assert.Equal(t, "p-high", leaderboard[0].PlayerID)
			assert.Equal(t, "p-mid", leaderboard[1].PlayerID)
			assert.Equal(t, "p-low", leaderboard[2].PlayerID)
		})

		t.Run("RespectsLimit", func(t *testing.T) {
			guildID := "guild-" + uuid.New().String()
			require.NoError(t, repo.ApplyGuessResult(ctx, guildID, "p1", 100, false))
			require.NoError(t, repo.ApplyGuessResult(ctx, guildID, "p2", 200, false))

			leaderboard, err := service.GetLeaderboard(ctx, guildID, 1)
			require.NoError(t, err)
			require.Len(t, leaderboard, 1)
			assert.Equal(t, "p2", leaderboard[0].PlayerID)
		})

		t.Run("AccumulatesAcrossRounds", func(t *testing.T) {
			guildID := "guild-" + uuid.New().String()
			require.NoError(t, repo.ApplyGuessResult(ctx, guildID, "p1", 1000, true))
			require.NoError(t, repo.ApplyGuessResult(ctx, guildID, "p1", 500, false))

			leaderboard, err := service.GetLeaderboard(ctx, guildID, 10)
			require.NoError(t, err)
			require.Len(t, leaderboard, 1)
			assert.Equal(t, 1500, leaderboard[0].TotalScore)
			assert.Equal(t, 2, leaderboard[0].RoundsPlayed)
			assert.Equal(t, 1, leaderboard[0].PerfectGuesses)
		})

		t.Run("EmptyGuildID", func(t *testing.T) {
			_, err := service.GetLeaderboard(ctx, "", 10)
			require.Error(t, err)
		})
	})

	t.Run("GetPlayerStats", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			guildID := "guild-" + uuid.New().String()
			require.NoError(t, repo.ApplyGuessResult(ctx, guildID, "leader", 2000, false))
			require.NoError(t, repo.ApplyGuessResult(ctx, guildID, "runner-up", 1000, false))

			maybeStats, err := service.GetPlayerStats(ctx, guildID, "runner-up")
			require.NoError(t, err)
			stats, ok := maybeStats.Get()
			require.True(t, ok)
			assert.Equal(t, 1000, stats.TotalScore)
			assert.Equal(t, 2, stats.Rank)
		})

		t.Run("UnknownPlayer", func(t *testing.T) {
			guildID := "guild-" + uuid.New().String()

			maybeStats, err := service.GetPlayerStats(ctx, guildID, "ghost")
			require.NoError(t, err)
			assert.True(t, maybeStats.IsAbsent())
		})
	})
}
