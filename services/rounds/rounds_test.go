package rounds

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guessr/config"
	"guessr/core"
	"guessr/db"
	"guessr/models"
	"guessr/services/txmanager"
	"guessr/testutils"
)

// stubSelector always returns the same target message
type stubSelector struct {
	target *models.ChannelMessage
	err    error
}

func (s *stubSelector) SelectTarget(ctx context.Context, guildID string) (*models.ChannelMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.target, nil
}

// stubSource serves empty context windows
type stubSource struct{}

func (s *stubSource) ListReadableChannels(ctx context.Context, guildID string) ([]models.Channel, error) {
	return nil, nil
}

func (s *stubSource) FetchMessagesAfter(
	ctx context.Context,
	channelID string,
	afterTimestampMs int64,
	limit int,
) ([]models.ChannelMessage, error) {
	return nil, nil
}

func (s *stubSource) FetchContext(
	ctx context.Context,
	channelID, messageID string,
	beforeCount, afterCount int,
) ([]models.ChannelMessage, []models.ChannelMessage, error) {
	return nil, nil, nil
}

// recordingScheduler records timer calls without arming real timers
type recordingScheduler struct {
	scheduled []string
	cancelled []string
}

func (r *recordingScheduler) Schedule(roundID string, expiresAt time.Time) {
	r.scheduled = append(r.scheduled, roundID)
}

func (r *recordingScheduler) Cancel(roundID string) {
	r.cancelled = append(r.cancelled, roundID)
}

type testEnv struct {
	service     *RoundsService
	roundsRepo  *db.PostgresRoundsRepository
	guessesRepo *db.PostgresGuessesRepository
	scoresRepo  *db.PostgresPlayerScoresRepository
	scheduler   *recordingScheduler
	target      *models.ChannelMessage
	cleanup     func()
}

func setupTestRoundsService(t *testing.T) *testEnv {
	cfg, err := testutils.LoadTestConfig()
	if err != nil {
		t.Skipf("skipping: test database not configured: %v", err)
	}

	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	require.NoError(t, err, "Failed to create database connection")

	roundsRepo := db.NewPostgresRoundsRepository(dbConn, cfg.DatabaseSchema)
	guessesRepo := db.NewPostgresGuessesRepository(dbConn, cfg.DatabaseSchema)
	scoresRepo := db.NewPostgresPlayerScoresRepository(dbConn, cfg.DatabaseSchema)
	txManager := txmanager.NewTransactionManager(dbConn)

	authorID := "author-" + uuid.New().String()
	target := &models.ChannelMessage{
		ID:          "msg-" + uuid.New().String(),
		ChannelID:   "src-" + uuid.New().String(),
		AuthorID:    authorID,
		Content:     "the message everyone will be hunting for in the archives",
		TimestampMs: time.Now().Add(-40 * 24 * time.Hour).UnixMilli(),
	}

	scheduler := &recordingScheduler{}
	gameCfg := config.GameConfig{
		RoundTimeout:       time.Minute,
		ContextMessages:    5,
		MinMessageAge:      24 * time.Hour,
		MessageSearchLimit: 100,
		MaxSearchRetries:   5,
		Lookback:           365 * 24 * time.Hour,
		MinMessageLength:   200,
	}

	service := NewRoundsService(
		roundsRepo,
		guessesRepo,
		scoresRepo,
		txManager,
		&stubSelector{target: target},
		scheduler,
		&stubSource{},
		gameCfg,
	)

	return &testEnv{
		service:     service,
		roundsRepo:  roundsRepo,
		guessesRepo: guessesRepo,
		scoresRepo:  scoresRepo,
		scheduler:   scheduler,
		target:      target,
		cleanup:     func() { dbConn.Close() },
	}
}

func newGameChannel() (string, string) {
	return "guild-" + uuid.New().String(), "chan-" + uuid.New().String()
}

func TestRoundsService(t *testing.T) {
	env := setupTestRoundsService(t)
	defer env.cleanup()
	ctx := context.Background()

	t.Run("StartRound", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()

			start, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)

			assert.Equal(t, models.RoundStatusActive, start.Round.Status)
			assert.Equal(t, env.target.ID, start.Round.TargetMessageID)
			assert.Equal(t, env.target.ChannelID, start.Round.TargetChannelID)
			assert.Equal(t, env.target.TimestampMs, start.Round.TargetTimestampMs)
			require.NotNil(t, start.Round.TargetAuthorID)
			assert.Equal(t, env.target.AuthorID, *start.Round.TargetAuthorID)
			assert.Equal(t, 1, start.RoundNumber)
			assert.Contains(t, env.scheduler.scheduled, start.Round.ID)
		})

		t.Run("SecondStartRejected", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()

			_, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)

			_, err = env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			assert.ErrorIs(t, err, core.ErrRoundAlreadyActive)
		})

		t.Run("EmptyGuildID", func(t *testing.T) {
			_, err := env.service.StartRound(ctx, "", "chan-1", models.RoundOptions{})
			require.Error(t, err)
		})

		t.Run("RoundNumberIncrements", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()

			first, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)
			assert.Equal(t, 1, first.RoundNumber)

			_, err = env.service.SkipRound(ctx, guildID, gameChannelID)
			require.NoError(t, err)

			second, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)
			assert.Equal(t, 2, second.RoundNumber)
		})

		t.Run("TimeoutOverride", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()

			start, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{
				Timeout: 5 * time.Minute,
			})
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now().Add(5*time.Minute), start.Round.TimerExpiresAt, 10*time.Second)
		})

		t.Run("TimeoutOverrideOutOfRange", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()

			_, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{
				Timeout: time.Second,
			})
			require.Error(t, err)
		})
	})

	t.Run("SubmitGuess", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()
			start, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)

			playerID := "player-" + uuid.New().String()
			guess, breakdown, err := env.service.SubmitGuess(ctx, guildID, gameChannelID, playerID, models.GuessSubmission{
				ChannelID:   env.target.ChannelID,
				TimestampMs: env.target.TimestampMs,
			})
			require.NoError(t, err)

			assert.Equal(t, start.Round.ID, guess.RoundID)
			assert.True(t, guess.ChannelCorrect)
			assert.Equal(t, 500, guess.TimeScore)
			assert.Nil(t, guess.AuthorCorrect)
			assert.Equal(t, 1000, breakdown.Total)
			assert.True(t, breakdown.Perfect)
		})

		t.Run("DuplicateRejected", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()
			_, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)

			playerID := "player-" + uuid.New().String()
			sub := models.GuessSubmission{ChannelID: "wrong", TimestampMs: time.Now().UnixMilli()}

			_, _, err = env.service.SubmitGuess(ctx, guildID, gameChannelID, playerID, sub)
			require.NoError(t, err)

			_, _, err = env.service.SubmitGuess(ctx, guildID, gameChannelID, playerID, sub)
			assert.ErrorIs(t, err, core.ErrDuplicateGuess)
		})

		t.Run("ConcurrentDuplicateRejected", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()
			_, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)

			playerID := "player-" + uuid.New().String()
			sub := models.GuessSubmission{ChannelID: "wrong", TimestampMs: time.Now().UnixMilli()}

			errs := make(chan error, 2)
			var wg sync.WaitGroup
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _, err := env.service.SubmitGuess(ctx, guildID, gameChannelID, playerID, sub)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			succeeded, rejected := 0, 0
			for err := range errs {
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, core.ErrDuplicateGuess):
					rejected++
				default:
					t.Fatalf("unexpected submit error: %v", err)
				}
			}
			assert.Equal(t, 1, succeeded, "exactly one concurrent guess must win")
			assert.Equal(t, 1, rejected, "the other must observe the uniqueness constraint")
		})

		t.Run("NoActiveRound", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()

			_, _, err := env.service.SubmitGuess(ctx, guildID, gameChannelID, "player-1", models.GuessSubmission{
				ChannelID:   "chan-1",
				TimestampMs: time.Now().UnixMilli(),
			})
			assert.ErrorIs(t, err, core.ErrRoundNotActive)
		})

		t.Run("LateGuessRejected", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()
			start, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)

			updated, err := env.roundsRepo.TESTS_UpdateTimerExpiresAt(ctx, start.Round.ID, time.Now().Add(-time.Second))
			require.NoError(t, err)
			require.True(t, updated)

			_, _, err = env.service.SubmitGuess(ctx, guildID, gameChannelID, "player-1", models.GuessSubmission{
				ChannelID:   "chan-1",
				TimestampMs: time.Now().UnixMilli(),
			})
			assert.ErrorIs(t, err, core.ErrRoundNotActive)
		})
	})

	t.Run("ExpireRound", func(t *testing.T) {
		t.Run("FoldsScoresOnce", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()
			start, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)

			playerID := "player-" + uuid.New().String()
			_, _, err = env.service.SubmitGuess(ctx, guildID, gameChannelID, playerID, models.GuessSubmission{
				ChannelID:   env.target.ChannelID,
				TimestampMs: env.target.TimestampMs,
			})
			require.NoError(t, err)

			maybeReveal, err := env.service.ExpireRound(ctx, start.Round.ID)
			require.NoError(t, err)
			reveal, ok := maybeReveal.Get()
			require.True(t, ok)

			assert.Equal(t, models.RoundStatusCompleted, reveal.Round.Status)
			assert.NotNil(t, reveal.Round.EndedAt)
			require.Len(t, reveal.Guesses, 1)
			assert.Contains(t, env.scheduler.cancelled, start.Round.ID)

			maybeScore, err := env.scoresRepo.GetPlayerScore(ctx, guildID, playerID)
			require.NoError(t, err)
			score, ok := maybeScore.Get()
			require.True(t, ok)
			assert.Equal(t, 1000, score.TotalScore)
			assert.Equal(t, 1, score.RoundsPlayed)
			assert.Equal(t, 1, score.PerfectGuesses)

			// Second expiry loses the transition race and must not refold
			maybeSecond, err := env.service.ExpireRound(ctx, start.Round.ID)
			require.NoError(t, err)
			assert.True(t, maybeSecond.IsAbsent())

			maybeScore, err = env.scoresRepo.GetPlayerScore(ctx, guildID, playerID)
			require.NoError(t, err)
			score, ok = maybeScore.Get()
			require.True(t, ok)
			assert.Equal(t, 1000, score.TotalScore)
			assert.Equal(t, 1, score.RoundsPlayed)
		})

		t.Run("InvalidRoundID", func(t *testing.T) {
			_, err := env.service.ExpireRound(ctx, "not-a-ulid")
			require.Error(t, err)
		})
	})

	t.Run("SkipRound", func(t *testing.T) {
		t.Run("CancelsWithoutScoring", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()
			_, err := env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)

			playerID := "player-" + uuid.New().String()
			_, _, err = env.service.SubmitGuess(ctx, guildID, gameChannelID, playerID, models.GuessSubmission{
				ChannelID:   env.target.ChannelID,
				TimestampMs: env.target.TimestampMs,
			})
			require.NoError(t, err)

			maybeReveal, err := env.service.SkipRound(ctx, guildID, gameChannelID)
			require.NoError(t, err)
			reveal, ok := maybeReveal.Get()
			require.True(t, ok)

			assert.Equal(t, models.RoundStatusCancelled, reveal.Round.Status)
			require.Len(t, reveal.Guesses, 1)

			maybeScore, err := env.scoresRepo.GetPlayerScore(ctx, guildID, playerID)
			require.NoError(t, err)
			assert.True(t, maybeScore.IsAbsent(), "cancelled rounds must not touch scores")

			// Channel is free for a new round after the skip
			_, err = env.service.StartRound(ctx, guildID, gameChannelID, models.RoundOptions{})
			require.NoError(t, err)
		})

		t.Run("NoActiveRound", func(t *testing.T) {
			guildID, gameChannelID := newGameChannel()

			_, err := env.service.SkipRound(ctx, guildID, gameChannelID)
			assert.ErrorIs(t, err, core.ErrRoundNotActive)
		})
	})
}
