package rounds

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/samber/mo"

	"guessr/clients"
	"guessr/config"
	"guessr/core"
	"guessr/db"
	"guessr/models"
	"guessr/services"
	"guessr/services/scoring"
)

// RoundsService owns the round state machine. A round is created active and
// reaches exactly one terminal status: completed at its deadline or cancelled
// by skip. The guarded transition in the repo settles races; whichever caller
// flips the row first does the reveal and score fold, later callers observe
// a no-op.
type RoundsService struct {
	roundsRepo  *db.PostgresRoundsRepository
	guessesRepo *db.PostgresGuessesRepository
	scoresRepo  *db.PostgresPlayerScoresRepository
	txManager   services.TransactionManager
	selector    services.TargetSelector
	timers      services.RoundTimerScheduler
	source      clients.MessageSource
	cfg         config.GameConfig
}

func NewRoundsService(
	roundsRepo *db.PostgresRoundsRepository,
	guessesRepo *db.PostgresGuessesRepository,
	scoresRepo *db.PostgresPlayerScoresRepository,
	txManager services.TransactionManager,
	selector services.TargetSelector,
	timers services.RoundTimerScheduler,
	source clients.MessageSource,
	cfg config.GameConfig,
) *RoundsService {
	return &RoundsService{
		roundsRepo:  roundsRepo,
		guessesRepo: guessesRepo,
		scoresRepo:  scoresRepo,
		txManager:   txManager,
		selector:    selector,
		timers:      timers,
		source:      source,
		cfg:         cfg,
	}
}

// Per-round override bounds
const (
	minRoundTimeout    = 10 * time.Second
	maxRoundTimeout    = 10 * time.Minute
	maxContextMessages = 10
)

func (s *RoundsService) StartRound(
	ctx context.Context,
	guildID, gameChannelID string,
	opts models.RoundOptions,
) (*models.RoundStart, error) {
	log.Printf("🎮 Starting round in guild %s, channel %s", guildID, gameChannelID)
	if guildID == "" {
		return nil, fmt.Errorf("guild ID cannot be empty")
	}
	if gameChannelID == "" {
		return nil, fmt.Errorf("game channel ID cannot be empty")
	}

	timeout := s.cfg.RoundTimeout
	if opts.Timeout != 0 {
		if opts.Timeout < minRoundTimeout || opts.Timeout > maxRoundTimeout {
			return nil, fmt.Errorf("round timeout must be between %s and %s", minRoundTimeout, maxRoundTimeout)
		}
		timeout = opts.Timeout
	}
	contextMessages := s.cfg.ContextMessages
	if opts.ContextMessages != 0 {
		if opts.ContextMessages < 0 || opts.ContextMessages > maxContextMessages {
			return nil, fmt.Errorf("context messages must be between 0 and %d", maxContextMessages)
		}
		contextMessages = opts.ContextMessages
	}

	// Cheap pre-check for a friendly error; the partial unique index is what
	// actually settles concurrent starts.
	existing, err := s.roundsRepo.GetActiveRound(ctx, guildID, gameChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for active round: %w", err)
	}
	if existing.IsPresent() {
		return nil, core.ErrRoundAlreadyActive
	}

	target, err := s.selector.SelectTarget(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to select target message: %w", err)
	}

	before, after, err := s.source.FetchContext(
		ctx,
		target.ChannelID,
		target.ID,
		contextMessages,
		contextMessages,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target context: %w", err)
	}

	var targetAuthorID *string
	if target.AuthorID != "" {
		authorID := target.AuthorID
		targetAuthorID = &authorID
	}

	// Number the round before persisting it so nothing sits between the
	// insert and arming the timer
	previousRounds, err := s.roundsRepo.CountRoundsForGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rounds for guild: %w", err)
	}

	round := &models.Round{
		ID:                core.NewID("rnd"),
		GuildID:           guildID,
		GameChannelID:     gameChannelID,
		TargetMessageID:   target.ID,
		TargetChannelID:   target.ChannelID,
		TargetTimestampMs: target.TimestampMs,
		TargetAuthorID:    targetAuthorID,
		TimerExpiresAt:    time.Now().Add(timeout),
	}
	if err := s.roundsRepo.CreateRound(ctx, round); err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	s.timers.Schedule(round.ID, round.TimerExpiresAt)

	log.Printf("✅ Round %s started in guild %s (target message %s)", round.ID, guildID, target.ID)
	return &models.RoundStart{
		Round:       round,
		Target:      *target,
		Before:      before,
		After:       after,
		RoundNumber: previousRounds + 1,
	}, nil
}

func (s *RoundsService) SubmitGuess(
	ctx context.Context,
	guildID, gameChannelID, playerID string,
	sub models.GuessSubmission,
) (*models.Guess, *models.ScoreBreakdown, error) {
	log.Printf("🎮 Player %s submitting guess in guild %s, channel %s", playerID, guildID, gameChannelID)
	if guildID == "" || gameChannelID == "" {
		return nil, nil, fmt.Errorf("guild ID and game channel ID cannot be empty")
	}
	if playerID == "" {
		return nil, nil, fmt.Errorf("player ID cannot be empty")
	}
	if sub.ChannelID == "" {
		return nil, nil, fmt.Errorf("guessed channel ID cannot be empty")
	}
	if sub.TimestampMs <= 0 {
		return nil, nil, fmt.Errorf("guessed timestamp must be positive")
	}

	maybeRound, err := s.roundsRepo.GetActiveRound(ctx, guildID, gameChannelID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get active round: %w", err)
	}
	round, ok := maybeRound.Get()
	if !ok {
		return nil, nil, core.ErrRoundNotActive
	}
	// A guess landing between the deadline and the expiry transition is late
	if time.Now().After(round.TimerExpiresAt) {
		return nil, nil, core.ErrRoundNotActive
	}

	breakdown := scoring.ScoreGuess(sub, round.TargetChannelID, round.TargetTimestampMs, round.TargetAuthorID)

	var authorCorrect *bool
	if breakdown.HasAuthor {
		correct := breakdown.AuthorPoints == scoring.AuthorMaxPoints
		authorCorrect = &correct
	}

	guess := &models.Guess{
		ID:                 core.NewID("gs"),
		RoundID:            round.ID,
		PlayerID:           playerID,
		GuessedChannelID:   sub.ChannelID,
		GuessedTimestampMs: sub.TimestampMs,
		GuessedAuthorID:    sub.AuthorID,
		ChannelCorrect:     breakdown.ChannelPoints == scoring.ChannelMaxPoints,
		TimeScore:          breakdown.TimePoints,
		AuthorCorrect:      authorCorrect,
		SubmittedAt:        time.Now(),
	}
	if err := s.guessesRepo.CreateGuess(ctx, guess); err != nil {
		return nil, nil, fmt.Errorf("failed to create guess: %w", err)
	}

	log.Printf("✅ Player %s guessed on round %s for %d points", playerID, round.ID, breakdown.Total)
	return guess, &breakdown, nil
}

// ExpireRound completes the round at its deadline and folds guesses into
// player scores. Returns None when the round was already finished by the
// time this caller's transition ran.
func (s *RoundsService) ExpireRound(
	ctx context.Context,
	roundID string,
) (mo.Option[*models.RoundReveal], error) {
	log.Printf("🎮 Expiring round: %s", roundID)
	if !core.IsValidULID(roundID) {
		return mo.None[*models.RoundReveal](), fmt.Errorf("round ID must be a valid ULID")
	}

	var reveal *models.RoundReveal
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		won, err := s.roundsRepo.TransitionRound(txCtx, roundID, models.RoundStatusCompleted)
		if err != nil {
			return fmt.Errorf("failed to transition round: %w", err)
		}
		if !won {
			return nil
		}

		round, guesses, err := s.loadFinishedRound(txCtx, roundID)
		if err != nil {
			return err
		}
		for _, guess := range guesses {
			points, perfect := scoring.GuessPoints(guess)
			if err := s.scoresRepo.ApplyGuessResult(txCtx, round.GuildID, guess.PlayerID, points, perfect); err != nil {
				return fmt.Errorf("failed to apply guess result for player %s: %w", guess.PlayerID, err)
			}
		}

		reveal = &models.RoundReveal{Round: round, Guesses: guesses}
		return nil
	})
	if err != nil {
		return mo.None[*models.RoundReveal](), err
	}
	if reveal == nil {
		log.Printf("🎮 Round %s was already finished, nothing to expire", roundID)
		return mo.None[*models.RoundReveal](), nil
	}

	s.timers.Cancel(roundID)
	log.Printf("✅ Round %s completed with %d guesses", roundID, len(reveal.Guesses))
	return mo.Some(reveal), nil
}

// SkipRound cancels the channel's active round. Cancelled rounds reveal the
// target but never touch player scores.
func (s *RoundsService) SkipRound(
	ctx context.Context,
	guildID, gameChannelID string,
) (mo.Option[*models.RoundReveal], error) {
	log.Printf("🎮 Skipping round in guild %s, channel %s", guildID, gameChannelID)
	if guildID == "" || gameChannelID == "" {
		return mo.None[*models.RoundReveal](), fmt.Errorf("guild ID and game channel ID cannot be empty")
	}

	maybeRound, err := s.roundsRepo.GetActiveRound(ctx, guildID, gameChannelID)
	if err != nil {
		return mo.None[*models.RoundReveal](), fmt.Errorf("failed to get active round: %w", err)
	}
	active, ok := maybeRound.Get()
	if !ok {
		return mo.None[*models.RoundReveal](), core.ErrRoundNotActive
	}

	var reveal *models.RoundReveal
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		won, err := s.roundsRepo.TransitionRound(txCtx, active.ID, models.RoundStatusCancelled)
		if err != nil {
			return fmt.Errorf("failed to transition round: %w", err)
		}
		if !won {
			return nil
		}

		round, guesses, err := s.loadFinishedRound(txCtx, active.ID)
		if err != nil {
			return err
		}
		reveal = &models.RoundReveal{Round: round, Guesses: guesses}
		return nil
	})
	if err != nil {
		return mo.None[*models.RoundReveal](), err
	}
	if reveal == nil {
		log.Printf("🎮 Round %s finished before skip could land", active.ID)
		return mo.None[*models.RoundReveal](), nil
	}

	s.timers.Cancel(active.ID)
	log.Printf("✅ Round %s cancelled", active.ID)
	return mo.Some(reveal), nil
}

func (s *RoundsService) GetActiveRound(
	ctx context.Context,
	guildID, gameChannelID string,
) (mo.Option[*models.Round], error) {
	if guildID == "" || gameChannelID == "" {
		return mo.None[*models.Round](), fmt.Errorf("guild ID and game channel ID cannot be empty")
	}
	return s.roundsRepo.GetActiveRound(ctx, guildID, gameChannelID)
}

func (s *RoundsService) loadFinishedRound(
	ctx context.Context,
	roundID string,
) (*models.Round, []*models.Guess, error) {
	maybeRound, err := s.roundsRepo.GetRoundByID(ctx, roundID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get round by ID: %w", err)
	}
	round, ok := maybeRound.Get()
	if !ok {
		return nil, nil, fmt.Errorf("round %s disappeared mid-transition: %w", roundID, core.ErrNotFound)
	}

	guesses, err := s.guessesRepo.GetGuessesForRound(ctx, roundID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get guesses for round: %w", err)
	}
	return round, guesses, nil
}
