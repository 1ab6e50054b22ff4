package scores

import (
	"context"
	"fmt"
	"log"

	"github.com/samber/mo"

	"guessr/db"
	"guessr/models"
)

const defaultLeaderboardSize = 10

type ScoresService struct {
	scoresRepo *db.PostgresPlayerScoresRepository
}

func NewScoresService(repo *db.PostgresPlayerScoresRepository) *ScoresService {
	return &ScoresService{scoresRepo: repo}
}

func (s *ScoresService) GetLeaderboard(
	ctx context.Context,
	guildID string,
	limit int,
) ([]*models.PlayerScore, error) {
	log.Printf("📋 Starting to get leaderboard for guild: %s", guildID)
	if guildID == "" {
		return nil, fmt.Errorf("guild ID cannot be empty")
	}
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}

	leaderboard, err := s.scoresRepo.GetLeaderboard(ctx, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	log.Printf("📋 Completed successfully - retrieved %d leaderboard entries for guild: %s", len(leaderboard), guildID)
	return leaderboard, nil
}

func (s *ScoresService) GetPlayerStats(
	ctx context.Context,
	guildID, playerID string,
) (mo.Option[*models.PlayerStats], error) {
	log.Printf("📋 Starting to get stats for player %s in guild: %s", playerID, guildID)
	if guildID == "" {
		return mo.None[*models.PlayerStats](), fmt.Errorf("guild ID cannot be empty")
	}
	if playerID == "" {
		return mo.None[*models.PlayerStats](), fmt.Errorf("player ID cannot be empty")
	}

	maybeScore, err := s.scoresRepo.GetPlayerScore(ctx, guildID, playerID)
	if err != nil {
		return mo.None[*models.PlayerStats](), fmt.Errorf("failed to get player score: %w", err)
	}
	score, ok := maybeScore.Get()
	if !ok {
		log.Printf("📋 Completed successfully - player %s has no score in guild: %s", playerID, guildID)
		return mo.None[*models.PlayerStats](), nil
	}

	rank, err := s.scoresRepo.GetPlayerRank(ctx, guildID, playerID)
	if err != nil {
		return mo.None[*models.PlayerStats](), fmt.Errorf("failed to get player rank: %w", err)
	}

	stats := &models.PlayerStats{
		PlayerScore: *score,
		Rank:        rank,
	}
	log.Printf("📋 Completed successfully - player %s ranked #%d in guild: %s", playerID, rank, guildID)
	return mo.Some(stats), nil
}
