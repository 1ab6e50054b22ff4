package selector

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"time"

	"guessr/clients"
	"guessr/config"
	"guessr/core"
	"guessr/models"
)

// Batches with fewer messages than this are treated as dead zones in the
// guild's history and skipped without inspecting them.
const minBatchSize = 5

var urlPattern = regexp.MustCompile(`https?://\S+`)

// TargetSelectorService picks a random message from a guild's history that is
// worth guessing about. Each attempt samples a random channel and a random
// point in the lookback window; attempts are bounded so a quiet guild fails
// fast instead of hammering the message source.
type TargetSelectorService struct {
	source clients.MessageSource
	cfg    config.GameConfig

	// rng overrides the process-wide source in tests. The global source is
	// used otherwise since *rand.Rand is not safe for concurrent use.
	rng *rand.Rand
}

func NewTargetSelectorService(source clients.MessageSource, cfg config.GameConfig) *TargetSelectorService {
	return &TargetSelectorService{source: source, cfg: cfg}
}

func (s *TargetSelectorService) intn(n int) int {
	if s.rng != nil {
		return s.rng.Intn(n)
	}
	return rand.Intn(n)
}

func (s *TargetSelectorService) int63n(n int64) int64 {
	if s.rng != nil {
		return s.rng.Int63n(n)
	}
	return rand.Int63n(n)
}

func (s *TargetSelectorService) SelectTarget(ctx context.Context, guildID string) (*models.ChannelMessage, error) {
	log.Printf("📋 Starting to select target message for guild: %s", guildID)
	if guildID == "" {
		return nil, fmt.Errorf("guild ID cannot be empty")
	}

	channels, err := s.source.ListReadableChannels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list readable channels: %w", err)
	}
	if len(channels) == 0 {
		log.Printf("❌ No readable channels in guild: %s", guildID)
		return nil, core.ErrNoEligibleMessage
	}

	for attempt := 1; attempt <= s.cfg.MaxSearchRetries; attempt++ {
		channel := channels[s.intn(len(channels))]
		afterMs := s.randomWindowStart()

		messages, err := s.source.FetchMessagesAfter(ctx, channel.ID, afterMs, s.cfg.MessageSearchLimit)
		if err != nil {
			log.Printf("⚠️ Attempt %d: failed to fetch messages from channel %s: %v", attempt, channel.ID, err)
			continue
		}
		if len(messages) < minBatchSize {
			log.Printf("📋 Attempt %d: sparse batch in channel %s (%d messages), skipping", attempt, channel.ID, len(messages))
			continue
		}

		eligible := make([]models.ChannelMessage, 0, len(messages))
		for _, msg := range messages {
			if s.IsEligible(msg) {
				eligible = append(eligible, msg)
			}
		}
		if len(eligible) == 0 {
			log.Printf("📋 Attempt %d: no eligible messages among %d in channel %s", attempt, len(messages), channel.ID)
			continue
		}

		target := eligible[s.intn(len(eligible))]
		log.Printf("✅ Selected target message %s from channel %s (attempt %d, %d candidates)",
			target.ID, channel.ID, attempt, len(eligible))
		return &target, nil
	}

	log.Printf("❌ Exhausted %d attempts without an eligible message in guild: %s", s.cfg.MaxSearchRetries, guildID)
	return nil, core.ErrNoEligibleMessage
}

// randomWindowStart returns a uniformly random timestamp between the start of
// the lookback window and the recency cutoff.
func (s *TargetSelectorService) randomWindowStart() int64 {
	now := time.Now()
	oldest := now.Add(-s.cfg.Lookback).UnixMilli()
	newest := now.Add(-s.cfg.MinMessageAge).UnixMilli()
	if newest <= oldest {
		return oldest
	}
	return oldest + s.int63n(newest-oldest)
}

// IsEligible reports whether a message is substantial enough to be a round
// target. Bot messages and messages newer than the recency cutoff never
// qualify; the rest qualify on length, an attachment, an embed, or a link.
func (s *TargetSelectorService) IsEligible(msg models.ChannelMessage) bool {
	if msg.AuthorIsBot {
		return false
	}
	cutoff := time.Now().Add(-s.cfg.MinMessageAge).UnixMilli()
	if msg.TimestampMs > cutoff {
		return false
	}
	if len(msg.Content) >= s.cfg.MinMessageLength {
		return true
	}
	return msg.HasAttachment || msg.HasEmbed || urlPattern.MatchString(msg.Content)
}
