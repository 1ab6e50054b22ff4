package handlers

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"guessr/models"
	"guessr/services/scoring"
)

// formatRoundStart renders the anonymized prompt: the target and its
// surrounding conversation with every identifying detail withheld.
func formatRoundStart(start *models.RoundStart) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎮 **Round %d** — where and when was this posted?\n\n", start.RoundNumber)

	for _, msg := range start.Before {
		writeQuoted(&b, msg.Content)
	}
	fmt.Fprintf(&b, "> ❓ **%s**\n", sanitizeContent(start.Target.Content))
	for _, msg := range start.After {
		writeQuoted(&b, msg.Content)
	}

	fmt.Fprintf(&b, "\nAnswer with `/guess` before <t:%d:R>. Right channel 500, close time up to 500, right author +500.",
		start.Round.TimerExpiresAt.Unix())
	return b.String()
}

// formatGuessReceipt echoes what the player locked in. Points stay hidden
// until the reveal so one player's result doesn't tip off the rest.
func formatGuessReceipt(playerID string, guess *models.Guess) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 <@%s> locked in a guess: <#%s>, <t:%d:D>",
		playerID, guess.GuessedChannelID, guess.GuessedTimestampMs/1000)
	if guess.GuessedAuthorID != nil {
		fmt.Fprintf(&b, ", by <@%s>", *guess.GuessedAuthorID)
	}
	return b.String()
}

func formatReveal(reveal *models.RoundReveal) string {
	round := reveal.Round

	var b strings.Builder
	fmt.Fprintf(&b, "🔔 **Round over!** The message was posted in <#%s> on <t:%d:f>",
		round.TargetChannelID, round.TargetTimestampMs/1000)
	if round.TargetAuthorID != nil {
		fmt.Fprintf(&b, " by <@%s>", *round.TargetAuthorID)
	}
	fmt.Fprintf(&b, " — https://discord.com/channels/%s/%s/%s\n",
		round.GuildID, round.TargetChannelID, round.TargetMessageID)

	if len(reveal.Guesses) == 0 {
		b.WriteString("Nobody guessed this round. 😢")
		return b.String()
	}

	scored := make([]scoredGuess, 0, len(reveal.Guesses))
	for _, guess := range reveal.Guesses {
		points, perfect := scoring.GuessPoints(guess)
		scored = append(scored, scoredGuess{guess: guess, points: points, perfect: perfect})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].points > scored[j].points
	})

	scoresAwarded := round.Status == models.RoundStatusCompleted
	if scoresAwarded {
		b.WriteString("**Results:**\n")
	} else {
		b.WriteString("**Guesses (no points awarded):**\n")
	}
	for rank, entry := range scored {
		fmt.Fprintf(&b, "%s <@%s> — %d pts (%s)\n",
			rankEmoji(rank+1), entry.guess.PlayerID, entry.points, describeGuess(entry))
	}
	return b.String()
}

type scoredGuess struct {
	guess   *models.Guess
	points  int
	perfect bool
}

func describeGuess(entry scoredGuess) string {
	parts := make([]string, 0, 3)
	if entry.guess.ChannelCorrect {
		parts = append(parts, "✅ channel")
	} else {
		parts = append(parts, "❌ channel")
	}
	parts = append(parts, fmt.Sprintf("%d time", entry.guess.TimeScore))
	if entry.guess.AuthorCorrect != nil {
		if *entry.guess.AuthorCorrect {
			parts = append(parts, "✅ author")
		} else {
			parts = append(parts, "❌ author")
		}
	}
	if entry.perfect {
		parts = append(parts, "💯 perfect")
	}
	return strings.Join(parts, ", ")
}

func formatLeaderboard(leaderboard []*models.PlayerScore) string {
	if len(leaderboard) == 0 {
		return "No scores yet. Start a round with `/start`!"
	}

	var b strings.Builder
	b.WriteString("🏆 **Leaderboard**\n")
	for rank, entry := range leaderboard {
		fmt.Fprintf(&b, "%s <@%s> — %d pts over %d rounds",
			rankEmoji(rank+1), entry.PlayerID, entry.TotalScore, entry.RoundsPlayed)
		if entry.PerfectGuesses > 0 {
			fmt.Fprintf(&b, " (💯 ×%d)", entry.PerfectGuesses)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatPlayerStats(stats *models.PlayerStats) string {
	return fmt.Sprintf("📊 <@%s> is ranked **#%d** with **%d** points over %d rounds (%d perfect guesses)",
		stats.PlayerID, stats.Rank, stats.TotalScore, stats.RoundsPlayed, stats.PerfectGuesses)
}

func rankEmoji(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

func writeQuoted(b *strings.Builder, content string) {
	fmt.Fprintf(b, "> %s\n", sanitizeContent(content))
}

// sanitizeContent keeps the prompt to a single quoted line and defuses
// mentions so the bot never pings anyone from old history.
func sanitizeContent(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	content = strings.ReplaceAll(content, "@", "@​")
	if utf8.RuneCountInString(content) > 300 {
		runes := []rune(content)
		content = string(runes[:300]) + "…"
	}
	if strings.TrimSpace(content) == "" {
		return "*(no text content)*"
	}
	return content
}
