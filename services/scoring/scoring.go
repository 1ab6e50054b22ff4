package scoring

import (
	"time"

	"guessr/models"
)

const (
	ChannelMaxPoints = 500
	TimeMaxPoints    = 500
	AuthorMaxPoints  = 500
)

// timeTiers maps the maximum absolute distance from the target timestamp to
// the points awarded. Checked tightest-first; bounds are inclusive.
var timeTiers = []struct {
	within time.Duration
	points int
}{
	{24 * time.Hour, 500},
	{7 * 24 * time.Hour, 400},
	{30 * 24 * time.Hour, 300},
	{90 * 24 * time.Hour, 200},
	{180 * 24 * time.Hour, 100},
	{365 * 24 * time.Hour, 50},
}

// ChannelPoints awards the full channel component on an exact channel match
func ChannelPoints(guessedChannelID, targetChannelID string) int {
	if guessedChannelID == targetChannelID {
		return ChannelMaxPoints
	}
	return 0
}

// TimePoints awards by how close the guessed timestamp is to the target's
func TimePoints(guessedTimestampMs, targetTimestampMs int64) int {
	diff := time.Duration(guessedTimestampMs-targetTimestampMs) * time.Millisecond
	if diff < 0 {
		diff = -diff
	}
	for _, tier := range timeTiers {
		if diff <= tier.within {
			return tier.points
		}
	}
	return 0
}

// AuthorPoints awards the author component. The target author can be absent
// (webhook or deleted account); an absent target never matches.
func AuthorPoints(guessedAuthorID, targetAuthorID *string) int {
	if guessedAuthorID == nil || targetAuthorID == nil {
		return 0
	}
	if *guessedAuthorID == *targetAuthorID {
		return AuthorMaxPoints
	}
	return 0
}

// GuessPoints recomputes a stored guess's total and perfect flag from its
// persisted correctness fields. Used by the completion fold so aggregation
// never re-derives against the target.
func GuessPoints(guess *models.Guess) (int, bool) {
	total := guess.TimeScore
	if guess.ChannelCorrect {
		total += ChannelMaxPoints
	}
	authorCounted := guess.AuthorCorrect != nil
	if authorCounted && *guess.AuthorCorrect {
		total += AuthorMaxPoints
	}
	perfect := guess.ChannelCorrect &&
		guess.TimeScore == TimeMaxPoints &&
		(!authorCounted || *guess.AuthorCorrect)
	return total, perfect
}

// ScoreGuess scores a submission against a round's captured target. The
// author component only participates when the submission carries an author;
// Perfect requires every participating component at its maximum.
func ScoreGuess(sub models.GuessSubmission, targetChannelID string, targetTimestampMs int64, targetAuthorID *string) models.ScoreBreakdown {
	breakdown := models.ScoreBreakdown{
		ChannelPoints: ChannelPoints(sub.ChannelID, targetChannelID),
		TimePoints:    TimePoints(sub.TimestampMs, targetTimestampMs),
		HasAuthor:     sub.AuthorID != nil,
	}
	if breakdown.HasAuthor {
		breakdown.AuthorPoints = AuthorPoints(sub.AuthorID, targetAuthorID)
	}

	breakdown.Total = breakdown.ChannelPoints + breakdown.TimePoints + breakdown.AuthorPoints
	breakdown.Perfect = breakdown.ChannelPoints == ChannelMaxPoints &&
		breakdown.TimePoints == TimeMaxPoints &&
		(!breakdown.HasAuthor || breakdown.AuthorPoints == AuthorMaxPoints)
	return breakdown
}
