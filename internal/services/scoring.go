package services

import (
	"time"

	"github.com/momentum-app/momentum-api/internal/constants"
	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/status"
)

// CompletionScore is the reward computed for one completion.
type CompletionScore struct {
	XPEarned       int64
	PenaltyApplied bool
	Timing         models.TimingMarker
}

// ScoreCompletion computes the XP award for completing a task occurrence.
// On-time means any moment up to the end of the due day. The penalty applies
// only to recovered tasks finished late: a recovered task completed before its
// due date still earns full XP.
func ScoreCompletion(difficulty int, recovered bool, completedAt, due time.Time) CompletionScore {
	if difficulty < constants.MinDifficulty || difficulty > constants.MaxDifficulty {
		difficulty = constants.DefaultDifficulty
	}

	onTime := !completedAt.After(status.EndOfDay(due))
	penalty := recovered && !onTime

	xp := int64(difficulty) * constants.XPPerDifficultyPoint
	if penalty {
		xp /= 2
	}

	return CompletionScore{
		XPEarned:       xp,
		PenaltyApplied: penalty,
		Timing:         classifyTiming(completedAt, due),
	}
}

func classifyTiming(completedAt, due time.Time) models.TimingMarker {
	switch {
	case completedAt.Before(status.StartOfDay(due)):
		return models.TimingEarly
	case status.SameDay(completedAt, due):
		return models.TimingOnTime
	default:
		return models.TimingLate
	}
}

// applyCompletionToStats folds one completion into the stats snapshot. Streaks
// count consecutive calendar days with at least one completion; a second
// completion on the same day leaves the streak untouched.
func applyCompletionToStats(stats *models.UserStats, xp int64, completedAt time.Time) {
	stats.TotalScore += xp
	stats.TotalCompletedTasks++

	switch {
	case stats.LastCompletedAt == nil:
		stats.CurrentStreak = 1
	case status.SameDay(*stats.LastCompletedAt, completedAt):
		// streak unchanged
	case status.SameDay(stats.LastCompletedAt.AddDate(0, 0, 1), completedAt):
		stats.CurrentStreak++
	default:
		stats.CurrentStreak = 1
	}

	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}

	at := completedAt
	stats.LastCompletedAt = &at
}
