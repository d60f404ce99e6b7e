package status

import (
	"time"

	"github.com/momentum-app/momentum-api/internal/models"
)

type ringRule struct {
	match  func(Inputs) bool
	result models.RingColor
}

var ringRules = []ringRule{
	{
		// Completed after a recovery is always yellow, regardless of timing.
		match: func(in Inputs) bool {
			return completed(in) && in.TaskStatus != nil && in.TaskStatus.RecoveredAt != nil
		},
		result: models.RingYellow,
	},
	{
		match: func(in Inputs) bool {
			return completed(in) && completedOnOrBeforeDue(in)
		},
		result: models.RingGreen,
	},
	{
		// Late, unrecovered completion gets no badge.
		match:  completed,
		result: models.RingNone,
	},
	{
		match: func(in Inputs) bool {
			return in.TaskStatus != nil &&
				(in.TaskStatus.Status == models.StatusArchived || in.TaskStatus.ArchivedAt != nil)
		},
		result: models.RingRed,
	},
	{
		// Expired but not yet marked archived.
		match: func(in Inputs) bool {
			return in.Now.After(EndOfDay(dueDate(in)))
		},
		result: models.RingRed,
	},
	{
		match: func(in Inputs) bool {
			return in.TaskStatus != nil && in.TaskStatus.RecoveredAt != nil
		},
		result: models.RingYellow,
	},
}

// RingColor derives the badge color for one user's task occurrence. Like
// ForUser, it is total and evaluated as an ordered rule chain so the
// priorities are mutually exclusive by construction.
func RingColor(log *models.CompletionLog, ts *models.TaskStatusEntity, task *models.Task, now time.Time) models.RingColor {
	in := Inputs{TaskStatus: ts, Log: log, Task: task, Now: now}
	for _, rule := range ringRules {
		if rule.match(in) {
			return rule.result
		}
	}
	return models.RingNone
}

func completed(in Inputs) bool {
	if in.Log != nil {
		return true
	}
	return in.TaskStatus != nil && in.TaskStatus.Status == models.StatusCompleted
}

func completedOnOrBeforeDue(in Inputs) bool {
	if in.Log == nil {
		// Completed status without a log carries no timestamp to judge by.
		return false
	}
	return !in.Log.CompletedAt.After(EndOfDay(dueDate(in)))
}
