// Package status derives the per-user lifecycle state and ring color of a
// task occurrence from the raw persisted fields. The stored Status and
// RingColor columns are caches; these functions are the source of truth and
// are recomputed wherever the values are displayed or acted on.
package status

import (
	"time"

	"github.com/momentum-app/momentum-api/internal/models"
)

// Inputs bundles everything the derivation looks at. Log may be nil (no
// completion yet), and TaskStatus may be nil for users that never got a
// status row; both map to safe defaults rather than an error.
type Inputs struct {
	TaskStatus *models.TaskStatusEntity
	Log        *models.CompletionLog
	Task       *models.Task
	Now        time.Time
}

type statusRule struct {
	match  func(Inputs) bool
	result models.LifecycleStatus
}

// Rules are evaluated in order, first match wins. The order is the contract:
// completion evidence > recovery > archived flag > due-date comparison.
var lifecycleRules = []statusRule{
	{
		match: func(in Inputs) bool {
			if in.Log != nil {
				return true
			}
			return in.TaskStatus != nil && in.TaskStatus.Status == models.StatusCompleted
		},
		result: models.StatusCompleted,
	},
	{
		// A recovered-but-incomplete task is never re-archived by date alone.
		match: func(in Inputs) bool {
			return in.TaskStatus != nil &&
				(in.TaskStatus.RecoveredAt != nil || in.TaskStatus.Status == models.StatusRecovered)
		},
		result: models.StatusRecovered,
	},
	{
		match: func(in Inputs) bool {
			return in.TaskStatus != nil &&
				(in.TaskStatus.Status == models.StatusArchived || in.TaskStatus.ArchivedAt != nil)
		},
		result: models.StatusArchived,
	},
	{
		match: func(in Inputs) bool {
			return StartOfDay(dueDate(in)).After(StartOfDay(in.Now))
		},
		result: models.StatusUpcoming,
	},
	{
		match: func(in Inputs) bool {
			return SameDay(dueDate(in), in.Now)
		},
		result: models.StatusActive,
	},
}

// ForUser returns exactly one of the five lifecycle states. It never panics
// and treats missing inputs as "no evidence".
func ForUser(ts *models.TaskStatusEntity, log *models.CompletionLog, task *models.Task, now time.Time) models.LifecycleStatus {
	in := Inputs{TaskStatus: ts, Log: log, Task: task, Now: now}
	for _, rule := range lifecycleRules {
		if rule.match(in) {
			return rule.result
		}
	}
	// Due date is in the past and nothing else matched.
	return models.StatusArchived
}

// dueDate picks the user's effective due date, falling back to the task's due
// date when no status row exists.
func dueDate(in Inputs) time.Time {
	if in.TaskStatus != nil && !in.TaskStatus.EffectiveDueDate.IsZero() {
		return in.TaskStatus.EffectiveDueDate
	}
	if in.Task != nil {
		return in.Task.DueDate
	}
	return in.Now
}
