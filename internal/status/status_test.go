package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentum-app/momentum-api/internal/models"
)

var now = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func statusRow(due time.Time, mutate ...func(*models.TaskStatusEntity)) *models.TaskStatusEntity {
	ts := &models.TaskStatusEntity{
		TaskID:           1,
		UserID:           1,
		Status:           models.StatusUpcoming,
		EffectiveDueDate: due,
	}
	for _, m := range mutate {
		m(ts)
	}
	return ts
}

func completionLog(at time.Time) *models.CompletionLog {
	return &models.CompletionLog{TaskID: 1, UserID: 1, CompletedAt: at}
}

func TestForUser_CompletionLogWinsOverEverything(t *testing.T) {
	archived := now.Add(-48 * time.Hour)
	ts := statusRow(now.Add(-72*time.Hour), func(s *models.TaskStatusEntity) {
		s.Status = models.StatusArchived
		s.ArchivedAt = &archived
		s.RecoveredAt = &archived
	})

	got := ForUser(ts, completionLog(now), nil, now)
	assert.Equal(t, models.StatusCompleted, got)
}

func TestForUser_RecoveredOverridesDateComparison(t *testing.T) {
	recoveredAt := now.Add(-time.Hour)
	// Due date is long past; without the recovery marker this would be archived.
	ts := statusRow(now.AddDate(0, 0, -5), func(s *models.TaskStatusEntity) {
		s.RecoveredAt = &recoveredAt
	})

	assert.Equal(t, models.StatusRecovered, ForUser(ts, nil, nil, now))
}

func TestForUser_ArchivedFlagWinsOverDateCheck(t *testing.T) {
	// Due tomorrow, but explicitly archived.
	archivedAt := now.Add(-time.Hour)
	ts := statusRow(now.AddDate(0, 0, 1), func(s *models.TaskStatusEntity) {
		s.ArchivedAt = &archivedAt
	})

	assert.Equal(t, models.StatusArchived, ForUser(ts, nil, nil, now))
}

func TestForUser_DateComparison(t *testing.T) {
	cases := []struct {
		name string
		due  time.Time
		want models.LifecycleStatus
	}{
		{"due tomorrow is upcoming", now.AddDate(0, 0, 1), models.StatusUpcoming},
		{"due today is active", now.Add(2 * time.Hour), models.StatusActive},
		{"due today at midnight is active", StartOfDay(now), models.StatusActive},
		{"due yesterday is archived", now.AddDate(0, 0, -1), models.StatusArchived},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ForUser(statusRow(tc.due), nil, nil, now))
		})
	}
}

// Every combination of the four evidence axes must map to exactly one of the
// five states, in the documented priority order.
func TestForUser_Totality(t *testing.T) {
	past := now.AddDate(0, 0, -2)
	dueDates := map[string]time.Time{
		"before": now.AddDate(0, 0, -1),
		"today":  now,
		"after":  now.AddDate(0, 0, 1),
	}
	valid := map[models.LifecycleStatus]bool{
		models.StatusCompleted: true,
		models.StatusRecovered: true,
		models.StatusUpcoming:  true,
		models.StatusActive:    true,
		models.StatusArchived:  true,
	}

	for _, hasLog := range []bool{false, true} {
		for _, recovered := range []bool{false, true} {
			for _, archivedFlag := range []bool{false, true} {
				for dueName, due := range dueDates {
					ts := statusRow(due)
					if recovered {
						ts.RecoveredAt = &past
					}
					if archivedFlag {
						ts.ArchivedAt = &past
					}
					var log *models.CompletionLog
					if hasLog {
						log = completionLog(now)
					}

					got := ForUser(ts, log, nil, now)
					require.True(t, valid[got], "unexpected state %q", got)

					switch {
					case hasLog:
						assert.Equal(t, models.StatusCompleted, got)
					case recovered:
						assert.Equal(t, models.StatusRecovered, got)
					case archivedFlag:
						assert.Equal(t, models.StatusArchived, got)
					default:
						switch dueName {
						case "before":
							assert.Equal(t, models.StatusArchived, got)
						case "today":
							assert.Equal(t, models.StatusActive, got)
						case "after":
							assert.Equal(t, models.StatusUpcoming, got)
						}
					}
				}
			}
		}
	}
}

func TestForUser_NilInputsAreSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		got := ForUser(nil, nil, nil, now)
		assert.Equal(t, models.StatusActive, got)
	})
}

func TestForUser_FallsBackToTaskDueDate(t *testing.T) {
	task := &models.Task{ID: 1, DueDate: now.AddDate(0, 0, 3)}
	assert.Equal(t, models.StatusUpcoming, ForUser(nil, nil, task, now))
}
