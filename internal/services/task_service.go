package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/momentum-app/momentum-api/internal/constants"
	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/realtime"
	"github.com/momentum-app/momentum-api/internal/repository"
	"github.com/momentum-app/momentum-api/internal/status"
)

var (
	ErrTaskNotFound             = errors.New("task not found")
	ErrTaskStatusNotFound       = errors.New("task status not found for user")
	ErrProjectNotFound          = errors.New("project not found")
	ErrNotProjectParticipant    = errors.New("user is not an active participant of the project")
	ErrNotTaskCreator           = errors.New("only the task creator can perform this action")
	ErrTitleRequired            = errors.New("title is required")
	ErrInvalidDifficulty        = errors.New("difficulty must be between 1 and 5")
	ErrInsufficientParticipants = errors.New("project needs at least two active participants")
	ErrRecoveryNotAllowed       = errors.New("only archived tasks can be recovered")
)

// TaskService handles task business logic: creation with occurrence
// expansion, per-user completion with scoring, and recovery.
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	notifRepo   repository.NotificationRepository
	bus         *EventBus
	caps        OccurrenceCaps

	now func() time.Time
}

// NewTaskService creates a new TaskService. bus may be nil when no realtime
// transport is configured.
func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	notifRepo repository.NotificationRepository,
	bus *EventBus,
	caps OccurrenceCaps,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		notifRepo:   notifRepo,
		bus:         bus,
		caps:        caps,
		now:         time.Now,
	}
}

// CreateTaskInput represents input for creating a task or habit series
type CreateTaskInput struct {
	Title       string
	Description string
	Type        models.TaskType
	Recurrence  RecurrenceSpec
	DueDate     time.Time
	Difficulty  int
	ProjectID   uint64
	CreatorID   uint64
}

// CreateTask creates one task, or the whole materialized occurrence series
// for a habit, together with one status row per active participant. The
// participant-count gate runs before any row is written and the batch is
// all-or-nothing.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) ([]models.Task, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if input.Difficulty == 0 {
		input.Difficulty = constants.DefaultDifficulty
	}
	if input.Difficulty < constants.MinDifficulty || input.Difficulty > constants.MaxDifficulty {
		return nil, ErrInvalidDifficulty
	}
	if input.Type == "" {
		input.Type = models.TaskTypeOneOff
	}

	participants, err := s.activeParticipants(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := ensureParticipant(participants, input.CreatorID); err != nil {
		return nil, err
	}
	if len(participants) < constants.MinProjectParticipants {
		return nil, ErrInsufficientParticipants
	}

	dueDates := []time.Time{input.DueDate}
	if input.Type == models.TaskTypeHabit {
		dueDates = ExpandOccurrences(input.DueDate, input.Recurrence, s.caps)
	}

	now := s.now()
	tasks := make([]models.Task, len(dueDates))
	for i, due := range dueDates {
		tasks[i] = models.Task{
			Title:       input.Title,
			Description: input.Description,
			Type:        input.Type,
			Recurrence:  input.Recurrence.Pattern,
			DueDate:     due,
			Difficulty:  input.Difficulty,
			CreatorID:   input.CreatorID,
			ProjectID:   input.ProjectID,
		}
	}

	created, err := s.taskRepo.CreateBatch(tasks, func(taskIndex int, taskID uint64) []models.TaskStatusEntity {
		if taskIndex == 0 && len(tasks) > 1 {
			// The first occurrence anchors the series; later occurrences get
			// its id before their own insert. The repository iterates this
			// same backing array.
			for j := 1; j < len(tasks); j++ {
				id := taskID
				tasks[j].SeriesID = &id
			}
		}

		rows := make([]models.TaskStatusEntity, len(participants))
		for j, p := range participants {
			row := models.TaskStatusEntity{
				TaskID:           taskID,
				UserID:           p.UserID,
				EffectiveDueDate: tasks[taskIndex].DueDate,
				RingColor:        models.RingNone,
			}
			row.Status = status.ForUser(&row, nil, &tasks[taskIndex], now)
			rows[j] = row
		}
		return rows
	})
	if err != nil {
		return nil, err
	}

	if err := s.projectRepo.AddTaskCount(input.ProjectID, int64(len(created))); err != nil {
		return nil, fmt.Errorf("failed to update project task count: %w", err)
	}

	participantIDs := participantUserIDs(participants)
	for i := range created {
		s.bus.PublishToUsers(ctx, realtime.SubTasks, participantIDs, realtime.TableTasks, realtime.EventInsert, created[i], nil)
		s.bus.PublishToProject(ctx, input.ProjectID, realtime.TableTasks, realtime.EventInsert, created[i], nil)
	}

	// One notification per series, not one per occurrence.
	s.notifyParticipants(ctx, participants, input.CreatorID, models.Notification{
		ActorID:   &input.CreatorID,
		Type:      models.NotificationTaskCreated,
		Message:   fmt.Sprintf("New task: %s", input.Title),
		TaskID:    &created[0].ID,
		ProjectID: &input.ProjectID,
	})

	return created, nil
}

// CompleteTaskInput represents input for completing a task occurrence
type CompleteTaskInput struct {
	TaskID           uint64
	UserID           uint64
	DifficultyRating int // 0 means "use the task's difficulty"
}

// CompleteTaskResult carries the outcome of one completion.
type CompleteTaskResult struct {
	Log           models.CompletionLog
	Status        models.TaskStatusEntity
	Stats         models.UserStats
	FullyComplete bool
}

// CompleteTask records one user's completion of a task occurrence: it appends
// the immutable completion log, flips the user's status row, and folds the XP
// award into their stats, all atomically. A replayed completion is a no-op
// that returns the existing log unchanged, never a double count.
func (s *TaskService) CompleteTask(ctx context.Context, input CompleteTaskInput) (*CompleteTaskResult, error) {
	task, err := s.taskRepo.FindByID(input.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	ts, err := s.taskRepo.FindStatus(input.TaskID, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskStatusNotFound
		}
		return nil, fmt.Errorf("failed to find task status: %w", err)
	}

	// The existing log is idempotent evidence of completion.
	if existing, err := s.taskRepo.FindCompletion(input.TaskID, input.UserID); err == nil {
		return s.replayedCompletion(existing, ts, input.UserID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check completion log: %w", err)
	}

	rating := input.DifficultyRating
	if rating == 0 {
		rating = task.Difficulty
	}
	if rating < constants.MinDifficulty || rating > constants.MaxDifficulty {
		return nil, ErrInvalidDifficulty
	}

	now := s.now()
	score := ScoreCompletion(rating, ts.RecoveredAt != nil, now, ts.EffectiveDueDate)

	clog := &models.CompletionLog{
		TaskID:           input.TaskID,
		UserID:           input.UserID,
		CompletedAt:      now,
		DifficultyRating: rating,
		XPEarned:         score.XPEarned,
		PenaltyApplied:   score.PenaltyApplied,
		Timing:           score.Timing,
	}

	ts.Status = models.StatusCompleted
	ts.Timing = score.Timing
	ts.RingColor = status.RingColor(clog, ts, task, now)

	stats, err := s.userRepo.GetStats(input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			stats = &models.UserStats{UserID: input.UserID}
		} else {
			return nil, fmt.Errorf("failed to load user stats: %w", err)
		}
	}
	applyCompletionToStats(stats, score.XPEarned, now)

	if err := s.taskRepo.RecordCompletion(clog, ts, stats); err != nil {
		return nil, err
	}

	fullyComplete, err := s.isFullyComplete(input.TaskID, input.UserID)
	if err != nil {
		return nil, err
	}

	participants, err := s.activeParticipants(task.ProjectID)
	if err == nil {
		ids := participantUserIDs(participants)
		s.bus.PublishToUsers(ctx, realtime.SubTasks, ids, realtime.TableCompletions, realtime.EventInsert, clog, nil)
		s.bus.PublishToUsers(ctx, realtime.SubTasks, ids, realtime.TableTaskStatuses, realtime.EventUpdate, ts, nil)
		s.bus.PublishToProject(ctx, task.ProjectID, realtime.TableTaskStatuses, realtime.EventUpdate, ts, nil)

		s.notifyParticipants(ctx, participants, input.UserID, models.Notification{
			ActorID:   &input.UserID,
			Type:      models.NotificationTaskCompleted,
			Message:   fmt.Sprintf("Task completed: %s", task.Title),
			TaskID:    &task.ID,
			ProjectID: &task.ProjectID,
		})
	}

	return &CompleteTaskResult{
		Log:           *clog,
		Status:        *ts,
		Stats:         *stats,
		FullyComplete: fullyComplete,
	}, nil
}

// replayedCompletion answers a repeat completion without mutating anything:
// the stored log, the current status row and stats, and a freshly computed
// full-completion flag.
func (s *TaskService) replayedCompletion(existing *models.CompletionLog, ts *models.TaskStatusEntity, userID uint64) (*CompleteTaskResult, error) {
	stats, err := s.userRepo.GetStats(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load user stats: %w", err)
		}
		stats = &models.UserStats{UserID: userID}
	}

	fullyComplete, err := s.isFullyComplete(existing.TaskID, userID)
	if err != nil {
		return nil, err
	}

	return &CompleteTaskResult{
		Log:           *existing,
		Status:        *ts,
		Stats:         *stats,
		FullyComplete: fullyComplete,
	}, nil
}

// RecoverTask transitions an archived occurrence back into a workable state.
// It is the only path out of archived: the derived status must be exactly
// archived or the call is refused with no mutation. A status row missing for
// a legitimate participant is synthesized before the check.
func (s *TaskService) RecoverTask(ctx context.Context, taskID, userID uint64) (*models.TaskStatusEntity, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	created := false
	ts, err := s.taskRepo.FindStatus(taskID, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find task status: %w", err)
		}

		participants, perr := s.activeParticipants(task.ProjectID)
		if perr != nil {
			return nil, perr
		}
		if perr := ensureParticipant(participants, userID); perr != nil {
			return nil, perr
		}

		ts = &models.TaskStatusEntity{
			TaskID:           taskID,
			UserID:           userID,
			Status:           models.StatusUpcoming,
			EffectiveDueDate: task.DueDate,
			RingColor:        models.RingNone,
		}
		created = true
	}

	var clog *models.CompletionLog
	if found, ferr := s.taskRepo.FindCompletion(taskID, userID); ferr == nil {
		clog = found
	} else if !errors.Is(ferr, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check completion log: %w", ferr)
	}

	now := s.now()
	if status.ForUser(ts, clog, task, now) != models.StatusArchived {
		return nil, ErrRecoveryNotAllowed
	}

	ts.Status = models.StatusRecovered
	ts.RecoveredAt = &now
	ts.ArchivedAt = nil
	ts.RingColor = models.RingYellow
	ts.Timing = models.TimingLate

	if created {
		err = s.taskRepo.CreateStatus(ts)
	} else {
		err = s.taskRepo.SaveStatus(ts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save recovered status: %w", err)
	}

	if participants, perr := s.activeParticipants(task.ProjectID); perr == nil {
		ids := participantUserIDs(participants)
		s.bus.PublishToUsers(ctx, realtime.SubTasks, ids, realtime.TableTaskStatuses, realtime.EventUpdate, ts, nil)
		s.bus.PublishToProject(ctx, task.ProjectID, realtime.TableTaskStatuses, realtime.EventUpdate, ts, nil)

		s.notifyParticipants(ctx, participants, userID, models.Notification{
			ActorID:   &userID,
			Type:      models.NotificationTaskRecovered,
			Message:   fmt.Sprintf("Task recovered: %s", task.Title),
			TaskID:    &task.ID,
			ProjectID: &task.ProjectID,
		})
	}

	return ts, nil
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	UserID        uint64
	ProjectID     *uint64
	Type          *models.TaskType
	DueToday      bool
	SortByDueDate bool
	Page          int
	PageSize      int
}

// ListTasks returns tasks in the user's projects.
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	projectIDs, err := s.resolveAccessibleProjectIDs(input.UserID, input.ProjectID)
	if err != nil {
		return nil, 0, err
	}
	if len(projectIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	filter := repository.TaskFilter{
		ProjectIDs:    projectIDs,
		Type:          input.Type,
		SortByDueDate: input.SortByDueDate,
		Page:          input.Page,
		PageSize:      input.PageSize,
	}
	if input.DueToday {
		from := status.StartOfDay(s.now())
		to := from.AddDate(0, 0, 1)
		filter.DueDateFrom = &from
		filter.DueDateTo = &to
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// TaskStatusView pairs a stored status row with its derived lifecycle state
// and ring color. The stored columns are caches; these are authoritative.
type TaskStatusView struct {
	Entity    models.TaskStatusEntity `json:"entity"`
	Derived   models.LifecycleStatus  `json:"derived_status"`
	RingColor models.RingColor        `json:"ring_color"`
}

// StatusViewsForUser lists a user's status rows in a due-date window with
// derivation applied on read.
func (s *TaskService) StatusViewsForUser(userID uint64, from, to *time.Time) ([]TaskStatusView, error) {
	rows, err := s.taskRepo.ListStatusesForUser(userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}

	now := s.now()
	views := make([]TaskStatusView, len(rows))
	for i := range rows {
		var clog *models.CompletionLog
		if found, ferr := s.taskRepo.FindCompletion(rows[i].TaskID, userID); ferr == nil {
			clog = found
		} else if !errors.Is(ferr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load completion log: %w", ferr)
		}

		views[i] = TaskStatusView{
			Entity:    rows[i],
			Derived:   status.ForUser(&rows[i], clog, &rows[i].Task, now),
			RingColor: status.RingColor(clog, &rows[i], &rows[i].Task, now),
		}
	}
	return views, nil
}

// GetTask returns a task with creator and per-user statuses, provided the
// actor participates in its project.
func (s *TaskService) GetTask(taskID, actorID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Creator", "Statuses", "Statuses.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	participants, err := s.activeParticipants(task.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := ensureParticipant(participants, actorID); err != nil {
		return nil, err
	}

	return task, nil
}

// DeleteTask deletes a task if the actor is the creator, cascading to its
// status rows and completion logs.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID {
		return ErrNotTaskCreator
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if err := s.projectRepo.AddTaskCount(task.ProjectID, -1); err != nil {
		return fmt.Errorf("failed to update project task count: %w", err)
	}

	if participants, perr := s.activeParticipants(task.ProjectID); perr == nil {
		ids := participantUserIDs(participants)
		s.bus.PublishToUsers(ctx, realtime.SubTasks, ids, realtime.TableTasks, realtime.EventDelete, nil, task)
		s.bus.PublishToProject(ctx, task.ProjectID, realtime.TableTasks, realtime.EventDelete, nil, task)
	}

	return nil
}

// isFullyComplete reports whether every participant's status row is
// completed. The acting user's row counts as done even before a stale read
// sees the flip.
func (s *TaskService) isFullyComplete(taskID, actingUserID uint64) (bool, error) {
	rows, err := s.taskRepo.ListStatusesByTask(taskID)
	if err != nil {
		return false, fmt.Errorf("failed to list task statuses: %w", err)
	}

	for _, row := range rows {
		if row.UserID == actingUserID {
			continue
		}
		if row.Status != models.StatusCompleted {
			return false, nil
		}
	}
	return true, nil
}

func (s *TaskService) resolveAccessibleProjectIDs(userID uint64, projectID *uint64) ([]uint64, error) {
	if projectID != nil {
		participants, err := s.activeParticipants(*projectID)
		if err != nil {
			return nil, err
		}
		if err := ensureParticipant(participants, userID); err != nil {
			return nil, err
		}
		return []uint64{*projectID}, nil
	}

	projects, err := s.projectRepo.ListForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	ids := make([]uint64, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *TaskService) activeParticipants(projectID uint64) ([]models.ProjectParticipant, error) {
	participants, err := s.projectRepo.ListActiveParticipants(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project participants: %w", err)
	}
	return participants, nil
}

// notifyParticipants creates one notification per participant other than the
// actor and publishes each on the recipient's notification stream.
func (s *TaskService) notifyParticipants(ctx context.Context, participants []models.ProjectParticipant, actorID uint64, template models.Notification) {
	for _, p := range participants {
		if p.UserID == actorID {
			continue
		}

		n := template
		n.UserID = p.UserID
		if err := s.notifRepo.Create(&n); err != nil {
			log.Printf("failed to create %s notification for user %d: %v", n.Type, p.UserID, err)
			continue
		}
		s.bus.PublishToUsers(ctx, realtime.SubNotifications, []uint64{p.UserID}, realtime.TableNotifications, realtime.EventInsert, n, nil)
	}
}

func ensureParticipant(participants []models.ProjectParticipant, userID uint64) error {
	for _, p := range participants {
		if p.UserID == userID {
			return nil
		}
	}
	return ErrNotProjectParticipant
}

func participantUserIDs(participants []models.ProjectParticipant) []uint64 {
	ids := make([]uint64, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids
}
