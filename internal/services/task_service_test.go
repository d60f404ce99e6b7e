package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/repository"
)

var fixedNow = time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

// testProjectSeq makes each fixture project's invite code unique so repeated
// createProject calls don't collide on the invite_code unique index.
var testProjectSeq int

// TaskServiceTestSuite defines the test suite for TaskService
type TaskServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *TaskService

	alice *models.User
	bob   *models.User
	proj  *models.Project
}

// SetupTest runs before each test
func (suite *TaskServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.UserStats{},
		&models.Project{},
		&models.ProjectParticipant{},
		&models.Task{},
		&models.TaskStatusEntity{},
		&models.CompletionLog{},
		&models.Notification{},
		&models.Friendship{},
	)
	suite.Require().NoError(err)

	suite.service = NewTaskService(
		repository.NewTaskRepository(suite.db),
		repository.NewProjectRepository(suite.db),
		repository.NewUserRepository(suite.db),
		repository.NewNotificationRepository(suite.db),
		NewEventBus(nil),
		DefaultOccurrenceCaps(),
	)
	suite.service.now = func() time.Time { return fixedNow }

	suite.alice = suite.createUser("alice")
	suite.bob = suite.createUser("bob")
	suite.proj = suite.createProject(suite.alice.ID, suite.bob.ID)
}

// TearDownTest runs after each test
func (suite *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskServiceTestSuite) createUser(handle string) *models.User {
	user := &models.User{
		Handle:       handle,
		DisplayName:  handle,
		PasswordHash: "hashedpassword",
		Timezone:     "UTC",
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	suite.Require().NoError(suite.db.Create(&models.UserStats{UserID: user.ID}).Error)
	return user
}

func (suite *TaskServiceTestSuite) createProject(ownerID uint64, participantIDs ...uint64) *models.Project {
	testProjectSeq++
	project := &models.Project{
		Name:       "Household",
		OwnerID:    ownerID,
		InviteCode: fmt.Sprintf("HOUS-EHOL-%04d", testProjectSeq),
	}
	suite.Require().NoError(suite.db.Create(project).Error)

	suite.Require().NoError(suite.db.Create(&models.ProjectParticipant{
		ProjectID: project.ID,
		UserID:    ownerID,
		Role:      models.RoleOwner,
		JoinedAt:  fixedNow,
	}).Error)
	for _, id := range participantIDs {
		suite.Require().NoError(suite.db.Create(&models.ProjectParticipant{
			ProjectID: project.ID,
			UserID:    id,
			Role:      models.RoleParticipant,
			JoinedAt:  fixedNow,
		}).Error)
	}
	return project
}

func (suite *TaskServiceTestSuite) createOneOff(due time.Time, difficulty int) models.Task {
	tasks, err := suite.service.CreateTask(context.Background(), CreateTaskInput{
		Title:      "Do the dishes",
		Type:       models.TaskTypeOneOff,
		DueDate:    due,
		Difficulty: difficulty,
		ProjectID:  suite.proj.ID,
		CreatorID:  suite.alice.ID,
	})
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 1)
	return tasks[0]
}

func (suite *TaskServiceTestSuite) TestCreateOneOffCreatesStatusRowPerParticipant() {
	task := suite.createOneOff(fixedNow, 3)

	var statuses []models.TaskStatusEntity
	suite.Require().NoError(suite.db.Where("task_id = ?", task.ID).Find(&statuses).Error)
	suite.Len(statuses, 2)
	for _, ts := range statuses {
		suite.Equal(models.StatusActive, ts.Status)
		suite.Equal(models.RingNone, ts.RingColor)
	}

	var project models.Project
	suite.Require().NoError(suite.db.First(&project, suite.proj.ID).Error)
	suite.Equal(int64(1), project.TaskCount)
}

func (suite *TaskServiceTestSuite) TestCreateHabitMaterializesCappedSeries() {
	tasks, err := suite.service.CreateTask(context.Background(), CreateTaskInput{
		Title:      "Morning run",
		Type:       models.TaskTypeHabit,
		Recurrence: RecurrenceSpec{Pattern: models.RecurrenceDaily},
		DueDate:    fixedNow,
		ProjectID:  suite.proj.ID,
		CreatorID:  suite.alice.ID,
	})
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 28)

	// Later occurrences are linked to the anchor task.
	for _, task := range tasks[1:] {
		suite.Require().NotNil(task.SeriesID)
		suite.Equal(tasks[0].ID, *task.SeriesID)
	}

	var statusCount int64
	suite.Require().NoError(suite.db.Model(&models.TaskStatusEntity{}).Count(&statusCount).Error)
	suite.Equal(int64(28*2), statusCount)

	var project models.Project
	suite.Require().NoError(suite.db.First(&project, suite.proj.ID).Error)
	suite.Equal(int64(28), project.TaskCount)
}

func (suite *TaskServiceTestSuite) TestCreateRefusedBelowMinimumParticipants() {
	solo := suite.createUser("carol")
	project := suite.createProject(solo.ID)

	_, err := suite.service.CreateTask(context.Background(), CreateTaskInput{
		Title:     "Lonely task",
		DueDate:   fixedNow,
		ProjectID: project.ID,
		CreatorID: solo.ID,
	})
	suite.ErrorIs(err, ErrInsufficientParticipants)

	// All-or-nothing: no rows from the aborted batch.
	var taskCount int64
	suite.Require().NoError(suite.db.Model(&models.Task{}).Count(&taskCount).Error)
	suite.Equal(int64(0), taskCount)
}

func (suite *TaskServiceTestSuite) TestCreateRefusedForNonParticipant() {
	outsider := suite.createUser("dave")

	_, err := suite.service.CreateTask(context.Background(), CreateTaskInput{
		Title:     "Sneaky task",
		DueDate:   fixedNow,
		ProjectID: suite.proj.ID,
		CreatorID: outsider.ID,
	})
	suite.ErrorIs(err, ErrNotProjectParticipant)
}

func (suite *TaskServiceTestSuite) TestCompleteDueTodayEarnsFullXP() {
	task := suite.createOneOff(fixedNow, 4)

	result, err := suite.service.CompleteTask(context.Background(), CompleteTaskInput{
		TaskID: task.ID,
		UserID: suite.alice.ID,
	})
	suite.Require().NoError(err)

	suite.Equal(int64(400), result.Log.XPEarned)
	suite.False(result.Log.PenaltyApplied)
	suite.Equal(models.TimingOnTime, result.Log.Timing)
	suite.Equal(models.StatusCompleted, result.Status.Status)
	suite.Equal(models.RingGreen, result.Status.RingColor)

	// Bob has not completed yet.
	suite.False(result.FullyComplete)

	suite.Equal(int64(400), result.Stats.TotalScore)
	suite.Equal(int64(1), result.Stats.TotalCompletedTasks)
	suite.Equal(1, result.Stats.CurrentStreak)
}

func (suite *TaskServiceTestSuite) TestCompleteByEveryParticipantIsFullCompletion() {
	task := suite.createOneOff(fixedNow, 3)

	_, err := suite.service.CompleteTask(context.Background(), CompleteTaskInput{TaskID: task.ID, UserID: suite.alice.ID})
	suite.Require().NoError(err)

	result, err := suite.service.CompleteTask(context.Background(), CompleteTaskInput{TaskID: task.ID, UserID: suite.bob.ID})
	suite.Require().NoError(err)
	suite.True(result.FullyComplete)
}

func (suite *TaskServiceTestSuite) TestCompleteTwiceReturnsExistingLogUnchanged() {
	task := suite.createOneOff(fixedNow, 3)

	first, err := suite.service.CompleteTask(context.Background(), CompleteTaskInput{TaskID: task.ID, UserID: suite.alice.ID})
	suite.Require().NoError(err)

	// A different rating on replay changes nothing: the stored log wins.
	second, err := suite.service.CompleteTask(context.Background(), CompleteTaskInput{
		TaskID:           task.ID,
		UserID:           suite.alice.ID,
		DifficultyRating: 5,
	})
	suite.Require().NoError(err)
	suite.Equal(first.Log.ID, second.Log.ID)
	suite.Equal(first.Log.XPEarned, second.Log.XPEarned)
	suite.True(first.Log.CompletedAt.Equal(second.Log.CompletedAt))

	// Exactly one log, and the stats were not double-counted.
	var logCount int64
	suite.Require().NoError(suite.db.Model(&models.CompletionLog{}).
		Where("task_id = ? AND user_id = ?", task.ID, suite.alice.ID).
		Count(&logCount).Error)
	suite.Equal(int64(1), logCount)

	suite.Equal(int64(300), second.Stats.TotalScore)
	suite.Equal(int64(1), second.Stats.TotalCompletedTasks)
}

func (suite *TaskServiceTestSuite) TestCompleteRejectsOutOfRangeRating() {
	task := suite.createOneOff(fixedNow, 3)

	_, err := suite.service.CompleteTask(context.Background(), CompleteTaskInput{
		TaskID:           task.ID,
		UserID:           suite.alice.ID,
		DifficultyRating: 6,
	})
	suite.ErrorIs(err, ErrInvalidDifficulty)

	// Rejected before any write.
	var logCount int64
	suite.Require().NoError(suite.db.Model(&models.CompletionLog{}).Count(&logCount).Error)
	suite.Equal(int64(0), logCount)
}

func (suite *TaskServiceTestSuite) TestCompleteWithoutRatingUsesTaskDifficulty() {
	task := suite.createOneOff(fixedNow, 5)

	result, err := suite.service.CompleteTask(context.Background(), CompleteTaskInput{
		TaskID: task.ID,
		UserID: suite.alice.ID,
	})
	suite.Require().NoError(err)
	suite.Equal(5, result.Log.DifficultyRating)
	suite.Equal(int64(500), result.Log.XPEarned)
}

func (suite *TaskServiceTestSuite) TestRecoverRefusedUnlessArchived() {
	task := suite.createOneOff(fixedNow, 3)

	_, err := suite.service.RecoverTask(context.Background(), task.ID, suite.alice.ID)
	suite.ErrorIs(err, ErrRecoveryNotAllowed)
}

func (suite *TaskServiceTestSuite) TestRecoverArchivedThenCompleteLateHalvesXP() {
	task := suite.createOneOff(fixedNow.AddDate(0, 0, -1), 3)

	ts, err := suite.service.RecoverTask(context.Background(), task.ID, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Equal(models.StatusRecovered, ts.Status)
	suite.Equal(models.RingYellow, ts.RingColor)
	suite.Require().NotNil(ts.RecoveredAt)
	suite.Nil(ts.ArchivedAt)

	// A second recovery is refused: the derived status is no longer archived.
	_, err = suite.service.RecoverTask(context.Background(), task.ID, suite.alice.ID)
	suite.ErrorIs(err, ErrRecoveryNotAllowed)

	result, err := suite.service.CompleteTask(context.Background(), CompleteTaskInput{
		TaskID: task.ID,
		UserID: suite.alice.ID,
	})
	suite.Require().NoError(err)
	suite.Equal(int64(150), result.Log.XPEarned)
	suite.True(result.Log.PenaltyApplied)
	suite.Equal(models.RingYellow, result.Status.RingColor)
}

func (suite *TaskServiceTestSuite) TestRecoverSynthesizesMissingStatusRow() {
	task := suite.createOneOff(fixedNow.AddDate(0, 0, -2), 3)

	suite.Require().NoError(suite.db.
		Where("task_id = ? AND user_id = ?", task.ID, suite.bob.ID).
		Delete(&models.TaskStatusEntity{}).Error)

	ts, err := suite.service.RecoverTask(context.Background(), task.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.Equal(models.StatusRecovered, ts.Status)
	suite.NotZero(ts.ID)
}

func (suite *TaskServiceTestSuite) TestCompletionNotifiesOtherParticipants() {
	task := suite.createOneOff(fixedNow, 3)

	_, err := suite.service.CompleteTask(context.Background(), CompleteTaskInput{TaskID: task.ID, UserID: suite.alice.ID})
	suite.Require().NoError(err)

	var notifications []models.Notification
	suite.Require().NoError(suite.db.
		Where("user_id = ? AND type = ?", suite.bob.ID, models.NotificationTaskCompleted).
		Find(&notifications).Error)
	suite.Len(notifications, 1)
}

func (suite *TaskServiceTestSuite) TestDeleteCascadesAndRequiresCreator() {
	task := suite.createOneOff(fixedNow, 3)

	err := suite.service.DeleteTask(context.Background(), task.ID, suite.bob.ID)
	suite.ErrorIs(err, ErrNotTaskCreator)

	suite.Require().NoError(suite.service.DeleteTask(context.Background(), task.ID, suite.alice.ID))

	var statusCount int64
	suite.Require().NoError(suite.db.Model(&models.TaskStatusEntity{}).
		Where("task_id = ?", task.ID).Count(&statusCount).Error)
	suite.Equal(int64(0), statusCount)
}

func (suite *TaskServiceTestSuite) TestListTasksScopedToUserProjects() {
	suite.createOneOff(fixedNow, 3)

	other := suite.createUser("erin")
	tasks, total, err := suite.service.ListTasks(ListTasksInput{UserID: other.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(0), total)
	suite.Empty(tasks)

	tasks, total, err = suite.service.ListTasks(ListTasksInput{UserID: suite.bob.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Len(tasks, 1)
}

func (suite *TaskServiceTestSuite) TestStatusViewsDeriveOnRead() {
	suite.createOneOff(fixedNow.AddDate(0, 0, -1), 3)
	suite.createOneOff(fixedNow.AddDate(0, 0, 1), 3)

	views, err := suite.service.StatusViewsForUser(suite.alice.ID, nil, nil)
	suite.Require().NoError(err)
	suite.Require().Len(views, 2)

	// Ordered by due date: yesterday's occurrence derives archived with a red
	// ring, tomorrow's derives upcoming.
	suite.Equal(models.StatusArchived, views[0].Derived)
	suite.Equal(models.RingRed, views[0].RingColor)
	suite.Equal(models.StatusUpcoming, views[1].Derived)
	suite.Equal(models.RingNone, views[1].RingColor)
}

// failingNotifRepo fails inserts for one recipient to exercise the
// logged-and-skipped fan-out path.
type failingNotifRepo struct {
	repository.NotificationRepository
	failFor uint64
}

func (r *failingNotifRepo) Create(n *models.Notification) error {
	if n.UserID == r.failFor {
		return errors.New("insert failed")
	}
	return r.NotificationRepository.Create(n)
}

func (suite *TaskServiceTestSuite) TestNotificationFailureSkipsRecipientOnly() {
	carol := suite.createUser("carol")
	project := suite.createProject(suite.alice.ID, suite.bob.ID, carol.ID)

	service := NewTaskService(
		repository.NewTaskRepository(suite.db),
		repository.NewProjectRepository(suite.db),
		repository.NewUserRepository(suite.db),
		&failingNotifRepo{
			NotificationRepository: repository.NewNotificationRepository(suite.db),
			failFor:                suite.bob.ID,
		},
		NewEventBus(nil),
		DefaultOccurrenceCaps(),
	)
	service.now = func() time.Time { return fixedNow }

	tasks, err := service.CreateTask(context.Background(), CreateTaskInput{
		Title:     "Take out the trash",
		DueDate:   fixedNow,
		ProjectID: project.ID,
		CreatorID: suite.alice.ID,
	})
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 1)

	// Bob's insert failed; carol's fan-out still went through.
	var count int64
	suite.Require().NoError(suite.db.Model(&models.Notification{}).
		Where("user_id = ?", carol.ID).Count(&count).Error)
	suite.Equal(int64(1), count)

	suite.Require().NoError(suite.db.Model(&models.Notification{}).
		Where("user_id = ?", suite.bob.ID).Count(&count).Error)
	suite.Equal(int64(0), count)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
