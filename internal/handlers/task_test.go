package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/momentum-app/momentum-api/internal/constants"
	"github.com/momentum-app/momentum-api/internal/database"
	"github.com/momentum-app/momentum-api/internal/dto"
	"github.com/momentum-app/momentum-api/internal/middleware"
	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/repository"
	"github.com/momentum-app/momentum-api/internal/services"
)

// testProjectSeq makes each fixture project's invite code unique so repeated
// createTestProject calls don't collide on the invite_code unique index.
var testProjectSeq int

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *TaskHandler
	router  *gin.Engine

	alice *models.User
	bob   *models.User
	proj  *models.Project
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
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
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	taskService := services.NewTaskService(
		repository.NewTaskRepository(suite.db),
		repository.NewProjectRepository(suite.db),
		repository.NewUserRepository(suite.db),
		repository.NewNotificationRepository(suite.db),
		services.NewEventBus(nil),
		services.DefaultOccurrenceCaps(),
	)
	suite.handler = NewTaskHandler(taskService)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.alice = suite.createTestUser("alice")
	suite.bob = suite.createTestUser("bob")
	suite.proj = suite.createTestProject(suite.alice.ID, suite.bob.ID)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskHandlerTestSuite) createTestUser(handle string) *models.User {
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

func (suite *TaskHandlerTestSuite) createTestProject(ownerID uint64, participantIDs ...uint64) *models.Project {
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
		JoinedAt:  time.Now(),
	}).Error)
	for _, id := range participantIDs {
		suite.Require().NoError(suite.db.Create(&models.ProjectParticipant{
			ProjectID: project.ID,
			UserID:    id,
			Role:      models.RoleParticipant,
			JoinedAt:  time.Now(),
		}).Error)
	}
	return project
}

// fakeAuth injects the user id the way RequireAuth would after a session
// lookup.
func fakeAuth(userID uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

func (suite *TaskHandlerTestSuite) request(method, url string, payload any, userID uint64, register func(*gin.RouterGroup)) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		suite.Require().NoError(err)
	}

	r := gin.New()
	group := r.Group("/", fakeAuth(userID))
	register(group)

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) TestCreateTask() {
	w := suite.request(http.MethodPost, "/tasks", map[string]any{
		"title":      "Do the dishes",
		"due_date":   time.Now().Format(time.RFC3339),
		"project_id": suite.proj.ID,
		"difficulty": 4,
	}, suite.alice.ID, func(g *gin.RouterGroup) {
		g.POST("/tasks", suite.handler.CreateTask)
	})

	suite.Require().Equal(http.StatusCreated, w.Code)

	var response struct {
		Tasks []dto.TaskDTO `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().Len(response.Tasks, 1)
	suite.Equal("Do the dishes", response.Tasks[0].Title)
	suite.Equal(4, response.Tasks[0].Difficulty)
}

func (suite *TaskHandlerTestSuite) TestCreateHabitSeries() {
	w := suite.request(http.MethodPost, "/tasks", map[string]any{
		"title":      "Morning run",
		"type":       "habit",
		"recurrence": "weekly",
		"due_date":   time.Now().Format(time.RFC3339),
		"project_id": suite.proj.ID,
	}, suite.alice.ID, func(g *gin.RouterGroup) {
		g.POST("/tasks", suite.handler.CreateTask)
	})

	suite.Require().Equal(http.StatusCreated, w.Code)

	var response struct {
		Tasks []dto.TaskDTO `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Len(response.Tasks, 4)
}

func (suite *TaskHandlerTestSuite) TestCreateTaskRejectedWithoutMinimumParticipants() {
	solo := suite.createTestUser("carol")
	project := suite.createTestProject(solo.ID)

	w := suite.request(http.MethodPost, "/tasks", map[string]any{
		"title":      "Lonely task",
		"due_date":   time.Now().Format(time.RFC3339),
		"project_id": project.ID,
	}, solo.ID, func(g *gin.RouterGroup) {
		g.POST("/tasks", suite.handler.CreateTask)
	})

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestCompleteTask() {
	createW := suite.request(http.MethodPost, "/tasks", map[string]any{
		"title":      "Water plants",
		"due_date":   time.Now().Format(time.RFC3339),
		"project_id": suite.proj.ID,
		"difficulty": 4,
	}, suite.alice.ID, func(g *gin.RouterGroup) {
		g.POST("/tasks", suite.handler.CreateTask)
	})
	suite.Require().Equal(http.StatusCreated, createW.Code)

	var created struct {
		Tasks []dto.TaskDTO `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(createW.Body.Bytes(), &created))
	taskID := created.Tasks[0].ID

	w := suite.request(http.MethodPost, fmt.Sprintf("/tasks/%d/complete", taskID), nil, suite.alice.ID, func(g *gin.RouterGroup) {
		g.POST("/tasks/:id/complete", suite.handler.CompleteTask)
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.CompleteTaskResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal(int64(400), response.Completion.XPEarned)
	suite.False(response.Completion.PenaltyApplied)
	suite.Equal(models.RingGreen, response.Status.RingColor)
	suite.False(response.FullyComplete)

	// A replay is a no-op returning the existing completion.
	w = suite.request(http.MethodPost, fmt.Sprintf("/tasks/%d/complete", taskID), nil, suite.alice.ID, func(g *gin.RouterGroup) {
		g.POST("/tasks/:id/complete", suite.handler.CompleteTask)
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	var replay dto.CompleteTaskResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &replay))
	suite.Equal(response.Completion.ID, replay.Completion.ID)
	suite.Equal(int64(400), replay.Completion.XPEarned)
}

func (suite *TaskHandlerTestSuite) TestRecoverTaskRequiresArchived() {
	createW := suite.request(http.MethodPost, "/tasks", map[string]any{
		"title":      "Future task",
		"due_date":   time.Now().AddDate(0, 0, 3).Format(time.RFC3339),
		"project_id": suite.proj.ID,
	}, suite.alice.ID, func(g *gin.RouterGroup) {
		g.POST("/tasks", suite.handler.CreateTask)
	})
	suite.Require().Equal(http.StatusCreated, createW.Code)

	var created struct {
		Tasks []dto.TaskDTO `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(createW.Body.Bytes(), &created))
	taskID := created.Tasks[0].ID

	w := suite.request(http.MethodPost, fmt.Sprintf("/tasks/%d/recover", taskID), nil, suite.alice.ID, func(g *gin.RouterGroup) {
		g.POST("/tasks/:id/recover", suite.handler.RecoverTask)
	})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestTaskAccessMiddlewareHidesForeignTasks() {
	createW := suite.request(http.MethodPost, "/tasks", map[string]any{
		"title":      "Private task",
		"due_date":   time.Now().Format(time.RFC3339),
		"project_id": suite.proj.ID,
	}, suite.alice.ID, func(g *gin.RouterGroup) {
		g.POST("/tasks", suite.handler.CreateTask)
	})
	suite.Require().Equal(http.StatusCreated, createW.Code)

	var created struct {
		Tasks []dto.TaskDTO `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(createW.Body.Bytes(), &created))
	taskID := created.Tasks[0].ID

	outsider := suite.createTestUser("mallory")
	w := suite.request(http.MethodGet, fmt.Sprintf("/tasks/%d", taskID), nil, outsider.ID, func(g *gin.RouterGroup) {
		g.GET("/tasks/:id", middleware.RequireTaskAccess(), suite.handler.GetTask)
	})

	// 404, not 403: existence is not leaked.
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestListTasks() {
	createW := suite.request(http.MethodPost, "/tasks", map[string]any{
		"title":      "Listed task",
		"due_date":   time.Now().Format(time.RFC3339),
		"project_id": suite.proj.ID,
	}, suite.alice.ID, func(g *gin.RouterGroup) {
		g.POST("/tasks", suite.handler.CreateTask)
	})
	suite.Require().Equal(http.StatusCreated, createW.Code)

	w := suite.request(http.MethodGet, "/tasks", nil, suite.bob.ID, func(g *gin.RouterGroup) {
		g.GET("/tasks", suite.handler.ListTasks)
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.TaskListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal(int64(1), response.TotalCount)
	suite.Require().Len(response.Tasks, 1)
	suite.Equal("Listed task", response.Tasks[0].Title)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
