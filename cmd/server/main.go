package main

import (
	"context"
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/momentum-app/momentum-api/internal/cache"
	"github.com/momentum-app/momentum-api/internal/config"
	"github.com/momentum-app/momentum-api/internal/constants"
	"github.com/momentum-app/momentum-api/internal/database"
	"github.com/momentum-app/momentum-api/internal/handlers"
	"github.com/momentum-app/momentum-api/internal/middleware"
	"github.com/momentum-app/momentum-api/internal/realtime"
	"github.com/momentum-app/momentum-api/internal/repository"
	"github.com/momentum-app/momentum-api/internal/services"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg := config.Load()

	gin.SetMode(cfg.GinMode)

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	db := database.GetDB()

	// Realtime transport. The hub keeps one broker channel per (category,
	// user); the health monitor rebuilds channels after a Redis outage.
	broker := realtime.NewRedisBroker(cfg.RedisAddr())
	hub := realtime.NewHub(broker)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.StartHealthMonitor(ctx)

	bus := services.NewEventBus(broker)

	// Per-user read model: one query cache fed by one dispatcher per
	// signed-in user, dropped on logout.
	sessionCaches := realtime.NewSessionCaches(hub, nil)
	defer sessionCaches.Close()

	// Repositories
	taskRepo := repository.NewTaskRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendshipRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	userPreload := cache.NewUserPreload(userRepo)

	// Services
	caps := services.OccurrenceCaps{
		Daily:  cfg.DailyOccurrenceCap,
		Weekly: cfg.WeeklyOccurrenceCap,
	}
	authService := services.NewAuthService(userRepo)
	taskService := services.NewTaskService(taskRepo, projectRepo, userRepo, notifRepo, bus, caps)
	projectService := services.NewProjectService(projectRepo, bus)
	friendshipService := services.NewFriendshipService(friendRepo, userRepo, notifRepo, bus)
	notificationService := services.NewNotificationService(notifRepo, sessionCaches)
	leaderboardService := services.NewLeaderboardService(friendRepo, userRepo)
	aiService := services.NewAIService(cfg.OpenAIAPIKey)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, userPreload, sessionCaches)
	taskHandler := handlers.NewTaskHandler(taskService)
	projectHandler := handlers.NewProjectHandler(projectService)
	friendshipHandler := handlers.NewFriendshipHandler(friendshipService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	aiHandler := handlers.NewAIHandler(aiService)
	realtimeHandler := handlers.NewRealtimeHandler(hub, userPreload)

	r := gin.Default()

	// Session middleware backed by Redis
	store, err := redisStore.NewStore(
		10,
		"tcp",
		cfg.RedisAddr(),
		"",
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Momentum API is running",
		})
	})

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.POST("/join", projectHandler.JoinProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.DELETE("/:id", middleware.RequireProjectAccess(), middleware.RequireProjectOwner(), projectHandler.DeleteProject)
			projects.DELETE("/:id/participants/:user_id", middleware.RequireProjectAccess(), projectHandler.RemoveParticipant)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/drafts", aiHandler.DraftTasks)
			tasks.GET("/statuses", taskHandler.ListStatuses)
			tasks.GET("/:id", middleware.RequireTaskAccess(), taskHandler.GetTask)
			tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
			tasks.POST("/:id/complete", middleware.RequireTaskAccess(), taskHandler.CompleteTask)
			tasks.POST("/:id/recover", middleware.RequireTaskAccess(), taskHandler.RecoverTask)
		}

		// Friendship routes (protected)
		friends := api.Group("/friends")
		friends.Use(middleware.RequireAuth())
		{
			friends.GET("", friendshipHandler.ListFriendships)
			friends.POST("/requests", friendshipHandler.SendRequest)
			friends.POST("/requests/:id/respond", friendshipHandler.RespondToRequest)
			friends.DELETE("/:user_id", friendshipHandler.RemoveFriend)
		}

		// Notification routes (protected)
		notifications := api.Group("/notifications")
		notifications.Use(middleware.RequireAuth())
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}

		// Leaderboard (protected)
		api.GET("/leaderboard", middleware.RequireAuth(), leaderboardHandler.GetFriendsLeaderboard)

		// Realtime stream (protected)
		api.GET("/realtime/stream", middleware.RequireAuth(), realtimeHandler.Stream)
	}

	log.Printf("Server starting on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
