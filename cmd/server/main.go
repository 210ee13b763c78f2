package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chem-solver/internal/config"
	"chem-solver/internal/handlers"
	"chem-solver/internal/kafka"
	"chem-solver/internal/logger"
	"chem-solver/internal/middleware"
	"chem-solver/internal/models"
	"chem-solver/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": logger.GetStackTrace(0),
			}).Fatal("Application panicked")
		}
	}()

	logger.Log.Info("Starting Chem Solver API server")

	cfg, err := config.Load()
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "config_load",
		})
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	logger.Log.WithField("log_level", cfg.LogLevel).Info("Configuration loaded")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "database_connect",
		})
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to get database SQL instance")
	}
	if err := sqlDB.Ping(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to ping database")
	}
	logger.Log.Info("Database connected")

	if err := models.AutoMigrate(db); err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "database_migrate",
		})
		logger.Log.WithError(err).Fatal("Failed to migrate database")
	}
	logger.Log.Info("Database migrations completed")

	// Initialize Kafka service
	kafkaService := kafka.NewService(kafka.Config{
		BootstrapServers: cfg.KafkaBootstrapServers,
		Topic:            cfg.KafkaTopicSolve,
	})
	defer func() {
		if err := kafkaService.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close Kafka service")
		}
	}()
	logger.Log.WithField("topic", cfg.KafkaTopicSolve).Info("Kafka service initialized")

	// Initialize services and handlers
	problemService := services.NewProblemService(db, cfg)
	solveService := services.NewSolveService(db, cfg, kafkaService)
	problemHandler := handlers.NewProblemHandler(problemService)
	solveHandler := handlers.NewSolveHandler(solveService)

	router := setupRouter(cfg, problemHandler, solveHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Log.WithField("port", cfg.ServerPort).Info("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogErrorWithStack(err, map[string]interface{}{
				"operation": "server_listen",
				"port":      cfg.ServerPort,
			})
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Log.Info("Shutdown signal received, starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Log.Info("Server gracefully stopped")
}

func setupRouter(cfg *config.Config, problemHandler *handlers.ProblemHandler, solveHandler *handlers.SolveHandler) *gin.Engine {
	if cfg.LogLevel == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "chem-solver",
			"version": "1.0.0",
		})
	})

	api := router.Group("/api")
	{
		problems := api.Group("/problems")
		{
			problems.POST("/", problemHandler.UploadProblem)
			problems.GET("/", problemHandler.GetProblems)
			problems.GET("/:id", problemHandler.GetProblem)
			problems.DELETE("/:id", problemHandler.DeleteProblem)
		}

		api.POST("/solve/:problem_id", solveHandler.StartSolve)

		jobs := api.Group("/jobs")
		{
			jobs.GET("/:job_id/status", solveHandler.GetJobStatus)
		}

		results := api.Group("/results")
		{
			results.GET("/", solveHandler.ListDebateResults)
			results.GET("/:debate_id", solveHandler.GetDebateResult)
		}
	}

	return router
}
