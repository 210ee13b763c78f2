package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"chem-solver/internal/clients"
	"chem-solver/internal/config"
	"chem-solver/internal/debate"
	"chem-solver/internal/kafka"
	"chem-solver/internal/logger"
	"chem-solver/internal/models"
	"chem-solver/internal/personas"
	"chem-solver/internal/services"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": logger.GetStackTrace(0),
			}).Fatal("Worker application panicked")
		}
	}()

	logger.Log.Info("Starting Chem Solver debate worker")

	cfg, err := config.Load()
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "config_load",
		})
		logger.Log.WithError(err).Fatal("Failed to load worker configuration")
	}
	logger.SetLevel(cfg.LogLevel)

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
	logger.Log.Info("Worker database connected")

	if err := models.AutoMigrate(db); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate database")
	}

	// Initialize Kafka service
	kafkaService := kafka.NewService(kafka.Config{
		BootstrapServers: cfg.KafkaBootstrapServers,
		Topic:            cfg.KafkaTopicSolve,
	})
	defer func() {
		if err := kafkaService.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close worker Kafka service")
		}
	}()

	// Build the debate orchestrator. Configuration errors are fatal and
	// never retried.
	geminiClient := clients.NewGeminiClient(cfg)
	orchestrator, err := debate.NewOrchestrator(cfg, geminiClient, personas.Debaters())
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build debate orchestrator")
	}

	problemService := services.NewProblemService(db, cfg)
	solveService := services.NewSolveService(db, cfg, kafkaService)
	runner := services.NewSolveRunner(orchestrator, problemService, solveService)

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Log.Info("Worker shutdown signal received")
		cancel()
	}()

	if err := run(ctx, kafkaService, runner); err != nil && err != context.Canceled {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "worker_run",
		})
		logger.Log.WithError(err).Fatal("Worker failed")
	}

	logger.Log.Info("Debate worker stopped gracefully")
}

// run consumes solve jobs until the context is cancelled
func run(ctx context.Context, kafkaService *kafka.Service, runner *services.SolveRunner) error {
	consumer, err := kafkaService.CreateConsumer("debate-workers")
	if err != nil {
		return err
	}
	defer consumer.Close()

	logger.Log.Info("Worker ready to process solve jobs")

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Context cancelled, stopping worker")
			return ctx.Err()
		default:
			message, err := consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.LogErrorWithStack(err, map[string]interface{}{
					"operation": "kafka_read_message",
				})
				continue
			}

			var jobMessage services.SolveJobMessage
			if err := json.Unmarshal(message.Value, &jobMessage); err != nil {
				logger.LogErrorWithStack(err, map[string]interface{}{
					"message_value": string(message.Value),
					"operation":     "parse_job_message",
				})
				continue
			}

			if err := runner.ProcessJob(ctx, jobMessage); err != nil {
				logger.LogErrorWithStack(err, map[string]interface{}{
					"job_id":    jobMessage.JobID,
					"operation": "process_solve_job",
				})
			}
		}
	}
}
