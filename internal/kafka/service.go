package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chem-solver/internal/logger"

	"github.com/segmentio/kafka-go"
)

// Config holds Kafka connection settings
type Config struct {
	BootstrapServers string
	Topic            string
}

// Service wraps a Kafka writer for publishing solve jobs
type Service struct {
	config Config
	writer *kafka.Writer
}

// NewService creates a new Kafka service
func NewService(cfg Config) *Service {
	return &Service{
		config: cfg,
		writer: &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(cfg.BootstrapServers, ",")...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishSolveJob publishes a solve job message to the configured topic
func (s *Service) PublishSolveJob(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}

	if err := s.writer.WriteMessages(context.Background(), kafka.Message{Value: data}); err != nil {
		return fmt.Errorf("failed to publish job message: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"topic":        s.config.Topic,
		"message_size": len(data),
	}).Info("Solve job published to Kafka")

	return nil
}

// Close shuts down the writer
func (s *Service) Close() error {
	return s.writer.Close()
}

// Consumer wraps a Kafka reader bound to a consumer group
type Consumer struct {
	reader *kafka.Reader
}

// CreateConsumer creates a consumer-group reader on the service's topic
func (s *Service) CreateConsumer(groupID string) (*Consumer, error) {
	if groupID == "" {
		return nil, fmt.Errorf("consumer group ID is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: strings.Split(s.config.BootstrapServers, ","),
		GroupID: groupID,
		Topic:   s.config.Topic,
	})

	return &Consumer{reader: reader}, nil
}

// ReadMessage blocks until a message is available or the context is done
func (c *Consumer) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return c.reader.ReadMessage(ctx)
}

// Close shuts down the reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
