// Package kafka publishes and consumes report analysis tasks.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dira-go/internal/config"
	"dira-go/pkg/log"
	"dira-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// Producer publishes report tasks, keyed by report id so a report's tasks stay ordered.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Producer.
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg.Brokers)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	}
	log.Info("[Kafka] producer initialised")
	return &Producer{writer: w}
}

// Dispatch implements tasks.Dispatcher.
func (p *Producer) Dispatch(ctx context.Context, task tasks.ReportTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.ReportID),
		Value: taskBytes,
	})
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// messageSource is the part of kafka.Reader the consumer uses.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// attemptCounter tracks failures per report across restarts.
type attemptCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Consumer reads report tasks and hands them to a processor.
// Offsets are committed manually: after success, after a malformed message,
// or once a task has failed MaxAttempts times.
type Consumer struct {
	source      messageSource
	counter     attemptCounter
	processor   tasks.Processor
	maxAttempts int64
	retryDelay  time.Duration
}

// NewConsumer creates a Consumer on the configured topic and group.
func NewConsumer(cfg config.KafkaConfig, rdb *redis.Client, processor tasks.Processor) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(r, rdb, processor, cfg.MaxAttempts)
}

func newConsumer(source messageSource, counter attemptCounter, processor tasks.Processor, maxAttempts int64) *Consumer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Consumer{
		source:      source,
		counter:     counter,
		processor:   processor,
		maxAttempts: maxAttempts,
		retryDelay:  2 * time.Second,
	}
}

// Run consumes until ctx is cancelled or the reader fails.
func (c *Consumer) Run(ctx context.Context) error {
	log.Info("[Kafka] consumer started")
	defer func() {
		if err := c.source.Close(); err != nil {
			log.Errorf("[Kafka] failed to close consumer: %v", err)
		}
	}()

	for {
		m, err := c.source.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}
		c.handle(ctx, m)
	}
}

// handle processes one message, retrying in place until it succeeds or runs out of attempts.
func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	var task tasks.ReportTask
	if err := json.Unmarshal(m.Value, &task); err != nil || task.ReportID == "" {
		log.Errorf("[Kafka] malformed task at offset %d, skipping: %s", m.Offset, string(m.Value))
		c.commit(ctx, m)
		return
	}

	attemptsKey := fmt.Sprintf("kafka:attempts:%s", task.ReportID)
	for {
		err := c.processor.Process(ctx, task)
		if err == nil {
			log.Infof("[Kafka] report task done: report_id=%s", task.ReportID)
			_ = c.counter.Del(ctx, attemptsKey).Err()
			c.commit(ctx, m)
			return
		}
		log.Errorf("[Kafka] report task failed: report_id=%s, error: %v", task.ReportID, err)

		attempts, incErr := c.counter.Incr(ctx, attemptsKey).Result()
		if incErr != nil {
			// Without a counter we cannot bound retries; leave the offset for redelivery.
			log.Errorf("[Kafka] attempt counter unavailable: %v", incErr)
			return
		}
		_ = c.counter.Expire(ctx, attemptsKey, 24*time.Hour).Err()
		if attempts >= c.maxAttempts {
			log.Errorf("[Kafka] report task failed %d times, giving up: report_id=%s", attempts, task.ReportID)
			c.commit(ctx, m)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.source.CommitMessages(ctx, m); err != nil {
		log.Errorf("[Kafka] failed to commit offset %d: %v", m.Offset, err)
	}
}

func brokers(list string) []string {
	var out []string
	for _, b := range strings.Split(list, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
