// Package queue provides a small Redis-backed task queue used for
// asynchronous operator alert delivery.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Task is one unit of asynchronous work
type Task struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Payload   json.RawMessage   `json:"payload"`
	Meta      map[string]string `json:"meta,omitempty"`
	Attempts  int               `json:"attempts"`
	CreatedAt time.Time         `json:"created_at"`
}

// Handler processes one dequeued task
type Handler func(ctx context.Context, task *Task) error

// RedisQueue is a list-backed queue with a dead-letter list for tasks that
// exhaust their retries
type RedisQueue struct {
	client     *redis.Client
	mainQueue  string
	processing string
	dlq        string
	maxRetries int
	popTimeout time.Duration
	logger     *logrus.Logger
}

// Config contains RedisQueue settings
type Config struct {
	Addr       string
	Password   string
	DB         int
	QueueName  string
	MaxRetries int
	PopTimeout time.Duration
}

// NewRedisQueue connects to Redis and verifies the connection
func NewRedisQueue(cfg Config, logger *logrus.Logger) (*RedisQueue, error) {
	if cfg.QueueName == "" {
		cfg.QueueName = "tasks"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  cfg.PopTimeout + 2*time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQueue{
		client:     client,
		mainQueue:  cfg.QueueName,
		processing: cfg.QueueName + ":processing",
		dlq:        cfg.QueueName + ":dlq",
		maxRetries: cfg.MaxRetries,
		popTimeout: cfg.PopTimeout,
		logger:     logger,
	}, nil
}

// Publish enqueues a task for processing
func (q *RedisQueue) Publish(ctx context.Context, taskType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := &Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := q.client.LPush(ctx, q.mainQueue, taskData).Err(); err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}

	q.logger.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
	}).Debug("Task published")

	return nil
}

// Run consumes tasks until the context is cancelled. Tasks move to a
// processing list while in flight and to the DLQ after maxRetries failures.
func (q *RedisQueue) Run(ctx context.Context, handler Handler) {
	q.logger.WithField("queue", q.mainQueue).Info("Queue worker started")

	for {
		select {
		case <-ctx.Done():
			q.logger.WithField("queue", q.mainQueue).Info("Queue worker stopped")
			return
		default:
		}

		taskData, err := q.client.BLMove(ctx, q.mainQueue, q.processing, "right", "left", q.popTimeout).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.WithError(err).Error("Failed to dequeue task")
			time.Sleep(time.Second)
			continue
		}

		q.handleTask(ctx, handler, taskData)
	}
}

func (q *RedisQueue) handleTask(ctx context.Context, handler Handler, taskData string) {
	defer q.client.LRem(context.WithoutCancel(ctx), q.processing, 1, taskData)

	var task Task
	if err := json.Unmarshal([]byte(taskData), &task); err != nil {
		q.logger.WithError(err).Error("Dropping malformed task to DLQ")
		q.client.LPush(ctx, q.dlq, taskData)
		return
	}

	if err := handler(ctx, &task); err != nil {
		task.Attempts++
		requeued, _ := json.Marshal(&task)
		if task.Attempts >= q.maxRetries {
			q.logger.WithFields(logrus.Fields{
				"task_id":  task.ID,
				"attempts": task.Attempts,
			}).WithError(err).Error("Task moved to DLQ")
			q.client.LPush(ctx, q.dlq, requeued)
			return
		}
		q.logger.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"attempts": task.Attempts,
		}).WithError(err).Warn("Task failed, requeueing")
		q.client.LPush(ctx, q.mainQueue, requeued)
	}
}

// Stats reports the current queue depths
func (q *RedisQueue) Stats(ctx context.Context) (main, processing, dlq int64, err error) {
	pipe := q.client.Pipeline()
	mainLen := pipe.LLen(ctx, q.mainQueue)
	procLen := pipe.LLen(ctx, q.processing)
	dlqLen := pipe.LLen(ctx, q.dlq)
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get queue stats: %w", err)
	}
	return mainLen.Val(), procLen.Val(), dlqLen.Val(), nil
}

// HealthCheck pings the Redis connection
func (q *RedisQueue) HealthCheck(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Close shuts down the Redis client
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
