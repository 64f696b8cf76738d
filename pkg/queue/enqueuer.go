package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for task creation
type EnqueuerRepository interface {
	CreateTask(ctx context.Context, task *Task) error
}

// Enqueuer handles task enqueueing
type Enqueuer struct {
	repo EnqueuerRepository
	now  func() time.Time
}

// NewEnqueuer creates a new Enqueuer
func NewEnqueuer(repo EnqueuerRepository) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	return &Enqueuer{repo: repo, now: time.Now}, nil
}

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	queue       string
	maxAttempts int
}

// WithQueue sets the queue for the task
func WithQueue(queue string) EnqueueOption {
	return func(o *enqueueOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithMaxAttempts sets how many times the task is executed before it is moved
// to the dead letter list. Values outside 1..10 are ignored.
func WithMaxAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		if n >= 1 && n <= 10 {
			o.maxAttempts = n
		}
	}
}

// Enqueue stores payload as a task ready for immediate processing. The task
// is named after the payload's type.
func (e *Enqueuer) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) error {
	if payload == nil {
		return ErrPayloadNil
	}

	options := &enqueueOptions{
		queue:       DefaultQueueName,
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(options)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	now := e.now()
	task := &Task{
		ID:          uuid.New(),
		Queue:       options.queue,
		TaskName:    qualifiedStructName(payload),
		Payload:     raw,
		Status:      TaskStatusPending,
		MaxAttempts: options.maxAttempts,
		ScheduledAt: now,
		CreatedAt:   now,
	}

	if err := e.repo.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to create task %q in queue %q: %w", task.TaskName, task.Queue, err)
	}
	return nil
}
