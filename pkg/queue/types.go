package queue

import (
	"time"

	"github.com/google/uuid"
)

// DefaultQueueName is used when no queue is specified.
const DefaultQueueName = "default"

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
)

// Task is a unit of work stored in the queue. Attempts counts failed
// executions; a task that reaches MaxAttempts is not retried.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Queue       string     `json:"queue"`
	TaskName    string     `json:"task_name"`
	Payload     []byte     `json:"payload,omitempty"`
	Status      TaskStatus `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID `json:"locked_by,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// exhausted reports whether one more failure ends the task.
func (t *Task) exhausted() bool {
	return t.Attempts+1 >= t.MaxAttempts
}

// DeadTask is a task that exhausted its attempts or had no handler. It keeps
// the payload for manual inspection and requeueing.
type DeadTask struct {
	TaskID   uuid.UUID `json:"task_id"`
	Queue    string    `json:"queue"`
	TaskName string    `json:"task_name"`
	Payload  []byte    `json:"payload,omitempty"`
	Error    string    `json:"error"`
	Attempts int       `json:"attempts"`
	FailedAt time.Time `json:"failed_at"`
}

// Stats is a snapshot of queue occupancy.
type Stats struct {
	Pending    int
	Processing int
	Completed  int
	Dead       int
}
