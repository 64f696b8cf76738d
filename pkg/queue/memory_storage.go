package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements EnqueuerRepository and WorkerRepository in
// process. Completed tasks are dropped; only their count is kept.
type MemoryStorage struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*Task
	dead      []DeadTask
	completed int
	closed    bool

	capacity int
	backoff  time.Duration

	lockTicker *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// MemoryStorageOption configures MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithCapacity limits the number of pending and processing tasks. CreateTask
// returns ErrQueueFull beyond it. Zero means unbounded.
func WithCapacity(n int) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if n >= 0 {
			ms.capacity = n
		}
	}
}

// WithRetryBackoff sets the base delay before a failed task is retried. The
// delay grows linearly with the attempt count.
func WithRetryBackoff(d time.Duration) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if d >= 0 {
			ms.backoff = d
		}
	}
}

// NewMemoryStorage creates an in-memory storage and starts its lock
// expiration manager. Call Close to stop it.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	ms := &MemoryStorage{
		tasks:   make(map[uuid.UUID]*Task),
		backoff: 30 * time.Second,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}

	ms.lockTicker = time.NewTicker(time.Second)
	go ms.lockExpirationManager()

	return ms
}

// Close rejects further tasks and stops the background goroutine. Stored
// tasks stay readable.
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		ms.mu.Lock()
		ms.closed = true
		ms.mu.Unlock()

		close(ms.done)
		ms.lockTicker.Stop()
	})
	return nil
}

// CreateTask implements EnqueuerRepository.
func (ms *MemoryStorage) CreateTask(_ context.Context, task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrQueueClosed
	}
	if ms.capacity > 0 && len(ms.tasks) >= ms.capacity {
		return ErrQueueFull
	}
	if _, exists := ms.tasks[task.ID]; exists {
		return fmt.Errorf("task with ID %s already exists", task.ID)
	}

	taskCopy := *task
	ms.tasks[task.ID] = &taskCopy
	return nil
}

// ClaimTask implements WorkerRepository. The earliest scheduled ready task in
// one of queues wins.
func (ms *MemoryStorage) ClaimTask(_ context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Task
	for _, task := range ms.tasks {
		if task.Status != TaskStatusPending ||
			!slices.Contains(queues, task.Queue) ||
			task.ScheduledAt.After(now) {
			continue
		}
		if best == nil ||
			task.ScheduledAt.Before(best.ScheduledAt) ||
			(task.ScheduledAt.Equal(best.ScheduledAt) && task.CreatedAt.Before(best.CreatedAt)) {
			best = task
		}
	}
	if best == nil {
		return nil, ErrNoTaskToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = TaskStatusProcessing
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID

	taskCopy := *best
	return &taskCopy, nil
}

// CompleteTask implements WorkerRepository.
func (ms *MemoryStorage) CompleteTask(_ context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, err := ms.processing(taskID); err != nil {
		return err
	}
	delete(ms.tasks, taskID)
	ms.completed++
	return nil
}

// FailTask implements WorkerRepository. The task goes back to pending with a
// backoff until it reaches MaxAttempts; then it stays claimed so the worker
// can move it to the dead letter list.
func (ms *MemoryStorage) FailTask(_ context.Context, taskID uuid.UUID, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, err := ms.processing(taskID)
	if err != nil {
		return err
	}

	task.Attempts++
	task.Error = &errorMsg
	if task.Attempts >= task.MaxAttempts {
		return nil
	}

	task.Status = TaskStatusPending
	task.LockedUntil = nil
	task.LockedBy = nil
	task.ScheduledAt = time.Now().Add(time.Duration(task.Attempts) * ms.backoff)
	return nil
}

// MoveToDLQ implements WorkerRepository.
func (ms *MemoryStorage) MoveToDLQ(_ context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	dead := DeadTask{
		TaskID:   task.ID,
		Queue:    task.Queue,
		TaskName: task.TaskName,
		Payload:  task.Payload,
		Attempts: task.Attempts,
		FailedAt: time.Now(),
	}
	if task.Error != nil {
		dead.Error = *task.Error
	}

	ms.dead = append(ms.dead, dead)
	delete(ms.tasks, taskID)
	return nil
}

// DeadTasks returns a copy of the dead letter list, oldest first.
func (ms *MemoryStorage) DeadTasks() []DeadTask {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return slices.Clone(ms.dead)
}

// Stats returns current occupancy counters.
func (ms *MemoryStorage) Stats() Stats {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s := Stats{Completed: ms.completed, Dead: len(ms.dead)}
	for _, task := range ms.tasks {
		switch task.Status {
		case TaskStatusPending:
			s.Pending++
		case TaskStatusProcessing:
			s.Processing++
		}
	}
	return s
}

// processing must be called with mu held.
func (ms *MemoryStorage) processing(taskID uuid.UUID) (*Task, error) {
	task, exists := ms.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if task.Status != TaskStatusProcessing {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotProcessing, taskID)
	}
	return task, nil
}

// lockExpirationManager returns tasks claimed by a worker that never reported
// back to pending once their lock passes.
func (ms *MemoryStorage) lockExpirationManager() {
	for {
		select {
		case <-ms.lockTicker.C:
			ms.expireLocks()
		case <-ms.done:
			return
		}
	}
}

func (ms *MemoryStorage) expireLocks() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for _, task := range ms.tasks {
		if task.Status == TaskStatusProcessing && task.LockedUntil != nil && task.LockedUntil.Before(now) {
			task.Status = TaskStatusPending
			task.LockedUntil = nil
			task.LockedBy = nil
		}
	}
}
