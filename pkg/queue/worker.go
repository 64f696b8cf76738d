package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pcbuilder/configurator/pkg/logger"
)

// WorkerRepository defines the interface for worker operations
type WorkerRepository interface {
	// ClaimTask atomically claims the next ready task or returns
	// ErrNoTaskToClaim.
	ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error)

	// CompleteTask marks a claimed task as done.
	CompleteTask(ctx context.Context, taskID uuid.UUID) error

	// FailTask records the error and counts the attempt.
	FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error

	// MoveToDLQ removes the task from the queue and keeps it for inspection.
	MoveToDLQ(ctx context.Context, taskID uuid.UUID) error
}

// Worker processes tasks from the queue
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	queues   []string
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopMu   sync.Mutex // guards stopping and wg.Add

	pullInterval time.Duration
	lockTimeout  time.Duration
	logger       *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*Worker)

// WithQueues sets which queues the worker should pull from
func WithQueues(queues ...string) WorkerOption {
	return func(w *Worker) {
		if len(queues) > 0 {
			w.queues = queues
		}
	}
}

// WithPullInterval sets how often the worker checks for new tasks
func WithPullInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pullInterval = d
		}
	}
}

// WithLockTimeout sets the lock duration for tasks. It also bounds a single
// handler execution.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.lockTimeout = d
		}
	}
}

// WithMaxConcurrentTasks sets the maximum number of concurrent tasks
func WithMaxConcurrentTasks(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.sem = make(chan struct{}, n)
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorker creates a new task worker
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	w := &Worker{
		repo:         repo,
		handlers:     make(map[string]Handler),
		queues:       []string{DefaultQueueName},
		workerID:     uuid.New(),
		sem:          make(chan struct{}, 1),
		pullInterval: time.Second,
		lockTimeout:  time.Minute,
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.Component("queue"), slog.String("worker_id", w.workerID.String()))
	return w, nil
}

// RegisterHandler registers a task handler. A handler with the same name
// replaces the previous one.
func (w *Worker) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers[handler.Name()] = handler
	return nil
}

// Start begins processing tasks in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return ErrWorkerStarted
	}
	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)
	go w.run()

	w.logger.Info("worker started",
		slog.Any("queues", w.queues),
		slog.Int("max_concurrent", cap(w.sem)))
	return nil
}

// Stop stops pulling and waits for in-flight tasks to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()

	w.logger.Info("worker stopped")
	return nil
}

// Drain processes ready tasks on the calling goroutine until none are left
// or ctx ends. It returns the number of tasks handled. Tasks waiting on a
// retry backoff are not ready and stay queued.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		claimed, err := w.pullAndProcess(ctx)
		if err != nil && !errors.Is(err, ErrHandlerNotFound) {
			return n, err
		}
		if !claimed {
			return n, nil
		}
		n++
	}
}

// run is the main processing loop
func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()
					w.pullUntilEmpty()
				}()
			default:
				w.logger.Debug("all worker slots busy, skipping tick")
			}
		}
	}
}

// pullUntilEmpty keeps a slot busy while tasks are ready, so a burst is not
// throttled to one task per tick.
func (w *Worker) pullUntilEmpty() {
	for w.ctx.Err() == nil {
		claimed, err := w.pullAndProcess(w.ctx)
		if err != nil && !errors.Is(err, ErrHandlerNotFound) {
			w.logger.Error("failed to process task", logger.Error(err))
		}
		if !claimed {
			return
		}
	}
}

// pullAndProcess claims one task and processes it. claimed is false when
// nothing was ready.
func (w *Worker) pullAndProcess(ctx context.Context) (claimed bool, err error) {
	task, err := w.repo.ClaimTask(ctx, w.workerID, w.queues, w.lockTimeout)
	if errors.Is(err, ErrNoTaskToClaim) || (err == nil && task == nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim task: %w", err)
	}

	w.logger.Debug("claimed task",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.String("queue", task.Queue))

	// Repository updates must land even when the worker is stopping.
	return true, w.processTask(context.WithoutCancel(ctx), task)
}

// processTask executes a task with its handler
func (w *Worker) processTask(ctx context.Context, task *Task) (retErr error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("handler panicked",
				slog.String("task_id", task.ID.String()),
				slog.String("task_name", task.TaskName),
				slog.Any("panic", r))
			retErr = errors.Join(retErr, w.handleTaskFailure(ctx, task, retErr, time.Since(start)))
		}
	}()

	w.mu.RLock()
	handler, ok := w.handlers[task.TaskName]
	w.mu.RUnlock()
	if !ok {
		return w.handleMissingHandler(ctx, task)
	}

	execCtx, cancel := context.WithTimeout(ctx, w.lockTimeout)
	defer cancel()

	if err := handler.Handle(execCtx, task.Payload); err != nil {
		return w.handleTaskFailure(ctx, task, err, time.Since(start))
	}
	return w.handleTaskSuccess(ctx, task, time.Since(start))
}

// handleMissingHandler moves the task straight to the dead letter list;
// retrying cannot help until a handler is deployed.
func (w *Worker) handleMissingHandler(ctx context.Context, task *Task) error {
	w.logger.Error("no handler registered for task type",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName))

	if err := w.repo.FailTask(ctx, task.ID, "no handler registered for task type: "+task.TaskName); err != nil {
		return fmt.Errorf("failed to mark task %s as failed: %w", task.ID, err)
	}
	if err := w.repo.MoveToDLQ(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to move task %s to DLQ: %w", task.ID, err)
	}
	return ErrHandlerNotFound
}

func (w *Worker) handleTaskFailure(ctx context.Context, task *Task, execErr error, duration time.Duration) error {
	w.logger.Warn("task failed",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		logger.Attempt(task.Attempts+1),
		slog.Int("max_attempts", task.MaxAttempts),
		logger.Duration(duration),
		logger.Error(execErr))

	if err := w.repo.FailTask(ctx, task.ID, execErr.Error()); err != nil {
		return fmt.Errorf("failed to update task %s status to failed: %w", task.ID, err)
	}
	if !task.exhausted() {
		return nil
	}

	if err := w.repo.MoveToDLQ(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to move task %s to DLQ after max attempts: %w", task.ID, err)
	}
	w.logger.Error("task moved to dead letter queue",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		logger.Error(execErr))
	return nil
}

func (w *Worker) handleTaskSuccess(ctx context.Context, task *Task, duration time.Duration) error {
	if err := w.repo.CompleteTask(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to mark task %s as completed: %w", task.ID, err)
	}

	w.logger.Debug("task completed",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.String("queue", task.Queue),
		logger.Duration(duration))
	return nil
}
