package queue

import "errors"

var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrQueueFull is returned when storage has no room for another task
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is returned when storage no longer accepts tasks
	ErrQueueClosed = errors.New("queue is closed")

	// ErrNoTaskToClaim is returned by ClaimTask when nothing is ready
	ErrNoTaskToClaim = errors.New("no task to claim")

	// ErrTaskNotFound is returned when a task id is unknown to storage
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotProcessing is returned when completing or failing a task
	// that is not claimed
	ErrTaskNotProcessing = errors.New("task is not in processing state")

	// ErrHandlerNotFound is returned when no handler is registered for a task
	ErrHandlerNotFound = errors.New("no handler registered for task type")

	// ErrNoHandlers is returned when worker has no handlers registered
	ErrNoHandlers = errors.New("no task handlers registered")

	// ErrWorkerStarted is returned by Start on a running worker
	ErrWorkerStarted = errors.New("worker already started")

	// ErrWorkerNotStarted is returned by Stop on an idle worker
	ErrWorkerNotStarted = errors.New("worker not started")
)
