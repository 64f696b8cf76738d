// Package queue runs background tasks with retries.
//
// The package is organised around two components that only meet through
// small repository interfaces:
//
//   - Enqueuer  serializes a payload into a Task and stores it
//   - Worker    claims ready tasks and dispatches them to a Handler
//
// MemoryStorage implements both repositories in process. It is bounded by a
// capacity, reschedules failed tasks with a linear backoff and moves tasks
// that exhausted their attempts to a dead letter list.
//
// # Usage
//
//	storage := queue.NewMemoryStorage(queue.WithCapacity(1024))
//	defer storage.Close()
//
//	enq, _ := queue.NewEnqueuer(storage)
//	w, _ := queue.NewWorker(storage, queue.WithQueues("email"))
//	_ = w.RegisterHandler(queue.NewTaskHandler(func(ctx context.Context, p email.SendEmailParams) error {
//		return transport.SendEmail(ctx, p)
//	}))
//	_ = w.Start(ctx)
//
//	_ = enq.Enqueue(ctx, params, queue.WithQueue("email"), queue.WithMaxAttempts(3))
//
// Tasks are routed to handlers by the qualified type name of their payload,
// so the payload type passed to Enqueue must match the handler's type
// parameter.
//
// # Shutdown
//
// Stop waits for in-flight tasks. Drain then processes whatever is still
// ready, which lets an in-memory queue flush before the process exits:
//
//	_ = w.Stop()
//	_, _ = w.Drain(shutdownCtx)
//
// # Error Handling
//
// Package-level sentinel errors (ErrQueueFull, ErrNoHandlers, ...) can be
// checked with errors.Is.
package queue
