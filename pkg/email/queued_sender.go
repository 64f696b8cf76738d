package email

import (
	"context"
	"fmt"

	"github.com/pcbuilder/configurator/pkg/queue"
)

// QueueName is the queue mail tasks are routed to.
const QueueName = "email"

// Enqueuer stores a payload for background processing. *queue.Enqueuer
// satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error
}

// QueuedSender is an EmailSender that validates messages and enqueues them on
// QueueName. A worker running DeliveryHandler hands them to the transport, so
// callers never wait on it. SendEmail only fails when the message is invalid
// or cannot be queued.
type QueuedSender struct {
	enqueuer Enqueuer
	opts     []queue.EnqueueOption
}

// NewQueuedSender returns a QueuedSender. opts are applied to every enqueued
// message after routing it to QueueName.
func NewQueuedSender(enqueuer Enqueuer, opts ...queue.EnqueueOption) *QueuedSender {
	return &QueuedSender{
		enqueuer: enqueuer,
		opts:     append([]queue.EnqueueOption{queue.WithQueue(QueueName)}, opts...),
	}
}

// SendEmail implements EmailSender.
func (s *QueuedSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := s.enqueuer.Enqueue(ctx, params, s.opts...); err != nil {
		return fmt.Errorf("failed to queue email: %w", err)
	}
	return nil
}

// DeliveryHandler returns the queue handler that sends queued messages
// through transport.
func DeliveryHandler(transport EmailSender) queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, params SendEmailParams) error {
		return transport.SendEmail(ctx, params)
	})
}
