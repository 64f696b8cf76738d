package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type (
	// Handler executes tasks whose TaskName equals Name.
	Handler interface {
		Name() string
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	// TaskHandlerFunc handles a decoded payload of type T.
	TaskHandlerFunc[T any] func(ctx context.Context, payload T) error
)

// NewTaskHandler adapts fn to Handler. The handler is named after T, the same
// name Enqueue gives a payload of that type.
func NewTaskHandler[T any](fn TaskHandlerFunc[T]) Handler {
	var payload T
	return &taskHandler[T]{
		name:    qualifiedStructName(payload),
		handler: fn,
	}
}

type taskHandler[T any] struct {
	name    string
	handler TaskHandlerFunc[T]
}

func (h *taskHandler[T]) Name() string {
	return h.name
}

func (h *taskHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", h.name, err)
	}
	return h.handler(ctx, t)
}

func qualifiedStructName(v any) string {
	return strings.TrimLeft(fmt.Sprintf("%T", v), "*")
}
