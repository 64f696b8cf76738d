package queue_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcbuilder/configurator/pkg/queue"
)

func TestNewTaskHandler(t *testing.T) {
	t.Parallel()

	var got testPayload
	h := queue.NewTaskHandler(func(_ context.Context, p testPayload) error {
		got = p
		return nil
	})

	assert.Equal(t, "queue_test.testPayload", h.Name())

	require.NoError(t, h.Handle(t.Context(), json.RawMessage(`{"message":"hi","value":3}`)))
	assert.Equal(t, testPayload{Message: "hi", Value: 3}, got)

	err := h.Handle(t.Context(), json.RawMessage(`{"value":"three"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue_test.testPayload")
}
