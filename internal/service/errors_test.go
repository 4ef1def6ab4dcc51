package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestServiceError_Error(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		message  string
		err      error
		expected string
	}{
		{
			name:     "with underlying error",
			op:       "update_status",
			message:  "failed to save task",
			err:      errors.New("database connection failed"),
			expected: "update_status failed: failed to save task: database connection failed",
		},
		{
			name:     "without underlying error",
			op:       "create_task",
			message:  "empty title",
			expected: "create_task failed: empty title",
		},
		{
			name:     "with sentinel error",
			op:       "update_due_date",
			message:  "access denied",
			err:      ErrAccessDenied,
			expected: "update_due_date failed: access denied: insufficient access to task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewServiceError(tt.op, tt.message, tt.err).Error())
		})
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewServiceError("update_status", "task not found", store.ErrTaskNotFound))

	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, errors.Is(err, ErrAccessDenied))

	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "update_status", svcErr.Operation)
}
