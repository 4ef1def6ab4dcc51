package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"generic", ErrNotFound, true},
		{"task", ErrTaskNotFound, true},
		{"notification", ErrNotificationNotFound, true},
		{"wrapped", fmt.Errorf("lookup: %w", ErrAchievementNotFound), true},
		{"duplicate", ErrDuplicate, false},
		{"nil", nil, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFoundError(tt.err))
		})
	}
}

func TestEntityErrorsWrapBase(t *testing.T) {
	assert.ErrorIs(t, ErrAchievementKeyExists, ErrDuplicate)
	assert.ErrorIs(t, ErrUserNotFound, ErrNotFound)
	assert.NotErrorIs(t, ErrTaskNotFound, ErrDuplicate)
}
