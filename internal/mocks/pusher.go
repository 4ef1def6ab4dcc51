package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPusher is a testify mock of the live push channel
type MockPusher struct {
	mock.Mock
}

// Push records the call and returns the configured error
func (m *MockPusher) Push(ctx context.Context, username, topic string, payload any) error {
	args := m.Called(ctx, username, topic, payload)
	return args.Error(0)
}
