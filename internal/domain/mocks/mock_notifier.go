package mocks

import (
	"context"

	"ytdlpro/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of domain.Notifier
type MockNotifier struct {
	mock.Mock
}

// Notify mocks the Notify method
func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) {
	m.Called(ctx, n)
}
