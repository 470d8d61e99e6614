// Package mocks provides testify mocks for the observability contracts.
package mocks

import (
	"context"

	"ytdlpro/observability"
	"ytdlpro/observability/types"

	"github.com/stretchr/testify/mock"
)

// MockLogger is a mock implementation of the Logger interface
type MockLogger struct {
	mock.Mock
}

// Info mocks the Info method
func (m *MockLogger) Info(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

// Error mocks the Error method
func (m *MockLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	m.Called(ctx, msg, err, fields)
}

// Warn mocks the Warn method
func (m *MockLogger) Warn(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

// Debug mocks the Debug method
func (m *MockLogger) Debug(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

// WithFields mocks the WithFields method. Without a configured return value
// the mock itself is returned so expectations keep applying to the child.
func (m *MockLogger) WithFields(fields types.Fields) observability.Logger {
	args := m.Called(fields)
	if logger, ok := args.Get(0).(observability.Logger); ok {
		return logger
	}
	return m
}

// NewQuietLogger returns a MockLogger that accepts every call.
func NewQuietLogger() *MockLogger {
	l := &MockLogger{}
	l.On("Info", mock.Anything, mock.Anything, mock.Anything).Maybe()
	l.On("Error", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	l.On("Warn", mock.Anything, mock.Anything, mock.Anything).Maybe()
	l.On("Debug", mock.Anything, mock.Anything, mock.Anything).Maybe()
	l.On("WithFields", mock.Anything).Return(l).Maybe()
	return l
}
