package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockMetrics is a mock implementation of the Metrics interface
type MockMetrics struct {
	mock.Mock
}

// RecordSuccess mocks the RecordSuccess method
func (m *MockMetrics) RecordSuccess(operation string) {
	m.Called(operation)
}

// RecordError mocks the RecordError method
func (m *MockMetrics) RecordError(operation string, errorType string) {
	m.Called(operation, errorType)
}

// RecordDuration mocks the RecordDuration method
func (m *MockMetrics) RecordDuration(operation string, duration float64) {
	m.Called(operation, duration)
}

// RecordVideoCount mocks the RecordVideoCount method
func (m *MockMetrics) RecordVideoCount(kind string, count int) {
	m.Called(kind, count)
}

// StartOperation mocks the StartOperation method
func (m *MockMetrics) StartOperation(operation string) {
	m.Called(operation)
}

// EndOperation mocks the EndOperation method
func (m *MockMetrics) EndOperation(operation string) {
	m.Called(operation)
}

// NewQuietMetrics returns a MockMetrics that accepts every call.
func NewQuietMetrics() *MockMetrics {
	m := &MockMetrics{}
	m.On("RecordSuccess", mock.Anything).Maybe()
	m.On("RecordError", mock.Anything, mock.Anything).Maybe()
	m.On("RecordDuration", mock.Anything, mock.Anything).Maybe()
	m.On("RecordVideoCount", mock.Anything, mock.Anything).Maybe()
	m.On("StartOperation", mock.Anything).Maybe()
	m.On("EndOperation", mock.Anything).Maybe()
	return m
}
