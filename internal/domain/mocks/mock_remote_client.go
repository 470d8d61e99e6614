// Package mocks provides testify mocks for the domain ports.
package mocks

import (
	"context"

	"ytdlpro/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockRemoteClient is a mock implementation of domain.RemoteClient
type MockRemoteClient struct {
	mock.Mock
}

// CheckReachable mocks the CheckReachable method
func (m *MockRemoteClient) CheckReachable(ctx context.Context) domain.Reachability {
	args := m.Called(ctx)
	return args.Get(0).(domain.Reachability)
}

// Analyze mocks the Analyze method
func (m *MockRemoteClient) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalysisResult, error) {
	args := m.Called(ctx, req)
	if res, ok := args.Get(0).(*domain.AnalysisResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

// PollStatus mocks the PollStatus method
func (m *MockRemoteClient) PollStatus(ctx context.Context, remoteID string) (*domain.StatusReport, error) {
	args := m.Called(ctx, remoteID)
	if rep, ok := args.Get(0).(*domain.StatusReport); ok {
		return rep, args.Error(1)
	}
	return nil, args.Error(1)
}

// Cancel mocks the Cancel method
func (m *MockRemoteClient) Cancel(ctx context.Context, remoteID string) (bool, error) {
	args := m.Called(ctx, remoteID)
	return args.Bool(0), args.Error(1)
}
