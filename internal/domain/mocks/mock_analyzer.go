package mocks

import (
	"context"

	"ytdlpro/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockAnalyzer is a mock implementation of domain.Analyzer
type MockAnalyzer struct {
	mock.Mock
}

// AnalyzePlaylist mocks the AnalyzePlaylist method
func (m *MockAnalyzer) AnalyzePlaylist(ctx context.Context, url string) (*domain.PlaylistAnalysis, error) {
	args := m.Called(ctx, url)
	if res, ok := args.Get(0).(*domain.PlaylistAnalysis); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

// AnalyzeVideo mocks the AnalyzeVideo method
func (m *MockAnalyzer) AnalyzeVideo(ctx context.Context, url string) (*domain.VideoAnalysis, error) {
	args := m.Called(ctx, url)
	if res, ok := args.Get(0).(*domain.VideoAnalysis); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}
