package analysis

import (
	"context"
	"fmt"

	"ytdlpro/internal/domain"

	"github.com/ytget/ytdlp/v2"
)

// PlaylistLister enumerates the videos of a playlist.
type PlaylistLister interface {
	ListPlaylist(ctx context.Context, playlistID string) ([]domain.VideoEntry, error)
}

// YTDLPLister lists playlists through the ytdlp library.
type YTDLPLister struct{}

// ListPlaylist implements PlaylistLister.
func (YTDLPLister) ListPlaylist(ctx context.Context, playlistID string) ([]domain.VideoEntry, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	videos := make([]domain.VideoEntry, 0, len(items))
	for i, it := range items {
		videos = append(videos, domain.VideoEntry{
			Index: i + 1,
			ID:    it.VideoID,
			Title: it.Title,
			URL:   fmt.Sprintf(domain.VideoURLTemplate, it.VideoID),
		})
	}
	return videos, nil
}
