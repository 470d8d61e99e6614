package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ytdlpro/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestPatch_Apply(t *testing.T) {
	base := domain.DefaultSettings()

	tests := []struct {
		name    string
		patch   Patch
		want    func(s domain.Settings) bool
		wantErr bool
	}{
		{
			name:  "empty patch keeps settings",
			patch: Patch{},
			want:  func(s domain.Settings) bool { return s == base },
		},
		{
			name:  "quality normalized",
			patch: Patch{Quality: strPtr(" 720P ")},
			want:  func(s domain.Settings) bool { return s.Quality == "720p" },
		},
		{
			name:    "bad quality rejected",
			patch:   Patch{Quality: strPtr("ultra")},
			wantErr: true,
		},
		{
			name:  "flags toggled",
			patch: Patch{AudioGuarantee: boolPtr(false), Notifications: boolPtr(false)},
			want:  func(s domain.Settings) bool { return !s.AudioGuarantee && !s.Notifications },
		},
		{
			name:  "server url trimmed",
			patch: Patch{ServerURL: strPtr("http://nas:8080/")},
			want:  func(s domain.Settings) bool { return s.ServerURL == "http://nas:8080" },
		},
		{
			name:  "blank server url falls back to default",
			patch: Patch{ServerURL: strPtr("  ")},
			want:  func(s domain.Settings) bool { return s.ServerURL == domain.DefaultServerURL },
		},
		{
			name:    "server url without scheme rejected",
			patch:   Patch{ServerURL: strPtr("nas:8080")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.patch.Apply(base)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSettings)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want(got), "got %+v", got)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(domain.Settings{Quality: "480"})

	s, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "480", s.Quality)
	assert.Equal(t, domain.DefaultFormat, s.Format)

	_, err = store.Update(ctx, Patch{Quality: strPtr("bogus")})
	assert.Error(t, err)

	s, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "480", s.Quality, "failed update leaves settings untouched")
}

func TestFileStore_MissingFileReadsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))

	s, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), s)
}

func TestFileStore_UpdatePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	_, err := NewFileStore(path).Update(ctx, Patch{Quality: strPtr("1080"), Notifications: boolPtr(false)})
	require.NoError(t, err)

	s, err := NewFileStore(path).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1080", s.Quality)
	assert.False(t, s.Notifications)
	assert.True(t, s.AudioGuarantee)
}

func TestFileStore_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quality: \"360\"\n"), 0o644))

	s, err := NewFileStore(path).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "360", s.Quality)
	assert.True(t, s.AudioGuarantee)
	assert.Equal(t, domain.DefaultServerURL, s.ServerURL)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quality: [unterminated"), 0o644))

	_, err := NewFileStore(path).Get(context.Background())
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	assert.IsType(t, &MemoryStore{}, New(""))
	assert.IsType(t, &FileStore{}, New("settings.yaml"))
}
