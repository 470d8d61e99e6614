// Package settings persists the user's download settings.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ytdlpro/internal/domain"

	"gopkg.in/yaml.v2"
)

// ErrInvalidSettings is returned when an update carries unusable values.
var ErrInvalidSettings = errors.New("invalid settings")

// Store reads and updates settings. Get always returns a complete object.
type Store interface {
	Get(ctx context.Context) (domain.Settings, error)
	Update(ctx context.Context, patch Patch) (domain.Settings, error)
}

// Patch is a partial settings update; nil fields are left alone.
type Patch struct {
	Quality        *string `json:"quality,omitempty"`
	Format         *string `json:"format,omitempty"`
	AudioGuarantee *bool   `json:"audioGuarantee,omitempty"`
	Notifications  *bool   `json:"notifications,omitempty"`
	ServerURL      *string `json:"serverUrl,omitempty"`
	OutputPath     *string `json:"outputPath,omitempty"`
}

// Apply returns s with the patch applied, or ErrInvalidSettings.
func (p Patch) Apply(s domain.Settings) (domain.Settings, error) {
	if p.Quality != nil {
		if !domain.ValidQuality(*p.Quality) {
			return s, fmt.Errorf("%w: quality %q", ErrInvalidSettings, *p.Quality)
		}
		s.Quality = strings.ToLower(strings.TrimSpace(*p.Quality))
	}
	if p.Format != nil {
		s.Format = strings.TrimSpace(*p.Format)
	}
	if p.AudioGuarantee != nil {
		s.AudioGuarantee = *p.AudioGuarantee
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.ServerURL != nil {
		u := strings.TrimRight(strings.TrimSpace(*p.ServerURL), "/")
		if u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return s, fmt.Errorf("%w: serverUrl %q", ErrInvalidSettings, *p.ServerURL)
		}
		s.ServerURL = u
	}
	if p.OutputPath != nil {
		s.OutputPath = strings.TrimSpace(*p.OutputPath)
	}
	return s.WithDefaults(), nil
}

// MemoryStore keeps settings in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	settings domain.Settings
}

// NewMemoryStore creates a store seeded with initial, defaults filling gaps.
func NewMemoryStore(initial domain.Settings) *MemoryStore {
	return &MemoryStore{settings: initial.WithDefaults()}
}

func (m *MemoryStore) Get(_ context.Context) (domain.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *MemoryStore) Update(_ context.Context, patch Patch) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := patch.Apply(m.settings)
	if err != nil {
		return m.settings, err
	}
	m.settings = next
	return next, nil
}

// FileStore keeps settings in a YAML file. A missing file reads as defaults.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Get(_ context.Context) (domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileStore) Update(_ context.Context, patch Patch) (domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.load()
	if err != nil {
		return current, err
	}
	next, err := patch.Apply(current)
	if err != nil {
		return current, err
	}
	if err := f.save(next); err != nil {
		return current, err
	}
	return next, nil
}

// load reads the file over the defaults so keys absent from the file keep
// their default values.
func (f *FileStore) load() (domain.Settings, error) {
	s := domain.DefaultSettings()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return domain.DefaultSettings(), fmt.Errorf("failed to parse settings file %s: %w", f.path, err)
	}
	return s.WithDefaults(), nil
}

func (f *FileStore) save(s domain.Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings dir: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// New returns a FileStore when path is set and a MemoryStore otherwise.
func New(path string) Store {
	if strings.TrimSpace(path) == "" {
		return NewMemoryStore(domain.DefaultSettings())
	}
	return NewFileStore(path)
}
