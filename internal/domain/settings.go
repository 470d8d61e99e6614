package domain

import (
	"strconv"
	"strings"
)

// Settings is the user's download configuration.
type Settings struct {
	Quality        string `json:"quality" yaml:"quality"`
	Format         string `json:"format" yaml:"format"`
	AudioGuarantee bool   `json:"audioGuarantee" yaml:"audioGuarantee"`
	Notifications  bool   `json:"notifications" yaml:"notifications"`
	ServerURL      string `json:"serverUrl" yaml:"serverUrl"`
	OutputPath     string `json:"outputPath" yaml:"outputPath"`
}

// Default settings values.
const (
	DefaultQuality    = "best"
	DefaultFormat     = "mp4"
	DefaultServerURL  = "http://localhost:8080"
	DefaultOutputPath = "downloads"
)

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		Quality:        DefaultQuality,
		Format:         DefaultFormat,
		AudioGuarantee: true,
		Notifications:  true,
		ServerURL:      DefaultServerURL,
		OutputPath:     DefaultOutputPath,
	}
}

// WithDefaults fills empty string fields from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if strings.TrimSpace(s.Quality) == "" {
		s.Quality = d.Quality
	}
	if strings.TrimSpace(s.Format) == "" {
		s.Format = d.Format
	}
	if strings.TrimSpace(s.ServerURL) == "" {
		s.ServerURL = d.ServerURL
	}
	if strings.TrimSpace(s.OutputPath) == "" {
		s.OutputPath = d.OutputPath
	}
	return s
}

// ValidQuality accepts "best" or a vertical resolution such as "720" or "720p".
func ValidQuality(q string) bool {
	if strings.EqualFold(q, DefaultQuality) {
		return true
	}
	_, ok := resolution(q)
	return ok
}

func resolution(q string) (int, bool) {
	q = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(q)), "p")
	if q == "" {
		return 0, false
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
