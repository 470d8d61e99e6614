package domain

import (
	"strings"
	"time"
)

// Kind is what a job downloads.
type Kind string

const (
	KindPlaylist Kind = "playlist"
	KindVideo    Kind = "video"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindPlaylist || k == KindVideo
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusStarted     Status = "started"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusFailed      Status = "failed"
	StatusNotFound    Status = "not_found"
)

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed, StatusNotFound:
		return true
	}
	return false
}

// IsActive reports whether the job still occupies the remote side.
func (s Status) IsActive() bool {
	return s == StatusStarted || s == StatusDownloading
}

// ParseStatus maps the status vocabulary of both server flavors onto Status.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "started", "starting", "queued", "pending":
		return StatusStarted, true
	case "downloading", "processing", "in_progress", "running":
		return StatusDownloading, true
	case "completed", "complete", "done", "finished", "analyzed":
		return StatusCompleted, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	case "failed", "error":
		return StatusFailed, true
	case "not_found", "notfound":
		return StatusNotFound, true
	}
	return "", false
}

// JobRecord is one tracked job. Progress stays nil until the first status
// report arrives.
type JobRecord struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	SourceURL string    `json:"sourceUrl"`
	RemoteID  string    `json:"remoteId,omitempty"`
	Title     string    `json:"title,omitempty"`
	Status    Status    `json:"status"`
	Progress  *float64  `json:"progressPercent,omitempty"`
	Speed     string    `json:"speed,omitempty"`
	ETA       string    `json:"eta,omitempty"`
	Error     string    `json:"errorMessage,omitempty"`
	Notify    bool      `json:"notify"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobUpdate is a partial JobRecord; nil fields are left untouched.
type JobUpdate struct {
	RemoteID *string
	Title    *string
	Status   *Status
	Progress *float64
	Speed    *string
	ETA      *string
	Error    *string
	Notify   *bool
}

// Apply merges u into r and bumps UpdatedAt.
func (u JobUpdate) Apply(r *JobRecord, now time.Time) {
	if u.RemoteID != nil {
		r.RemoteID = *u.RemoteID
	}
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.Progress != nil {
		p := clampPercent(*u.Progress)
		r.Progress = &p
	}
	if u.Speed != nil {
		r.Speed = *u.Speed
	}
	if u.ETA != nil {
		r.ETA = *u.ETA
	}
	if u.Error != nil {
		r.Error = *u.Error
	}
	if u.Notify != nil {
		r.Notify = *u.Notify
	}
	r.UpdatedAt = now
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// VideoEntry is one video of a playlist page.
type VideoEntry struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
	URL      string `json:"url"`
}

// PageDescriptor is what the page analyzer extracted from one page.
// IsPlaylist and IsSingleVideo are mutually exclusive.
type PageDescriptor struct {
	URL           string `json:"url"`
	IsPlaylist    bool   `json:"isPlaylist"`
	IsSingleVideo bool   `json:"isSingleVideo"`

	PlaylistID string       `json:"playlistId,omitempty"`
	VideoCount int          `json:"videoCount,omitempty"`
	Videos     []VideoEntry `json:"videos,omitempty"`

	VideoID     string `json:"videoId,omitempty"`
	ChannelName string `json:"channelName,omitempty"`
	Duration    string `json:"duration,omitempty"`

	Title string `json:"title"`
}

// Supports reports whether a job of kind k can start from this page.
func (d PageDescriptor) Supports(k Kind) bool {
	switch k {
	case KindPlaylist:
		return d.IsPlaylist
	case KindVideo:
		return d.IsSingleVideo
	}
	return false
}

// AnalyzeRequest is the body of the analyze call.
type AnalyzeRequest struct {
	Kind           Kind   `json:"-"`
	URL            string `json:"url"`
	Quality        string `json:"quality,omitempty"`
	Format         string `json:"format,omitempty"`
	AudioGuarantee bool   `json:"audioGuarantee"`
}

// AnalysisResult is the data block of a successful analyze call. Cloud and
// local servers fill different subsets.
type AnalysisResult struct {
	DownloadID     string `json:"downloadId"`
	Status         string `json:"status"`
	VideoCount     int    `json:"videoCount,omitempty"`
	Title          string `json:"title,omitempty"`
	Channel        string `json:"channel,omitempty"`
	Duration       string `json:"duration,omitempty"`
	Message        string `json:"message,omitempty"`
	Command        string `json:"command,omitempty"`
	FormatSelector string `json:"formatSelector,omitempty"`
	AudioGuarantee bool   `json:"audioGuarantee"`
	Note           string `json:"note,omitempty"`
}

// StatusReport is what a status poll returns.
type StatusReport struct {
	ID              string  `json:"id"`
	Status          Status  `json:"status"`
	Progress        float64 `json:"progress"`
	Speed           string  `json:"speed,omitempty"`
	ETA             string  `json:"eta,omitempty"`
	CurrentVideo    string  `json:"currentVideo,omitempty"`
	TotalVideos     int     `json:"totalVideos,omitempty"`
	CompletedVideos int     `json:"completedVideos,omitempty"`
	ErrorMessage    string  `json:"errorMessage,omitempty"`
}

// Reachability is the outcome of a reachability probe.
type Reachability struct {
	Reachable bool   `json:"reachable"`
	Detail    string `json:"detail,omitempty"`
}
