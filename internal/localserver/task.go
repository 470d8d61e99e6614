package localserver

import (
	"time"

	"ytdlpro/internal/domain"
)

// TaskStatus is the lifecycle state of a local download task.
type TaskStatus string

const (
	TaskPending     TaskStatus = "pending"
	TaskDownloading TaskStatus = "downloading"
	TaskCompleted   TaskStatus = "completed"
	TaskFailed      TaskStatus = "failed"
	TaskCancelled   TaskStatus = "cancelled"
)

// IsActive reports whether the task is queued or running.
func (s TaskStatus) IsActive() bool {
	return s == TaskPending || s == TaskDownloading
}

// IsFinished reports whether the task reached a final state.
func (s TaskStatus) IsFinished() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Task is a snapshot of one download task.
type Task struct {
	ID              string      `json:"id"`
	Kind            domain.Kind `json:"type"`
	URL             string      `json:"url"`
	Status          TaskStatus  `json:"status"`
	Progress        float64     `json:"progress"`
	TotalVideos     int         `json:"totalVideos"`
	CompletedVideos int         `json:"completedVideos"`
	CurrentVideo    string      `json:"currentVideo"`
	Speed           string      `json:"speed"`
	ETA             string      `json:"eta"`
	ErrorMessage    string      `json:"errorMessage"`
	FormatSelector  string      `json:"formatSelector"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Summary counts tasks by state.
type Summary struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Pending     int `json:"pending"`
	Downloading int `json:"downloading"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
	Cancelled   int `json:"cancelled"`
}

// Summarize counts tasks.
func Summarize(tasks []Task) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Status.IsActive() {
			s.Active++
		}
		switch t.Status {
		case TaskPending:
			s.Pending++
		case TaskDownloading:
			s.Downloading++
		case TaskCompleted:
			s.Completed++
		case TaskFailed:
			s.Failed++
		case TaskCancelled:
			s.Cancelled++
		}
	}
	return s
}
