package domain

import "context"

// RemoteClient talks to the download server.
type RemoteClient interface {
	// CheckReachable never fails; problems are reported as Reachable=false.
	CheckReachable(ctx context.Context) Reachability
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error)
	PollStatus(ctx context.Context, remoteID string) (*StatusReport, error)
	Cancel(ctx context.Context, remoteID string) (bool, error)
}

// NotificationKind says which lifecycle event a notification reports.
type NotificationKind string

const (
	NotifyStarted   NotificationKind = "started"
	NotifyCompleted NotificationKind = "completed"
	NotifyCancelled NotificationKind = "cancelled"
	NotifyFailed    NotificationKind = "failed"
)

// Notification is a user-facing message about one job.
type Notification struct {
	Kind    NotificationKind
	JobID   string
	JobKind Kind
	Title   string
	Message string
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// PlaylistAnalysis is the server-side view of a playlist.
type PlaylistAnalysis struct {
	ID     string
	Title  string
	Videos []VideoEntry
}

// VideoAnalysis is the server-side view of a single video.
type VideoAnalysis struct {
	ID       string
	Title    string
	Channel  string
	Duration string
}

// Analyzer inspects YouTube URLs on behalf of the serverless API.
type Analyzer interface {
	AnalyzePlaylist(ctx context.Context, url string) (*PlaylistAnalysis, error)
	AnalyzeVideo(ctx context.Context, url string) (*VideoAnalysis, error)
}
