package domain

import "fmt"

// Format selectors passed to yt-dlp.
const (
	SelectorAudioSafe = "best[acodec!=none]/best"
	SelectorBest      = "best"
)

// FormatSelector derives the yt-dlp format selector for a request.
// With audioGuarantee any stream carrying audio is preferred; otherwise
// "best" picks the best overall stream and a resolution caps the height,
// both falling back to the best overall stream.
func FormatSelector(audioGuarantee bool, quality string) string {
	if audioGuarantee {
		return SelectorAudioSafe
	}
	if quality == DefaultQuality {
		return SelectorBest
	}
	if h, ok := resolution(quality); ok {
		return fmt.Sprintf("best[height<=%d]/best", h)
	}
	return SelectorBest
}

// CommandHint is the command line shown to the user for manual retrieval.
func CommandHint(selector, url string) string {
	return fmt.Sprintf(`yt-dlp -f "%s" "%s"`, selector, url)
}
