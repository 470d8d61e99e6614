package localserver

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// yt-dlp output markers, as printed with --newline.
var (
	percentLine   = regexp.MustCompile(`^\[download\]\s+([\d.]+)%(?:\s+of\s+~?\s*(\S+))?(?:\s+at\s+(\S+(?:\sB/s)?))?(?:\s+ETA\s+(\S+))?`)
	itemLine      = regexp.MustCompile(`^\[download\]\s+Downloading (?:item|video) (\d+) of (\d+)`)
	destLine      = regexp.MustCompile(`^\[(?:download|Merger|ExtractAudio)\]\s+(?:Destination:|Merging formats into)\s+"?(.+?)"?$`)
	alreadyLine   = regexp.MustCompile(`^\[download\]\s+(.+) has already been downloaded`)
	errorLinePref = "ERROR:"
)

// ProgressEvent is what one output line told us. Zero fields carry nothing.
type ProgressEvent struct {
	Percent    float64
	HasPercent bool
	Speed      string
	ETA        string
	Item       int
	Items      int
	File       string
	Error      string
}

// ParseLine reads one line of yt-dlp output. ok is false for lines that
// carry no progress information.
func ParseLine(line string) (ev ProgressEvent, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return ev, false
	}

	if rest, found := strings.CutPrefix(line, errorLinePref); found {
		ev.Error = strings.TrimSpace(rest)
		return ev, true
	}

	if m := itemLine.FindStringSubmatch(line); m != nil {
		ev.Item, _ = strconv.Atoi(m[1])
		ev.Items, _ = strconv.Atoi(m[2])
		return ev, true
	}

	if m := destLine.FindStringSubmatch(line); m != nil {
		ev.File = filepath.Base(m[1])
		return ev, true
	}

	if m := alreadyLine.FindStringSubmatch(line); m != nil {
		ev.File = filepath.Base(m[1])
		ev.Percent, ev.HasPercent = 100, true
		return ev, true
	}

	if m := percentLine.FindStringSubmatch(line); m != nil {
		p, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return ev, false
		}
		ev.Percent, ev.HasPercent = p, true
		if m[3] != "" && !strings.HasPrefix(m[3], "Unknown") {
			ev.Speed = m[3]
		}
		if m[4] != "" && m[4] != "Unknown" {
			ev.ETA = m[4]
		}
		return ev, true
	}

	return ev, false
}

// progressState folds events into the overall progress of a task. A
// playlist advances by whole items plus the fraction of the current one.
// Overall progress never moves backwards.
type progressState struct {
	item    int
	items   int
	done    int
	overall float64
}

// apply folds ev into the state and reports whether overall changed.
func (s *progressState) apply(ev ProgressEvent) bool {
	if ev.Items > 0 {
		if s.item > 0 && ev.Item > s.item && s.done < ev.Item-1 {
			s.done = ev.Item - 1
		}
		s.item, s.items = ev.Item, ev.Items
	}
	if !ev.HasPercent {
		return false
	}

	var p float64
	switch {
	case s.items <= 1:
		p = ev.Percent
		if p >= 100 {
			s.done = 1
		}
	case ev.Percent >= 100:
		if s.done < s.item {
			s.done = s.item
		}
		p = float64(s.done) / float64(s.items) * 100
	default:
		base := float64(s.item-1) / float64(s.items)
		p = (base + ev.Percent/100/float64(s.items)) * 100
	}

	p = clamp(p)
	if p <= s.overall {
		return false
	}
	s.overall = p
	return true
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
