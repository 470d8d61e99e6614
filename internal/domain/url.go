package domain

import (
	"net/url"
	"strings"
)

const (
	// VideoURLTemplate builds a canonical watch URL from a video id.
	VideoURLTemplate = "https://www.youtube.com/watch?v=%s"
	// PlaylistURLTemplate builds a canonical playlist URL from a list id.
	PlaylistURLTemplate = "https://www.youtube.com/playlist?list=%s"
)

// LooksLikeYouTube is the loose check the API applies to submitted URLs.
func LooksLikeYouTube(raw string) bool {
	return strings.Contains(raw, "youtube.com") || strings.Contains(raw, "youtu.be")
}

// ParseYouTubeURL parses raw and reports whether it is hosted on YouTube.
func ParseYouTubeURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil, false
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "youtu.be",
		host == "youtube.com",
		strings.HasSuffix(host, ".youtube.com"):
		return u, true
	}
	return nil, false
}

// PlaylistID returns the list= parameter of a YouTube URL.
func PlaylistID(raw string) string {
	u, ok := ParseYouTubeURL(raw)
	if !ok {
		return ""
	}
	return u.Query().Get("list")
}

// VideoID returns the video id of a watch URL or a youtu.be short link.
func VideoID(raw string) string {
	u, ok := ParseYouTubeURL(raw)
	if !ok {
		return ""
	}
	if strings.EqualFold(u.Hostname(), "youtu.be") {
		return strings.Trim(u.Path, "/")
	}
	if id := u.Query().Get("v"); id != "" {
		return id
	}
	if rest, found := strings.CutPrefix(u.Path, "/shorts/"); found {
		return strings.Trim(rest, "/")
	}
	return ""
}
