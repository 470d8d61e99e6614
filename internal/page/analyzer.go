// Package page extracts a PageDescriptor from a YouTube page. Every field is
// read from an ordered list of candidate locations; the first non-empty one
// wins and missing data degrades to defaults. Nothing in this package fails.
package page

import (
	"fmt"
	"io"
	"strings"

	"ytdlpro/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// Field defaults.
const (
	UnknownVideo    = "Unknown Video"
	UnknownPlaylist = "Unknown Playlist"
)

const youtubeOrigin = "https://www.youtube.com"

var (
	videoTitle = []extractor{
		text("h1.ytd-watch-metadata yt-formatted-string"),
		text("#title h1 yt-formatted-string"),
		text("h1.title"),
		attr(`meta[property="og:title"]`, "content"),
		attr(`meta[name="title"]`, "content"),
		mapped(text("title"), stripSiteSuffix),
	}

	channelName = []extractor{
		text("ytd-video-owner-renderer ytd-channel-name a"),
		text("#owner-name a"),
		text("#channel-name a"),
		attr(`span[itemprop="author"] link[itemprop="name"]`, "content"),
		attr(`link[itemprop="name"]`, "content"),
	}

	videoDuration = []extractor{
		text(".ytp-time-duration"),
		mapped(attr(`meta[itemprop="duration"]`, "content"), clockDuration),
	}

	playlistTitle = []extractor{
		text("ytd-playlist-header-renderer .title"),
		text("h1#title yt-formatted-string"),
		text("yt-dynamic-sizing-formatted-string yt-formatted-string"),
		attr(`meta[property="og:title"]`, "content"),
		mapped(text("title"), stripSiteSuffix),
	}

	playlistStats = []extractor{
		text("ytd-playlist-byline-renderer yt-formatted-string"),
		text("#stats yt-formatted-string"),
		text(".metadata-stats yt-formatted-string"),
	}

	// playlist rows: the playlist page itself, then the side panel of a watch page
	playlistRows = []string{
		"ytd-playlist-video-renderer",
		"ytd-playlist-panel-video-renderer",
	}

	rowTitle = []extractor{
		text("#video-title"),
		attr("#video-title", "title"),
	}

	rowHref = []extractor{
		attr("a#video-title", "href"),
		attr("a#thumbnail", "href"),
		attr("a#wc-endpoint", "href"),
		attr("a", "href"),
	}

	rowDuration = []extractor{
		text("ytd-thumbnail-overlay-time-status-renderer #text"),
		text("span.ytd-thumbnail-overlay-time-status-renderer"),
		text(".badge-shape-wiz__text"),
	}
)

// Classify applies the URL rule: a list parameter makes a playlist, a video
// id without one makes a single video, anything else is neither.
func Classify(pageURL string) (isPlaylist, isSingleVideo bool) {
	if domain.PlaylistID(pageURL) != "" {
		return true, false
	}
	if domain.VideoID(pageURL) != "" {
		return false, true
	}
	return false, false
}

// Analyze parses html and describes the page at pageURL. A nil or
// unreadable html yields a descriptor with defaults.
func Analyze(pageURL string, html io.Reader) domain.PageDescriptor {
	if html == nil {
		html = strings.NewReader("")
	}
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return AnalyzeDocument(pageURL, doc)
}

// AnalyzeDocument describes an already parsed page.
func AnalyzeDocument(pageURL string, doc *goquery.Document) domain.PageDescriptor {
	isPlaylist, isSingleVideo := Classify(pageURL)

	d := domain.PageDescriptor{
		URL:           pageURL,
		IsPlaylist:    isPlaylist,
		IsSingleVideo: isSingleVideo,
	}

	root := doc.Selection

	switch {
	case isPlaylist:
		d.PlaylistID = domain.PlaylistID(pageURL)
		d.Title = orDefault(firstOf(root, playlistTitle...), UnknownPlaylist)
		d.Videos = playlistVideos(root)
		d.VideoCount = len(d.Videos)
		if d.VideoCount == 0 {
			d.VideoCount = countFrom(firstOf(root, playlistStats...))
		}

	case isSingleVideo:
		d.VideoID = domain.VideoID(pageURL)
		d.Title = orDefault(firstOf(root, videoTitle...), UnknownVideo)
		d.ChannelName = firstOf(root, channelName...)
		d.Duration = firstOf(root, videoDuration...)
	}

	return d
}

// playlistVideos reads the rows of the first row layout present on the page.
func playlistVideos(root *goquery.Selection) []domain.VideoEntry {
	for _, rowSel := range playlistRows {
		rows := root.Find(rowSel)
		if rows.Length() == 0 {
			continue
		}

		videos := make([]domain.VideoEntry, 0, rows.Length())
		rows.Each(func(_ int, row *goquery.Selection) {
			href := firstOf(row, rowHref...)
			id := domain.VideoID(absolute(href))
			if id == "" {
				return
			}
			videos = append(videos, domain.VideoEntry{
				Index:    len(videos) + 1,
				ID:       id,
				Title:    orDefault(firstOf(row, rowTitle...), UnknownVideo),
				Duration: firstOf(row, rowDuration...),
				URL:      fmt.Sprintf(domain.VideoURLTemplate, id),
			})
		})
		return videos
	}
	return nil
}

func absolute(href string) string {
	if strings.HasPrefix(href, "/") {
		return youtubeOrigin + href
	}
	return href
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
