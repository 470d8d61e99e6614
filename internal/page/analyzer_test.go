package page

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playlistPage = `<html><head>
<title>Road Trip Mix - YouTube</title>
<meta property="og:title" content="Road Trip Mix">
</head><body>
<ytd-playlist-header-renderer><h1 class="title">  Road   Trip Mix </h1></ytd-playlist-header-renderer>
<ytd-playlist-byline-renderer><yt-formatted-string>3 videos</yt-formatted-string></ytd-playlist-byline-renderer>
<ytd-playlist-video-renderer>
  <a id="thumbnail" href="/watch?v=aaa111&list=PL123&index=1"></a>
  <a id="video-title" href="/watch?v=aaa111&list=PL123&index=1" title="First">First</a>
  <ytd-thumbnail-overlay-time-status-renderer><span id="text"> 3:21 </span></ytd-thumbnail-overlay-time-status-renderer>
</ytd-playlist-video-renderer>
<ytd-playlist-video-renderer>
  <a id="video-title" href="/watch?v=bbb222&list=PL123&index=2" title="Second"></a>
</ytd-playlist-video-renderer>
<ytd-playlist-video-renderer>
  <span>deleted video</span>
</ytd-playlist-video-renderer>
</body></html>`

const videoPage = `<html><head>
<title>Never Gonna - YouTube</title>
<meta itemprop="duration" content="PT3M33S">
<span itemprop="author"><link itemprop="name" content="Rick Astley"></span>
</head><body></body></html>`

func TestClassify(t *testing.T) {
	tests := []struct {
		url         string
		playlist    bool
		singleVideo bool
	}{
		{"https://youtube.com/playlist?list=PL123", true, false},
		{"https://www.youtube.com/watch?v=abc&list=PL123", true, false},
		{"https://www.youtube.com/watch?v=abc", false, true},
		{"https://youtu.be/abc", false, true},
		{"https://www.youtube.com/", false, false},
		{"https://example.com/", false, false},
		{"https://example.com/watch?v=abc", false, false},
		{"not a url", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			p, v := Classify(tt.url)
			assert.Equal(t, tt.playlist, p)
			assert.Equal(t, tt.singleVideo, v)
		})
	}
}

func TestAnalyze_Playlist(t *testing.T) {
	d := Analyze("https://youtube.com/playlist?list=PL123", strings.NewReader(playlistPage))

	assert.True(t, d.IsPlaylist)
	assert.False(t, d.IsSingleVideo)
	assert.Equal(t, "PL123", d.PlaylistID)
	assert.Equal(t, "Road Trip Mix", d.Title)
	require.Len(t, d.Videos, 2)
	assert.Equal(t, 2, d.VideoCount)

	assert.Equal(t, 1, d.Videos[0].Index)
	assert.Equal(t, "aaa111", d.Videos[0].ID)
	assert.Equal(t, "First", d.Videos[0].Title)
	assert.Equal(t, "3:21", d.Videos[0].Duration)
	assert.Equal(t, "https://www.youtube.com/watch?v=aaa111", d.Videos[0].URL)

	assert.Equal(t, 2, d.Videos[1].Index)
	assert.Equal(t, "Second", d.Videos[1].Title)
	assert.Empty(t, d.Videos[1].Duration)
}

func TestAnalyze_PlaylistCountFallsBackToStats(t *testing.T) {
	html := `<div id="stats"><yt-formatted-string>1,204 videos</yt-formatted-string></div>`

	d := Analyze("https://youtube.com/playlist?list=PLbig", strings.NewReader(html))

	assert.Equal(t, 1204, d.VideoCount)
	assert.Empty(t, d.Videos)
	assert.Equal(t, UnknownPlaylist, d.Title)
}

func TestAnalyze_SingleVideoFallbacks(t *testing.T) {
	d := Analyze("https://www.youtube.com/watch?v=dQw4", strings.NewReader(videoPage))

	assert.True(t, d.IsSingleVideo)
	assert.Equal(t, "dQw4", d.VideoID)
	assert.Equal(t, "Never Gonna", d.Title)
	assert.Equal(t, "Rick Astley", d.ChannelName)
	assert.Equal(t, "3:33", d.Duration)
}

func TestAnalyze_PrefersEarlierStrategies(t *testing.T) {
	html := `<title>Doc Title - YouTube</title>
<h1 class="title">Rendered Title</h1>
<div id="owner-name"><a>Owner</a></div>
<span class="ytp-time-duration">10:01</span>
<meta itemprop="duration" content="PT1H">`

	d := Analyze("https://youtu.be/xyz", strings.NewReader(html))

	assert.Equal(t, "Rendered Title", d.Title)
	assert.Equal(t, "Owner", d.ChannelName)
	assert.Equal(t, "10:01", d.Duration)
}

func TestAnalyze_DegradesToDefaults(t *testing.T) {
	video := Analyze("https://youtu.be/xyz", nil)
	assert.Equal(t, UnknownVideo, video.Title)
	assert.Empty(t, video.ChannelName)
	assert.Empty(t, video.Duration)

	other := Analyze("https://example.com/", strings.NewReader(playlistPage))
	assert.False(t, other.IsPlaylist)
	assert.False(t, other.IsSingleVideo)
	assert.Empty(t, other.Title)
	assert.Empty(t, other.Videos)
}

func TestClockDuration(t *testing.T) {
	tests := map[string]string{
		"PT4M13S":  "4:13",
		"PT1H2M3S": "1:02:03",
		"PT45S":    "0:45",
		"P1DT1H":   "25:00:00",
		"3:21":     "3:21",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, clockDuration(in))
		})
	}
}
