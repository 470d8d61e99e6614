package localserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want ProgressEvent
		ok   bool
	}{
		{
			name: "percent with speed and eta",
			line: "[download]  45.3% of   10.00MiB at    1.20MiB/s ETA 00:07",
			want: ProgressEvent{Percent: 45.3, HasPercent: true, Speed: "1.20MiB/s", ETA: "00:07"},
			ok:   true,
		},
		{
			name: "estimated size with fragments",
			line: "[download]  12.0% of ~  50.00MiB at  800.00KiB/s ETA 01:02 (frag 3/20)",
			want: ProgressEvent{Percent: 12, HasPercent: true, Speed: "800.00KiB/s", ETA: "01:02"},
			ok:   true,
		},
		{
			name: "unknown speed and eta",
			line: "[download]   0.0% of   10.00MiB at Unknown B/s ETA Unknown",
			want: ProgressEvent{Percent: 0, HasPercent: true},
			ok:   true,
		},
		{
			name: "finished",
			line: "[download] 100% of   10.00MiB in 00:00:08",
			want: ProgressEvent{Percent: 100, HasPercent: true},
			ok:   true,
		},
		{
			name: "playlist item",
			line: "[download] Downloading item 3 of 12",
			want: ProgressEvent{Item: 3, Items: 12},
			ok:   true,
		},
		{
			name: "legacy playlist item",
			line: "[download] Downloading video 1 of 2",
			want: ProgressEvent{Item: 1, Items: 2},
			ok:   true,
		},
		{
			name: "destination",
			line: "[download] Destination: downloads/Mix/001 - Song.mp4",
			want: ProgressEvent{File: "001 - Song.mp4"},
			ok:   true,
		},
		{
			name: "merger",
			line: `[Merger] Merging formats into "downloads/Song.mp4"`,
			want: ProgressEvent{File: "Song.mp4"},
			ok:   true,
		},
		{
			name: "already downloaded",
			line: "[download] downloads/Song.mp4 has already been downloaded",
			want: ProgressEvent{File: "Song.mp4", Percent: 100, HasPercent: true},
			ok:   true,
		},
		{
			name: "error",
			line: "ERROR: [youtube] abc: Video unavailable",
			want: ProgressEvent{Error: "[youtube] abc: Video unavailable"},
			ok:   true,
		},
		{name: "extractor chatter", line: "[youtube] abc: Downloading webpage"},
		{name: "blank", line: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgressState_SingleVideo(t *testing.T) {
	var s progressState

	assert.True(t, s.apply(ProgressEvent{Percent: 40, HasPercent: true}))
	assert.Equal(t, 40.0, s.overall)

	// a second stream restarting at zero does not move progress back
	assert.False(t, s.apply(ProgressEvent{Percent: 5, HasPercent: true}))
	assert.Equal(t, 40.0, s.overall)

	assert.True(t, s.apply(ProgressEvent{Percent: 100, HasPercent: true}))
	assert.Equal(t, 100.0, s.overall)
	assert.Equal(t, 1, s.done)
}

func TestProgressState_Playlist(t *testing.T) {
	var s progressState

	s.apply(ProgressEvent{Item: 1, Items: 4})
	assert.True(t, s.apply(ProgressEvent{Percent: 50, HasPercent: true}))
	assert.InDelta(t, 12.5, s.overall, 0.001)

	s.apply(ProgressEvent{Percent: 100, HasPercent: true})
	assert.InDelta(t, 25, s.overall, 0.001)
	assert.Equal(t, 1, s.done)

	s.apply(ProgressEvent{Item: 2, Items: 4})
	s.apply(ProgressEvent{Percent: 50, HasPercent: true})
	assert.InDelta(t, 37.5, s.overall, 0.001)

	// item 2 failed silently; moving to item 3 still counts it as passed
	s.apply(ProgressEvent{Item: 3, Items: 4})
	assert.Equal(t, 2, s.done)
	assert.Equal(t, 4, s.items)
}
