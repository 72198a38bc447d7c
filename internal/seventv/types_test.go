package seventv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", PeriodWeekly, false},
		{"weekly", PeriodWeekly, false},
		{"trending_weekly", PeriodWeekly, false},
		{"daily", PeriodDaily, false},
		{"trending_daily", PeriodDaily, false},
		{"monthly", PeriodMonthly, false},
		{"all_time", PeriodAllTime, false},
		{"ALLTIME", PeriodAllTime, false},
		{"popularity", PeriodAllTime, false},
		{"yearly", "", true},
	}

	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestBestFilePrefersWidestWebpOrGif(t *testing.T) {
	e := Emote{Host: EmoteHost{Files: []HostFile{
		{Name: "1x.avif", Format: "AVIF", Width: 32},
		{Name: "2x.webp", Format: "WEBP", Width: 64},
		{Name: "4x.webp", Format: "WEBP", Width: 128},
		{Name: "4x.gif", Format: "GIF", Width: 96},
	}}}

	f, ok := BestFile(e)
	require.True(t, ok)
	assert.Equal(t, "4x.webp", f.Name)
}

func TestBestFileFallsBackToFirst(t *testing.T) {
	e := Emote{Host: EmoteHost{Files: []HostFile{
		{Name: "1x.avif", Format: "AVIF", Width: 32},
	}}}

	f, ok := BestFile(e)
	require.True(t, ok)
	assert.Equal(t, "1x.avif", f.Name)
}

func TestBestFileNoFiles(t *testing.T) {
	_, ok := BestFile(Emote{})
	assert.False(t, ok)
}

func TestFileURLResolvesSchemeRelative(t *testing.T) {
	e := Emote{Host: EmoteHost{URL: "//cdn.7tv.app/emote/abc"}}
	got := FileURL(e, HostFile{Name: "4x.webp"})
	assert.Equal(t, "https://cdn.7tv.app/emote/abc/4x.webp", got)
}

func TestFileURLKeepsAbsolute(t *testing.T) {
	e := Emote{Host: EmoteHost{URL: "https://cdn.example.com/emote/abc/"}}
	got := FileURL(e, HostFile{Name: "2x.gif"})
	assert.Equal(t, "https://cdn.example.com/emote/abc/2x.gif", got)
}
