package seventv

import (
	"fmt"
	"strings"
)

// Emote is the upstream emote record as returned by the 7TV v3 GraphQL API.
type Emote struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Animated bool      `json:"animated"`
	Host     EmoteHost `json:"host"`
}

// EmoteHost describes where an emote's image files live. URL is typically
// scheme-relative ("//cdn.7tv.app/emote/<id>").
type EmoteHost struct {
	URL   string     `json:"url"`
	Files []HostFile `json:"files"`
}

// HostFile is a single renderable file for an emote.
type HostFile struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Period selects the ranking window for trending queries. The values are the
// sort keys the 7TV API understands.
type Period string

const (
	PeriodDaily   Period = "trending_daily"
	PeriodWeekly  Period = "trending_weekly"
	PeriodMonthly Period = "trending_monthly"
	PeriodAllTime Period = "popularity"
)

// ParsePeriod accepts both the short public names (daily, weekly, monthly,
// all_time) and the raw 7TV sort keys. An empty value means weekly.
func ParsePeriod(v string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "weekly", string(PeriodWeekly):
		return PeriodWeekly, nil
	case "daily", string(PeriodDaily):
		return PeriodDaily, nil
	case "monthly", string(PeriodMonthly):
		return PeriodMonthly, nil
	case "all_time", "alltime", string(PeriodAllTime):
		return PeriodAllTime, nil
	default:
		return "", fmt.Errorf("unknown trending period %q", v)
	}
}

// BestFile picks the file to mirror: the widest WEBP or GIF, falling back to
// the first file the host offers. ok is false when the emote has no files.
func BestFile(e Emote) (HostFile, bool) {
	var best HostFile
	found := false
	for _, f := range e.Host.Files {
		if f.Format != "WEBP" && f.Format != "GIF" {
			continue
		}
		if !found || f.Width > best.Width {
			best = f
			found = true
		}
	}
	if !found {
		if len(e.Host.Files) == 0 {
			return HostFile{}, false
		}
		best = e.Host.Files[0]
	}
	return best, true
}

// FileURL resolves the absolute download URL for a host file.
func FileURL(e Emote, f HostFile) string {
	base := e.Host.URL
	if strings.HasPrefix(base, "//") {
		base = "https:" + base
	}
	return strings.TrimRight(base, "/") + "/" + f.Name
}
