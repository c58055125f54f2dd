package history

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

const previewLen = 50

// CodePreview returns the first 50 characters of the trimmed code, with an
// ellipsis when the code is longer.
func CodePreview(code string) string {
	trimmed := strings.TrimSpace(code)
	preview := trimmed
	if utf8.RuneCountInString(trimmed) > previewLen {
		preview = string([]rune(trimmed)[:previewLen])
	}
	if utf8.RuneCountInString(code) > previewLen {
		return preview + "..."
	}
	return preview
}

// FormatTimestamp renders an epoch-millisecond timestamp relative to now:
// "Just now", then minutes, hours and days ago, then a plain date after a week.
func FormatTimestamp(ts int64, now time.Time) string {
	t := time.UnixMilli(ts)
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < 7*24*time.Hour:
		return humanize.RelTime(t, now, "ago", "from now")
	default:
		return t.Format("2006-01-02")
	}
}
