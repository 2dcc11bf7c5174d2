package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// FoldString returns the case-folded form of s, used for case-insensitive
// comparisons of titles and statuses.
func FoldString(s string) string {
	return fold.String(s)
}

var draftMarkers = []string{"brouillon", "draft"}

// IsDraftStatus reports whether a status text marks an event as a draft.
func IsDraftStatus(status string) bool {
	folded := strings.TrimSpace(FoldString(status))
	if folded == "" {
		return false
	}
	for _, m := range draftMarkers {
		if strings.Contains(folded, m) {
			return true
		}
	}
	return false
}

var occurrenceLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseOccurrenceTime resolves an occurrence key or summary date to a timestamp.
// Keys are opaque, so a key that matches no known layout is simply unresolvable.
func ParseOccurrenceTime(key string) (time.Time, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return time.Time{}, false
	}
	for _, layout := range occurrenceLayouts {
		if t, err := time.ParseInLocation(layout, key, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

const dateOnlyLayout = "2006-01-02"

// OccurrenceDeadline is the last instant an occurrence is not yet over: its
// timestamp, or the end of its day when the key carries no time of day.
func OccurrenceDeadline(key string) (time.Time, bool) {
	t, ok := ParseOccurrenceTime(key)
	if !ok {
		return t, false
	}
	if _, err := time.ParseInLocation(dateOnlyLayout, strings.TrimSpace(key), time.Local); err == nil {
		return t.AddDate(0, 0, 1).Add(-time.Nanosecond), true
	}
	return t, true
}
