// Package projection derives what the dashboard shows from the cache and the
// current selection. Every function here is pure.
package projection

import (
	"sort"
	"strings"
	"time"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// EventOptions merges full events and summaries into one list deduplicated by
// id. Full events win; summary fields only fill in events that are not loaded.
func EventOptions(events []*domain.Event, summaries []domain.EventSummary, now time.Time) []domain.EventOption {
	out := make([]domain.EventOption, 0, len(events)+len(summaries))
	seen := make(map[int]struct{}, len(events)+len(summaries))
	for _, ev := range events {
		if ev == nil || ev.ID <= 0 {
			continue
		}
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		out = append(out, optionFromEvent(ev, summaryFor(summaries, ev.ID), now))
	}
	for _, s := range summaries {
		if s.ID <= 0 {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, optionFromSummary(s, now))
	}
	return out
}

func summaryFor(summaries []domain.EventSummary, id int) *domain.EventSummary {
	for i := range summaries {
		if summaries[i].ID == id {
			return &summaries[i]
		}
	}
	return nil
}

func optionFromEvent(ev *domain.Event, sum *domain.EventSummary, now time.Time) domain.EventOption {
	opt := domain.EventOption{
		ID:        ev.ID,
		Title:     ev.Title,
		DateLabel: ev.DateLabel,
		Assigned:  ev.IsAssigned,
		IsDraft:   ev.IsDraft(),
		Loaded:    true,
	}
	if sum != nil {
		if opt.Title == "" {
			opt.Title = sum.Title
		}
		if opt.DateLabel == "" {
			opt.DateLabel = sum.DateLabel
		}
		if ev.StatusValue == "" {
			opt.IsDraft = sum.IsDraft
		}
	}
	var next, last *time.Time
	for _, occ := range ev.Occurrences {
		t, ok := domain.ParseOccurrenceTime(occ.Start)
		if !ok {
			continue
		}
		deadline, _ := domain.OccurrenceDeadline(occ.Start)
		if !deadline.Before(now) && (next == nil || t.Before(*next)) {
			next = &t
		}
		if last == nil || t.After(*last) {
			last = &t
		}
	}
	if next == nil && last == nil && sum != nil {
		next, last = summaryTimes(*sum, now)
	}
	opt.NextStart, opt.LastStart = next, last
	return opt
}

func optionFromSummary(s domain.EventSummary, now time.Time) domain.EventOption {
	opt := domain.EventOption{
		ID:        s.ID,
		Title:     s.Title,
		DateLabel: s.DateLabel,
		Assigned:  s.Assigned,
		IsDraft:   s.IsDraft || domain.IsDraftStatus(s.Status),
	}
	opt.NextStart, opt.LastStart = summaryTimes(s, now)
	return opt
}

// summaryTimes resolves a summary's date range. A range that started in the
// past but has not ended is still upcoming, keyed on its end.
func summaryTimes(s domain.EventSummary, now time.Time) (next, last *time.Time) {
	start, hasStart := domain.ParseOccurrenceTime(s.StartDate)
	end, hasEnd := domain.ParseOccurrenceTime(s.EndDate)
	startDeadline, _ := domain.OccurrenceDeadline(s.StartDate)
	endDeadline, _ := domain.OccurrenceDeadline(s.EndDate)
	switch {
	case hasStart && !startDeadline.Before(now):
		next = &start
	case hasEnd && !endDeadline.Before(now):
		next = &end
	}
	switch {
	case hasEnd:
		last = &end
	case hasStart:
		last = &start
	}
	return next, last
}

// isUpcoming compares against the start of today: a date-only occurrence of
// today is resolved to its midnight but stays upcoming until the day ends.
func isUpcoming(o domain.EventOption, now time.Time) bool {
	return o.NextStart != nil && !o.NextStart.Before(startOfDay(now))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func isPast(o domain.EventOption, now time.Time) bool {
	return !isUpcoming(o, now) && o.LastStart != nil && o.LastStart.Before(now)
}

// Matches reports whether an option belongs to the filter's bucket. Drafts only
// ever appear under the draft filter.
func Matches(o domain.EventOption, filter domain.FilterKey, now time.Time) bool {
	if filter == domain.FilterDraft {
		return o.IsDraft
	}
	if o.IsDraft {
		return false
	}
	switch filter {
	case domain.FilterAssigned:
		return o.Assigned
	case domain.FilterUpcoming:
		return isUpcoming(o, now)
	case domain.FilterPast:
		return isPast(o, now)
	case domain.FilterAll:
		return true
	}
	return false
}

// Filter returns the options in the filter's bucket, sorted for display.
func Filter(options []domain.EventOption, filter domain.FilterKey, now time.Time) []domain.EventOption {
	out := make([]domain.EventOption, 0, len(options))
	for _, o := range options {
		if Matches(o, filter, now) {
			out = append(out, o)
		}
	}
	SortOptions(out, now)
	return out
}

// TabCounts counts the options in every bucket.
func TabCounts(options []domain.EventOption, now time.Time) map[domain.FilterKey]int {
	counts := make(map[domain.FilterKey]int, len(domain.FilterKeys))
	for _, f := range domain.FilterKeys {
		counts[f] = 0
	}
	for _, o := range options {
		for _, f := range domain.FilterKeys {
			if Matches(o, f, now) {
				counts[f]++
			}
		}
	}
	return counts
}

// sortKey is the next occurrence for upcoming events, else the last one.
func sortKey(o domain.EventOption, now time.Time) *time.Time {
	if isUpcoming(o, now) {
		return o.NextStart
	}
	return o.LastStart
}

// SortOptions orders options by their relevant timestamp ascending; options
// without any timestamp go last. Ties break on the case-folded title, then id.
func SortOptions(options []domain.EventOption, now time.Time) {
	sort.SliceStable(options, func(i, j int) bool {
		ki, kj := sortKey(options[i], now), sortKey(options[j], now)
		switch {
		case ki == nil && kj != nil:
			return false
		case ki != nil && kj == nil:
			return true
		case ki != nil && kj != nil && !ki.Equal(*kj):
			return ki.Before(*kj)
		}
		ti, tj := domain.FoldString(options[i].Title), domain.FoldString(options[j].Title)
		if c := strings.Compare(ti, tj); c != 0 {
			return c < 0
		}
		return options[i].ID < options[j].ID
	})
}

// RepairSelection keeps selected when it is in the list, else picks the first
// entry, else 0.
func RepairSelection(filtered []domain.EventOption, selected int) int {
	for _, o := range filtered {
		if o.ID == selected {
			return selected
		}
	}
	if len(filtered) == 0 {
		return 0
	}
	return filtered[0].ID
}
