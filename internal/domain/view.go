package domain

import "time"

// FilterKey selects one tab of the event list.
type FilterKey string

const (
	FilterAll      FilterKey = "all"
	FilterAssigned FilterKey = "assigned"
	FilterUpcoming FilterKey = "upcoming"
	FilterPast     FilterKey = "past"
	FilterDraft    FilterKey = "draft"
)

// FilterKeys lists every tab in display order.
var FilterKeys = []FilterKey{FilterAll, FilterAssigned, FilterUpcoming, FilterPast, FilterDraft}

// Valid reports whether k names a known tab.
func (k FilterKey) Valid() bool {
	for _, f := range FilterKeys {
		if f == k {
			return true
		}
	}
	return false
}

// EventOption is one entry of the event list, merged from full events and summaries.
type EventOption struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	DateLabel string     `json:"dateLabel"`
	Assigned  bool       `json:"assigned"`
	IsDraft   bool       `json:"isDraft"`
	Loaded    bool       `json:"loaded"`
	NextStart *time.Time `json:"nextStart,omitempty"`
	LastStart *time.Time `json:"lastStart,omitempty"`
}

// RosterStats aggregates attendance and payment over the visible roster.
type RosterStats struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Pending int `json:"pending"`
	Paid    int `json:"paid"`
	Unpaid  int `json:"unpaid"`
}

// Availability drives the add/notify call-to-action rendering.
type Availability struct {
	HasAvailableParticipants bool `json:"hasAvailableParticipants"`
	AllRegistered            bool `json:"allRegistered"`
}

// DashboardView is everything the renderer needs to draw the dashboard.
type DashboardView struct {
	Filter             FilterKey         `json:"filter"`
	Events             []EventOption     `json:"events"`
	Tabs               map[FilterKey]int `json:"tabs"`
	SelectedEventID    int               `json:"selectedEventId"`
	SelectedOccurrence string            `json:"selectedOccurrence"`
	Event              *Event            `json:"event,omitempty"`
	Participants       []Participant     `json:"participants"`
	Stats              RosterStats       `json:"stats"`
	Availability       Availability      `json:"availability"`
	CanMutate          bool              `json:"canMutate"`
}
