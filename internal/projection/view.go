package projection

import (
	"time"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// Selection is the UI state a view is projected for.
type Selection struct {
	Filter     domain.FilterKey
	EventID    int
	Occurrence string
}

// Build assembles the full dashboard view. The caller is expected to have
// repaired the selection already; Build never changes it.
func Build(events []*domain.Event, summaries []domain.EventSummary, sel Selection, now time.Time) domain.DashboardView {
	options := EventOptions(events, summaries, now)
	view := domain.DashboardView{
		Filter:             sel.Filter,
		Events:             Filter(options, sel.Filter, now),
		Tabs:               TabCounts(options, now),
		SelectedEventID:    sel.EventID,
		SelectedOccurrence: sel.Occurrence,
		Participants:       []domain.Participant{},
	}
	for _, ev := range events {
		if ev.ID != sel.EventID {
			continue
		}
		view.Event = ev
		view.Participants = VisibleParticipants(ev, sel.Occurrence)
		view.Stats = Stats(ev, sel.Occurrence)
		view.Availability = ParticipantAvailability(ev, sel.Occurrence)
		view.CanMutate = ev.IsAssigned
		break
	}
	return view
}
