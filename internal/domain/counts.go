package domain

// CountsFor computes the attendance breakdown of one occurrence from the roster,
// using the VisibleFor scoping rule. Pending is total minus present and absent,
// never negative.
func CountsFor(participants []Participant, occurrence string) OccurrenceCounts {
	var total, present, absent int
	for i := range participants {
		p := &participants[i]
		if !p.VisibleFor(occurrence) {
			continue
		}
		total++
		switch p.AttendanceFor(occurrence) {
		case AttendancePresent:
			present++
		case AttendanceAbsent:
			absent++
		}
	}
	pending := total - present - absent
	if pending < 0 {
		pending = 0
	}
	return OccurrenceCounts{Present: present, Absent: absent, Pending: pending}
}

// RecomputeCounts refreshes the participant total and every occurrence's counts
// from the roster.
func (e *Event) RecomputeCounts() {
	e.Counts.Participants = len(e.Participants)
	for i := range e.Occurrences {
		e.Occurrences[i].Counts = CountsFor(e.Participants, e.Occurrences[i].Start)
	}
}
