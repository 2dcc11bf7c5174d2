package domain

// MemberCandidate is a member offered by the picker for addition to an event.
type MemberCandidate struct {
	ID                      int      `json:"id"`
	FullName                string   `json:"fullName"`
	Eligible                bool     `json:"eligible"`
	AlreadyAssigned         bool     `json:"alreadyAssigned"`
	AssignedOtherOccurrence bool     `json:"assignedOtherOccurrence"`
	IneligibleReasons       []string `json:"ineligibleReasons,omitempty"`
}

// Selectable reports whether staff may tick the candidate.
func (m MemberCandidate) Selectable() bool {
	return m.Eligible && !m.AlreadyAssigned
}

// AddMembersResult is the reconciled outcome of a bulk add.
type AddMembersResult struct {
	Added           []int           `json:"added"`
	AlreadyAssigned []int           `json:"alreadyAssigned"`
	Failed          []MemberFailure `json:"failed"`
	NotAdded        []int           `json:"notAdded"`
}

// MemberFailure is a member id with the reason it was not processed.
type MemberFailure struct {
	MemberID int    `json:"memberId"`
	Message  string `json:"message"`
}

// Partial reports whether some but not all requested members were added.
func (r *AddMembersResult) Partial() bool {
	return len(r.Added) > 0 && len(r.NotAdded) > 0
}
