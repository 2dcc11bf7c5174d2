package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

const (
	defaultPickerPerPage   = 20
	defaultScrollThreshold = 48
)

// memberPicker pages through addable members for one event. Every reset
// (open, new search, close) bumps generation; a response that comes back
// under an older generation, or after close, is dropped.
type memberPicker struct {
	gateway   domain.RosterGateway
	logger    *slog.Logger
	timeout   time.Duration
	perPage   int
	debounce  time.Duration
	threshold int

	mu          sync.Mutex
	open        bool
	generation  uint64
	eventID     int
	occurrence  string
	page        int
	search      string
	pendingTerm string
	hasMore     bool
	loading     bool
	candidates  []domain.MemberCandidate
	selected    map[int]struct{}
	timer       *time.Timer
}

func newMemberPicker(gateway domain.RosterGateway, logger *slog.Logger, cfg DashboardConfig) *memberPicker {
	p := &memberPicker{
		gateway:   gateway,
		logger:    logger,
		timeout:   cfg.Timeout,
		perPage:   cfg.PickerPerPage,
		debounce:  cfg.PickerDebounce,
		threshold: cfg.PickerScrollThreshold,
		selected:  make(map[int]struct{}),
	}
	if p.perPage <= 0 {
		p.perPage = defaultPickerPerPage
	}
	if p.threshold <= 0 {
		p.threshold = defaultScrollThreshold
	}
	return p
}

// Open resets the picker onto eventID and loads the first page.
func (p *memberPicker) Open(ctx context.Context, eventID int, occurrence string) error {
	p.mu.Lock()
	p.stopTimerLocked()
	p.generation++
	gen := p.generation
	p.open = true
	p.eventID = eventID
	p.occurrence = occurrence
	p.page = 0
	p.search = ""
	p.pendingTerm = ""
	p.hasMore = false
	p.loading = true
	p.candidates = nil
	p.selected = make(map[int]struct{})
	p.mu.Unlock()

	return p.load(ctx, gen, domain.PaginationParams{Page: 1, PerPage: p.perPage}, "", true)
}

// Search schedules a page-1 reload for term once typing pauses.
func (p *memberPicker) Search(term string) {
	term = strings.TrimSpace(term)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return
	}
	p.pendingTerm = term
	p.stopTimerLocked()
	p.timer = time.AfterFunc(p.debounce, func() { p.applySearch(term) })
}

func (p *memberPicker) applySearch(term string) {
	p.mu.Lock()
	if !p.open || term != p.pendingTerm {
		p.mu.Unlock()
		return
	}
	if term == p.search && p.page > 0 {
		p.mu.Unlock()
		return
	}
	p.generation++
	gen := p.generation
	p.search = term
	p.loading = true
	p.mu.Unlock()

	if err := p.load(context.Background(), gen, domain.PaginationParams{Page: 1, PerPage: p.perPage}, term, true); err != nil {
		p.logger.Warn("member search failed", "search", term, "error", err)
	}
}

// Scroll loads the next page when the viewport is within the threshold of the
// bottom. It reports whether a page was requested.
func (p *memberPicker) Scroll(ctx context.Context, pos domain.ScrollPosition) (bool, error) {
	p.mu.Lock()
	if !p.open || p.loading || !p.hasMore {
		p.mu.Unlock()
		return false, nil
	}
	if pos.ScrollHeight-(pos.ScrollTop+pos.ClientHeight) > p.threshold {
		p.mu.Unlock()
		return false, nil
	}
	p.loading = true
	gen := p.generation
	params := domain.PaginationParams{Page: p.page, PerPage: p.perPage}.Next()
	search := p.search
	p.mu.Unlock()

	return true, p.load(ctx, gen, params, search, false)
}

// load fetches one page. The caller has set loading under the lock.
func (p *memberPicker) load(ctx context.Context, gen uint64, params domain.PaginationParams, search string, replace bool) error {
	p.mu.Lock()
	eventID, occurrence := p.eventID, p.occurrence
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	resp, err := p.gateway.SearchMembers(ctx, domain.SearchMembersRequest{
		EventID:    eventID,
		Page:       params.Page,
		PerPage:    params.PerPage,
		Search:     search,
		Occurrence: occurrence,
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open || gen != p.generation {
		p.logger.Debug("dropping stale member page", "event_id", eventID, "page", params.Page)
		return nil
	}
	p.loading = false
	if err != nil {
		return err
	}

	page := make([]domain.MemberCandidate, 0, len(resp.Members))
	for i := range resp.Members {
		if c, ok := domain.NormalizeCandidate(&resp.Members[i]); ok {
			page = append(page, c)
		}
	}
	if replace {
		p.candidates = dedupeCandidates(nil, page)
		p.pruneSelectionLocked()
	} else {
		p.candidates = dedupeCandidates(p.candidates, page)
	}
	p.page = params.Page
	if resp.Page > 0 {
		p.page = resp.Page
	}
	p.hasMore = resp.HasMore
	return nil
}

func dedupeCandidates(list, add []domain.MemberCandidate) []domain.MemberCandidate {
	seen := make(map[int]struct{}, len(list)+len(add))
	for _, c := range list {
		seen[c.ID] = struct{}{}
	}
	for _, c := range add {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		list = append(list, c)
	}
	return list
}

// pruneSelectionLocked keeps only selections still present and selectable.
func (p *memberPicker) pruneSelectionLocked() {
	keep := make(map[int]struct{}, len(p.selected))
	for _, c := range p.candidates {
		if _, ok := p.selected[c.ID]; ok && c.Selectable() {
			keep[c.ID] = struct{}{}
		}
	}
	p.selected = keep
}

// Toggle flips the selection of a listed candidate and returns whether it is
// now selected. Ineligible and already assigned candidates cannot be selected.
func (p *memberPicker) Toggle(memberID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return false
	}
	for _, c := range p.candidates {
		if c.ID != memberID {
			continue
		}
		if !c.Selectable() {
			return false
		}
		if _, ok := p.selected[memberID]; ok {
			delete(p.selected, memberID)
			return false
		}
		p.selected[memberID] = struct{}{}
		return true
	}
	return false
}

// Selection returns the event the picker is open on and the selected ids in
// ascending order. eventID is 0 when the picker is closed.
func (p *memberPicker) Selection() (eventID int, ids []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return 0, nil
	}
	return p.eventID, p.selectedIDsLocked()
}

func (p *memberPicker) selectedIDsLocked() []int {
	ids := make([]int, 0, len(p.selected))
	for id := range p.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MarkAdded flags added members as assigned and drops them from the selection.
func (p *memberPicker) MarkAdded(eventID int, added []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open || p.eventID != eventID {
		return
	}
	for _, id := range added {
		delete(p.selected, id)
		for i := range p.candidates {
			if p.candidates[i].ID == id {
				p.candidates[i].AlreadyAssigned = true
			}
		}
	}
}

// candidateNames maps listed candidate ids to their names.
func (p *memberPicker) candidateNames() map[int]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make(map[int]string, len(p.candidates))
	for _, c := range p.candidates {
		names[c.ID] = c.FullName
	}
	return names
}

// View returns a copy of the picker state.
func (p *memberPicker) View() domain.PickerView {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := domain.PickerView{
		Open:        p.open,
		EventID:     p.eventID,
		Occurrence:  p.occurrence,
		Page:        p.page,
		PerPage:     p.perPage,
		Search:      p.search,
		HasMore:     p.hasMore,
		Loading:     p.loading,
		Candidates:  append([]domain.MemberCandidate{}, p.candidates...),
		SelectedIDs: p.selectedIDsLocked(),
	}
	return v
}

// Close discards the picker state; responses still in flight are ignored.
func (p *memberPicker) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
	p.generation++
	p.open = false
	p.eventID = 0
	p.occurrence = ""
	p.page = 0
	p.search = ""
	p.pendingTerm = ""
	p.hasMore = false
	p.loading = false
	p.candidates = nil
	p.selected = make(map[int]struct{})
}

func (p *memberPicker) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
