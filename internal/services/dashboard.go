package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mjpery-beep/mj-member-sub014/internal/cache"
	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
	"github.com/mjpery-beep/mj-member-sub014/internal/metrics"
	"github.com/mjpery-beep/mj-member-sub014/internal/pending"
	"github.com/mjpery-beep/mj-member-sub014/internal/projection"
)

const (
	actionLoad       = "load"
	actionFilter     = "filter"
	actionSelect     = "select"
	actionAttendance = "attendance"
	actionPayment    = "payment"
	actionPicker     = "picker"
)

// manualPaymentMethod is recorded when staff mark a registration as paid.
const manualPaymentMethod = "manual"

// DashboardConfig tunes a dashboard.
type DashboardConfig struct {
	Timeout               time.Duration
	LockedPaymentMethods  []string
	PickerPerPage         int
	PickerDebounce        time.Duration
	PickerScrollThreshold int
	Now                   func() time.Time
}

type dashboard struct {
	gateway  domain.RosterGateway
	messages domain.MessageService
	cache    *cache.Cache
	pending  *pending.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      DashboardConfig
	picker   *memberPicker

	mu         sync.Mutex
	filter     domain.FilterKey
	selectedID int
	occurrence string
}

// NewDashboard returns the dashboard of one animator. m may be nil.
func NewDashboard(gateway domain.RosterGateway, messages domain.MessageService, logger *slog.Logger, m *metrics.Metrics, cfg DashboardConfig) domain.DashboardService {
	return newDashboard(gateway, messages, logger, m, cfg)
}

func newDashboard(gateway domain.RosterGateway, messages domain.MessageService, logger *slog.Logger, m *metrics.Metrics, cfg DashboardConfig) *dashboard {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	d := &dashboard{
		gateway:  gateway,
		messages: messages,
		cache:    cache.New(logger, cfg.Now),
		pending:  pending.New(m),
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		filter:   domain.FilterAll,
	}
	d.picker = newMemberPicker(gateway, logger, cfg)
	return d
}

// Load fetches the initial event list and summaries.
func (d *dashboard) Load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	resp, err := d.gateway.ListEvents(ctx)
	if err != nil {
		return d.fail(actionLoad, err)
	}
	for i := range resp.Events {
		if _, ok := d.cache.UpsertEvent(&resp.Events[i]); !ok {
			d.logger.Warn("dropping event snapshot without id", "index", i)
		}
	}
	for i := range resp.Summaries {
		d.cache.UpsertSummary(&resp.Summaries[i])
	}
	d.repairSelection()
	d.succeed(actionLoad)
	return nil
}

// View projects the cache and the current selection.
func (d *dashboard) View() domain.DashboardView {
	events, summaries := d.cache.Snapshot()
	return projection.Build(events, summaries, d.selection(), d.cfg.Now())
}

func (d *dashboard) selection() projection.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return projection.Selection{Filter: d.filter, EventID: d.selectedID, Occurrence: d.occurrence}
}

// SetFilter switches the event tab and moves the selection into it.
func (d *dashboard) SetFilter(filter domain.FilterKey) error {
	if !filter.Valid() {
		return d.fail(actionFilter, domain.NewValidationError(actionFilter, fmt.Sprintf("unknown filter %q", filter)))
	}
	d.mu.Lock()
	d.filter = filter
	d.mu.Unlock()
	d.repairSelection()
	return nil
}

// repairSelection keeps the selected event inside the filtered list.
func (d *dashboard) repairSelection() {
	events, summaries := d.cache.Snapshot()
	now := d.cfg.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	filtered := projection.Filter(projection.EventOptions(events, summaries, now), d.filter, now)
	next := projection.RepairSelection(filtered, d.selectedID)
	if next == d.selectedID {
		return
	}
	d.selectedID = next
	d.occurrence = defaultOccurrence(findEvent(events, next))
}

// Select points the dashboard at an event of the current list. An empty
// occurrence picks today's, then the next, then the last one.
func (d *dashboard) Select(eventID int, occurrence string) error {
	if eventID <= 0 {
		d.mu.Lock()
		d.selectedID, d.occurrence = 0, ""
		d.mu.Unlock()
		return nil
	}
	events, summaries := d.cache.Snapshot()
	now := d.cfg.Now()
	sel := d.selection()

	listed := false
	for _, o := range projection.Filter(projection.EventOptions(events, summaries, now), sel.Filter, now) {
		if o.ID == eventID {
			listed = true
			break
		}
	}
	if !listed {
		return d.fail(actionSelect, domain.NewValidationError(actionSelect, "event is not in the current list"))
	}

	ev := findEvent(events, eventID)
	if occurrence == "" {
		occurrence = defaultOccurrence(ev)
	} else if ev == nil {
		return d.fail(actionSelect, domain.NewValidationError(actionSelect, "event is not loaded"))
	} else if _, ok := ev.Occurrence(occurrence); !ok {
		return d.fail(actionSelect, domain.NewValidationError(actionSelect, fmt.Sprintf("unknown occurrence %q", occurrence)))
	}

	d.mu.Lock()
	d.selectedID, d.occurrence = eventID, occurrence
	d.mu.Unlock()
	return nil
}

func findEvent(events []*domain.Event, id int) *domain.Event {
	for _, ev := range events {
		if ev.ID == id {
			return ev
		}
	}
	return nil
}

func defaultOccurrence(ev *domain.Event) string {
	if ev == nil || len(ev.Occurrences) == 0 {
		return ""
	}
	for _, o := range ev.Occurrences {
		if o.IsToday {
			return o.Start
		}
	}
	for _, o := range ev.Occurrences {
		if o.IsNext {
			return o.Start
		}
	}
	return ev.Occurrences[len(ev.Occurrences)-1].Start
}

// FetchEvent loads the full event. Concurrent fetches of the same event share
// one request.
func (d *dashboard) FetchEvent(ctx context.Context, eventID int) (*domain.Event, error) {
	action := string(pending.ActionFetch)
	if eventID <= 0 {
		return nil, d.fail(action, domain.NewValidationError(action, "invalid event id"))
	}
	key := pending.Key{Action: pending.ActionFetch, EntityID: eventID}
	ev, _, err := pending.Do(ctx, d.pending, key, func(ctx context.Context) (*domain.Event, error) {
		return d.refresh(ctx, eventID)
	})
	if err != nil {
		return nil, d.fail(action, err)
	}
	d.succeed(action)
	return ev.Clone(), nil
}

func (d *dashboard) refresh(ctx context.Context, eventID int) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	resp, err := d.gateway.FetchEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.evict(eventID)
		}
		return nil, err
	}
	if resp.Event == nil {
		return nil, fmt.Errorf("fetch event %d: response has no event", eventID)
	}
	ev, ok := d.cache.UpsertEvent(resp.Event)
	if !ok {
		return nil, fmt.Errorf("fetch event %d: malformed event snapshot", eventID)
	}
	return ev, nil
}

func (d *dashboard) evict(eventID int) {
	if d.cache.RemoveEvent(eventID) {
		d.logger.Info("event no longer exists, evicted", "event_id", eventID)
	}
	d.repairSelection()
}

// resync refetches an event after the service reported it missing. A second
// not-found evicts it.
func (d *dashboard) resync(ctx context.Context, eventID int) {
	if _, err := d.FetchEvent(context.WithoutCancel(ctx), eventID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		d.logger.Warn("resync failed", "event_id", eventID, "error", err)
	}
}

// ClaimEvent assigns the event to the current animator.
func (d *dashboard) ClaimEvent(ctx context.Context, eventID int) (*domain.Event, error) {
	return d.setAssignment(ctx, pending.ActionClaim, eventID, true)
}

// ReleaseEvent gives the event back. The selection stays on it.
func (d *dashboard) ReleaseEvent(ctx context.Context, eventID int) (*domain.Event, error) {
	return d.setAssignment(ctx, pending.ActionRelease, eventID, false)
}

func (d *dashboard) setAssignment(ctx context.Context, act pending.Action, eventID int, assigned bool) (*domain.Event, error) {
	action := string(act)
	if eventID <= 0 {
		return nil, d.fail(action, domain.NewValidationError(action, "invalid event id"))
	}
	key := pending.Key{Action: act, EntityID: eventID}
	ev, _, err := pending.Do(ctx, d.pending, key, func(ctx context.Context) (*domain.Event, error) {
		ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()

		var resp *domain.EventResponse
		var err error
		if assigned {
			resp, err = d.gateway.ClaimEvent(ctx, eventID)
		} else {
			resp, err = d.gateway.ReleaseEvent(ctx, eventID)
		}
		if err != nil {
			return nil, err
		}
		if resp.Event != nil {
			if _, ok := d.cache.UpsertEvent(resp.Event); !ok {
				return nil, fmt.Errorf("%s event %d: malformed event snapshot", action, eventID)
			}
		}
		if _, loaded := d.cache.GetEvent(eventID); !loaded {
			if _, err := d.refresh(ctx, eventID); err != nil {
				d.logger.Warn("event changed but could not be loaded", "action", action, "event_id", eventID, "error", err)
			}
		}
		if assigned {
			d.cache.MarkAssigned(eventID)
		} else {
			d.cache.MarkUnassigned(eventID)
		}
		if ev, ok := d.cache.GetEvent(eventID); ok {
			return ev, nil
		}
		return d.eventFromSummary(eventID, assigned), nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.resync(ctx, eventID)
		}
		return nil, d.fail(action, err)
	}
	d.succeed(action)
	return ev.Clone(), nil
}

// eventFromSummary stands in for an event the service changed but did not
// return in full.
func (d *dashboard) eventFromSummary(eventID int, assigned bool) *domain.Event {
	ev := &domain.Event{ID: eventID, IsAssigned: assigned}
	if sum, ok := d.cache.GetSummary(eventID); ok {
		ev.Title = sum.Title
		ev.DateLabel = sum.DateLabel
		ev.StatusValue = sum.Status
	}
	return ev
}

// mutableEvent returns a copy of a loaded event the animator may change.
func (d *dashboard) mutableEvent(action string, eventID int) (*domain.Event, error) {
	ev, ok := d.cache.GetEvent(eventID)
	if !ok {
		return nil, domain.NewValidationError(action, "event is not loaded")
	}
	if !ev.IsAssigned {
		return nil, domain.NewValidationError(action, "event is not assigned to you")
	}
	return ev, nil
}

// SetAttendance applies the change locally, saves it, and rolls back on failure.
// Setting a participant to the status it already has sends nothing.
func (d *dashboard) SetAttendance(ctx context.Context, change domain.AttendanceChange) error {
	ev, err := d.mutableEvent(actionAttendance, change.EventID)
	if err != nil {
		return d.fail(actionAttendance, err)
	}
	occ := change.Occurrence
	if occ == "" {
		if sel := d.selection(); sel.EventID == change.EventID {
			occ = sel.Occurrence
		}
	}
	if occ == "" {
		return d.fail(actionAttendance, domain.NewValidationError(actionAttendance, "no occurrence selected"))
	}
	if _, ok := ev.Occurrence(occ); !ok {
		return d.fail(actionAttendance, domain.NewValidationError(actionAttendance, fmt.Sprintf("unknown occurrence %q", occ)))
	}
	if !change.Status.Valid() {
		return d.fail(actionAttendance, domain.NewValidationError(actionAttendance, fmt.Sprintf("unknown attendance status %q", change.Status)))
	}
	p, ok := ev.Participant(domain.ParticipantRef{RegistrationID: change.RegistrationID, MemberID: change.MemberID})
	if !ok {
		return d.fail(actionAttendance, domain.NewValidationError(actionAttendance, "participant not found"))
	}
	if !p.VisibleFor(occ) {
		return d.fail(actionAttendance, domain.NewValidationError(actionAttendance, "participant is not registered for this occurrence"))
	}
	if p.AttendanceFor(occ) == change.Status {
		d.succeed(actionAttendance)
		return nil
	}

	ref := domain.ParticipantRef{RegistrationID: p.RegistrationID, MemberID: p.MemberID}
	prev, _ := d.cache.SetAttendance(change.EventID, occ, ref, change.Status)

	tctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	resp, err := d.gateway.SaveAttendance(tctx, domain.SaveAttendanceRequest{
		EventID:         change.EventID,
		OccurrenceStart: occ,
		Entries: []domain.AttendanceEntry{{
			MemberID:       domain.FlexInt(p.MemberID),
			RegistrationID: domain.FlexInt(p.RegistrationID),
			Status:         string(change.Status),
		}},
	})
	if err != nil {
		if !d.cache.SwapAttendance(change.EventID, occ, ref, change.Status, prev) {
			d.logger.Debug("attendance rollback skipped, value superseded", "event_id", change.EventID, "member_id", p.MemberID)
		}
		if errors.Is(err, domain.ErrNotFound) {
			d.resync(ctx, change.EventID)
		}
		return d.fail(actionAttendance, err)
	}

	for _, entry := range resp.Entries {
		entryRef := domain.ParticipantRef{RegistrationID: entry.RegistrationID.Int(), MemberID: entry.MemberID.Int()}
		if entryRef.RegistrationID <= 0 && entryRef.MemberID <= 0 {
			continue
		}
		d.cache.SetAttendance(change.EventID, occ, entryRef, domain.NormalizeAttendanceStatus(entry.Status))
	}
	if resp.Counts != nil {
		d.cache.SetOccurrenceCounts(change.EventID, occ, domain.OccurrenceCounts{
			Present: resp.Counts.Present,
			Absent:  resp.Counts.Absent,
			Pending: resp.Counts.Pending,
		})
	}
	d.succeed(actionAttendance)
	return nil
}

// TogglePayment flips a registration between paid and unpaid. Payments taken
// through a locked method and registrations of free events cannot be changed.
func (d *dashboard) TogglePayment(ctx context.Context, eventID, registrationID int) (domain.Payment, error) {
	if registrationID <= 0 {
		return domain.Payment{}, d.fail(actionPayment, domain.NewValidationError(actionPayment, "registration id is required"))
	}
	ev, err := d.mutableEvent(actionPayment, eventID)
	if err != nil {
		return domain.Payment{}, d.fail(actionPayment, err)
	}
	ref := domain.ParticipantRef{RegistrationID: registrationID}
	p, ok := ev.Participant(ref)
	if !ok {
		return domain.Payment{}, d.fail(actionPayment, domain.NewValidationError(actionPayment, "registration not found"))
	}
	if ev.IsFree() {
		return domain.Payment{}, d.fail(actionPayment, domain.NewLockedError(actionPayment, "payment does not apply to a free event"))
	}
	prev := p.Payment
	if prev.Status == domain.PaymentPaid && d.lockedMethod(prev.Method) {
		return domain.Payment{}, d.fail(actionPayment, domain.NewLockedError(actionPayment, fmt.Sprintf("payment made by %s cannot be changed here", prev.Method)))
	}

	next := domain.Payment{Status: domain.PaymentUnpaid}
	if prev.Status != domain.PaymentPaid {
		next = domain.Payment{
			Status:     domain.PaymentPaid,
			Method:     manualPaymentMethod,
			RecordedAt: d.cfg.Now().Format(time.RFC3339),
		}
	}
	d.cache.SetPayment(eventID, ref, next)

	tctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	resp, err := d.gateway.TogglePayment(tctx, domain.TogglePaymentRequest{EventID: eventID, RegistrationID: registrationID})
	if err != nil {
		d.cache.SwapPayment(eventID, ref, next, prev)
		if errors.Is(err, domain.ErrNotFound) {
			d.resync(ctx, eventID)
		}
		return domain.Payment{}, d.fail(actionPayment, err)
	}

	confirmed := next
	if resp.Payment != nil {
		confirmed = domain.NormalizePayment(resp.Payment)
		d.cache.SwapPayment(eventID, ref, next, confirmed)
	} else {
		d.logger.Warn("payment response has no record, keeping local value", "event_id", eventID, "registration_id", registrationID)
	}
	d.succeed(actionPayment)
	return confirmed, nil
}

func (d *dashboard) lockedMethod(method string) bool {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		return false
	}
	for _, prefix := range d.cfg.LockedPaymentMethods {
		prefix = strings.ToLower(strings.TrimSpace(prefix))
		if prefix != "" && strings.HasPrefix(method, prefix) {
			return true
		}
	}
	return false
}

// RemoveRegistration cancels a registration. A second removal of the same
// registration while the first is running is rejected.
func (d *dashboard) RemoveRegistration(ctx context.Context, eventID, registrationID int) error {
	action := string(pending.ActionRemove)
	if registrationID <= 0 {
		return d.fail(action, domain.NewValidationError(action, "registration id is required"))
	}
	ev, err := d.mutableEvent(action, eventID)
	if err != nil {
		return d.fail(action, err)
	}
	ref := domain.ParticipantRef{RegistrationID: registrationID}
	if _, ok := ev.Participant(ref); !ok {
		return d.fail(action, domain.NewValidationError(action, "registration not found"))
	}

	release, ok := d.pending.TryAcquire(pending.Key{Action: pending.ActionRemove, EntityID: registrationID})
	if !ok {
		return d.fail(action, domain.NewAlreadyLoadingError(action))
	}
	defer release()

	tctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	resp, err := d.gateway.RemoveRegistration(tctx, domain.RemoveRegistrationRequest{EventID: eventID, RegistrationID: registrationID})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.resync(ctx, eventID)
		}
		return d.fail(action, err)
	}

	// The removal already happened upstream; drop the row locally before any
	// refetch so a failed refetch cannot leave it behind.
	settled := false
	if resp.Event != nil {
		_, settled = d.cache.UpsertEvent(resp.Event)
	}
	if !settled {
		_, settled = d.cache.RemoveParticipant(eventID, ref)
	}
	if !settled && resp.Removed != nil {
		_, settled = d.cache.RemoveParticipant(eventID, domain.ParticipantRef{MemberID: resp.Removed.MemberID.Int()})
	}
	if !settled {
		d.resync(ctx, eventID)
	}
	d.succeed(action)
	return nil
}

// AddMembers registers several members at once. Members the service did not
// add are reported; the ones it did add stay added.
func (d *dashboard) AddMembers(ctx context.Context, eventID int, memberIDs []int, scope domain.OccurrenceScope) (*domain.AddMembersResult, error) {
	action := string(pending.ActionAddMembers)
	ids := uniquePositive(memberIDs)
	if len(ids) == 0 {
		return nil, d.fail(action, domain.NewValidationError(action, "select at least one member"))
	}
	ev, err := d.mutableEvent(action, eventID)
	if err != nil {
		return nil, d.fail(action, err)
	}
	scope = domain.NewOccurrenceScope(scope.Mode, scope.Occurrences)
	for _, occ := range scope.Occurrences {
		if _, ok := ev.Occurrence(occ); !ok {
			return nil, d.fail(action, domain.NewValidationError(action, fmt.Sprintf("unknown occurrence %q", occ)))
		}
	}

	release, ok := d.pending.TryAcquire(pending.Key{Action: pending.ActionAddMembers, EntityID: eventID})
	if !ok {
		return nil, d.fail(action, domain.NewAlreadyLoadingError(action))
	}
	defer release()

	tctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	resp, err := d.gateway.AddMembers(tctx, domain.AddMembersRequest{EventID: eventID, MemberIDs: ids, OccurrenceScope: scope})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.resync(ctx, eventID)
		}
		return nil, d.fail(action, err)
	}

	result := reconcileAdd(ids, resp)
	upserted := false
	if resp.Event != nil {
		_, upserted = d.cache.UpsertEvent(resp.Event)
	}
	if !upserted && len(result.Added) > 0 {
		names := d.picker.candidateNames()
		add := make([]domain.Participant, 0, len(result.Added))
		for _, id := range result.Added {
			add = append(add, domain.Participant{MemberID: id, FullName: names[id], OccurrenceScope: scope})
		}
		d.cache.AddParticipants(eventID, add)
	}

	switch {
	case result.Partial():
		return result, d.fail(action, &domain.ActionError{
			Kind:    domain.ErrPartialFailure,
			Message: fmt.Sprintf("%d of %d members added", len(result.Added), len(ids)),
		})
	case len(result.Added) == 0:
		return result, d.fail(action, domain.NewValidationError(action, "no member could be added"))
	}
	d.succeed(action)
	return result, nil
}

func reconcileAdd(requested []int, resp *domain.AddMembersResponse) *domain.AddMembersResult {
	want := make(map[int]struct{}, len(requested))
	for _, id := range requested {
		want[id] = struct{}{}
	}
	result := &domain.AddMembersResult{
		Added:           []int{},
		AlreadyAssigned: []int{},
		Failed:          []domain.MemberFailure{},
		NotAdded:        []int{},
	}
	added := make(map[int]struct{})
	for _, id := range domain.FlexInts(resp.Added) {
		if _, ok := want[id]; !ok {
			continue
		}
		if _, dup := added[id]; dup {
			continue
		}
		added[id] = struct{}{}
		result.Added = append(result.Added, id)
	}
	for _, id := range uniquePositive(domain.FlexInts(resp.AlreadyAssigned)) {
		if _, ok := want[id]; !ok {
			continue
		}
		if _, ok := added[id]; ok {
			continue
		}
		result.AlreadyAssigned = append(result.AlreadyAssigned, id)
	}
	for _, e := range resp.Errors {
		id := e.MemberID.Int()
		if _, ok := want[id]; !ok {
			continue
		}
		if _, ok := added[id]; ok {
			continue
		}
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			msg = "member could not be added"
		}
		result.Failed = append(result.Failed, domain.MemberFailure{MemberID: id, Message: msg})
	}
	for _, id := range requested {
		if _, ok := added[id]; !ok {
			result.NotAdded = append(result.NotAdded, id)
		}
	}
	return result
}

func uniquePositive(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SendMessage emails the visible roster of an occurrence, or of the whole
// event when Occurrence is empty.
func (d *dashboard) SendMessage(ctx context.Context, msg domain.RosterMessage) (*domain.MessageResult, error) {
	action := string(pending.ActionMessage)
	subject, body := strings.TrimSpace(msg.Subject), strings.TrimSpace(msg.Body)
	if subject == "" || body == "" {
		return nil, d.fail(action, domain.NewValidationError(action, "subject and body are required"))
	}
	ev, err := d.mutableEvent(action, msg.EventID)
	if err != nil {
		return nil, d.fail(action, err)
	}
	if msg.Occurrence != "" {
		if _, ok := ev.Occurrence(msg.Occurrence); !ok {
			return nil, d.fail(action, domain.NewValidationError(action, fmt.Sprintf("unknown occurrence %q", msg.Occurrence)))
		}
	}
	recipients := projection.MessageRecipients(ev, msg.Occurrence)
	if len(recipients) == 0 {
		return nil, d.fail(action, domain.NewValidationError(action, "no participant to message"))
	}

	release, ok := d.pending.TryAcquire(pending.Key{Action: pending.ActionMessage, EntityID: msg.EventID})
	if !ok {
		return nil, d.fail(action, domain.NewAlreadyLoadingError(action))
	}
	defer release()

	tctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	result, err := d.messages.SendRosterMessage(tctx, ev, msg.Occurrence, recipients, subject, body)
	if err != nil {
		return nil, d.fail(action, err)
	}
	if len(result.Failed) > 0 {
		if len(result.Sent) == 0 {
			return result, d.fail(action, &domain.ActionError{Kind: domain.ErrTransport, Message: "no message could be delivered"})
		}
		return result, d.fail(action, &domain.ActionError{
			Kind:    domain.ErrPartialFailure,
			Message: fmt.Sprintf("%d of %d messages delivered", len(result.Sent), len(recipients)),
		})
	}
	d.succeed(action)
	return result, nil
}

// OpenPicker starts a member search for the event, replacing any previous one.
func (d *dashboard) OpenPicker(ctx context.Context, eventID int, occurrence string) error {
	ev, err := d.mutableEvent(actionPicker, eventID)
	if err != nil {
		return d.fail(actionPicker, err)
	}
	if occurrence != "" {
		if _, ok := ev.Occurrence(occurrence); !ok {
			return d.fail(actionPicker, domain.NewValidationError(actionPicker, fmt.Sprintf("unknown occurrence %q", occurrence)))
		}
	}
	if err := d.picker.Open(ctx, eventID, occurrence); err != nil {
		return d.fail(actionPicker, err)
	}
	return nil
}

func (d *dashboard) PickerView() domain.PickerView {
	return d.picker.View()
}

func (d *dashboard) SearchPicker(term string) {
	d.picker.Search(term)
}

func (d *dashboard) ScrollPicker(ctx context.Context, pos domain.ScrollPosition) (bool, error) {
	loaded, err := d.picker.Scroll(ctx, pos)
	if err != nil {
		return loaded, d.fail(actionPicker, err)
	}
	return loaded, nil
}

func (d *dashboard) TogglePickerSelection(memberID int) bool {
	return d.picker.Toggle(memberID)
}

// SubmitPicker adds the selected candidates. Added members leave the selection
// and show as already assigned.
func (d *dashboard) SubmitPicker(ctx context.Context, scope domain.OccurrenceScope) (*domain.AddMembersResult, error) {
	eventID, ids := d.picker.Selection()
	if eventID == 0 {
		return nil, d.fail(actionPicker, domain.NewValidationError(actionPicker, "member picker is not open"))
	}
	result, err := d.AddMembers(ctx, eventID, ids, scope)
	if result != nil {
		d.picker.MarkAdded(eventID, result.Added)
	}
	return result, err
}

func (d *dashboard) ClosePicker() {
	d.picker.Close()
}

// Close stops the picker and drops the cache and the selection.
func (d *dashboard) Close() {
	d.picker.Close()
	d.cache.Reset()
	d.mu.Lock()
	d.filter, d.selectedID, d.occurrence = domain.FilterAll, 0, ""
	d.mu.Unlock()
}

func (d *dashboard) succeed(action string) {
	d.metrics.ObserveAction(action, nil)
}

// fail converts err into an ActionError, logs it and counts it.
func (d *dashboard) fail(action string, err error) error {
	ae := domain.AsActionError(action, err)
	d.metrics.ObserveAction(action, ae)
	if errors.Is(ae, domain.ErrTransport) {
		d.logger.Error("dashboard action failed", "action", action, "error", err)
	} else {
		d.logger.Warn("dashboard action rejected", "action", action, "kind", ae.Kind, "message", ae.Message)
	}
	return ae
}
