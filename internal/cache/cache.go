// Package cache holds the per-dashboard entity cache: full events by id, the
// lighter summaries, and the assignment index that ties both together.
package cache

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
)

// Cache is the only shared mutable state of a dashboard. Every read returns a
// copy; every write replaces the smallest addressable unit under the lock.
type Cache struct {
	mu        sync.RWMutex
	events    map[int]*domain.Event
	summaries map[int]domain.EventSummary
	now       func() time.Time
	logger    *slog.Logger
}

// New returns an empty cache. now defaults to time.Now.
func New(logger *slog.Logger, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		events:    make(map[int]*domain.Event),
		summaries: make(map[int]domain.EventSummary),
		now:       now,
		logger:    logger,
	}
}

// UpsertEvent normalizes a snapshot and stores it, replacing any previous
// version wholesale. When the snapshot does not state an assignment, an event
// already known as assigned stays assigned.
func (c *Cache) UpsertEvent(s *domain.EventSnapshot) (*domain.Event, bool) {
	ev, ok := domain.NormalizeEvent(s, c.now())
	if !ok {
		c.logger.Debug("ignoring event snapshot without id")
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.IsAssigned == nil && c.isAssignedLocked(ev.ID) {
		ev.IsAssigned = true
	}
	c.events[ev.ID] = ev
	if sum, ok := c.summaries[ev.ID]; ok {
		sum.Assigned = ev.IsAssigned
		c.summaries[ev.ID] = sum
	}
	return ev.Clone(), true
}

// UpsertSummary stores a summary. If the full event is already cached, its
// assignment wins over the summary's.
func (c *Cache) UpsertSummary(s *domain.SummarySnapshot) (domain.EventSummary, bool) {
	sum, ok := domain.NormalizeSummary(s)
	if !ok {
		return domain.EventSummary{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ev, ok := c.events[sum.ID]; ok {
		sum.Assigned = ev.IsAssigned
	}
	c.summaries[sum.ID] = sum
	return sum, true
}

// MarkAssigned flags the event as assigned in both the full cache and the summaries.
func (c *Cache) MarkAssigned(id int) bool {
	return c.setAssigned(id, true)
}

// MarkUnassigned clears the assignment flag in both the full cache and the summaries.
func (c *Cache) MarkUnassigned(id int) bool {
	return c.setAssigned(id, false)
}

func (c *Cache) setAssigned(id int, assigned bool) bool {
	if id <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	found := false
	if ev, ok := c.events[id]; ok {
		ev.IsAssigned = assigned
		found = true
	}
	if sum, ok := c.summaries[id]; ok {
		sum.Assigned = assigned
		c.summaries[id] = sum
		found = true
	}
	return found
}

// IsAssigned reports the assignment state of an event known in either form.
func (c *Cache) IsAssigned(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isAssignedLocked(id)
}

func (c *Cache) isAssignedLocked(id int) bool {
	if ev, ok := c.events[id]; ok {
		return ev.IsAssigned
	}
	if sum, ok := c.summaries[id]; ok {
		return sum.Assigned
	}
	return false
}

// GetEvent returns a copy of the cached event.
func (c *Cache) GetEvent(id int) (*domain.Event, bool) {
	if id <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[id]
	if !ok {
		return nil, false
	}
	return ev.Clone(), true
}

// GetSummary returns the stored summary for id.
func (c *Cache) GetSummary(id int) (domain.EventSummary, bool) {
	if id <= 0 {
		return domain.EventSummary{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	sum, ok := c.summaries[id]
	return sum, ok
}

// Snapshot returns copies of every full event and summary, ordered by id.
func (c *Cache) Snapshot() ([]*domain.Event, []domain.EventSummary) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	events := make([]*domain.Event, 0, len(c.events))
	for _, ev := range c.events {
		events = append(events, ev.Clone())
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })

	summaries := make([]domain.EventSummary, 0, len(c.summaries))
	for _, s := range c.summaries {
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return events, summaries
}

// RemoveEvent evicts an event and its summary.
func (c *Cache) RemoveEvent(id int) bool {
	if id <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, hadEvent := c.events[id]
	_, hadSummary := c.summaries[id]
	delete(c.events, id)
	delete(c.summaries, id)
	return hadEvent || hadSummary
}

// Reset drops everything, used on dashboard teardown.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = make(map[int]*domain.Event)
	c.summaries = make(map[int]domain.EventSummary)
}
