// Package pending keeps track of in-flight requests per (action, entity) so a
// repeated trigger joins the running request instead of issuing a duplicate.
package pending

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mjpery-beep/mj-member-sub014/internal/metrics"
)

// Action names the kind of request tracked by the registry.
type Action string

const (
	ActionFetch      Action = "fetch"
	ActionClaim      Action = "claim"
	ActionRelease    Action = "release"
	ActionRemove     Action = "remove_registration"
	ActionAddMembers Action = "add_members"
	ActionMessage    Action = "send_message"
)

// Key identifies one entity under one action.
type Key struct {
	Action   Action
	EntityID int
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Action, k.EntityID)
}

// Registry guarantees at most one in-flight request per Key. Joinable actions
// share the running call's result; exclusive actions reject the second caller.
type Registry struct {
	group   singleflight.Group
	mu      sync.Mutex
	gen     uint64
	calls   map[Key]uint64 // generation of the joinable call running for key
	waiting map[Key]int
	held    map[Key]struct{}
	metrics *metrics.Metrics
}

// New returns an empty registry. m may be nil.
func New(m *metrics.Metrics) *Registry {
	return &Registry{
		calls:   make(map[Key]uint64),
		waiting: make(map[Key]int),
		held:    make(map[Key]struct{}),
		metrics: m,
	}
}

// Do runs fn for key, or waits for the call already running for key and returns
// its result. shared is true when the result was delivered to more than one
// caller. fn runs detached from the caller's cancellation so that a caller
// giving up does not fail the others; the entry is removed when fn returns,
// whether it succeeded, failed or panicked.
func Do[T any](ctx context.Context, r *Registry, key Key, fn func(context.Context) (T, error)) (result T, shared bool, err error) {
	// Registration and attachment happen under one lock, and every call gets
	// its own group key, so a caller counted as joined always receives the
	// result of the call it was counted against.
	r.mu.Lock()
	gen, joined := r.calls[key]
	if !joined {
		r.gen++
		gen = r.gen
		r.calls[key] = gen
	}
	r.waiting[key]++
	ch := r.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		r.metrics.PendingStarted(string(key.Action))
		defer r.metrics.PendingFinished(string(key.Action))
		defer r.finish(key, gen)
		return fn(context.WithoutCancel(ctx))
	})
	r.mu.Unlock()
	if joined {
		r.metrics.Joined(string(key.Action))
	}
	defer r.leave(key)

	select {
	case res := <-ch:
		v, _ := res.Val.(T)
		return v, res.Shared, res.Err
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// finish closes generation gen of key to new joiners.
func (r *Registry) finish(key Key, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls[key] == gen {
		delete(r.calls, key)
	}
}

func (r *Registry) leave(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waiting[key] <= 1 {
		delete(r.waiting, key)
		return
	}
	r.waiting[key]--
}

// TryAcquire claims key for an exclusive action. It returns false when the key
// is already held or a joinable call is running for it. The returned release
// func is idempotent.
func (r *Registry) TryAcquire(key Key) (release func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.held[key]; busy {
		return func() {}, false
	}
	if r.waiting[key] > 0 {
		return func() {}, false
	}
	r.held[key] = struct{}{}
	r.metrics.PendingStarted(string(key.Action))

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.held, key)
			r.mu.Unlock()
			r.metrics.PendingFinished(string(key.Action))
		})
	}, true
}

// InFlight reports whether any request is running for key.
func (r *Registry) InFlight(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.held[key]
	return held || r.waiting[key] > 0
}

// Waiting returns how many callers are attached to key.
func (r *Registry) Waiting(key Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting[key]
}
