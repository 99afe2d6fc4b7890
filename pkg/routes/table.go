// Package routes holds the client's view of where names are reachable.
// The table is populated by control-plane input and consulted on every
// send, so lookups favor concurrent readers and never block on anything
// but the lock.
package routes

import (
	"sort"
	"sync"
	"time"

	"github.com/gdp-net/gdp-go/pkg/name"
)

const (
	// DefaultStaleAfter is how long a route stays usable without a
	// refresh from the control plane.
	DefaultStaleAfter = 5 * time.Minute

	// DefaultBackoff is how long a route is skipped after a transient
	// transport failure.
	DefaultBackoff = 3 * time.Second
)

// Endpoint is the transport-level address realizing a route, e.g. a UDP
// host:port. It is opaque to the table beyond equality.
type Endpoint string

// Route is one candidate path to a name. Lower metric is better.
type Route struct {
	Endpoint Endpoint
	Metric   uint16
	LastSeen time.Time
}

type entry struct {
	Route
	failedAt time.Time // zero when the route has no recent failure
}

// Table maps names to their candidate routes. Safe for concurrent use.
type Table struct {
	mu         sync.RWMutex
	routes     map[name.Name][]entry
	staleAfter time.Duration
	backoff    time.Duration
}

func NewTable(staleAfter, backoff time.Duration) *Table {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Table{
		routes:     make(map[name.Name][]entry),
		staleAfter: staleAfter,
		backoff:    backoff,
	}
}

// Upsert adds or refreshes a route. A route for an endpoint already known
// for the name replaces the old one and clears its failure state; the
// table never holds two routes for the same (name, endpoint) pair.
func (t *Table) Upsert(n name.Name, r Route) {
	if r.LastSeen.IsZero() {
		r.LastSeen = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.routes[n]
	for i := range list {
		if list[i].Endpoint == r.Endpoint {
			list[i] = entry{Route: r}
			return
		}
	}
	t.routes[n] = append(list, entry{Route: r})
}

// Lookup returns the candidate routes for a name, best first: lowest
// metric, ties broken by most recent refresh. Routes inside their failure
// backoff window sort after untried ones; when every candidate is backing
// off the name is unreachable and the result is empty. Stale entries are
// evicted here rather than by a background timer, so no second goroutine
// touches the table. An empty result means "no known route", never an
// error.
func (t *Table) Lookup(n name.Name, now time.Time) []Route {
	t.mu.RLock()
	list := t.routes[n]
	stale := false
	for _, e := range list {
		if now.Sub(e.LastSeen) >= t.staleAfter {
			stale = true
			break
		}
	}
	candidates := append([]entry(nil), list...)
	t.mu.RUnlock()

	// Only a lookup that actually found stale entries pays for the
	// write lock.
	if stale {
		t.mu.Lock()
		candidates = append([]entry(nil), t.evictLocked(n, now)...)
		t.mu.Unlock()
	}

	if len(candidates) == 0 {
		return nil
	}

	inBackoff := func(e entry) bool {
		return !e.failedAt.IsZero() && now.Sub(e.failedAt) < t.backoff
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		bi, bj := inBackoff(candidates[i]), inBackoff(candidates[j])
		if bi != bj {
			return !bi
		}
		if candidates[i].Metric != candidates[j].Metric {
			return candidates[i].Metric < candidates[j].Metric
		}
		return candidates[i].LastSeen.After(candidates[j].LastSeen)
	})

	if inBackoff(candidates[0]) {
		return nil
	}

	out := make([]Route, len(candidates))
	for i, e := range candidates {
		out[i] = e.Route
	}
	return out
}

// Demote records a transient failure on (n, ep) so following lookups
// prefer alternate routes.
func (t *Table) Demote(n name.Name, ep Endpoint, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.routes[n]
	for i := range list {
		if list[i].Endpoint == ep {
			list[i].failedAt = now
			return
		}
	}
}

// EvictStale drops every route not refreshed within the staleness window.
func (t *Table) EvictStale(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for n := range t.routes {
		t.evictLocked(n, now)
	}
}

// Invalidate removes all routes for a name.
func (t *Table) Invalidate(n name.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.routes, n)
}

// Len returns the number of names with at least one route.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}

func (t *Table) evictLocked(n name.Name, now time.Time) []entry {
	list := t.routes[n]
	kept := list[:0]
	for _, e := range list {
		if now.Sub(e.LastSeen) < t.staleAfter {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(t.routes, n)
		return nil
	}
	t.routes[n] = kept
	return kept
}
