package routes

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdp-net/gdp-go/pkg/name"
)

func testName(b byte) name.Name {
	var n name.Name
	n[0] = b
	return n
}

func TestLookupUnknownName(t *testing.T) {
	tbl := NewTable(DefaultStaleAfter, DefaultBackoff)
	assert.Nil(t, tbl.Lookup(testName(1), time.Now()))
}

func TestLookupOrdering(t *testing.T) {
	tbl := NewTable(DefaultStaleAfter, DefaultBackoff)
	now := time.Now()
	dst := testName(1)

	tbl.Upsert(dst, Route{Endpoint: "10.0.0.2:5006", Metric: 3, LastSeen: now})
	tbl.Upsert(dst, Route{Endpoint: "10.0.0.3:5006", Metric: 1, LastSeen: now.Add(-time.Second)})
	tbl.Upsert(dst, Route{Endpoint: "10.0.0.4:5006", Metric: 1, LastSeen: now})

	got := tbl.Lookup(dst, now)
	require.Len(t, got, 3)
	// lowest metric first, metric ties broken by most recent refresh
	assert.Equal(t, Endpoint("10.0.0.4:5006"), got[0].Endpoint)
	assert.Equal(t, Endpoint("10.0.0.3:5006"), got[1].Endpoint)
	assert.Equal(t, Endpoint("10.0.0.2:5006"), got[2].Endpoint)
}

func TestLookupIdempotent(t *testing.T) {
	tbl := NewTable(DefaultStaleAfter, DefaultBackoff)
	now := time.Now()
	dst := testName(1)
	for i := 0; i < 5; i++ {
		tbl.Upsert(dst, Route{
			Endpoint: Endpoint(fmt.Sprintf("10.0.0.%d:5006", i+2)),
			Metric:   uint16(5 - i),
			LastSeen: now,
		})
	}

	first := tbl.Lookup(dst, now)
	second := tbl.Lookup(dst, now)
	assert.Equal(t, first, second)
}

func TestUpsertDedupesEndpoint(t *testing.T) {
	tbl := NewTable(DefaultStaleAfter, DefaultBackoff)
	now := time.Now()
	dst := testName(1)

	tbl.Upsert(dst, Route{Endpoint: "10.0.0.2:5006", Metric: 5, LastSeen: now})
	tbl.Upsert(dst, Route{Endpoint: "10.0.0.2:5006", Metric: 2, LastSeen: now})

	got := tbl.Lookup(dst, now)
	require.Len(t, got, 1)
	assert.Equal(t, uint16(2), got[0].Metric)
}

func TestUpsertClearsFailureState(t *testing.T) {
	tbl := NewTable(DefaultStaleAfter, DefaultBackoff)
	now := time.Now()
	dst := testName(1)
	ep := Endpoint("10.0.0.2:5006")

	tbl.Upsert(dst, Route{Endpoint: ep, Metric: 1, LastSeen: now})
	tbl.Demote(dst, ep, now)
	require.Nil(t, tbl.Lookup(dst, now), "sole demoted route should be unreachable")

	tbl.Upsert(dst, Route{Endpoint: ep, Metric: 1, LastSeen: now})
	assert.Len(t, tbl.Lookup(dst, now), 1, "refresh should clear the backoff")
}

func TestDemoteReordersRoutes(t *testing.T) {
	tbl := NewTable(DefaultStaleAfter, DefaultBackoff)
	now := time.Now()
	dst := testName(1)

	tbl.Upsert(dst, Route{Endpoint: "10.0.0.2:5006", Metric: 1, LastSeen: now})
	tbl.Upsert(dst, Route{Endpoint: "10.0.0.3:5006", Metric: 2, LastSeen: now})

	got := tbl.Lookup(dst, now)
	require.Len(t, got, 2)
	require.Equal(t, Endpoint("10.0.0.2:5006"), got[0].Endpoint)

	tbl.Demote(dst, "10.0.0.2:5006", now)

	got = tbl.Lookup(dst, now)
	require.Len(t, got, 2)
	assert.Equal(t, Endpoint("10.0.0.3:5006"), got[0].Endpoint,
		"untried route should outrank the freshly failed one")
}

func TestAllRoutesBackingOffMeansUnreachable(t *testing.T) {
	tbl := NewTable(DefaultStaleAfter, DefaultBackoff)
	now := time.Now()
	dst := testName(1)

	tbl.Upsert(dst, Route{Endpoint: "10.0.0.2:5006", Metric: 1, LastSeen: now})
	tbl.Upsert(dst, Route{Endpoint: "10.0.0.3:5006", Metric: 2, LastSeen: now})
	tbl.Demote(dst, "10.0.0.2:5006", now)
	tbl.Demote(dst, "10.0.0.3:5006", now)

	assert.Nil(t, tbl.Lookup(dst, now))

	// Past the backoff window both routes come back.
	later := now.Add(DefaultBackoff + time.Millisecond)
	assert.Len(t, tbl.Lookup(dst, later), 2)
}

func TestLazyEvictionOnLookup(t *testing.T) {
	tbl := NewTable(time.Minute, DefaultBackoff)
	now := time.Now()
	dst := testName(1)

	tbl.Upsert(dst, Route{Endpoint: "10.0.0.2:5006", Metric: 1, LastSeen: now.Add(-2 * time.Minute)})
	tbl.Upsert(dst, Route{Endpoint: "10.0.0.3:5006", Metric: 2, LastSeen: now})

	got := tbl.Lookup(dst, now)
	require.Len(t, got, 1)
	assert.Equal(t, Endpoint("10.0.0.3:5006"), got[0].Endpoint)
}

func TestEvictStaleDropsEmptyNames(t *testing.T) {
	tbl := NewTable(time.Minute, DefaultBackoff)
	now := time.Now()

	tbl.Upsert(testName(1), Route{Endpoint: "10.0.0.2:5006", Metric: 1, LastSeen: now.Add(-2 * time.Minute)})
	tbl.Upsert(testName(2), Route{Endpoint: "10.0.0.3:5006", Metric: 1, LastSeen: now})
	require.Equal(t, 2, tbl.Len())

	tbl.EvictStale(now)
	assert.Equal(t, 1, tbl.Len())
}

func TestInvalidate(t *testing.T) {
	tbl := NewTable(DefaultStaleAfter, DefaultBackoff)
	dst := testName(1)
	tbl.Upsert(dst, Route{Endpoint: "10.0.0.2:5006", Metric: 1})
	tbl.Invalidate(dst)
	assert.Nil(t, tbl.Lookup(dst, time.Now()))
	assert.Equal(t, 0, tbl.Len())
}

func TestConcurrentAccess(t *testing.T) {
	tbl := NewTable(DefaultStaleAfter, DefaultBackoff)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dst := testName(byte(i))
			ep := Endpoint(fmt.Sprintf("10.0.%d.2:5006", i))
			for j := 0; j < 100; j++ {
				tbl.Upsert(dst, Route{Endpoint: ep, Metric: 1, LastSeen: now})
				got := tbl.Lookup(dst, now)
				if len(got) != 1 || got[0].Endpoint != ep {
					t.Errorf("goroutine %d observed %v", i, got)
					return
				}
				tbl.Demote(dst, ep, now.Add(-2*DefaultBackoff))
			}
		}(i)
	}
	wg.Wait()
}
