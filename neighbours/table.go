package neighbours

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/encodeous/rpl/state"
	"github.com/jellydator/ttlcache/v3"
)

// Table tracks the rank advertised by every neighbour we heard a DIO from.
// Entries expire when a neighbour stays silent for longer than the timeout.
// Our own rank is one MinHopRankIncrease above the best neighbour.
type Table struct {
	root     bool
	timeout  time.Duration
	entries  *ttlcache.Cache[state.LinkAddr, uint16]
	snapshot []state.Neighbour
	started  bool
	log      *slog.Logger
}

func New(root bool, timeout time.Duration) *Table {
	return &Table{
		root:    root,
		timeout: timeout,
		entries: ttlcache.New[state.LinkAddr, uint16](
			ttlcache.WithTTL[state.LinkAddr, uint16](timeout),
			ttlcache.WithDisableTouchOnHit[state.LinkAddr, uint16](),
		),
		log: slog.New(slog.DiscardHandler),
	}
}

func (t *Table) Init(s *state.State) error {
	t.log = s.Log.With("module", "neighbours")
	t.entries.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[state.LinkAddr, uint16]) {
		if reason == ttlcache.EvictionReasonExpired {
			t.log.Debug("neighbour expired", "addr", item.Key(), "rank", item.Value())
		}
	})
	go t.entries.Start()
	t.started = true
	return nil
}

func (t *Table) Cleanup(s *state.State) error {
	if t.started {
		t.entries.Stop()
		t.started = false
	}
	return nil
}

func (t *Table) IndicateRxDio(src state.LinkAddr, rank uint16) {
	prev := t.entries.Get(src)
	if prev == nil || prev.Value() != rank {
		t.log.Debug("neighbour rank", "addr", src, "rank", rank)
	}
	t.entries.Set(src, rank, ttlcache.DefaultTTL)
}

func (t *Table) live() []state.Neighbour {
	nbrs := make([]state.Neighbour, 0, t.entries.Len())
	for addr, item := range t.entries.Items() {
		if item.IsExpired() {
			continue
		}
		nbrs = append(nbrs, state.Neighbour{Addr: addr, Rank: item.Value()})
	}
	slices.SortFunc(nbrs, func(a, b state.Neighbour) int {
		return bytes.Compare(a.Addr[:], b.Addr[:])
	})
	return nbrs
}

// Neighbours returns live neighbours ordered by address.
func (t *Table) Neighbours() []state.Neighbour {
	t.snapshot = t.live()
	return slices.Clone(t.snapshot)
}

// IsNeighbourWithHigherRank reports whether entry idx of the last snapshot
// has a rank strictly greater than ours.
func (t *Table) IsNeighbourWithHigherRank(idx int) bool {
	if idx < 0 || idx >= len(t.snapshot) {
		return false
	}
	return t.snapshot[idx].Rank > t.MyDagRank()
}

// PreferredParent is the live neighbour with the lowest rank, ties broken by address.
func (t *Table) PreferredParent() (state.LinkAddr, bool) {
	if t.root {
		return state.LinkAddr{}, false
	}
	var best state.Neighbour
	found := false
	for _, n := range t.live() {
		if n.Rank == state.DefaultDagRank {
			continue
		}
		if !found || n.Rank < best.Rank {
			best = n
			found = true
		}
	}
	return best.Addr, found
}

func (t *Table) MyDagRank() uint16 {
	if t.root {
		return state.MinHopRankIncrease
	}
	parent, ok := t.PreferredParent()
	if !ok {
		return state.DefaultDagRank
	}
	item := t.entries.Get(parent)
	if item == nil {
		return state.DefaultDagRank
	}
	return AddRank(item.Value(), state.MinHopRankIncrease)
}

// AddRank adds b to a, saturating at DefaultDagRank.
func AddRank(a, b uint16) uint16 {
	if a == state.DefaultDagRank || b == state.DefaultDagRank {
		return state.DefaultDagRank
	}
	return uint16(min(uint32(state.DefaultDagRank), uint32(a)+uint32(b)))
}
