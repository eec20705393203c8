package core

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/encodeous/rpl/perf"
	"github.com/encodeous/rpl/state"
	"github.com/gaissmai/bart"
)

// RouteEntry binds a descendant destination to the child that reported it.
type RouteEntry struct {
	Destination  netip.Addr
	ReporterAddr netip.Addr
	ReporterLink state.LinkAddr
	DaoSequence  uint8
	PathSequence uint8
	// PathLifetime is signed so a sweep can take it below zero.
	PathLifetime int
	PendingSend  bool
	SentCount    int
	RetryCount   int
	InUse        bool
}

func (e RouteEntry) String() string {
	return fmt.Sprintf("%s via %s (%s) dao=%d path=%d life=%d sent=%d pending=%t",
		e.Destination, e.ReporterAddr, e.ReporterLink, e.DaoSequence, e.PathSequence, e.PathLifetime, e.SentCount, e.PendingSend)
}

type RegisterResult int

const (
	RouteInserted RegisterResult = iota
	RouteUpdated
	RouteDuplicate
	RouteTableFull
)

func (r RegisterResult) String() string {
	switch r {
	case RouteInserted:
		return "inserted"
	case RouteUpdated:
		return "updated"
	case RouteDuplicate:
		return "duplicate"
	case RouteTableFull:
		return "table full"
	}
	return "unknown"
}

// RouteTable is the storing-mode table of descendant routes. Slots are fixed;
// a registration that finds no free slot is dropped. fib indexes in-use slots
// by destination for forwarding lookups.
type RouteTable struct {
	entries [state.MaxRouteNum]RouteEntry
	fib     bart.Table[int]
}

func NewRouteTable() *RouteTable {
	rt := &RouteTable{}
	for i := range rt.entries {
		rt.Evict(i)
	}
	return rt
}

func hostPrefix(addr netip.Addr) netip.Prefix {
	return netip.PrefixFrom(addr, addr.BitLen())
}

// Register inserts or refreshes the route to dst. An existing entry is only
// touched if the sequence numbers or the reporter changed.
func (rt *RouteTable) Register(dst, reporter netip.Addr, link state.LinkAddr, daoSeq, pathSeq, lifetime uint8) RegisterResult {
	idx := rt.IndexOf(dst)
	if idx != -1 {
		e := &rt.entries[idx]
		if e.DaoSequence == daoSeq && e.PathSequence == pathSeq && e.ReporterAddr == reporter {
			return RouteDuplicate
		}
		e.ReporterAddr = reporter
		e.ReporterLink = link
		e.DaoSequence = daoSeq
		e.PathSequence = pathSeq
		e.PathLifetime = int(lifetime)
		e.PendingSend = true
		e.RetryCount = 0
		return RouteUpdated
	}
	for i := range rt.entries {
		e := &rt.entries[i]
		if e.InUse {
			continue
		}
		*e = RouteEntry{
			Destination:  dst,
			ReporterAddr: reporter,
			ReporterLink: link,
			DaoSequence:  daoSeq,
			PathSequence: pathSeq,
			PathLifetime: int(lifetime),
			PendingSend:  true,
			InUse:        true,
		}
		rt.fib.Insert(hostPrefix(dst), i)
		perf.RoutesRegistered.Add(1)
		return RouteInserted
	}
	return RouteTableFull
}

func (rt *RouteTable) Contains(dst netip.Addr) bool {
	return rt.IndexOf(dst) != -1
}

// IndexOf returns the slot holding dst, or -1.
func (rt *RouteTable) IndexOf(dst netip.Addr) int {
	for i, e := range rt.entries {
		if e.InUse && e.Destination == dst {
			return i
		}
	}
	return -1
}

// Evict frees a slot. The slot is left eligible for sending, although an
// unused slot is never selected.
func (rt *RouteTable) Evict(slot int) {
	e := &rt.entries[slot]
	if e.InUse {
		rt.fib.Delete(hostPrefix(e.Destination))
		perf.RoutesEvicted.Add(1)
	}
	*e = RouteEntry{PendingSend: true}
}

func (rt *RouteTable) CountInUse() int {
	n := 0
	for _, e := range rt.entries {
		if e.InUse {
			n++
		}
	}
	return n
}

func (rt *RouteTable) Entry(slot int) RouteEntry {
	return rt.entries[slot]
}

// SelectNext picks the route to announce in the next DAO: the first pending
// entry, otherwise the one announced the fewest times, ties going to the
// lower slot. The chosen entry is marked as sent. Returns -1 if the table is
// empty.
func (rt *RouteTable) SelectNext() int {
	best := -1
	for i, e := range rt.entries {
		if !e.InUse {
			continue
		}
		if e.PendingSend {
			best = i
			break
		}
		if best == -1 || e.SentCount < rt.entries[best].SentCount {
			best = i
		}
	}
	if best == -1 {
		return -1
	}
	rt.entries[best].PendingSend = false
	rt.entries[best].SentCount++
	return best
}

// Sweep ages every route by step and evicts those whose lifetime ran out.
func (rt *RouteTable) Sweep(step int) []RouteEntry {
	evicted := make([]RouteEntry, 0)
	for i := range rt.entries {
		e := &rt.entries[i]
		if !e.InUse {
			continue
		}
		e.PathLifetime -= step
		if e.PathLifetime <= 0 {
			evicted = append(evicted, *e)
			rt.Evict(i)
		}
	}
	return evicted
}

// NextHop returns the route used to forward toward addr.
func (rt *RouteTable) NextHop(addr netip.Addr) (RouteEntry, bool) {
	slot, ok := rt.fib.Lookup(addr)
	if !ok {
		return RouteEntry{}, false
	}
	return rt.entries[slot], true
}

func (rt *RouteTable) String() string {
	sb := strings.Builder{}
	for i, e := range rt.entries {
		if !e.InUse {
			continue
		}
		sb.WriteString(fmt.Sprintf("%2d %s\n", i, e))
	}
	return sb.String()
}
