package core

import (
	"fmt"
	"net/netip"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/rpl/state"
)

type RplEvent int

// trace events

const (
	DioSent RplEvent = iota
	DaoSent
	DodagJoined
	RouteAdded
	RouteRefreshed
	RouteExpired
	RouteDropped
)

func (e RplEvent) String() string {
	switch e {
	case DioSent:
		return "DIO_SENT"
	case DaoSent:
		return "DAO_SENT"
	case DodagJoined:
		return "DODAG_JOINED"
	case RouteAdded:
		return "ROUTE_ADDED"
	case RouteRefreshed:
		return "ROUTE_REFRESHED"
	case RouteExpired:
		return "ROUTE_EXPIRED"
	case RouteDropped:
		return "ROUTE_DROPPED"
	}
	return fmt.Sprintf("RplEvent(%d)", int(e))
}

type TraceEvent struct {
	Node  state.NodeId
	Event RplEvent
	Addr  netip.Addr
	Via   netip.Addr
}

func (t TraceEvent) String() string {
	if t.Via.IsValid() {
		return fmt.Sprintf("[%s] %s %s via %s", t.Node, t.Event, t.Addr, t.Via)
	}
	return fmt.Sprintf("[%s] %s %s", t.Node, t.Event, t.Addr)
}

// RplTrace fans protocol events out to any registered listener.
type RplTrace struct {
	broadcast.Broadcaster
}

func (n *RplTrace) Init(s *state.State) error {
	n.Broadcaster = broadcast.NewBroadcaster(1024)
	return nil
}

func (n *RplTrace) Cleanup(s *state.State) error {
	return n.Broadcaster.Close()
}

func trace(s *state.State, ev RplEvent, addr, via netip.Addr) {
	t, ok := Find[*RplTrace](s)
	if !ok || t.Broadcaster == nil {
		return
	}
	t.Submit(TraceEvent{
		Node:  s.Id,
		Event: ev,
		Addr:  addr,
		Via:   via,
	})
}
