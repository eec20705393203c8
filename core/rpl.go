package core

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/encodeous/rpl/protocol"
	"github.com/encodeous/rpl/state"
)

// Rpl is the RPL control plane of a node: the DIO and DAO schedulers, the
// message dispatcher and, in storing mode, the routing table with its aging
// sweep. It is only touched from the dispatch goroutine.
type Rpl struct {
	dio     protocol.Dio
	dao     protocol.DaoHeader
	transit protocol.TransitOption

	// shared by DIO and DAO, a node has at most one control message in flight
	busySending bool
	// storing mode: the next DAO announces a table entry rather than children
	announceRoute bool

	dioPeriod time.Duration
	daoPeriod time.Duration
	rtPeriod  time.Duration
	dioTimer  state.TimerId
	daoTimer  state.TimerId
	rtTimer   state.TimerId

	// Routes is nil in non-storing mode
	Routes *RouteTable
	log    *slog.Logger
}

func (r *Rpl) Init(s *state.State) error {
	r.log = s.Log.With("module", "rpl")
	r.log.Debug("init rpl", "mode", s.Mode)

	r.dioPeriod = s.DioPeriod()
	r.daoPeriod = s.DaoPeriod()
	r.rtPeriod = s.RtPeriod()

	self := r.selfAddr(s).As16()
	r.dio = protocol.Dio{
		InstanceId: 0,
		Version:    0,
		Rank:       state.DefaultDagRank,
		Options:    protocol.DioOptions(s.Mode),
		Dtsn:       protocol.DefaultDtsn,
		DodagId:    self,
	}
	r.dao = protocol.DaoHeader{
		InstanceId: 0,
		Flags:      protocol.DaoFlagD,
		DodagId:    self,
	}
	r.transit = protocol.TransitOption{
		PathLifetime: s.PathLifetime,
	}
	if s.Mode == state.NonStoring {
		r.transit.Length = protocol.TransitOptionLength
	}

	r.dioTimer = s.Timers.Start(r.jitter(s, r.dioPeriod), func() {
		s.Dispatch(dioTimerFired)
	})
	r.daoTimer = s.Timers.Start(r.jitter(s, r.daoPeriod), func() {
		s.Dispatch(daoTimerFired)
	})
	if s.Mode == state.Storing {
		r.Routes = NewRouteTable()
		r.rtTimer = s.Timers.Start(r.jitter(s, r.rtPeriod), func() {
			s.Dispatch(rtTimerFired)
		})
	}
	return nil
}

func (r *Rpl) Cleanup(s *state.State) error {
	s.Timers.Stop(r.dioTimer)
	s.Timers.Stop(r.daoTimer)
	if r.Routes != nil {
		s.Timers.Stop(r.rtTimer)
	}
	s.Queue.RemoveAllCreatedBy(state.ComponentRpl)
	r.busySending = false
	return nil
}

func (r *Rpl) jitter(s *state.State, period time.Duration) time.Duration {
	return Jitter(period, s.Rand.Uint8())
}

func (r *Rpl) selfAddr(s *state.State) netip.Addr {
	return s.Addr.MacToIp(s.Identity.Prefix(), s.Identity.Eui64())
}

func (r *Rpl) DodagId() [16]byte {
	return r.dio.DodagId
}

// WriteDodagId sets the DODAG we belong to and takes our prefix from it.
func (r *Rpl) WriteDodagId(s *state.State, id [16]byte) {
	r.dio.DodagId = id
	r.dao.DodagId = id
	var prefix state.NetPrefix
	copy(prefix[:], id[:8])
	s.Identity.SetPrefix(prefix)
}

func (r *Rpl) InstanceId() uint8 {
	return r.dio.InstanceId
}

// Busy reports whether a DIO or DAO is waiting for its send completion.
func (r *Rpl) Busy() bool {
	return r.busySending
}

func (r *Rpl) SetDioPeriod(s *state.State, period time.Duration) {
	r.dioPeriod = period
	s.Timers.SetPeriod(r.dioTimer, r.jitter(s, period))
}

func (r *Rpl) SetDaoPeriod(s *state.State, period time.Duration) {
	r.daoPeriod = period
	s.Timers.SetPeriod(r.daoTimer, r.jitter(s, period))
}

func (r *Rpl) SetRtPeriod(s *state.State, period time.Duration) {
	r.rtPeriod = period
	if r.Routes != nil {
		s.Timers.SetPeriod(r.rtTimer, r.jitter(s, period))
	}
}

// NextHop picks the neighbour a packet for dst is handed to: dst itself when
// it is a neighbour, the reporter of a stored downward route, or otherwise our
// preferred parent.
func (r *Rpl) NextHop(s *state.State, dst netip.Addr) (netip.Addr, bool) {
	if dst == r.selfAddr(s) {
		return netip.Addr{}, false
	}
	prefix, mac := s.Addr.IpToMac(dst)
	if prefix == s.Identity.Prefix() {
		for _, n := range s.Neighbours.Neighbours() {
			if n.Addr == mac {
				return dst, true
			}
		}
	}
	if r.Routes != nil {
		if e, ok := r.Routes.NextHop(dst); ok {
			return e.ReporterAddr, true
		}
	}
	if parent, ok := s.Neighbours.PreferredParent(); ok {
		return s.Addr.MacToIp(s.Identity.Prefix(), parent), true
	}
	return netip.Addr{}, false
}

// flush drops every packet we queued but did not get to send.
func (r *Rpl) flush(s *state.State) {
	s.Queue.RemoveAllCreatedBy(state.ComponentRpl)
	r.busySending = false
}

func dioTimerFired(s *state.State) error {
	r := Get[*Rpl](s)
	s.Timers.SetPeriod(r.dioTimer, r.jitter(s, r.dioPeriod))
	r.sendDio(s)
	return nil
}

func daoTimerFired(s *state.State) error {
	r := Get[*Rpl](s)
	s.Timers.SetPeriod(r.daoTimer, r.jitter(s, r.daoPeriod))
	r.sendDao(s)
	return nil
}

func rtTimerFired(s *state.State) error {
	r := Get[*Rpl](s)
	s.Timers.SetPeriod(r.rtTimer, r.jitter(s, r.rtPeriod))
	r.sweepRoutes(s)
	return nil
}

func (r *Rpl) sweepRoutes(s *state.State) {
	if r.Routes == nil {
		return
	}
	for _, e := range r.Routes.Sweep(s.RtAging) {
		r.log.Debug("route expired", "dst", e.Destination, "via", e.ReporterAddr)
		trace(s, RouteExpired, e.Destination, e.ReporterAddr)
	}
	if n := r.Routes.CountInUse(); n > 0 {
		r.log.Debug("routing table", "routes", n, "table", "\n"+r.Routes.String())
	}
}
