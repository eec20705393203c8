package core

import (
	"net/netip"

	"github.com/encodeous/rpl/perf"
	"github.com/encodeous/rpl/protocol"
	"github.com/encodeous/rpl/state"
)

// sendDio multicasts our DIO if we are synced, have a rank and are not
// already waiting on a send.
func (r *Rpl) sendDio(s *state.State) {
	if !s.Link.IsSynced() {
		r.flush(s)
		return
	}
	rank := s.Neighbours.MyDagRank()
	if rank == state.DefaultDagRank {
		return
	}
	if r.busySending {
		return
	}
	r.busySending = true

	p := s.Queue.Acquire(state.ComponentRpl)
	if p == nil {
		s.Diag.Error(state.ComponentRpl, state.ErrNoFreePacketBuffer, 0, 0)
		r.busySending = false
		return
	}
	p.Owner = state.ComponentRpl
	p.Src = r.selfAddr(s)
	p.Dst = netip.AddrFrom16(state.AllRoutersMulticast)

	r.dio.Rank = rank
	err := protocol.EncodeDio(p.Payload, &r.dio)
	if err == nil {
		err = protocol.Frame(p.Payload, protocol.CodeDio, p.Src, p.Dst)
	}
	if err == nil {
		err = s.Net.Send(p)
	}
	if err != nil {
		r.log.Debug("failed to send DIO", "error", err)
		s.Queue.Release(p)
		r.busySending = false
		return
	}
	perf.DioSent.Add(1)
	trace(s, DioSent, p.Dst, netip.Addr{})
}
