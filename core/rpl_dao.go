package core

import (
	"net/netip"

	"github.com/encodeous/rpl/perf"
	"github.com/encodeous/rpl/protocol"
	"github.com/encodeous/rpl/state"
)

// sendDao reports our descendants upward. Roots, nodes without a rank and
// nodes with a send in flight skip the cycle.
func (r *Rpl) sendDao(s *state.State) {
	if !s.Link.IsSynced() {
		r.flush(s)
		return
	}
	if s.Identity.IsDagRoot() {
		return
	}
	if s.Neighbours.MyDagRank() == state.DefaultDagRank {
		return
	}
	if r.busySending {
		return
	}

	p := s.Queue.Acquire(state.ComponentRpl)
	if p == nil {
		s.Diag.Error(state.ComponentRpl, state.ErrNoFreePacketBuffer, 0, 0)
		return
	}
	p.Owner = state.ComponentRpl
	p.Src = r.selfAddr(s)

	transit := r.transit
	var targets []protocol.TargetOption
	if s.Mode == state.Storing {
		parent, ok := s.Neighbours.PreferredParent()
		if !ok {
			s.Queue.Release(p)
			return
		}
		p.Dst = s.Addr.MacToIp(s.Identity.Prefix(), parent)
		targets = r.storingTargets(s)
	} else {
		parent, ok := s.Neighbours.PreferredParent()
		if !ok {
			s.Queue.Release(p)
			return
		}
		transit.Parent = s.Addr.MacToIp(s.Identity.Prefix(), parent).As16()
		p.Dst = netip.AddrFrom16(r.dao.DodagId)
		targets = r.childTargets(s)
	}
	if len(targets) == 0 {
		s.Queue.Release(p)
		return
	}

	transit.PathSequence = r.transit.PathSequence
	r.transit.PathSequence++

	dao := protocol.Dao{
		Header:  r.dao,
		Options: make([]protocol.Option, 0, len(targets)+1),
	}
	dao.Options = append(dao.Options, transit)
	for _, t := range targets {
		dao.Options = append(dao.Options, t)
	}

	err := protocol.EncodeDao(p.Payload, &dao)
	if err == nil {
		err = protocol.Frame(p.Payload, protocol.CodeDao, p.Src, p.Dst)
	}
	if err == nil {
		err = s.Net.Send(p)
	}
	if err != nil {
		r.log.Debug("failed to send DAO", "error", err)
		s.Queue.Release(p)
		return
	}
	r.busySending = true
	perf.DaoSent.Add(1)
	for _, t := range targets {
		trace(s, DaoSent, t.Addr(), p.Dst)
	}
}

// childTargets lists neighbours that have a higher rank than us, up to the
// configured number of targets.
func (r *Rpl) childTargets(s *state.State) []protocol.TargetOption {
	targets := make([]protocol.TargetOption, 0)
	prefix := s.Identity.Prefix()
	for i, n := range s.Neighbours.Neighbours() {
		if len(targets) >= s.MaxTargetParents {
			break
		}
		if !s.Neighbours.IsNeighbourWithHigherRank(i) {
			continue
		}
		targets = append(targets, protocol.NewTargetOption(s.Addr.MacToIp(prefix, n.Addr)))
	}
	return targets
}

// storingTargets alternates between one routing table entry and our
// direct children. Leaves never send a DAO themselves, so their routes only
// stay alive upstream if we keep announcing them. A phase with nothing to
// announce gives the cycle to the other one.
func (r *Rpl) storingTargets(s *state.State) []protocol.TargetOption {
	if r.announceRoute {
		if targets := r.routeTargets(); len(targets) > 0 {
			r.announceRoute = false
			return targets
		}
	}
	r.announceRoute = true
	if targets := r.childTargets(s); len(targets) > 0 {
		return targets
	}
	targets := r.routeTargets()
	if len(targets) > 0 {
		r.announceRoute = false
	}
	return targets
}

func (r *Rpl) routeTargets() []protocol.TargetOption {
	targets := make([]protocol.TargetOption, 0, state.MaxRouteSend)
	for range state.MaxRouteSend {
		slot := r.Routes.SelectNext()
		if slot == -1 {
			break
		}
		targets = append(targets, protocol.NewTargetOption(r.Routes.Entry(slot).Destination))
	}
	return targets
}
