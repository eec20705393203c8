package core

import (
	"errors"
	"net/netip"

	"github.com/encodeous/rpl/perf"
	"github.com/encodeous/rpl/protocol"
	"github.com/encodeous/rpl/state"
)

// Receive handles an inbound RPL control message. p is always released.
func (r *Rpl) Receive(s *state.State, p *state.Packet) {
	defer s.Queue.Release(p)
	perf.RplReceived.Add(1)
	p.Owner = state.ComponentRpl

	b := p.Bytes()
	code, body, err := protocol.Unframe(b)
	if err != nil {
		if errors.Is(err, protocol.ErrNotRpl) {
			s.Diag.Error(state.ComponentRpl, state.ErrMsgUnknownType, uint16(b[0]), 0)
		} else {
			s.Diag.Error(state.ComponentRpl, state.ErrMalformed, uint16(len(b)), 0)
		}
		return
	}
	if !protocol.VerifyChecksum(b, p.Src, p.Dst) {
		s.Diag.Error(state.ComponentRpl, state.ErrWrongChecksum, uint16(code), 0)
		return
	}

	switch code {
	case protocol.CodeDis:
		r.sendDio(s)
	case protocol.CodeDio:
		r.receiveDio(s, p.Src, body)
	case protocol.CodeDao:
		r.receiveDao(s, p.Src, body)
	default:
		s.Diag.Error(state.ComponentRpl, state.ErrMsgUnknownType, uint16(code), 0)
	}
}

func (r *Rpl) receiveDio(s *state.State, src netip.Addr, body []byte) {
	if s.Identity.IsDagRoot() {
		return
	}
	dio, err := protocol.DecodeDio(body)
	if err != nil {
		s.Diag.Error(state.ComponentRpl, state.ErrMalformed, protocol.CodeDio, uint16(len(body)))
		return
	}
	_, mac := s.Addr.IpToMac(src)
	s.Neighbours.IndicateRxDio(mac, dio.Rank)

	joined := dio.DodagId != r.dio.DodagId
	// our rank is recomputed on every send
	r.dio = dio
	r.WriteDodagId(s, dio.DodagId)
	if joined {
		r.log.Info("joined DODAG", "dodagid", netip.AddrFrom16(dio.DodagId), "from", src)
		trace(s, DodagJoined, netip.AddrFrom16(dio.DodagId), src)
	}
}

func (r *Rpl) receiveDao(s *state.State, src netip.Addr, body []byte) {
	dao, err := protocol.DecodeDao(body)
	if err != nil {
		s.Diag.Error(state.ComponentRpl, state.ErrMalformed, protocol.CodeDao, uint16(len(body)))
		return
	}
	if s.Mode != state.Storing || r.Routes == nil {
		return
	}
	_, link := s.Addr.IpToMac(src)
	for _, route := range dao.Routes() {
		dst := route.Target.Addr()
		res := r.Routes.Register(dst, src, link, dao.Header.Sequence, route.Transit.PathSequence, route.Transit.PathLifetime)
		switch res {
		case RouteInserted:
			r.log.Debug("route added", "dst", dst, "via", src)
			trace(s, RouteAdded, dst, src)
		case RouteUpdated:
			trace(s, RouteRefreshed, dst, src)
		case RouteTableFull:
			r.log.Debug("routing table full, dropping route", "dst", dst, "via", src)
			trace(s, RouteDropped, dst, src)
		}
	}
}

// SendDone is called once the network layer is finished with a packet we
// handed to it, whatever the outcome.
func (r *Rpl) SendDone(s *state.State, p *state.Packet, err error) {
	if p.Creator != state.ComponentRpl {
		s.Diag.Error(state.ComponentRpl, state.ErrUnexpectedSendDone, uint16(p.Creator), uint16(p.Owner))
	}
	if err != nil {
		r.log.Debug("send failed", "dst", p.Dst, "error", err)
	}
	p.Owner = state.ComponentRpl
	s.Queue.Release(p)
	r.busySending = false
}
