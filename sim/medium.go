package sim

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"net/netip"
	"sync"
	"time"

	"github.com/encodeous/rpl/core"
	"github.com/encodeous/rpl/state"
)

var ErrUnreachable = errors.New("destination is not a neighbour")

// Link is a bidirectional radio link between two nodes.
type Link struct {
	Latency    time.Duration
	Jitter     time.Duration
	PacketLoss float64
}

func (l *Link) delay() time.Duration {
	if l.Jitter == 0 {
		return l.Latency
	}
	return l.Latency + time.Duration(rand.Float64()*float64(l.Jitter))
}

func (l *Link) WithLatency(lat, jitter time.Duration) *Link {
	l.Latency = lat
	l.Jitter = jitter
	return l
}

func (l *Link) WithPacketLoss(loss float64) *Link {
	l.PacketLoss = loss
	return l
}

// Medium is a shared broadcast medium. Every node sees the frames of the
// nodes it has a link to.
type Medium struct {
	mu    sync.RWMutex
	nodes map[state.NodeId]*state.State
	euis  map[state.LinkAddr]state.NodeId
	links map[state.Pair[state.NodeId, state.NodeId]]*Link
}

func NewMedium() *Medium {
	return &Medium{
		nodes: make(map[state.NodeId]*state.State),
		euis:  make(map[state.LinkAddr]state.NodeId),
		links: make(map[state.Pair[state.NodeId, state.NodeId]]*Link),
	}
}

func (m *Medium) Attach(id state.NodeId, eui state.LinkAddr, s *state.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[id] = s
	m.euis[eui] = id
}

func (m *Medium) Connect(a, b state.NodeId) *Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	link := &Link{}
	m.links[state.MakeSortedPair(a, b)] = link
	return link
}

func (m *Medium) Disconnect(a, b state.NodeId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, state.MakeSortedPair(a, b))
}

func (m *Medium) link(a, b state.NodeId) *Link {
	return m.links[state.MakeSortedPair(a, b)]
}

// Port is the Sender of one node.
func (m *Medium) Port(id state.NodeId) *Port {
	return &Port{medium: m, id: id}
}

type Port struct {
	medium *Medium
	id     state.NodeId
}

type delivery struct {
	to    *state.State
	delay time.Duration
}

// Send transmits pkt to every linked node (multicast) or to the linked node
// owning the destination address. Completion is reported to the sender's Rpl
// once the frame has left.
func (p *Port) Send(pkt *state.Packet) error {
	m := p.medium
	data := bytes.Clone(pkt.Bytes())
	src, dst := pkt.Src, pkt.Dst

	m.mu.RLock()
	sender := m.nodes[p.id]
	targets := make([]delivery, 0)
	var airtime time.Duration
	if dst.IsMulticast() {
		for id, s := range m.nodes {
			if id == p.id {
				continue
			}
			if l := m.link(p.id, id); l != nil {
				targets = append(targets, p.transmit(l, s))
				airtime = max(airtime, l.Latency)
			}
		}
	} else {
		_, mac := state.IpToMac(dst)
		id, ok := m.euis[mac]
		var l *Link
		if ok {
			l = m.link(p.id, id)
		}
		if l == nil {
			m.mu.RUnlock()
			return ErrUnreachable
		}
		targets = append(targets, p.transmit(l, m.nodes[id]))
		airtime = l.Latency
	}
	m.mu.RUnlock()

	for _, t := range targets {
		if t.to == nil {
			continue
		}
		t.to.ScheduleTask(deliver(src, dst, data), t.delay)
	}
	sender.ScheduleTask(sendDone(pkt, pkt.Generation), airtime)
	return nil
}

// sendDone completes the send of pkt unless the buffer was freed, or freed
// and handed out again, while the frame was in the air.
func sendDone(pkt *state.Packet, gen uint64) func(*state.State) error {
	return func(s *state.State) error {
		if !s.Queue.IsAllocated(pkt) || pkt.Generation != gen {
			return nil
		}
		core.Get[*core.Rpl](s).SendDone(s, pkt, nil)
		return nil
	}
}

// transmit returns the delivery of a frame over l, or an empty delivery if the frame is lost.
func (p *Port) transmit(l *Link, to *state.State) delivery {
	if l.PacketLoss > 0 && rand.Float64() < l.PacketLoss {
		return delivery{}
	}
	return delivery{to: to, delay: l.delay()}
}

func deliver(src, dst netip.Addr, data []byte) func(*state.State) error {
	return func(s *state.State) error {
		p := s.Queue.Acquire(state.ComponentMedium)
		if p == nil {
			s.Diag.Error(state.ComponentMedium, state.ErrNoFreePacketBuffer, 0, 0)
			return nil
		}
		p.Src = src
		p.Dst = dst
		p.SetBytes(data)
		core.Get[*core.Rpl](s).Receive(s, p)
		return nil
	}
}
