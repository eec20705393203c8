package state

import (
	"net/netip"

	"github.com/gopacket/gopacket"
)

// Component identifies the creator or current owner of a packet buffer.
type Component uint8

const (
	ComponentNull Component = iota
	ComponentRpl
	ComponentIcmpv6
	ComponentNeighbours
	ComponentQueue
	ComponentMedium
)

func (c Component) String() string {
	switch c {
	case ComponentNull:
		return "null"
	case ComponentRpl:
		return "icmpv6rpl"
	case ComponentIcmpv6:
		return "icmpv6"
	case ComponentNeighbours:
		return "neighbours"
	case ComponentQueue:
		return "queue"
	case ComponentMedium:
		return "medium"
	}
	return "unknown"
}

// Packet is a packet buffer. Headers are prepended to Payload, outermost last.
type Packet struct {
	Creator Component
	Owner   Component
	// Generation changes every time the queue hands the buffer out. It
	// survives Reset.
	Generation uint64
	Src     netip.Addr
	Dst     netip.Addr
	Payload gopacket.SerializeBuffer
}

func NewPacket() *Packet {
	return &Packet{Payload: gopacket.NewSerializeBuffer()}
}

func (p *Packet) Bytes() []byte {
	return p.Payload.Bytes()
}

// SetBytes replaces the payload with a copy of b.
func (p *Packet) SetBytes(b []byte) {
	_ = p.Payload.Clear()
	buf, _ := p.Payload.AppendBytes(len(b))
	copy(buf, b)
}

// Reset zeroes the packet so it can be handed out again.
func (p *Packet) Reset() {
	p.Creator = ComponentNull
	p.Owner = ComponentNull
	p.Src = netip.Addr{}
	p.Dst = netip.Addr{}
	_ = p.Payload.Clear()
}
