package state

import (
	"math/rand/v2"
	"net/netip"
)

// Identity gives access to this node's addressing.
type Identity interface {
	Prefix() NetPrefix
	SetPrefix(prefix NetPrefix)
	Eui64() LinkAddr
	IsDagRoot() bool
}

type Neighbour struct {
	Addr LinkAddr
	Rank uint16
}

// Neighbours tracks neighbour ranks and derives our own rank from them.
type Neighbours interface {
	MyDagRank() uint16
	IndicateRxDio(src LinkAddr, rank uint16)
	// Neighbours returns a snapshot; indexes are valid until the next call.
	Neighbours() []Neighbour
	IsNeighbourWithHigherRank(idx int) bool
	PreferredParent() (LinkAddr, bool)
}

// LinkSync reports whether the MAC layer can currently transmit.
type LinkSync interface {
	IsSynced() bool
}

// Sender hands a built packet to the network layer. A nil error means the
// packet was accepted and its completion will be reported later.
type Sender interface {
	Send(p *Packet) error
}

// Random is the jitter source.
type Random interface {
	Uint8() uint8
}

// PacketQueue is the bounded pool of packet buffers.
type PacketQueue interface {
	Acquire(creator Component) *Packet
	Release(p *Packet)
	RemoveAllCreatedBy(creator Component)
	IsAllocated(p *Packet) bool
}

type StaticIdentity struct {
	prefix NetPrefix
	eui64  LinkAddr
	root   bool
}

func NewStaticIdentity(cfg NodeCfg) *StaticIdentity {
	return &StaticIdentity{
		prefix: PrefixFrom(cfg.Prefix),
		eui64:  cfg.Eui64,
		root:   cfg.Root,
	}
}

func (i *StaticIdentity) Prefix() NetPrefix {
	return i.prefix
}

func (i *StaticIdentity) SetPrefix(prefix NetPrefix) {
	i.prefix = prefix
}

func (i *StaticIdentity) Eui64() LinkAddr {
	return i.eui64
}

func (i *StaticIdentity) IsDagRoot() bool {
	return i.root
}

// Addr returns the node's global address.
func (i *StaticIdentity) Addr() netip.Addr {
	return MacToIp(i.prefix, i.eui64)
}

type MathRandom struct{}

func (MathRandom) Uint8() uint8 {
	return uint8(rand.UintN(256))
}

// AlwaysSynced is a LinkSync for links without slotted access.
type AlwaysSynced struct{}

func (AlwaysSynced) IsSynced() bool {
	return true
}
