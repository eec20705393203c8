package state

import "time"

const (
	// DefaultDagRank means the node has not joined a DODAG yet.
	DefaultDagRank = uint16(0xffff)
	// MinHopRankIncrease is the rank of the root and the rank step per hop.
	MinHopRankIncrease = uint16(256)

	// MaxRouteNum is the number of slots in the storing-mode routing table.
	MaxRouteNum = 16
	// MaxRouteSend is the number of table entries announced per DAO.
	MaxRouteSend = 1

	// IanaIcmpv6Rpl is the ICMPv6 type carrying RPL control messages.
	IanaIcmpv6Rpl = 155
)

var (
	DioPeriod        = 10000 * time.Millisecond
	DaoPeriod        = 60000 * time.Millisecond
	RtPeriod         = 60000 * time.Millisecond
	MaxTargetParents = 1
	// PathLifetime is the lifetime advertised in our Transit options.
	PathLifetime = uint8(0xAA)
	// RtAging is removed from every route lifetime on each sweep.
	RtAging = 0x39
	// Jitter is the width of the window periods are randomised over.
	Jitter = 256 * time.Millisecond

	QueueLength      = 20
	NeighbourTimeout = 3 * DioPeriod
	MinPeriod        = 256 * time.Millisecond

	// DefaultPrefix is used when a node is configured without one.
	DefaultPrefix = "fd00:bbbb::/64"

	DispatchWarnThreshold = 4 * time.Millisecond
)

// AllRoutersMulticast is the destination of every DIO.
var AllRoutersMulticast = [16]byte{
	0xff, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x1a,
}
