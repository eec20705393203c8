package protocol

import (
	"net/netip"

	"github.com/gopacket/gopacket"
)

// RFC 6550 sections 6.4 and 6.7
const (
	DaoHeaderLen = 20
	TargetLen    = 20
	TransitLen   = 22

	OptionRouteInformation   = 0x03
	OptionDodagConfiguration = 0x04
	OptionTarget             = 0x05
	OptionTransit            = 0x06

	DaoFlagK = 1 << 7
	DaoFlagD = 1 << 6

	// option length excludes the type and length bytes
	TargetOptionLength  = TargetLen - 2
	TransitOptionLength = TransitLen - 2

	FullPrefixLength = 128
)

type DaoHeader struct {
	InstanceId uint8
	Flags      uint8 // K | D
	Reserved   uint8
	Sequence   uint8
	DodagId    [16]byte
}

// Option is a DAO option record.
type Option interface {
	Type() uint8
	Len() int
	encode(b []byte)
}

type TargetOption struct {
	Length       uint8
	Flags        uint8
	PrefixLength uint8
	Target       [16]byte
}

type TransitOption struct {
	Length       uint8
	EFlags       uint8
	PathControl  uint8
	PathSequence uint8
	PathLifetime uint8
	Parent       [16]byte // zero in storing mode
}

// Dao is a DAO message; Options are kept in wire order.
type Dao struct {
	Header  DaoHeader
	Options []Option
}

// Route is a Target together with the Transit describing the path to it.
type Route struct {
	Target  TargetOption
	Transit TransitOption
}

func NewTargetOption(target netip.Addr) TargetOption {
	return TargetOption{
		Length:       TargetOptionLength,
		PrefixLength: FullPrefixLength,
		Target:       target.As16(),
	}
}

func (o TargetOption) Type() uint8 { return OptionTarget }
func (o TargetOption) Len() int    { return TargetLen }

func (o TargetOption) Addr() netip.Addr {
	return netip.AddrFrom16(o.Target)
}

func (o TargetOption) encode(b []byte) {
	b[0] = OptionTarget
	b[1] = o.Length
	b[2] = o.Flags
	b[3] = o.PrefixLength
	copy(b[4:TargetLen], o.Target[:])
}

func (o TransitOption) Type() uint8 { return OptionTransit }
func (o TransitOption) Len() int    { return TransitLen }

func (o TransitOption) ParentAddr() netip.Addr {
	return netip.AddrFrom16(o.Parent)
}

func (o TransitOption) encode(b []byte) {
	b[0] = OptionTransit
	b[1] = o.Length
	b[2] = o.EFlags
	b[3] = o.PathControl
	b[4] = o.PathSequence
	b[5] = o.PathLifetime
	copy(b[6:TransitLen], o.Parent[:])
}

func (h *DaoHeader) encode(b []byte) {
	b[0] = h.InstanceId
	b[1] = h.Flags
	b[2] = h.Reserved
	b[3] = h.Sequence
	copy(b[4:DaoHeaderLen], h.DodagId[:])
}

// EncodeDao prepends the DAO to buf. Options are written innermost first,
// so they appear on the wire in the order of dao.Options.
func EncodeDao(buf gopacket.SerializeBuffer, dao *Dao) error {
	for i := len(dao.Options) - 1; i >= 0; i-- {
		opt := dao.Options[i]
		b, err := buf.PrependBytes(opt.Len())
		if err != nil {
			return err
		}
		opt.encode(b)
	}
	b, err := buf.PrependBytes(DaoHeaderLen)
	if err != nil {
		return err
	}
	dao.Header.encode(b)
	return nil
}

// DecodeDao parses the header and then the option chain. The chain ends at
// the end of the buffer, at the first option type we do not recognise, or at
// an option cut short by the end of the buffer.
func DecodeDao(b []byte) (Dao, error) {
	if len(b) < DaoHeaderLen {
		return Dao{}, ErrTruncated
	}
	dao := Dao{
		Header: DaoHeader{
			InstanceId: b[0],
			Flags:      b[1],
			Reserved:   b[2],
			Sequence:   b[3],
		},
	}
	copy(dao.Header.DodagId[:], b[4:DaoHeaderLen])

	pos := DaoHeaderLen
	for pos < len(b) {
		rest := b[pos:]
		switch rest[0] {
		case OptionTarget:
			if len(rest) < TargetLen {
				return dao, nil
			}
			opt := TargetOption{
				Length:       rest[1],
				Flags:        rest[2],
				PrefixLength: rest[3],
			}
			copy(opt.Target[:], rest[4:TargetLen])
			dao.Options = append(dao.Options, opt)
			pos += TargetLen
		case OptionTransit:
			if len(rest) < TransitLen {
				return dao, nil
			}
			opt := TransitOption{
				Length:       rest[1],
				EFlags:       rest[2],
				PathControl:  rest[3],
				PathSequence: rest[4],
				PathLifetime: rest[5],
			}
			copy(opt.Parent[:], rest[6:TransitLen])
			dao.Options = append(dao.Options, opt)
			pos += TransitLen
		default:
			return dao, nil
		}
	}
	return dao, nil
}

// Routes pairs each Target with the most recent Transit before it. Targets
// at the head of the chain take the first Transit that follows them, and
// Targets in a chain without any Transit get the zero Transit.
func (d *Dao) Routes() []Route {
	routes := make([]Route, 0)
	var last TransitOption
	seen := false
	for _, opt := range d.Options {
		switch o := opt.(type) {
		case TargetOption:
			routes = append(routes, Route{Target: o, Transit: last})
		case TransitOption:
			if !seen {
				for i := range routes {
					routes[i].Transit = o
				}
				seen = true
			}
			last = o
		}
	}
	return routes
}
