package protocol

import (
	"encoding/binary"
	"errors"

	"github.com/encodeous/rpl/state"
	"github.com/gopacket/gopacket"
)

// RFC 6550 section 6.3.1
const (
	DioLen = 24
	DisLen = 2

	DioGrounded = 1 << 7
	// mode of operation, bits 3-5 of the option byte
	DioMopNonStoring = 1 << 3
	DioMopStoring    = 1<<4 | 1<<3
	DefaultDtsn      = 0x33
)

var ErrTruncated = errors.New("truncated rpl message")

// Dio is the fixed DIO base object.
type Dio struct {
	InstanceId uint8
	Version    uint8
	Rank       uint16
	Options    uint8 // G | MOP | Prf
	Dtsn       uint8
	Flags      uint8
	Reserved   uint8
	DodagId    [16]byte
}

// DioOptions builds the G/MOP/Prf byte advertised by a grounded DODAG in the given mode.
func DioOptions(mode state.Mode) uint8 {
	if mode == state.Storing {
		return DioGrounded | DioMopStoring
	}
	return DioGrounded | DioMopNonStoring
}

func (d *Dio) encode(b []byte) {
	b[0] = d.InstanceId
	b[1] = d.Version
	binary.BigEndian.PutUint16(b[2:4], d.Rank)
	b[4] = d.Options
	b[5] = d.Dtsn
	b[6] = d.Flags
	b[7] = d.Reserved
	copy(b[8:24], d.DodagId[:])
}

// EncodeDio prepends the DIO to buf.
func EncodeDio(buf gopacket.SerializeBuffer, d *Dio) error {
	b, err := buf.PrependBytes(DioLen)
	if err != nil {
		return err
	}
	d.encode(b)
	return nil
}

func DecodeDio(b []byte) (Dio, error) {
	if len(b) < DioLen {
		return Dio{}, ErrTruncated
	}
	d := Dio{
		InstanceId: b[0],
		Version:    b[1],
		Rank:       binary.BigEndian.Uint16(b[2:4]),
		Options:    b[4],
		Dtsn:       b[5],
		Flags:      b[6],
		Reserved:   b[7],
	}
	copy(d.DodagId[:], b[8:24])
	return d, nil
}

// EncodeDis prepends an empty DIS (flags and reserved byte) to buf.
func EncodeDis(buf gopacket.SerializeBuffer) error {
	b, err := buf.PrependBytes(DisLen)
	if err != nil {
		return err
	}
	b[0] = 0
	b[1] = 0
	return nil
}
