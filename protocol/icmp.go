package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"net/netip"

	"github.com/encodeous/rpl/state"
	"github.com/gopacket/gopacket"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv6"
)

// ICMPv6 codes of RPL control messages
const (
	CodeDis = 0x00
	CodeDio = 0x01
	CodeDao = 0x02
)

const (
	protocolIpv6Icmp = 58
	IcmpHeaderLen    = 4
)

var ErrNotRpl = errors.New("not an RPL control message")

var rplType = ipv6.ICMPType(state.IanaIcmpv6Rpl)

func pseudoHeader(src, dst netip.Addr) []byte {
	return icmp.IPv6PseudoHeader(src.AsSlice(), dst.AsSlice())
}

// Frame prepends the ICMPv6 header for an RPL message whose body is already
// in buf. The checksum is computed over the IPv6 pseudo header.
func Frame(buf gopacket.SerializeBuffer, code uint8, src, dst netip.Addr) error {
	msg := icmp.Message{
		Type: rplType,
		Code: int(code),
		Body: &icmp.RawBody{Data: bytes.Clone(buf.Bytes())},
	}
	wb, err := msg.Marshal(pseudoHeader(src, dst))
	if err != nil {
		return fmt.Errorf("failed to marshal icmpv6 header: %w", err)
	}
	hdr, err := buf.PrependBytes(IcmpHeaderLen)
	if err != nil {
		return err
	}
	copy(hdr, wb[:IcmpHeaderLen])
	return nil
}

// Unframe strips the ICMPv6 header and returns the RPL code and body.
func Unframe(b []byte) (uint8, []byte, error) {
	msg, err := icmp.ParseMessage(protocolIpv6Icmp, b)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to parse icmpv6 message: %w", err)
	}
	if msg.Type != rplType {
		return 0, nil, ErrNotRpl
	}
	raw, ok := msg.Body.(*icmp.RawBody)
	if !ok {
		return 0, nil, ErrNotRpl
	}
	return uint8(msg.Code), raw.Data, nil
}

// VerifyChecksum checks the ICMPv6 checksum of b against the pseudo header of src and dst.
func VerifyChecksum(b []byte, src, dst netip.Addr) bool {
	if len(b) < IcmpHeaderLen {
		return false
	}
	msg := icmp.Message{
		Type: ipv6.ICMPType(b[0]),
		Code: int(b[1]),
		Body: &icmp.RawBody{Data: bytes.Clone(b[IcmpHeaderLen:])},
	}
	wb, err := msg.Marshal(pseudoHeader(src, dst))
	if err != nil {
		return false
	}
	return bytes.Equal(wb[2:4], b[2:4])
}
