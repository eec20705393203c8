package state

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"
)

// LinkAddr is a 64-bit link-layer (EUI-64) address.
type LinkAddr [8]byte

func (a LinkAddr) IsZero() bool {
	return a == LinkAddr{}
}

func (a LinkAddr) String() string {
	sb := strings.Builder{}
	for i, b := range a {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(hex.EncodeToString([]byte{b}))
	}
	return sb.String()
}

func (a LinkAddr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *LinkAddr) UnmarshalText(text []byte) error {
	s := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(string(text)))
	data, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid eui64 %q: %w", string(text), err)
	}
	if len(data) != len(a) {
		return fmt.Errorf("invalid eui64 %q: expected %d bytes, got %d", string(text), len(a), len(data))
	}
	copy(a[:], data)
	return nil
}

// NetPrefix is the upper 64 bits of an IPv6 address.
type NetPrefix [8]byte

func PrefixFrom(p netip.Prefix) NetPrefix {
	var np NetPrefix
	a := p.Masked().Addr().As16()
	copy(np[:], a[:8])
	return np
}

func (p NetPrefix) String() string {
	return netip.PrefixFrom(MacToIp(p, LinkAddr{}), 64).String()
}

// MacToIp builds the IPv6 address prefix||eui64.
func MacToIp(prefix NetPrefix, mac LinkAddr) netip.Addr {
	var b [16]byte
	copy(b[:8], prefix[:])
	copy(b[8:], mac[:])
	return netip.AddrFrom16(b)
}

// IpToMac splits an IPv6 address into its prefix and interface identifier.
func IpToMac(addr netip.Addr) (NetPrefix, LinkAddr) {
	var prefix NetPrefix
	var mac LinkAddr
	b := addr.As16()
	copy(prefix[:], b[:8])
	copy(mac[:], b[8:])
	return prefix, mac
}

// AddrTranslator converts between network and link-layer addresses.
type AddrTranslator interface {
	MacToIp(prefix NetPrefix, mac LinkAddr) netip.Addr
	IpToMac(addr netip.Addr) (NetPrefix, LinkAddr)
}

// Eui64Translator maps addresses by embedding the EUI-64 as the interface identifier.
type Eui64Translator struct{}

func (Eui64Translator) MacToIp(prefix NetPrefix, mac LinkAddr) netip.Addr {
	return MacToIp(prefix, mac)
}

func (Eui64Translator) IpToMac(addr netip.Addr) (NetPrefix, LinkAddr) {
	return IpToMac(addr)
}
