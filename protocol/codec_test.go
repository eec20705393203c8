package protocol

import (
	"net/netip"
	"testing"

	"github.com/encodeous/rpl/state"
	"github.com/google/go-cmp/cmp"
	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDioRoundTrip(t *testing.T) {
	d := Dio{
		InstanceId: 1,
		Version:    2,
		Rank:       0xabcd,
		Options:    DioOptions(state.Storing),
		Dtsn:       DefaultDtsn,
		Flags:      0x11,
		Reserved:   0x22,
		DodagId:    netip.MustParseAddr("fd00:bbbb::1").As16(),
	}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, EncodeDio(buf, &d))
	b := buf.Bytes()
	require.Len(t, b, DioLen)
	// rank is big-endian
	assert.Equal(t, []byte{0xab, 0xcd}, b[2:4])
	assert.Equal(t, uint8(0x98), b[4])

	got, err := DecodeDio(b)
	require.NoError(t, err)
	if diff := cmp.Diff(d, got); diff != "" {
		t.Errorf("dio mismatch (-want +got):\n%s", diff)
	}
}

func TestDioOptions(t *testing.T) {
	assert.Equal(t, uint8(0x88), DioOptions(state.NonStoring))
	assert.Equal(t, uint8(0x98), DioOptions(state.Storing))
}

func TestDecodeTruncated(t *testing.T) {
	for n := range DioLen {
		_, err := DecodeDio(make([]byte, n))
		assert.ErrorIs(t, err, ErrTruncated)
	}
	for n := range DaoHeaderLen {
		_, err := DecodeDao(make([]byte, n))
		assert.ErrorIs(t, err, ErrTruncated)
	}
}

func target(s string) TargetOption {
	return NewTargetOption(netip.MustParseAddr(s))
}

func transit(seq uint8) TransitOption {
	return TransitOption{
		Length:       TransitOptionLength,
		PathSequence: seq,
		PathLifetime: state.PathLifetime,
		Parent:       netip.MustParseAddr("fd00:bbbb::1").As16(),
	}
}

func encodeDao(t *testing.T, d *Dao) []byte {
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, EncodeDao(buf, d))
	return buf.Bytes()
}

func TestDaoRoundTrip(t *testing.T) {
	header := DaoHeader{
		InstanceId: 0,
		Flags:      DaoFlagD,
		Sequence:   7,
		DodagId:    netip.MustParseAddr("fd00:bbbb::1").As16(),
	}
	maxOptions := []Option{transit(1)}
	for i := range state.MaxRouteNum {
		maxOptions = append(maxOptions, NewTargetOption(netip.AddrFrom16([16]byte{0xfd, 15: byte(i)})))
	}
	for _, tc := range []struct {
		name    string
		options []Option
		size    int
	}{
		{"none", nil, DaoHeaderLen},
		{"one", []Option{target("fd00:bbbb::2")}, DaoHeaderLen + TargetLen},
		{"pair", []Option{transit(3), target("fd00:bbbb::2")}, DaoHeaderLen + TransitLen + TargetLen},
		{"max", maxOptions, DaoHeaderLen + TransitLen + state.MaxRouteNum*TargetLen},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := Dao{Header: header, Options: tc.options}
			b := encodeDao(t, &d)
			assert.Len(t, b, tc.size)

			got, err := DecodeDao(b)
			require.NoError(t, err)
			assert.Equal(t, d.Header, got.Header)
			assert.Equal(t, len(d.Options), len(got.Options))
			if diff := cmp.Diff(d.Options, got.Options); len(d.Options) > 0 && diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDaoWireOrder(t *testing.T) {
	d := Dao{Options: []Option{transit(9), target("fd00:bbbb::2")}}
	b := encodeDao(t, &d)
	assert.Equal(t, uint8(OptionTransit), b[DaoHeaderLen])
	assert.Equal(t, uint8(TransitOptionLength), b[DaoHeaderLen+1])
	assert.Equal(t, uint8(9), b[DaoHeaderLen+4])
	assert.Equal(t, uint8(OptionTarget), b[DaoHeaderLen+TransitLen])
	assert.Equal(t, uint8(TargetOptionLength), b[DaoHeaderLen+TransitLen+1])
	assert.Equal(t, uint8(FullPrefixLength), b[DaoHeaderLen+TransitLen+3])
}

func TestDecodeStopsAtUnknownOption(t *testing.T) {
	d := Dao{Options: []Option{target("fd00:bbbb::2"), transit(1)}}
	b := encodeDao(t, &d)
	b = append(b, 0x09, 0x02, 0xff, 0xff)
	b = append(b, encodeDao(t, &Dao{Options: []Option{target("fd00:bbbb::3")}})[DaoHeaderLen:]...)

	got, err := DecodeDao(b)
	require.NoError(t, err)
	require.Len(t, got.Options, 2)
	routes := got.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, netip.MustParseAddr("fd00:bbbb::2"), routes[0].Target.Addr())
}

func TestDecodeTruncatedOption(t *testing.T) {
	d := Dao{Options: []Option{transit(1), target("fd00:bbbb::2"), target("fd00:bbbb::3")}}
	b := encodeDao(t, &d)
	got, err := DecodeDao(b[:len(b)-1])
	require.NoError(t, err)
	assert.Len(t, got.Options, 2)
}

func TestRoutesPairing(t *testing.T) {
	a, b, c := target("fd00::a"), target("fd00::b"), target("fd00::c")
	t1, t2 := transit(1), transit(2)

	for _, tc := range []struct {
		name    string
		options []Option
		want    []Route
	}{
		{"target then transit", []Option{a, t1}, []Route{{a, t1}}},
		{"transit then targets", []Option{t1, a, b}, []Route{{a, t1}, {b, t1}}},
		{"interleaved", []Option{a, t1, b, c, t2}, []Route{{a, t1}, {b, t1}, {c, t1}}},
		{"transit changes", []Option{t1, a, t2, b}, []Route{{a, t1}, {b, t2}}},
		{"leading run", []Option{a, b, t1, c, t2, a}, []Route{{a, t1}, {b, t1}, {c, t1}, {a, t2}}},
		{"trailing target", []Option{a, t1, b}, []Route{{a, t1}, {b, t1}}},
		{"no transit", []Option{a, b}, []Route{{a, TransitOption{}}, {b, TransitOption{}}}},
		{"empty", nil, []Route{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := Dao{Options: tc.options}
			assert.Equal(t, tc.want, d.Routes())
		})
	}
}

func TestDisEncode(t *testing.T) {
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, EncodeDis(buf))
	assert.Equal(t, []byte{0, 0}, buf.Bytes())
}
