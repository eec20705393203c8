package protocol

import (
	"net/netip"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	src = netip.MustParseAddr("fd00:bbbb::2")
	dst = netip.MustParseAddr("ff02::1a")
)

func TestFrameUnframe(t *testing.T) {
	d := Dio{Rank: 256, Options: DioGrounded | DioMopNonStoring}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, EncodeDio(buf, &d))
	require.NoError(t, Frame(buf, CodeDio, src, dst))

	b := buf.Bytes()
	require.Len(t, b, IcmpHeaderLen+DioLen)
	assert.Equal(t, uint8(155), b[0])
	assert.Equal(t, uint8(CodeDio), b[1])
	assert.True(t, VerifyChecksum(b, src, dst))
	assert.False(t, VerifyChecksum(b, netip.MustParseAddr("fd00:bbbb::9"), dst))

	code, body, err := Unframe(b)
	require.NoError(t, err)
	assert.Equal(t, uint8(CodeDio), code)
	got, err := DecodeDio(body)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestChecksumDetectsCorruption(t *testing.T) {
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, EncodeDao(buf, &Dao{Options: []Option{target("fd00:bbbb::3")}}))
	require.NoError(t, Frame(buf, CodeDao, src, dst))
	b := buf.Bytes()
	require.True(t, VerifyChecksum(b, src, dst))
	b[len(b)-1] ^= 0x01
	assert.False(t, VerifyChecksum(b, src, dst))
	assert.False(t, VerifyChecksum(b[:2], src, dst))
}

func TestUnframeRejects(t *testing.T) {
	_, _, err := Unframe([]byte{155, 1})
	assert.Error(t, err)

	// echo request
	_, _, err = Unframe([]byte{128, 0, 0, 0, 0, 1, 0, 1})
	assert.ErrorIs(t, err, ErrNotRpl)
}
