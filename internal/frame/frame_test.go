package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01},
		make([]byte, 1024),
	}

	for _, payload := range cases {
		wire := Encode(0x7a, payload)
		tag, decoded, ok := Decode(wire)
		assert.True(t, ok)
		assert.Equal(t, byte(0x7a), tag)
		assert.Equal(t, payload, decoded)
	}
}

func TestDecodeRejectsShortHeader(t *testing.T) {
	_, _, ok := Decode([]byte{0x00, 0x00})
	assert.False(t, ok)
}

func TestDecodeRejectsUnderLengthPayload(t *testing.T) {
	// Declares a 10-byte payload but supplies only 2.
	wire := []byte{0x00, 0x00, 0x0a, 0x01, 0x02}
	_, _, ok := Decode(wire)
	assert.False(t, ok)
}

func TestDecodeAllowsTrailingBytesForConcatenatedTLVs(t *testing.T) {
	// TRY carries two concatenated TLVs; Decode must only consume the first.
	first := Encode(0xb1, []byte("salt"))
	second := Encode(0xb2, []byte("pubkey"))
	tag, payload, ok := Decode(append(first, second...))
	assert.True(t, ok)
	assert.Equal(t, byte(0xb1), tag)
	assert.Equal(t, []byte("salt"), payload)
}
