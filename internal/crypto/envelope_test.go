package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key32() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func TestSignUnsignRoundTrip(t *testing.T) {
	e := New(key32())
	payload := []byte("hello uhost")

	signed := e.Sign(ModeSHA1, payload)
	got := e.Unsign(signed)
	assert.Equal(t, payload, got)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e := New(key32())
	payload := []byte("session established")

	ciphertext, err := e.Encrypt(ModeAES, payload)
	require.NoError(t, err)
	got := e.Decrypt(ciphertext)
	assert.Equal(t, payload, got)
}

func TestNoneModeRoundTripWithoutKey(t *testing.T) {
	e := New(nil)
	payload := []byte("pre-auth traffic")

	signed := e.Sign(ModeNone, payload)
	assert.Equal(t, append([]byte{TagSigned, ModeNone}, payload...), signed)
	assert.Equal(t, payload, e.Unsign(signed))

	encrypted, err := e.Encrypt(ModeNone, payload)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{TagEncrypted, ModeNone}, payload...), encrypted)
	assert.Equal(t, payload, e.Decrypt(encrypted))
}

func TestUnsignRejectsModeMismatch(t *testing.T) {
	// A keyed envelope must reject an unsigned ("none" mode) inbound frame.
	e := New(key32())
	unsignedFrame := append([]byte{TagSigned, ModeNone}, []byte("forged")...)
	assert.Nil(t, e.Unsign(unsignedFrame))
}

func TestUnsignRejectsTamperedSignature(t *testing.T) {
	e := New(key32())
	signed := e.Sign(ModeSHA1, []byte("authentic"))
	signed[len(signed)-1] ^= 0xFF
	assert.Nil(t, e.Unsign(signed))
}

func TestDecryptRejectsModeMismatchWithoutKey(t *testing.T) {
	e := New(nil)
	encryptedFrame := []byte{TagEncrypted, ModeAES, 0x01, 0x02, 0x03}
	assert.Nil(t, e.Decrypt(encryptedFrame))
}

func TestIsSecured(t *testing.T) {
	assert.False(t, IsSecured([]byte{TagSigned, ModeNone, 'x'}))
	assert.True(t, IsSecured([]byte{TagSigned, ModeSHA1, 'x'}))
	assert.True(t, IsSecured([]byte{TagEncrypted, ModeAES, 'x'}))
	assert.False(t, IsSecured([]byte{0xFF, 0x00}))
}
