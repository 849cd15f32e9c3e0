package srp

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verifier is a minimal test-only stand-in for the SRP host ("Uhost"). UTIM's
// runtime scope never needs to act as a verifier; this exists purely to
// exercise the user/verifier handshake invariant end to end.
type verifier struct {
	identity []byte
	salt     *big.Int
	v        *big.Int

	A *big.Int
	b *big.Int
	B *big.Int

	K []byte
	M []byte
}

func newVerifier(identity, password, saltBytes []byte) *verifier {
	salt := new(big.Int).SetBytes(saltBytes)
	x := genX(saltBytes, identity, password)
	v := new(big.Int).Exp(bigG, x, bigN)
	return &verifier{identity: identity, salt: salt, v: v}
}

func (vf *verifier) challenge(aBytes, bBytes []byte) (saltOut, bOut []byte) {
	vf.A = new(big.Int).SetBytes(aBytes)
	vf.b = new(big.Int).SetBytes(bBytes)

	kv := new(big.Int).Mul(k, vf.v)
	vf.B = new(big.Int).Add(kv, new(big.Int).Exp(bigG, vf.b, bigN))
	vf.B.Mod(vf.B, bigN)

	return vf.salt.Bytes(), vf.B.Bytes()
}

func (vf *verifier) computeSessionKey() []byte {
	u := h(vf.A.Bytes(), vf.B.Bytes())
	// S = (A * v^u)^b mod N
	vu := new(big.Int).Exp(vf.v, u, bigN)
	base := new(big.Int).Mul(vf.A, vu)
	base.Mod(base, bigN)
	S := new(big.Int).Exp(base, vf.b, bigN)
	vf.K = hBytes(S.Bytes())
	vf.M = calculateM(vf.identity, vf.salt.Bytes(), vf.A, vf.B, vf.K)
	return vf.K
}

func TestHandshakeProducesMatchingSessionKey(t *testing.T) {
	identity := []byte{0xAB, 0xCD, 0xEF}
	password := []byte("super-secret-master-key")
	salt := []byte{0x01, 0x02, 0x03, 0x04}
	fixedB := bytes.Repeat([]byte{0x42}, 32)
	fixedB[0] |= 0x80

	user := NewUser(identity, password)
	vf := newVerifier(identity, password, salt)

	_, aBytes := user.StartAuthentication()
	saltOut, bOut := vf.challenge(aBytes, fixedB)

	M := user.ProcessChallenge(saltOut, bOut)
	require.NotNil(t, M)

	vfK := vf.computeSessionKey()
	assert.Equal(t, vfK, user.K, "user and verifier must derive the same session key")
	assert.Equal(t, vf.M, M, "user's M must match what the verifier independently computes")

	hostHAMK := calculateHAMK(user.A, vf.M, vfK)
	assert.True(t, user.VerifySession(hostHAMK))
	assert.Equal(t, vfK, user.GetSessionKey())
}

func TestProcessChallengeRejectsZeroB(t *testing.T) {
	user := NewUser([]byte("id"), []byte("pw"))
	user.StartAuthentication()

	zeroB := make([]byte, 1) // B ≡ 0 mod N
	M := user.ProcessChallenge([]byte{0x01}, zeroB)
	assert.Nil(t, M)
}

func TestVerifySessionFailsOnMismatch(t *testing.T) {
	identity := []byte("id")
	password := []byte("pw")
	salt := []byte{0x05}
	fixedB := bytes.Repeat([]byte{0x11}, 32)
	fixedB[0] |= 0x80

	user := NewUser(identity, password)
	vf := newVerifier(identity, password, salt)

	_, aBytes := user.StartAuthentication()
	saltOut, bOut := vf.challenge(aBytes, fixedB)
	require.NotNil(t, user.ProcessChallenge(saltOut, bOut))

	assert.False(t, user.VerifySession([]byte("not-the-right-hamk")))
	assert.Nil(t, user.GetSessionKey())
}
