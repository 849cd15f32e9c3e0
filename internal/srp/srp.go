// Package srp implements the client ("user") side of SRP-6a authenticated
// key exchange, fixed to the 1024-bit safe-prime group with generator 2 and
// SHA-256 hashing that the wire protocol requires. UTIM only ever plays the
// user role; the host ("Uhost") is the verifier and is never implemented
// here outside of tests.
package srp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"math/big"
)

// nHex is the 1024-bit safe prime shared by both sides of the exchange.
// Fixed by the wire protocol; do not change independently of Uhost.
const nHex = "EEAF0AB9ADB38DD69C33F80AFA8FC5E86072618775FF3C0B9EA2314C9C256576D674DF7496" +
	"EA81D3383B4813D692C6E0E0D5D8E250B98BE48E495C1D6089DAD15DC7D7B46154D6B6CE8E" +
	"F4AD69B15D4982559B297BCF1885C529F566660E57EC68EDBC3C05726CC02FD4CBF4976EAA" +
	"9AFD5138FE8376435B9FC61D2FC0EB06E3"

var (
	bigN = mustHex(nHex)
	bigG = big.NewInt(2)
)

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("srp: invalid embedded constant")
	}
	return n
}

// h hashes the concatenation of its arguments' big-endian byte
// representations (ints are encoded via big.Int.Bytes, byte slices used
// as-is) and returns the digest as a big.Int, matching the original's H()
// helper.
func h(parts ...[]byte) *big.Int {
	d := sha256.New()
	for _, p := range parts {
		d.Write(p)
	}
	return new(big.Int).SetBytes(d.Sum(nil))
}

func hBytes(parts ...[]byte) []byte {
	d := sha256.New()
	for _, p := range parts {
		d.Write(p)
	}
	return d.Sum(nil)
}

// k = H(N, g), the SRP-6a multiplier, fixed for the group above.
var k = h(bigN.Bytes(), bigG.Bytes())

// randomEphemeral returns 32 cryptographically random bytes with the high
// bit set, as the wire protocol's ephemeral secret requires.
func randomEphemeral() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand failure is unrecoverable
	}
	b[0] |= 0x80
	return b
}

// canon strips leading zero bytes, matching the original's
// long_to_bytes(bytes_to_long(...)) round trip before hashing a value that
// may have come from an untrusted wire field.
func canon(b []byte) []byte {
	return new(big.Int).SetBytes(b).Bytes()
}

// genX computes x = H(s, H(I ':' p)).
func genX(salt, identity, password []byte) *big.Int {
	inner := hBytes(identity, []byte(":"), password)
	return h(canon(salt), canon(inner))
}

// hNxorG returns H(N) xor H(g), zero-padded to the hash length, used by
// calculateM.
func hNxorG() []byte {
	hn := hBytes(bigN.Bytes())
	hg := hBytes(bigG.Bytes())
	out := make([]byte, len(hn))
	for i := range hn {
		out[i] = hn[i] ^ hg[i]
	}
	return out
}

func calculateM(identity, salt []byte, a, b *big.Int, sessionKey []byte) []byte {
	return hBytes(hNxorG(), hBytes(identity), canon(salt), a.Bytes(), b.Bytes(), sessionKey)
}

func calculateHAMK(a *big.Int, m, sessionKey []byte) []byte {
	return hBytes(a.Bytes(), m, sessionKey)
}

// User is the SRP-6a client. It is created lazily, once per UTIM session, on
// the first NETWORK_READY event from the device.
type User struct {
	identity []byte
	password []byte

	a *big.Int
	A *big.Int

	salt *big.Int
	B    *big.Int

	x *big.Int
	u *big.Int
	S *big.Int

	K    []byte
	M    []byte
	HAMK []byte

	authenticated bool
}

// NewUser creates an SRP client for the given identity and password
// (master key), generating a fresh ephemeral secret a.
func NewUser(identity, password []byte) *User {
	a := new(big.Int).SetBytes(randomEphemeral())
	return &User{
		identity: identity,
		password: password,
		a:        a,
		A:        new(big.Int).Exp(bigG, a, bigN),
	}
}

// StartAuthentication returns (I, A) for the HELLO command.
func (u *User) StartAuthentication() (identity []byte, publicA []byte) {
	return u.identity, u.A.Bytes()
}

// ProcessChallenge consumes the host's (s, B) and returns M, or nil if the
// SRP-6a safety check (B mod N = 0, or u = 0) fails.
func (u *User) ProcessChallenge(saltBytes, bBytes []byte) []byte {
	u.salt = new(big.Int).SetBytes(saltBytes)
	u.B = new(big.Int).SetBytes(bBytes)

	if new(big.Int).Mod(u.B, bigN).Sign() == 0 {
		return nil
	}

	u.u = h(u.A.Bytes(), u.B.Bytes())
	if u.u.Sign() == 0 {
		return nil
	}

	u.x = genX(saltBytes, u.identity, u.password)

	v := new(big.Int).Exp(bigG, u.x, bigN)

	// S = (B - k*v)^(a + u*x) mod N
	kv := new(big.Int).Mul(k, v)
	base := new(big.Int).Sub(u.B, kv)
	base.Mod(base, bigN)

	exp := new(big.Int).Mul(u.u, u.x)
	exp.Add(exp, u.a)

	u.S = new(big.Int).Exp(base, exp, bigN)
	u.K = hBytes(u.S.Bytes())
	u.M = calculateM(u.identity, saltBytes, u.A, u.B, u.K)
	u.HAMK = calculateHAMK(u.A, u.M, u.K)

	return u.M
}

// VerifySession checks the host's H_AMK against the one computed locally. On
// success the session is marked authenticated and GetSessionKey returns K.
func (u *User) VerifySession(hostHAMK []byte) bool {
	if u.HAMK == nil {
		return false
	}
	ok := len(u.HAMK) == len(hostHAMK) && subtle.ConstantTimeCompare(u.HAMK, hostHAMK) == 1
	u.authenticated = u.authenticated || ok
	return ok
}

// GetSessionKey returns K if the session has been authenticated, nil
// otherwise.
func (u *User) GetSessionKey() []byte {
	if !u.authenticated {
		return nil
	}
	return u.K
}
