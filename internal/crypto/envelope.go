// Package crypto implements the two-mode cryptographic envelope that
// protects UHOST traffic once a session key has been derived: AES-CFB
// encryption and HMAC-SHA1 signing, each wrapped in a small tagged header so
// a "none" mode can be carried before a key exists.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
)

// Envelope tags.
const (
	TagEncrypted byte = 0x81
	TagSigned    byte = 0x82
)

// Algorithm selectors, the envelope's second byte.
const (
	ModeNone byte = 0x00
	ModeAES  byte = 0x01 // encrypt mode
	ModeSHA1 byte = 0x01 // sign mode (same numeric value, distinct meaning)
)

const sha1DigestLength = 20

// fixedIV is the AES-CFB initialization vector used for every message. It is
// fixed for wire compatibility with existing Uhost peers; this is a
// documented, intentional limitation (repeated IV under one key across many
// messages), not an oversight, and must not be changed independently of the
// host.
var fixedIV = []byte{
	0x75, 0xbe, 0x38, 0x2b, 0x42, 0x51, 0xc7, 0x05,
	0xa2, 0x43, 0x23, 0x5d, 0xe0, 0xf4, 0xb5, 0x08,
}

// Envelope binds a session key (nil before SRP completes) to the
// encrypt/decrypt/sign/unsign operations UHOST traffic requires.
type Envelope struct {
	key []byte
}

// New constructs an Envelope for the given session key. A nil key is valid
// and restricts inbound traffic to the "none" mode of each operation, per
// the pre-authentication state where no key exists yet.
func New(key []byte) *Envelope {
	return &Envelope{key: key}
}

// Encrypt wraps message as 0x81 ‖ mode ‖ ciphertext. With no key, or
// mode == ModeNone, the message passes through unencrypted under the none
// mode.
func (e *Envelope) Encrypt(mode byte, message []byte) ([]byte, error) {
	if e.key == nil || mode == ModeNone {
		out := make([]byte, 0, 2+len(message))
		out = append(out, TagEncrypted, ModeNone)
		return append(out, message...), nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCFBEncrypter(block, fixedIV)
	ciphertext := make([]byte, len(message))
	stream.XORKeyStream(ciphertext, message)

	out := make([]byte, 0, 2+len(ciphertext))
	out = append(out, TagEncrypted, ModeAES)
	return append(out, ciphertext...), nil
}

// Decrypt unwraps an encrypted envelope. It returns nil if the envelope is
// malformed or carries a mode incompatible with whether a key is present, in
// which case the caller must finalize the frame rather than propagate an
// error (per the protocol-error handling policy: crypto verification
// failures finalize, they never become returned errors).
func (e *Envelope) Decrypt(message []byte) []byte {
	if len(message) < 2 {
		return nil
	}
	mode := message[1]

	if e.key == nil {
		if mode == ModeNone {
			return message[2:]
		}
		return nil
	}

	if mode != ModeAES {
		return nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil
	}
	stream := cipher.NewCFBDecrypter(block, fixedIV)
	plaintext := make([]byte, len(message)-2)
	stream.XORKeyStream(plaintext, message[2:])
	return plaintext
}

// Sign wraps message as 0x82 ‖ mode ‖ message ‖ mac. With no key, or
// mode == ModeNone, the message passes through unsigned under the none mode.
func (e *Envelope) Sign(mode byte, message []byte) []byte {
	if e.key == nil || mode == ModeNone {
		out := make([]byte, 0, 2+len(message))
		out = append(out, TagSigned, ModeNone)
		return append(out, message...)
	}

	mac := hmac.New(sha1.New, e.key)
	mac.Write(message)
	digest := mac.Sum(nil)

	out := make([]byte, 0, 2+len(message)+len(digest))
	out = append(out, TagSigned, ModeSHA1)
	out = append(out, message...)
	return append(out, digest...)
}

// Unsign verifies and strips a signed envelope. Returns nil on any
// malformed input, mode mismatch, or signature failure.
func (e *Envelope) Unsign(message []byte) []byte {
	if len(message) < 2 {
		return nil
	}
	mode := message[1]

	if e.key == nil {
		if mode == ModeNone {
			return message[2:]
		}
		return nil
	}

	if mode != ModeSHA1 {
		return nil
	}

	end := len(message) - sha1DigestLength
	if end < 2 {
		return nil
	}
	payload := message[2:end]
	signature := message[end:]

	mac := hmac.New(sha1.New, e.key)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if !hmac.Equal(expected, signature) {
		return nil
	}
	return payload
}

// IsSecured reports whether message carries a non-"none" envelope mode,
// i.e. whether it is actually encrypted or signed rather than passed
// through in the clear.
func IsSecured(message []byte) bool {
	if len(message) < 2 {
		return false
	}
	switch message[0] {
	case TagEncrypted:
		return message[1] != ModeNone
	case TagSigned:
		return message[1] != ModeNone
	default:
		return false
	}
}
