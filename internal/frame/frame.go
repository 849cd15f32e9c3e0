// Package frame implements the one Tag-Length-Value codec shared by the
// Network and Transport layers: one tag byte, two big-endian length bytes,
// then exactly that many payload bytes. Expressing it once here, rather than
// once per layer, is the "queue-based layered stack" collapsing the design
// notes call for: Network and Transport differ only in which tag enumeration
// and which queue set they dispatch into.
package frame

import "encoding/binary"

// MaxPayload is the largest payload a 2-byte big-endian length field can
// describe.
const MaxPayload = 0xFFFF

// Encode assembles tag ‖ len(payload) (2B BE) ‖ payload. The caller is
// responsible for ensuring len(payload) <= MaxPayload; Network and Transport
// senders never originate payloads that large in this system.
func Encode(tag byte, payload []byte) []byte {
	out := make([]byte, 0, 3+len(payload))
	out = append(out, tag)
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)))
	out = append(out, payload...)
	return out
}

// Decode parses the TLV header at the front of data. It requires at least 3
// bytes and the declared length to fit within the remaining bytes; otherwise
// ok is false and the frame must be dropped (logged) by the caller, per the
// framing-error handling policy.
func Decode(data []byte) (tag byte, payload []byte, ok bool) {
	if len(data) < 3 {
		return 0, nil, false
	}
	tag = data[0]
	length := binary.BigEndian.Uint16(data[1:3])
	end := 3 + int(length)
	if end > len(data) {
		return 0, nil, false
	}
	return tag, data[3:end], true
}
