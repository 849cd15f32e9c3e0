package processor

import "github.com/lanikai/utim/internal/frame"

// Device-tagged inbound tags, carried as the first byte of a DEVICE-sourced
// tuple body.
const (
	tagGetUtimStatus  byte = 0x1a
	tagNetworkReady   byte = 0x1c
	tagDataFromNet    byte = 0x1d
	tagDataToSign     byte = 0x1e
	tagDataToPlatform byte = 0x1f
)

// UCommand tags, carried as the first byte of a cleartext UHOST-sourced or
// UHOST-destined tuple body.
const (
	cmdHello    byte = 0xa1
	cmdCheck    byte = 0xa2
	cmdTrusted  byte = 0xa3
	cmdVerified byte = 0xa4

	cmdTryFirst  byte = 0xb1
	cmdTrySecond byte = 0xb2
	cmdInit      byte = 0xb3
	cmdAuthentic byte = 0xb4

	cmdKeepalive       byte = 0x9e
	cmdKeepaliveAnswer byte = 0x9f

	cmdConnectionString      byte = 0xcc
	cmdConnectionStringOK    byte = 0xcd
	cmdConnectionStringError byte = 0xce

	cmdTestPlatformData byte = 0xd0

	cmdError byte = 0xee
)

// assembleTLV delegates to the shared frame codec: the command layer's
// tag/length/value header is byte-for-byte the same shape Network and
// Transport already use.
func assembleTLV(tag byte, payload []byte) []byte {
	return frame.Encode(tag, payload)
}

// parseTLV parses a single tag/length/value header from the front of data,
// truncating the value to whatever is actually available rather than
// rejecting outright — command workers below are grounded on the original's
// permissive slicing (`body[3 : 3+length]`), which silently tolerates a
// too-short buffer instead of raising. frame.Decode is deliberately not
// reused here: it rejects a truncated length outright, which would turn a
// malformed inner TLV into a dropped frame instead of the best-effort parse
// the original command workers perform.
func parseTLV(data []byte) (tag byte, value []byte, rest []byte, ok bool) {
	if len(data) < 3 {
		return 0, nil, nil, false
	}
	tag = data[0]
	length := int(data[1])<<8 | int(data[2])
	end := 3 + length
	if end > len(data) {
		end = len(data)
	}
	return tag, data[3:end], data[end:], true
}
