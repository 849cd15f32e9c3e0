// Package address defines the two small enumerations the stack threads
// through every layer: the wire-level Endpoint tag used by Network and
// Transport framing, and the processor-internal Address used by the message
// processor's tuples. They are deliberately distinct types (see
// data_indexes-style separation in the original) even though their DEVICE/
// UHOST/PLATFORM members share numeric values, because UTIM itself is a
// valid processor Address with no wire representation.
package address

// Endpoint is the wire-level peer tag carried by Network and Transport TLV
// frames.
type Endpoint byte

const (
	Device   Endpoint = 0
	Uhost    Endpoint = 1
	Platform Endpoint = 2
)

// Valid reports whether e is one of the three defined endpoints.
func (e Endpoint) Valid() bool {
	switch e {
	case Device, Uhost, Platform:
		return true
	default:
		return false
	}
}

func (e Endpoint) String() string {
	switch e {
	case Device:
		return "DEVICE"
	case Uhost:
		return "UHOST"
	case Platform:
		return "PLATFORM"
	default:
		return "UNKNOWN"
	}
}

// Address is a processor-internal tuple endpoint. It adds Utim to the three
// wire endpoints: a tuple with source or destination Utim never touches the
// wire directly, it is the processor's own voice.
type Address int

const (
	Utim Address = iota
	AddrDevice
	AddrUhost
	AddrPlatform
)

func (a Address) String() string {
	switch a {
	case Utim:
		return "UTIM"
	case AddrDevice:
		return "DEVICE"
	case AddrUhost:
		return "UHOST"
	case AddrPlatform:
		return "PLATFORM"
	default:
		return "UNKNOWN"
	}
}

// FromEndpoint converts a wire Endpoint to its processor Address.
func FromEndpoint(e Endpoint) Address {
	switch e {
	case Device:
		return AddrDevice
	case Uhost:
		return AddrUhost
	case Platform:
		return AddrPlatform
	default:
		return Utim
	}
}

// Endpoint converts a processor Address back to its wire Endpoint. ok is
// false for Utim, which has no wire representation.
func (a Address) Endpoint() (e Endpoint, ok bool) {
	switch a {
	case AddrDevice:
		return Device, true
	case AddrUhost:
		return Uhost, true
	case AddrPlatform:
		return Platform, true
	default:
		return 0, false
	}
}

// Status is the processor tuple's third field.
type Status int

const (
	// Process means the tuple is still being routed through subprocessors.
	Process Status = iota
	// ToSend means the tuple is a terminal outbound frame.
	ToSend
	// Finalized means the tuple is terminal and must not be emitted.
	Finalized
)

func (s Status) String() string {
	switch s {
	case Process:
		return "PROCESS"
	case ToSend:
		return "TO_SEND"
	case Finalized:
		return "FINALIZED"
	default:
		return "UNKNOWN"
	}
}
