package processor

import "github.com/lanikai/utim/internal/address"

// PlatformDescriptor is the structured body shape used whenever a tuple is
// addressed to or from PLATFORM: a payload plus free-form metadata, a
// label, and a flag, mirroring the original's ad-hoc
// `[payload, {}, label, flag]` list.
type PlatformDescriptor struct {
	Payload  []byte
	Metadata map[string]string
	Label    string
	Flag     bool
}

// Tuple is the processor's 4-field record. Body is either []byte (the
// common case) or *PlatformDescriptor (platform-addressed traffic).
type Tuple struct {
	Source      address.Address
	Destination address.Address
	Status      address.Status
	Body        any
}

// bodyBytes returns t.Body as []byte, or ok=false if it holds something
// else (a PlatformDescriptor, or nil).
func (t Tuple) bodyBytes() (body []byte, ok bool) {
	body, ok = t.Body.([]byte)
	return body, ok
}

func finalize(t Tuple) Tuple {
	t.Status = address.Finalized
	return t
}
