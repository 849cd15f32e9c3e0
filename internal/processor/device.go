package processor

import (
	"github.com/lanikai/utim/internal/address"
)

// processDevice handles tuples sourced from DEVICE: forwarding application
// payloads to the platform, and kicking off SRP on NETWORK_READY.
func processDevice(state *Utim, t Tuple) (Tuple, bool) {
	body, ok := t.bodyBytes()
	if !ok || len(body) == 0 {
		return finalize(t), true
	}

	switch body[0] {
	case tagDataToPlatform:
		return deviceForward(body), true
	case tagNetworkReady:
		return deviceStartup(state, t), true
	default:
		return finalize(t), true
	}
}

// deviceForward strips the tag byte and wraps the remainder as a platform
// descriptor, grounded on device_worker_forward.py.
func deviceForward(body []byte) Tuple {
	return Tuple{
		Source:      address.Utim,
		Destination: address.AddrPlatform,
		Status:      address.ToSend,
		Body: &PlatformDescriptor{
			Payload:  append([]byte(nil), body[1:]...),
			Metadata: map[string]string{},
		},
	}
}

// deviceStartup lazily creates the SRP client and emits HELLO, grounded on
// device_worker_startup.py.
func deviceStartup(state *Utim, t Tuple) Tuple {
	if t.Source != address.AddrDevice || t.Destination != address.Utim || t.Status != address.Process {
		log.Error("invalid metadata for NETWORK_READY: source=%s destination=%s status=%s", t.Source, t.Destination, t.Status)
		return finalize(t)
	}

	if step := state.SRPStep(); step != nil {
		log.Error("invalid SRP step for NETWORK_READY: %d", *step)
		return finalize(t)
	}

	client := state.SRPClient()
	_, publicA := client.StartAuthentication()
	command := assembleTLV(cmdHello, publicA)

	one := 1
	state.SetSRPStep(&one)

	log.Info("starting SRP sequence...")

	return Tuple{
		Source:      address.Utim,
		Destination: address.AddrUhost,
		Status:      address.Process,
		Body:        command,
	}
}
