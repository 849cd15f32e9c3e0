package processor

import (
	"crypto/rand"
	"strings"

	"github.com/lanikai/utim/internal/address"
	"github.com/lanikai/utim/internal/crypto"
)

// processUhost applies the unsign-then-decrypt unwrap, dispatches on the
// cleartext command tag, and re-wraps any UHOST-destined reply with
// encrypt-then-sign. Grounded on process_uhost.py.
func processUhost(state *Utim, t Tuple) (Tuple, bool) {
	if t.Source == address.AddrUhost && t.Status == address.Process {
		t = uhostUnsign(state, t)
	}
	if t.Source == address.AddrUhost && t.Status == address.Process {
		t = uhostDecrypt(state, t)
	}

	for t.Status != address.ToSend && t.Status != address.Finalized && t.Source == address.AddrUhost {
		body, ok := t.bodyBytes()
		if !ok || len(body) == 0 {
			return finalize(t), true
		}

		switch body[0] {
		case cmdTryFirst:
			t = uhostTry(state, body)
		case cmdInit:
			t = uhostInit(state, t, body)
		case cmdConnectionString:
			t = uhostConnectionString(t, body)
		case cmdTestPlatformData:
			t = uhostPlatformVerify(t, body)
		case cmdAuthentic:
			t = uhostAuthentic(state, t)
		case cmdError:
			t = uhostError(state, t, body)
		case cmdKeepalive:
			t = uhostKeepalive()
		default:
			t = finalize(t)
		}
	}

	if t.Destination == address.AddrUhost && t.Status == address.Process {
		t = uhostEncrypt(state, t)
		t = uhostSign(state, t)
	}

	return t, true
}

func uhostUnsign(state *Utim, t Tuple) Tuple {
	body, ok := t.bodyBytes()
	if !ok {
		return Tuple{address.AddrUhost, address.Utim, address.Finalized, nil}
	}
	env := crypto.New(state.SessionKey())
	unsigned := env.Unsign(body)
	if unsigned == nil {
		return Tuple{address.AddrUhost, address.Utim, address.Finalized, nil}
	}
	return Tuple{address.AddrUhost, address.Utim, address.Process, unsigned}
}

func uhostDecrypt(state *Utim, t Tuple) Tuple {
	body, ok := t.bodyBytes()
	if !ok {
		return Tuple{address.AddrUhost, address.Utim, address.Finalized, nil}
	}
	env := crypto.New(state.SessionKey())
	plain := env.Decrypt(body)
	if plain == nil {
		return Tuple{address.AddrUhost, address.Utim, address.Finalized, nil}
	}
	return Tuple{address.AddrUhost, address.Utim, address.Process, plain}
}

func uhostEncrypt(state *Utim, t Tuple) Tuple {
	body, ok := t.bodyBytes()
	if !ok {
		return Tuple{address.Utim, address.AddrUhost, address.Finalized, nil}
	}
	env := crypto.New(state.SessionKey())
	mode := crypto.ModeNone
	if state.SessionKey() != nil {
		mode = crypto.ModeAES
	}
	ciphertext, err := env.Encrypt(mode, body)
	if err != nil {
		log.Error("encrypt failed: %s", err)
		return Tuple{address.Utim, address.AddrUhost, address.Finalized, nil}
	}
	return Tuple{address.Utim, address.AddrUhost, address.Process, ciphertext}
}

func uhostSign(state *Utim, t Tuple) Tuple {
	body, ok := t.bodyBytes()
	if !ok {
		return Tuple{address.Utim, address.AddrUhost, address.Finalized, nil}
	}
	env := crypto.New(state.SessionKey())
	mode := crypto.ModeNone
	if state.SessionKey() != nil {
		mode = crypto.ModeSHA1
	}
	signed := env.Sign(mode, body)
	return Tuple{address.Utim, address.AddrUhost, address.ToSend, signed}
}

// uhostTry computes the SRP challenge response, grounded on
// utim_worker_try.py.
func uhostTry(state *Utim, body []byte) Tuple {
	tag1, value1, rest, ok := parseTLV(body)
	if !ok || tag1 != cmdTryFirst {
		return errorTuple("try wrong_parameters")
	}
	tag2, value2, _, ok := parseTLV(rest)
	if !ok || tag2 != cmdTrySecond {
		return errorTuple("try wrong_parameters")
	}

	client := state.SRPClient()
	m := client.ProcessChallenge(value1, value2)
	if m == nil {
		return errorTuple("try processing")
	}

	two := 2
	state.SetSRPStep(&two)

	return Tuple{address.Utim, address.AddrUhost, address.Process, assembleTLV(cmdCheck, m)}
}

// uhostInit verifies the host's H_AMK and, on success, derives the session
// key and emits TRUSTED, grounded on utim_worker_init.py.
func uhostInit(state *Utim, t Tuple, body []byte) Tuple {
	step := state.SRPStep()
	if step == nil || *step != 2 {
		log.Error("invalid SRP step for INIT")
		return finalize(t)
	}

	_, value, _, ok := parseTLV(body)
	if !ok {
		return finalize(t)
	}

	client := state.SRPClient()
	client.VerifySession(value)
	state.SetSessionKey(client.GetSessionKey())

	if state.SessionKey() == nil {
		log.Debug("error init processing")
		return Tuple{address.Utim, address.AddrUhost, address.Process, assembleTLV(cmdError, []byte("init processing"))}
	}

	randData := make([]byte, 32)
	_, _ = rand.Read(randData)
	log.Info("SRP completed")

	return Tuple{address.Utim, address.AddrUhost, address.Process, assembleTLV(cmdTrusted, randData)}
}

// uhostConnectionString unwraps the nested cloud-connection payload and
// forwards it to the platform connection. The original's literal worker
// keeps this addressed to UHOST/UTIM and never touches PLATFORM at all —
// see DESIGN.md for why this implementation instead follows the documented
// "forward nested payload to platform" behavior.
func uhostConnectionString(t Tuple, body []byte) Tuple {
	csTag, cs, _, ok := parseTLV(body)
	if !ok || csTag != cmdConnectionString {
		log.Error("invalid connection string envelope")
		return finalize(t)
	}

	_, command, _, ok := parseTLV(cs)
	if !ok {
		log.Error("invalid nested connection string payload")
		return finalize(t)
	}

	log.Info("connecting to cloud...")

	return Tuple{
		Source:      address.Utim,
		Destination: address.AddrPlatform,
		Status:      address.ToSend,
		Body: &PlatformDescriptor{
			Payload:  append([]byte(nil), command...),
			Metadata: map[string]string{},
		},
	}
}

// uhostPlatformVerify relays a platform echo-test payload, grounded on
// utim_worker_platform_verify.py.
func uhostPlatformVerify(t Tuple, body []byte) Tuple {
	tag, command, _, ok := parseTLV(body)
	if !ok || tag != cmdTestPlatformData {
		log.Error("invalid test platform data tag")
		return finalize(t)
	}

	return Tuple{
		Source:      address.Utim,
		Destination: address.AddrPlatform,
		Status:      address.ToSend,
		Body: &PlatformDescriptor{
			Payload: append([]byte(nil), command...),
			Label:   "verify",
			Flag:    true,
		},
	}
}

// uhostAuthentic marks the session complete and relays the session key to
// the device, grounded on utim_worker_authentic.py.
func uhostAuthentic(state *Utim, t Tuple) Tuple {
	log.Debug("UTIM is authentic now!")
	return Tuple{address.Utim, address.AddrDevice, address.ToSend, state.SessionKey()}
}

// uhostError logs the failure and, if it carries one of the recognized SRP
// step names, resets the handshake so the next NETWORK_READY starts over.
// Grounded on utim_worker_error.py.
func uhostError(state *Utim, t Tuple, body []byte) Tuple {
	_, value, _, ok := parseTLV(body)
	if ok {
		text := string(value)
		if strings.HasPrefix(text, "hello") || strings.HasPrefix(text, "check") || strings.HasPrefix(text, "trusted") {
			state.ResetSRP()
		}
	}
	return finalize(t)
}

func uhostKeepalive() Tuple {
	return Tuple{address.Utim, address.AddrUhost, address.Process, []byte{cmdKeepaliveAnswer}}
}

func errorTuple(message string) Tuple {
	return Tuple{address.Utim, address.AddrUhost, address.Process, assembleTLV(cmdError, []byte(message))}
}
