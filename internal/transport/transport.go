// Package transport implements the Transport tier: identical TLV framing
// shape to Network, but tailored to DEVICE traffic. It reads only the DEVICE
// queue of the Network layer below it, re-parses a TLV header drawn from its
// own parallel endpoint enumeration, and forwards the unwrapped payload to a
// single inbound queue that feeds the device connection above.
package transport

import (
	"context"
	"sync"

	"github.com/lanikai/utim/internal/address"
	"github.com/lanikai/utim/internal/frame"
	"github.com/lanikai/utim/internal/logging"
	"github.com/lanikai/utim/internal/queue"
)

var log = logging.DefaultLogger.WithTag("transport")

// Endpoint is Transport's own tag space, parallel to but distinct from
// address.Endpoint: it names the ultimate consumer of a DEVICE-tier
// message rather than a Network-tier peer.
type Endpoint byte

const (
	Device         Endpoint = 0
	UhostSocket    Endpoint = 1
	PlatformSocket Endpoint = 2
)

func (e Endpoint) valid() bool {
	switch e {
	case Device, UhostSocket, PlatformSocket:
		return true
	default:
		return false
	}
}

// toNetworkTag maps a Transport Endpoint to the Network Endpoint it should
// be re-wrapped under when descending to the Network tier. All three route
// through Network's DEVICE tag, since Transport itself is exclusively a
// DEVICE-traffic re-framer; the distinction lives in the Transport tag, not
// the Network one.
func (e Endpoint) toNetworkTag() address.Endpoint {
	return address.Device
}

// Lower is the capability Transport needs from the tier below it (the
// Network Manager).
type Lower interface {
	Send(destination address.Endpoint, body []byte) bool
	Receive(e address.Endpoint) (payload []byte, ok bool)
}

type outboundItem struct {
	destination Endpoint
	body        []byte
}

// Manager is the Transport tier.
type Manager struct {
	lower Lower

	inbound  *queue.Queue[[]byte]
	outbound *queue.Queue[outboundItem]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager wraps lower and starts the worker pair immediately.
func NewManager(lower Lower) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		lower:    lower,
		inbound:  queue.New[[]byte](0),
		outbound: queue.New[outboundItem](0),
		cancel:   cancel,
	}

	m.wg.Add(2)
	go m.runInbound(ctx)
	go m.runOutbound(ctx)

	return m
}

func (m *Manager) runInbound(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		data, ok := m.lower.Receive(address.Device)
		if !ok {
			continue
		}
		tag, payload, ok := frame.Decode(data)
		if !ok {
			log.Debug("dropping under-length or malformed frame: %d bytes", len(data))
			continue
		}
		if !Endpoint(tag).valid() {
			log.Debug("dropping unknown transport tag: 0x%02x", tag)
			continue
		}
		queue.PushWait(ctx, m.inbound, payload)
	}
}

func (m *Manager) runOutbound(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		item, ok := m.outbound.TryPop()
		if !ok {
			continue
		}
		wire := frame.Encode(byte(item.destination), item.body)
		for !m.lower.Send(item.destination.toNetworkTag(), wire) {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

// Receive returns the next unwrapped DEVICE-tier payload, or ok=false if
// none is queued.
func (m *Manager) Receive() (payload []byte, ok bool) {
	return m.inbound.TryPop()
}

// Send enqueues body, framed with the fixed Device Transport tag, for
// transmission. The original's analogous send() always targets DEVICE; the
// socket-backed UhostSocket/PlatformSocket destinations are ancillary and
// explicitly out of core scope.
func (m *Manager) Send(body []byte) bool {
	return m.outbound.TryPush(outboundItem{destination: Device, body: body})
}

// Stop signals both workers and joins them.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	log.Debug("manager stopped")
}
