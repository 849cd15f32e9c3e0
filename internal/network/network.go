// Package network implements the Network tier of the layered framing stack:
// TLV framing over a lower-tier sender/receiver, demultiplexed by endpoint
// tag into three per-endpoint inbound queues.
package network

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/utim/internal/address"
	"github.com/lanikai/utim/internal/frame"
	"github.com/lanikai/utim/internal/logging"
	"github.com/lanikai/utim/internal/queue"
)

var log = logging.DefaultLogger.WithTag("network")

// ErrInvalidPayload names the error class the original raised at runtime for
// a non-byte payload. Manager.Send takes a []byte, so the compiler rejects
// such payloads; Send reports failure by returning false and never returns
// this error.
var ErrInvalidPayload = errors.New("network: payload must be a byte slice")

// Lower is the capability a Network manager needs from the tier below it
// (the DataLink Manager): non-blocking send/receive of raw byte blocks.
type Lower interface {
	Send(msg []byte) bool
	Receive() (msg []byte, ok bool)
}

type outboundItem struct {
	destination address.Endpoint
	body        []byte
}

// Manager is the Network tier. It owns one inbound worker (demultiplexing
// lower-tier byte blocks into three per-endpoint queues) and one outbound
// worker (framing (destination, body) pairs and forwarding them down).
type Manager struct {
	lower Lower

	deviceQueue   *queue.Queue[[]byte]
	uhostQueue    *queue.Queue[[]byte]
	platformQueue *queue.Queue[[]byte]
	outbound      *queue.Queue[outboundItem]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager wraps lower and starts the worker pair immediately.
func NewManager(lower Lower) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		lower:         lower,
		deviceQueue:   queue.New[[]byte](0),
		uhostQueue:    queue.New[[]byte](0),
		platformQueue: queue.New[[]byte](0),
		outbound:      queue.New[outboundItem](0),
		cancel:        cancel,
	}

	m.wg.Add(2)
	go m.runInbound(ctx)
	go m.runOutbound(ctx)

	return m
}

func (m *Manager) queueFor(e address.Endpoint) *queue.Queue[[]byte] {
	switch e {
	case address.Device:
		return m.deviceQueue
	case address.Uhost:
		return m.uhostQueue
	case address.Platform:
		return m.platformQueue
	default:
		return nil
	}
}

func (m *Manager) runInbound(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		data, ok := m.lower.Receive()
		if !ok {
			continue
		}
		tag, payload, ok := frame.Decode(data)
		if !ok {
			log.Debug("dropping under-length or malformed frame: %d bytes", len(data))
			continue
		}
		q := m.queueFor(address.Endpoint(tag))
		if q == nil {
			log.Debug("dropping unknown endpoint tag: 0x%02x", tag)
			continue
		}
		queue.PushWait(ctx, q, payload)
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
		for !m.lower.Send(wire) {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

// Receive returns the next payload queued for endpoint e, or ok=false if
// none is queued.
func (m *Manager) Receive(e address.Endpoint) (payload []byte, ok bool) {
	q := m.queueFor(e)
	if q == nil {
		return nil, false
	}
	return q.TryPop()
}

// Send enqueues body for framing and transmission to destination.
func (m *Manager) Send(destination address.Endpoint, body []byte) bool {
	return m.outbound.TryPush(outboundItem{destination: destination, body: body})
}

// Stop signals both workers and joins them.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	log.Debug("manager stopped")
}
