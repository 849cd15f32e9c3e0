package top

import (
	"context"
	"sync"

	"github.com/lanikai/utim/internal/logging"
	"github.com/lanikai/utim/internal/queue"
)

// TransportLike is the capability a Device connection needs from the tier
// below it (the Transport Manager): non-blocking send/receive of unwrapped
// DEVICE-tier payloads.
type TransportLike interface {
	Send(body []byte) bool
	Receive() (body []byte, ok bool)
}

// Device re-buffers Transport's DEVICE-tier traffic behind its own pair of
// queues, giving TopManager a uniform non-blocking Receive/Send capability
// that matches its Uhost and Platform siblings.
type Device struct {
	lower TransportLike

	inbound  *queue.Queue[[]byte]
	outbound *queue.Queue[[]byte]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDevice wraps lower and starts its worker pair immediately.
func NewDevice(lower TransportLike) *Device {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Device{
		lower:    lower,
		inbound:  queue.New[[]byte](0),
		outbound: queue.New[[]byte](0),
		cancel:   cancel,
	}

	d.wg.Add(2)
	go d.runInbound(ctx)
	go d.runOutbound(ctx)

	return d
}

func (d *Device) runInbound(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		data, ok := d.lower.Receive()
		if !ok {
			continue
		}
		queue.PushWait(ctx, d.inbound, data)
	}
}

func (d *Device) runOutbound(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		data, ok := d.outbound.TryPop()
		if !ok {
			continue
		}
		for !d.lower.Send(data) {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

// Receive returns the next payload from the device, or ok=false if none is
// queued.
func (d *Device) Receive() (body []byte, ok bool) {
	return d.inbound.TryPop()
}

// Send enqueues body for transmission to the device.
func (d *Device) Send(body []byte) bool {
	return d.outbound.TryPush(body)
}

// Stop signals both workers and joins them.
func (d *Device) Stop() {
	d.cancel()
	d.wg.Wait()
	logging.DefaultLogger.WithTag("top.device").Debug("device connection stopped")
}
