package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lanikai/utim/internal/address"
	"github.com/lanikai/utim/internal/queue"
)

// fakeNetwork is a minimal Lower double backed by one queue per endpoint.
type fakeNetwork struct {
	queues map[address.Endpoint]*queue.Queue[[]byte]
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{queues: map[address.Endpoint]*queue.Queue[[]byte]{
		address.Device:   queue.New[[]byte](0),
		address.Uhost:    queue.New[[]byte](0),
		address.Platform: queue.New[[]byte](0),
	}}
}

func (f *fakeNetwork) Send(destination address.Endpoint, body []byte) bool {
	return f.queues[destination].TryPush(append([]byte(nil), body...))
}

func (f *fakeNetwork) Receive(e address.Endpoint) ([]byte, bool) {
	return f.queues[e].TryPop()
}

func TestSendReframesUnderDeviceTag(t *testing.T) {
	net := newFakeNetwork()
	mgr := NewManager(net)
	defer mgr.Stop()

	assert.True(t, mgr.Send([]byte("payload")))

	assert.Eventually(t, func() bool {
		wire, ok := net.queues[address.Device].TryPop()
		if !ok {
			return false
		}
		return wire[0] == byte(Device) && string(wire[3:]) == "payload"
	}, time.Second, time.Millisecond)
}

func TestReceiveUnwrapsDeviceQueueOnly(t *testing.T) {
	net := newFakeNetwork()
	mgr := NewManager(net)
	defer mgr.Stop()

	uhostWire := append([]byte{byte(Device), 0x00, 0x03}, []byte("xyz")...)
	net.queues[address.Uhost].TryPush(uhostWire)

	wire := append([]byte{byte(Device), 0x00, 0x03}, []byte("abc")...)
	net.queues[address.Device].TryPush(wire)

	assert.Eventually(t, func() bool {
		payload, ok := mgr.Receive()
		return ok && string(payload) == "abc"
	}, time.Second, time.Millisecond)

	assert.Equal(t, 1, net.queues[address.Uhost].Len(), "the UHOST queue must not be read")
}
