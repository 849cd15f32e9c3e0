package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lanikai/utim/internal/address"
	"github.com/lanikai/utim/internal/queue"
)

// loopbackLower is a minimal Lower double: whatever is Sent becomes
// available to Receive, in order, letting the test drive both workers of the
// Manager under test.
type loopbackLower struct {
	q *queue.Queue[[]byte]
}

func newLoopbackLower() *loopbackLower {
	return &loopbackLower{q: queue.New[[]byte](0)}
}

func (l *loopbackLower) Send(msg []byte) bool    { return l.q.TryPush(append([]byte(nil), msg...)) }
func (l *loopbackLower) Receive() ([]byte, bool) { return l.q.TryPop() }

func TestSendFramesAndDemuxesOnReceive(t *testing.T) {
	lower := newLoopbackLower()
	mgr := NewManager(lower)
	defer mgr.Stop()

	assert.True(t, mgr.Send(address.Uhost, []byte("hello")))

	assert.Eventually(t, func() bool {
		payload, ok := mgr.Receive(address.Uhost)
		return ok && string(payload) == "hello"
	}, time.Second, time.Millisecond)

	_, ok := mgr.Receive(address.Device)
	assert.False(t, ok, "payload destined for UHOST must not appear on the DEVICE queue")
}

func TestInboundDropsUnderLengthFrame(t *testing.T) {
	lower := newLoopbackLower()
	mgr := NewManager(lower)
	defer mgr.Stop()

	lower.q.TryPush([]byte{0x00, 0x00}) // only 2 bytes, header needs 3

	time.Sleep(20 * time.Millisecond)
	_, ok := mgr.Receive(address.Device)
	assert.False(t, ok)
}

func TestInboundDropsUnknownTag(t *testing.T) {
	lower := newLoopbackLower()
	mgr := NewManager(lower)
	defer mgr.Stop()

	lower.q.TryPush([]byte{0x09, 0x00, 0x00}) // tag 0x09 is not DEVICE/UHOST/PLATFORM

	time.Sleep(20 * time.Millisecond)
	for _, e := range []address.Endpoint{address.Device, address.Uhost, address.Platform} {
		_, ok := mgr.Receive(e)
		assert.False(t, ok)
	}
}
