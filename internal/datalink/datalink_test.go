package datalink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManagerRoundTripsOverQueuePair(t *testing.T) {
	backendA, backendB := NewQueuePair()
	mgrA := NewManager(backendA)
	mgrB := NewManager(backendB)
	defer mgrA.Stop()
	defer mgrB.Stop()

	assert.True(t, mgrA.Send([]byte("ping")))

	assert.Eventually(t, func() bool {
		msg, ok := mgrB.Receive()
		return ok && string(msg) == "ping"
	}, time.Second, time.Millisecond)
}

func TestManagerReceiveEmptyIsFalse(t *testing.T) {
	backendA, backendB := NewQueuePair()
	mgrA := NewManager(backendA)
	mgrB := NewManager(backendB)
	defer mgrA.Stop()
	defer mgrB.Stop()

	_, ok := mgrA.Receive()
	assert.False(t, ok)
}
