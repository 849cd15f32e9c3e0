// Package datalink implements the lowest tier of the layered framing stack:
// raw byte transport over a pluggable Backend. The Manager wraps a Backend
// and owns the inbound/outbound worker pair that every upper tier builds on,
// so that Network only ever sees two FIFO queues.
package datalink

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/utim/internal/logging"
	"github.com/lanikai/utim/internal/queue"
)

var log = logging.DefaultLogger.WithTag("datalink")

// ErrWrongType names the wrong-payload-type error class, mirroring the
// original's DataLinkManagerWrongTypeException. Manager.Send takes a []byte,
// so the compiler rejects non-byte payloads; Send reports failure by
// returning false and never returns this error.
var ErrWrongType = errors.New("datalink: message must be a byte slice")

// Backend is the capability every concrete byte transport provides. send is
// non-blocking and reports false on transient back-pressure; receive is
// non-blocking and reports ok=false when nothing is available.
type Backend interface {
	Send(msg []byte) bool
	Receive() (msg []byte, ok bool)
	Stop()
}

// Manager wraps a Backend and owns two background workers that copy between
// the backend and two internal FIFO queues (inbound/outbound), so upper
// tiers interact only with the queues.
type Manager struct {
	backend Backend

	inbound  *queue.Queue[[]byte]
	outbound *queue.Queue[[]byte]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager wraps backend and starts its worker pair immediately.
func NewManager(backend Backend) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		backend:  backend,
		inbound:  queue.New[[]byte](0),
		outbound: queue.New[[]byte](0),
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
		if data, ok := m.backend.Receive(); ok {
			queue.PushWait(ctx, m.inbound, data)
		}
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
		if data, ok := m.outbound.TryPop(); ok {
			for !m.backend.Send(data) {
				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}
	}
}

// Receive returns the next inbound byte block, or ok=false if none is
// queued.
func (m *Manager) Receive() (msg []byte, ok bool) {
	return m.inbound.TryPop()
}

// Send enqueues msg for transmission by the backend.
func (m *Manager) Send(msg []byte) bool {
	return m.outbound.TryPush(msg)
}

// Stop signals both workers and the backend, then joins the workers.
func (m *Manager) Stop() {
	m.cancel()
	m.backend.Stop()
	m.wg.Wait()
	log.Debug("manager stopped")
}

// QueueBackend is an in-process loopback pair: one queue carries bytes
// handed to Send, another supplies bytes returned by Receive. It stands in
// for the original's tx/rx queue pair and is the backend used by tests and
// the example driver.
type QueueBackend struct {
	tx *queue.Queue[[]byte] // what we send, consumed by the peer
	rx *queue.Queue[[]byte] // what we receive, produced by the peer
}

// NewQueuePair returns two QueueBackends wired to each other: writes to a's
// tx become reads from b's rx, and vice versa.
func NewQueuePair() (a, b *QueueBackend) {
	q1 := queue.New[[]byte](0)
	q2 := queue.New[[]byte](0)
	return &QueueBackend{tx: q1, rx: q2}, &QueueBackend{tx: q2, rx: q1}
}

func (b *QueueBackend) Send(msg []byte) bool    { return b.tx.TryPush(msg) }
func (b *QueueBackend) Receive() ([]byte, bool) { return b.rx.TryPop() }
func (b *QueueBackend) Stop()                   {}

// SerialBackend adapts any io.ReadWriter (e.g. an opened UART device file)
// to the Backend interface. Framing above this tier determines message
// boundaries; SerialBackend itself performs one Read/Write per call with a
// fixed-size scratch buffer.
type SerialBackend struct {
	rw  io.ReadWriter
	buf []byte
}

// NewSerialBackend wraps rw. bufSize bounds the largest single read.
func NewSerialBackend(rw io.ReadWriter, bufSize int) *SerialBackend {
	if bufSize <= 0 {
		bufSize = 4096
	}
	return &SerialBackend{rw: rw, buf: make([]byte, bufSize)}
}

func (s *SerialBackend) Send(msg []byte) bool {
	n, err := s.rw.Write(msg)
	return err == nil && n == len(msg)
}

func (s *SerialBackend) Receive() ([]byte, bool) {
	n, err := s.rw.Read(s.buf)
	if err != nil || n == 0 {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, s.buf[:n])
	return out, true
}

func (s *SerialBackend) Stop() {
	if c, ok := s.rw.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn("serial backend close: %v", err)
		}
	}
}
