// Package processor implements the message processor: the re-entrant
// dispatch loop that routes an inbound (source, body) pair through
// per-source subprocessors until it reaches a terminal status, plus the
// Utim session state those subprocessors read and mutate.
package processor

import (
	"context"
	"sync"

	"github.com/lanikai/utim/internal/address"
)

// maxIterations bounds subprocessor re-entry per frame. The original has no
// such cap; per the open design question this implementation adds one to
// bound worst-case work against a malformed or adversarial peer.
const maxIterations = 8

// Process runs one inbound (source, body) pair through the dispatch loop
// and returns the terminal (destination, body) pair to emit, or ok=false if
// nothing should be emitted.
func Process(state *Utim, source address.Address, body []byte) (destination address.Address, out []byte, ok bool) {
	cur := Tuple{Source: source, Destination: address.Utim, Status: address.Process, Body: body}
	active := source

	for i := 0; i < maxIterations; i++ {
		var next Tuple
		var wellFormed bool

		switch active {
		case address.AddrDevice:
			next, wellFormed = processDevice(state, cur)
		case address.AddrUhost:
			next, wellFormed = processUhost(state, cur)
		case address.AddrPlatform:
			next, wellFormed = processPlatform(state, cur)
		default:
			wellFormed = false
		}

		if !wellFormed {
			log.Error("item processing error: malformed subprocessor result")
			cur = finalize(cur)
			break
		}
		cur = next

		if cur.Status == address.ToSend || cur.Status == address.Finalized {
			break
		}

		switch {
		case cur.Source == address.Utim && cur.Destination != address.Utim:
			active = cur.Destination
		case cur.Source != address.Utim && cur.Destination == address.Utim:
			active = cur.Source
		default:
			log.Error("item processing error: ambiguous routing in %v", cur)
			cur = finalize(cur)
		}

		if cur.Status == address.Finalized {
			break
		}
	}

	if cur.Status == address.Process {
		log.Error("item processing error: exceeded %d subprocessor iterations", maxIterations)
		cur = finalize(cur)
	}

	return returnItem(cur)
}

// returnItem extracts the (destination, body) pair to emit, matching
// process_item.py's __return_item: nothing is emitted for a tuple still
// addressed to UTIM or one that finalized.
func returnItem(t Tuple) (destination address.Address, body []byte, ok bool) {
	if t.Destination == address.Utim || t.Status == address.Finalized {
		return 0, nil, false
	}
	b, isBytes := t.bodyBytes()
	if !isBytes {
		// A PlatformDescriptor never reaches the wire through this path in
		// the current build: Platform has no concrete transport, so a
		// descriptor-bodied tuple addressed elsewhere is dropped rather
		// than serialized.
		return 0, nil, false
	}
	return t.Destination, b, true
}

// Lower is the capability the processor needs from the tier above the
// stack (the Top Manager): non-blocking receive of (source, body) pairs and
// send of (destination, body) pairs.
type Lower interface {
	Receive() (source address.Endpoint, body []byte, ok bool)
	Send(destination address.Endpoint, body []byte) bool
}

// Manager bridges Top's wire-tagged traffic to Process, running the single
// processing goroutine the concurrency model reserves for session-state
// mutation.
type Manager struct {
	state *Utim
	lower Lower

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager starts the processing worker immediately.
func NewManager(state *Utim, lower Lower) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{state: state, lower: lower, cancel: cancel}

	m.wg.Add(1)
	go m.run(ctx)

	return m
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		endpoint, body, ok := m.lower.Receive()
		if !ok {
			continue
		}

		source := address.FromEndpoint(endpoint)
		destination, out, ok := Process(m.state, source, body)
		if !ok {
			continue
		}

		wireDestination, ok := destination.Endpoint()
		if !ok {
			log.Debug("dropping tuple addressed to %s: no wire endpoint", destination)
			continue
		}

		for !m.lower.Send(wireDestination, out) {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

// Stop signals the worker and joins it.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	log.Debug("processor stopped")
}
