// Package top implements the Top tier: the outermost connection manager,
// multiplexing the Device connection (driven by Transport), the Uhost
// connection (driven by a messaging broker backend), and a Platform
// connection placeholder into the single inbound/outbound queue pair the
// message processor consumes.
package top

import (
	"context"
	"sync"

	"github.com/lanikai/utim/config"
	"github.com/lanikai/utim/internal/address"
	"github.com/lanikai/utim/internal/logging"
	"github.com/lanikai/utim/internal/queue"
)

var log = logging.DefaultLogger.WithTag("top")

// ConnectionStatus mirrors the original's per-connection status codes. Only
// a handful are ever produced by this implementation; the rest are carried
// for completeness and for callers that log or branch on specific values.
type ConnectionStatus int

const (
	NotInitialized ConnectionStatus = -1
	Success        ConnectionStatus = 0
	InvalidConfig  ConnectionStatus = 1
	InvalidHost    ConnectionStatus = 2
	InvalidCreds   ConnectionStatus = 3

	UhostError           ConnectionStatus = 30
	UhostConnectionError ConnectionStatus = 31

	DeviceError ConnectionStatus = 90
)

type inboundItem struct {
	source address.Endpoint
	body   []byte
}

type outboundItem struct {
	destination address.Endpoint
	body        []byte
}

// Manager is the Top tier.
type Manager struct {
	device   *Device
	uhost    *UhostConnection
	platform *Platform

	deviceStatus   ConnectionStatus
	uhostStatus    ConnectionStatus
	platformStatus ConnectionStatus
	statusMu       sync.RWMutex

	inbound  *queue.Queue[inboundItem]
	outbound *queue.Queue[outboundItem]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager wraps the device's Transport-tier lower capability, starts the
// Device connection immediately (it always succeeds; there is no handshake
// at this tier), and begins the inbound/outbound pumps. Uhost must be
// attached separately via ConnectUhost once configuration is available.
func NewManager(transportLower TransportLike) *Manager {
	m := &Manager{
		device:         NewDevice(transportLower),
		platform:       NewPlatform(),
		deviceStatus:   Success,
		uhostStatus:    NotInitialized,
		platformStatus: NotInitialized,
		inbound:        queue.New[inboundItem](0),
		outbound:       queue.New[outboundItem](0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(2)
	go m.runInbound(ctx)
	go m.runOutbound(ctx)

	log.Info("device connection works")
	return m
}

// ConnectUhost builds a Backend for cfg.MessagingProtocol and attaches it.
// umqtt is an in-process alias for the same MQTT backend as mqtt: both the
// original's "mqtt" (paho-style) and "umqtt" (hand-rolled) variants speak
// the identical Mosquitto wire protocol, so one backend implementation
// serves both configuration values.
func (m *Manager) ConnectUhost(cfg *config.Config) error {
	var backend Backend
	switch cfg.MessagingProtocol {
	case config.ProtocolAMQP:
		backend = NewAMQPBackend(cfg.Broker)
	case config.ProtocolMQTT, config.ProtocolUMQTT:
		backend = NewMQTTBackend(cfg.Broker)
	default:
		backend = NewMQTTBackend(cfg.Broker)
	}

	conn, err := NewUhostConnection(backend, cfg.UtimName, cfg.UhostName)
	if err != nil {
		m.setStatus(&m.uhostStatus, InvalidConfig)
		return err
	}

	if err := conn.Connect(); err != nil {
		m.setStatus(&m.uhostStatus, UhostConnectionError)
		return err
	}

	m.uhost = conn
	m.setStatus(&m.uhostStatus, Success)
	return nil
}

func (m *Manager) setStatus(field *ConnectionStatus, status ConnectionStatus) {
	m.statusMu.Lock()
	*field = status
	m.statusMu.Unlock()
}

func (m *Manager) status(field *ConnectionStatus) ConnectionStatus {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return *field
}

func (m *Manager) runInbound(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if m.status(&m.deviceStatus) == Success {
			if data, ok := m.device.Receive(); ok {
				queue.PushWait(ctx, m.inbound, inboundItem{address.Device, data})
			}
		}
		if m.status(&m.uhostStatus) == Success {
			if data, ok := m.uhost.Receive(); ok {
				queue.PushWait(ctx, m.inbound, inboundItem{address.Uhost, data})
			}
		}
		if m.status(&m.platformStatus) == Success {
			if data, ok := m.platform.Receive(); ok {
				queue.PushWait(ctx, m.inbound, inboundItem{address.Platform, data})
			}
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

		item, ok := m.outbound.TryPop()
		if !ok {
			continue
		}

		switch item.destination {
		case address.Device:
			if m.status(&m.deviceStatus) == Success {
				for !m.device.Send(item.body) {
					select {
					case <-ctx.Done():
						return
					default:
					}
				}
				continue
			}
		case address.Uhost:
			if m.status(&m.uhostStatus) == Success {
				for !m.uhost.Send(item.body) {
					select {
					case <-ctx.Done():
						return
					default:
					}
				}
				continue
			}
		case address.Platform:
			if m.status(&m.platformStatus) == Success {
				for !m.platform.Send(item.body) {
					select {
					case <-ctx.Done():
						return
					default:
					}
				}
				continue
			}
		}
		log.Debug("no active connection for destination %s", item.destination)
	}
}

// Receive returns the next (source, body) pair read from any active
// connection, or ok=false if nothing is queued.
func (m *Manager) Receive() (source address.Endpoint, body []byte, ok bool) {
	item, ok := m.inbound.TryPop()
	if !ok {
		return 0, nil, false
	}
	return item.source, item.body, true
}

// Send enqueues body for transmission over destination's connection.
func (m *Manager) Send(destination address.Endpoint, body []byte) bool {
	if !destination.Valid() {
		return false
	}
	return m.outbound.TryPush(outboundItem{destination, body})
}

// Stop tears down every connection and joins both pumps.
func (m *Manager) Stop() {
	m.device.Stop()
	if m.uhost != nil {
		m.uhost.Stop()
	}
	m.platform.Stop()

	m.cancel()
	m.wg.Wait()
	log.Debug("manager stopped")
}
