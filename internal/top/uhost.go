package top

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/utim/internal/logging"
	"github.com/lanikai/utim/internal/queue"
)

var uhostLog = logging.DefaultLogger.WithTag("top.uhost")

// ErrInvalidMessage names the error class for a message that is not a
// populated byte slice. UhostConnection.Send refuses an empty message by
// returning false and never returns this error.
var ErrInvalidMessage = errors.New("top: message must be a non-empty byte slice")

// MessageHandler receives a (sender, message) pair demultiplexed from a
// broker subscription.
type MessageHandler func(sender, message []byte)

// Backend is the capability a messaging protocol implementation (MQTT,
// which also serves the umqtt setting, or AMQP) must provide to back an
// UhostConnection. Connect, Subscribe, Publish, and Disconnect each map
// directly onto the corresponding broker operation.
type Backend interface {
	Connect() error
	Subscribe(topic string, handler MessageHandler) error
	Publish(sender []byte, destination string, message []byte) error
	Disconnect() error
}

// UhostConnection paces outbound publishes once a second, grounded on the
// original's sleep(1)-between-flush loop, and demultiplexes inbound broker
// messages into a local queue via the subscription callback.
type UhostConnection struct {
	backend     Backend
	utimName    string
	destination string // hex-decoded Uhost name, used as the publish topic

	inbound  *queue.Queue[[]byte]
	outbound *queue.Queue[[]byte]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewUhostConnection constructs a connection for utimName, publishing to
// the topic produced by hex-decoding uhostName. It does not connect until
// Connect is called.
func NewUhostConnection(backend Backend, utimName, uhostName string) (*UhostConnection, error) {
	destination, err := hex.DecodeString(uhostName)
	if err != nil {
		return nil, errors.Wrap(err, "top: uhost name is not valid hex")
	}
	return &UhostConnection{
		backend:     backend,
		utimName:    utimName,
		destination: string(destination),
		inbound:     queue.New[[]byte](0),
		outbound:    queue.New[[]byte](0),
	}, nil
}

// Connect opens the backend connection and subscribes to this Uhost's own
// topic, then starts the publish-pacing worker.
func (u *UhostConnection) Connect() error {
	if err := u.backend.Connect(); err != nil {
		return errors.Wrap(err, "top: uhost connect")
	}
	if err := u.backend.Subscribe(u.utimName, u.onMessage); err != nil {
		return errors.Wrap(err, "top: uhost subscribe")
	}

	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	u.wg.Add(1)
	go u.runOutbound(ctx)

	return nil
}

func (u *UhostConnection) onMessage(sender, message []byte) {
	uhostLog.Debug("received %d bytes from %x", len(message), sender)
	queue.PushWait(context.Background(), u.inbound, message)
}

func (u *UhostConnection) runOutbound(ctx context.Context) {
	defer u.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.flush()
		}
	}
}

func (u *UhostConnection) flush() {
	for {
		message, ok := u.outbound.TryPop()
		if !ok {
			return
		}
		if err := u.backend.Publish([]byte(u.utimName), u.destination, message); err != nil {
			uhostLog.Error("publish failed: %s", err)
			return
		}
	}
}

// Receive returns the next message received on this Uhost's topic, or
// ok=false if none is queued.
func (u *UhostConnection) Receive() (message []byte, ok bool) {
	return u.inbound.TryPop()
}

// Send enqueues message for publication to the Uhost's destination topic.
func (u *UhostConnection) Send(message []byte) bool {
	if len(message) == 0 {
		return false
	}
	return u.outbound.TryPush(message)
}

// Stop halts the publish worker and disconnects the backend.
func (u *UhostConnection) Stop() {
	if u.cancel != nil {
		u.cancel()
		u.wg.Wait()
	}
	if err := u.backend.Disconnect(); err != nil {
		uhostLog.Error("disconnect failed: %s", err)
	}
}
