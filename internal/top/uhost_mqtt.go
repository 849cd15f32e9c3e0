package top

import (
	"bytes"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/lanikai/utim/config"
)

// ErrReconnectTimeout is raised once a broker connection has failed to
// recover within the configured reconnect budget.
var ErrReconnectTimeout = errors.New("top: mqtt reconnection timeout")

// MQTTBackend is the default Uhost Backend, talking to a Mosquitto-style
// broker over github.com/eclipse/paho.mqtt.golang.
type MQTTBackend struct {
	broker config.Broker

	client       mqtt.Client
	reconnects   int
	reconnectMax int

	topic   string
	handler MessageHandler
}

// NewMQTTBackend constructs a backend from broker connection parameters.
// reconnectMax bounds the number of consecutive reconnect attempts before
// Connect gives up, mirroring messaging_reconnect_time in the original
// configuration.
func NewMQTTBackend(broker config.Broker) *MQTTBackend {
	max := broker.ReconnectTime
	if max <= 0 {
		max = 60
	}
	return &MQTTBackend{broker: broker, reconnectMax: max}
}

func (b *MQTTBackend) Connect() error {
	if b.broker.Username == "" || b.broker.Password == "" {
		return errors.New("top: invalid mqtt credentials")
	}
	if b.broker.Hostname == "" {
		return errors.New("top: invalid mqtt host")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(b.broker.Hostname).
		SetUsername(b.broker.Username).
		SetPassword(b.broker.Password).
		SetAutoReconnect(false).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(b.onConnectionLost)

	b.client = mqtt.NewClient(opts)
	return b.connectWithBudget()
}

func (b *MQTTBackend) connectWithBudget() error {
	for {
		token := b.client.Connect()
		token.Wait()
		if token.Error() == nil {
			b.reconnects = 0
			return nil
		}

		b.reconnects++
		if b.reconnects >= b.reconnectMax {
			return errors.Wrap(ErrReconnectTimeout, token.Error().Error())
		}
		time.Sleep(time.Second)
	}
}

func (b *MQTTBackend) onConnect(mqtt.Client) {
	b.reconnects = 0
	if b.topic != "" {
		b.client.Subscribe(b.topic, 0, b.onMessage)
	}
}

func (b *MQTTBackend) onConnectionLost(_ mqtt.Client, err error) {
	b.reconnects++
	if b.reconnects >= b.reconnectMax {
		return
	}
	_ = b.connectWithBudget()
}

func (b *MQTTBackend) Subscribe(topic string, handler MessageHandler) error {
	b.topic = topic
	b.handler = handler
	token := b.client.Subscribe(topic, 0, b.onMessage)
	token.Wait()
	return token.Error()
}

func (b *MQTTBackend) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if b.handler == nil {
		return
	}
	parts := bytes.SplitN(msg.Payload(), []byte(" "), 2)
	if len(parts) != 2 {
		return
	}
	b.handler(parts[0], parts[1])
}

func (b *MQTTBackend) Publish(sender []byte, destination string, message []byte) error {
	if destination == "" || len(message) == 0 || len(sender) == 0 {
		return errors.New("top: invalid publish arguments")
	}
	payload := append(append([]byte(nil), sender...), append([]byte(" "), message...)...)
	token := b.client.Publish(destination, 0, false, payload)
	token.Wait()
	return token.Error()
}

func (b *MQTTBackend) Disconnect() error {
	if b.client != nil {
		b.client.Disconnect(250)
	}
	return nil
}
