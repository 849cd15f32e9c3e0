package top

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/lanikai/utim/config"
)

// AMQPBackend is an alternate Uhost Backend speaking AMQP 0-9-1 over
// github.com/streadway/amqp. Each subscription topic becomes a durable
// queue bound to the default exchange under its own name, the same
// one-queue-per-utim-name shape the MQTT backend gets from broker topics.
type AMQPBackend struct {
	broker config.Broker

	conn    *amqp.Connection
	channel *amqp.Channel

	handler MessageHandler
	done    chan struct{}
}

// NewAMQPBackend constructs a backend from broker connection parameters.
func NewAMQPBackend(broker config.Broker) *AMQPBackend {
	return &AMQPBackend{broker: broker}
}

func (b *AMQPBackend) Connect() error {
	url := fmt.Sprintf("amqp://%s:%s@%s/", b.broker.Username, b.broker.Password, b.broker.Hostname)

	conn, err := amqp.Dial(url)
	if err != nil {
		return errors.Wrap(err, "top: amqp dial")
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "top: amqp channel")
	}

	b.conn = conn
	b.channel = channel
	return nil
}

func (b *AMQPBackend) Subscribe(topic string, handler MessageHandler) error {
	queue, err := b.channel.QueueDeclare(topic, true, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "top: amqp queue declare")
	}

	deliveries, err := b.channel.Consume(queue.Name, "", true, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "top: amqp consume")
	}

	b.handler = handler
	b.done = make(chan struct{})
	go b.consume(deliveries)

	return nil
}

func (b *AMQPBackend) consume(deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-b.done:
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if b.handler == nil {
				continue
			}
			parts := bytes.SplitN(d.Body, []byte(" "), 2)
			if len(parts) != 2 {
				continue
			}
			b.handler(parts[0], parts[1])
		}
	}
}

func (b *AMQPBackend) Publish(sender []byte, destination string, message []byte) error {
	if destination == "" || len(message) == 0 || len(sender) == 0 {
		return errors.New("top: invalid publish arguments")
	}
	if _, err := b.channel.QueueDeclare(destination, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "top: amqp queue declare")
	}
	payload := append(append([]byte(nil), sender...), append([]byte(" "), message...)...)
	return b.channel.Publish("", destination, false, false, amqp.Publishing{
		Headers:     amqp.Table{"sender": string(sender)},
		ContentType: "application/octet-stream",
		Body:        payload,
	})
}

func (b *AMQPBackend) Disconnect() error {
	if b.done != nil {
		close(b.done)
	}
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
