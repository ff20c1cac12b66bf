package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tripcatalog/internal/models"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// DefaultQueue carries destination lifecycle events.
const DefaultQueue = "destination_events"

// Channel is the subset of *amqp.Channel the client uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel Channel
	queue   string
	log     logrus.FieldLogger
	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient connects to RabbitMQ, opens a channel and declares the event queue.
func NewClient(cfg Config, log logrus.FieldLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	client, err := NewClientWithChannel(ch, cfg.Queue, log)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	client.conn = conn
	return client, nil
}

// NewClientWithChannel wraps an already open channel and declares the queue on it.
func NewClientWithChannel(ch Channel, queue string, log logrus.FieldLogger) (*Client, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if err := declare(ch, queue); err != nil {
		return nil, err
	}
	log.WithField("queue", queue).Info("RabbitMQ client connected and queue declared")
	return &Client{channel: ch, queue: queue, log: log}, nil
}

func declare(ch Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", queue, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishDestinationEvent publishes event as persistent JSON to the event queue.
func (c *Client) PublishDestinationEvent(ctx context.Context, event models.DestinationEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal destination event: %w", err)
	}

	c.mu.Lock()
	err = c.channel.Publish(
		"",      // default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         string(event.Type),
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.log.WithFields(logrus.Fields{"type": event.Type, "destination": event.DestinationID}).Debug("destination event published")
	return nil
}

// ConsumeDestinationEvents delivers decoded events to handler until the
// delivery channel closes. Messages that fail to decode are dropped; handler
// errors nack the message for redelivery.
func (c *Client) ConsumeDestinationEvents(handler func(models.DestinationEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			c.handle(msg, handler)
		}
	}()
	return nil
}

func (c *Client) handle(msg amqp.Delivery, handler func(models.DestinationEvent) error) {
	var event models.DestinationEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.log.WithError(err).WithField("tag", msg.DeliveryTag).Warn("dropping undecodable destination event")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.log.WithError(nackErr).Error("failed to nack message")
		}
		return
	}

	if err := handler(event); err != nil {
		c.log.WithError(err).WithField("tag", msg.DeliveryTag).Warn("destination event handler failed")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			c.log.WithError(nackErr).Error("failed to nack message")
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		c.log.WithError(ackErr).Error("failed to ack message")
	}
}

// LogEvents returns a handler that records each event through log.
func LogEvents(log logrus.FieldLogger) func(models.DestinationEvent) error {
	return func(event models.DestinationEvent) error {
		log.WithFields(logrus.Fields{
			"type":        event.Type,
			"destination": event.DestinationID,
			"actor":       event.ActorID,
			"images":      len(event.Images),
		}).Info("destination event received")
		return nil
	}
}
