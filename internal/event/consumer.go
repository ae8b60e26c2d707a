package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"membership-service/internal/models"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Consumer interface {
	Start() error
	Close() error
}

type EventProvisioner interface {
	Provision(event string) (bool, error)
}

type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, identifier string) (*models.Profile, error)
}

type EventConsumer struct {
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	exchange    string
	queueName   string
	provisioner EventProvisioner
	profiles    ProfileEnsurer
	shutdown    chan struct{}
	wg          sync.WaitGroup
	enabled     bool
}

func NewEventConsumer(rabbitURI, exchange, queueName string, provisioner EventProvisioner, profiles ProfileEnsurer) (*EventConsumer, error) {
	c := &EventConsumer{
		exchange:    exchange,
		queueName:   queueName,
		provisioner: provisioner,
		profiles:    profiles,
		shutdown:    make(chan struct{}),
	}
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event consumption is disabled")
		return c, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	c.conn = conn
	c.channel = channel
	c.enabled = true
	return c, nil
}

func (c *EventConsumer) Start() error {
	if !c.enabled {
		log.Println("Event consumption is disabled, not starting consumer")
		return nil
	}

	err := c.channel.ExchangeDeclare(
		c.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", c.exchange, err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, routingKey := range []models.EventType{models.EventTypeEventProvisioned, models.EventTypeUserRegistered} {
		if err := c.channel.QueueBind(c.queueName, string(routingKey), c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to exchange %s with key %s: %w", c.exchange, routingKey, err)
		}
		log.Printf("Bound queue %s to exchange %s with routing key %s", c.queueName, c.exchange, routingKey)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(msgs)
	}()

	log.Printf("Event consumer started on queue %s", c.queueName)
	return nil
}

func (c *EventConsumer) consume(msgs <-chan amqp091.Delivery) {
	for {
		select {
		case <-c.shutdown:
			log.Println("Stopping event consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Println("Message channel closed, consumer stopped")
				return
			}

			if err := c.processMessage(msg.RoutingKey, msg.Body); err != nil {
				log.Printf("Error processing message: %v", err)
				if err := msg.Nack(false, false); err != nil {
					log.Printf("Error NACKing message: %v", err)
				}
			} else if err := msg.Ack(false); err != nil {
				log.Printf("Error ACKing message: %v", err)
			}
		}
	}
}

func (c *EventConsumer) processMessage(routingKey string, body []byte) error {
	log.Printf("Processing message with routing key: %s", routingKey)

	switch models.EventType(routingKey) {
	case models.EventTypeEventProvisioned:
		return c.handleEventProvisioned(body)
	case models.EventTypeUserRegistered:
		return c.handleUserRegistered(body)
	default:
		log.Printf("Unknown routing key: %s", routingKey)
		return nil
	}
}

func (c *EventConsumer) handleEventProvisioned(body []byte) error {
	var event models.EventProvisionedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event provisioned message: %w", err)
	}

	created, err := c.provisioner.Provision(event.Event)
	if err != nil {
		return fmt.Errorf("failed to provision event %q: %w", event.Event, err)
	}
	if created {
		log.Printf("Opened registrations for event %s", event.Event)
	} else {
		log.Printf("Event %s was already open", event.Event)
	}
	return nil
}

func (c *EventConsumer) handleUserRegistered(body []byte) error {
	var event models.UserRegisteredEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to unmarshal user registered event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.profiles.EnsureProfile(ctx, event.Email); err != nil {
		return fmt.Errorf("failed to create profile for %s: %w", event.Email, err)
	}
	log.Printf("Profile ready for registered user %s", event.Email)
	return nil
}

func (c *EventConsumer) Close() error {
	if !c.enabled {
		return nil
	}

	close(c.shutdown)
	c.wg.Wait()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			log.Printf("Error closing RabbitMQ channel: %v", err)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}

	return nil
}
