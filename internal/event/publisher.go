package event

import (
	"encoding/json"
	"fmt"
	"log"
	"membership-service/internal/models"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

type Publisher interface {
	PublishProfileEvent(event *models.ProfileEvent) error
	PublishRegistrationEvent(event *models.RegistrationEvent) error
	Close() error
}

func NewBaseEvent(eventType models.EventType) models.BaseEvent {
	return models.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Version:   "1.0",
	}
}

type EventPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
}

func NewEventPublisher(rabbitURI, exchange string) (*EventPublisher, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{
			exchange: exchange,
			enabled:  false,
		}, nil
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

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Printf("Event publisher initialized with exchange: %s", exchange)

	return &EventPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
	}, nil
}

func (p *EventPublisher) PublishProfileEvent(event *models.ProfileEvent) error {
	return p.publish(event.Type, event, amqp091.Table{
		"event_type": string(event.Type),
		"identifier": event.Identifier,
	})
}

func (p *EventPublisher) PublishRegistrationEvent(event *models.RegistrationEvent) error {
	return p.publish(event.Type, event, amqp091.Table{
		"event_type": string(event.Type),
		"event":      event.Event,
		"identifier": event.Identifier,
	})
}

func (p *EventPublisher) publish(eventType models.EventType, event any, headers amqp091.Table) error {
	if !p.enabled {
		log.Printf("Event publishing disabled, skipping event: %s", eventType)
		return nil
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.Publish(
		p.exchange,        // exchange
		string(eventType), // routing key
		false,             // mandatory
		false,             // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         eventData,
			Headers:      headers,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Printf("Published event: %s", eventType)
	return nil
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Printf("Error closing RabbitMQ channel: %v", err)
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}

	return nil
}

// MockPublisher records events in memory.
type MockPublisher struct {
	mu                 sync.Mutex
	ProfileEvents      []models.ProfileEvent
	RegistrationEvents []models.RegistrationEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishProfileEvent(event *models.ProfileEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProfileEvents = append(m.ProfileEvents, *event)
	return nil
}

func (m *MockPublisher) PublishRegistrationEvent(event *models.RegistrationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RegistrationEvents = append(m.RegistrationEvents, *event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}
