package service

import (
	"context"
	"log"
	"membership-service/internal/event"
	"membership-service/internal/metrics"
	"membership-service/internal/models"
	"strings"
	"sync"
)

type Ledger interface {
	EventExists(event string) (bool, error)
	Contains(event, identifier string) (bool, error)
	Append(event, identifier string) error
	Create(event string) (bool, error)
	List() ([]string, error)
}

type RegistrationService struct {
	ledger    Ledger
	publisher event.Publisher
	locks     eventLocks
}

func NewRegistrationService(ledger Ledger, publisher event.Publisher) *RegistrationService {
	return &RegistrationService{
		ledger:    ledger,
		publisher: publisher,
		locks:     eventLocks{locks: make(map[string]*sync.Mutex)},
	}
}

// Register records identifier for eventName. The event file must have been
// provisioned beforehand.
func (s *RegistrationService) Register(ctx context.Context, eventName, identifier string) (models.Outcome, error) {
	outcome, err := s.register(eventName, identifier)
	if err != nil {
		metrics.Registrations.WithLabelValues(models.ErrorCode(err)).Inc()
		return 0, err
	}
	metrics.Registrations.WithLabelValues(outcome.String()).Inc()

	if outcome == models.OutcomeRegistered && s.publisher != nil {
		evt := &models.RegistrationEvent{
			BaseEvent:  event.NewBaseEvent(models.EventTypeRegistrationCreated),
			Event:      strings.Clone(eventName),
			Identifier: identifier,
		}
		if err := s.publisher.PublishRegistrationEvent(evt); err != nil {
			log.Printf("Failed to publish registration of %s to %s: %v", identifier, eventName, err)
		}
	}
	return outcome, nil
}

func (s *RegistrationService) register(eventName, identifier string) (models.Outcome, error) {
	if !models.ValidEventName(eventName) {
		return 0, models.ErrInvalidEventName
	}
	if err := models.ValidateIdentifier(identifier); err != nil {
		return 0, err
	}

	unlock := s.locks.lock(eventName)
	defer unlock()

	exists, err := s.ledger.EventExists(eventName)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, models.ErrUnknownEvent
	}

	registered, err := s.ledger.Contains(eventName, identifier)
	if err != nil {
		return 0, err
	}
	if registered {
		return models.OutcomeAlreadyRegistered, nil
	}

	if err := s.ledger.Append(eventName, identifier); err != nil {
		return 0, err
	}
	return models.OutcomeRegistered, nil
}

// Provision opens eventName for registration. It reports false when the
// event was already open.
func (s *RegistrationService) Provision(eventName string) (bool, error) {
	if !models.ValidEventName(eventName) {
		return false, models.ErrInvalidEventName
	}
	unlock := s.locks.lock(eventName)
	defer unlock()
	return s.ledger.Create(eventName)
}

func (s *RegistrationService) Events() ([]string, error) {
	return s.ledger.List()
}

// IsRegistered reports whether identifier already appears in eventName's
// ledger.
func (s *RegistrationService) IsRegistered(eventName, identifier string) (bool, error) {
	if !models.ValidEventName(eventName) {
		return false, models.ErrInvalidEventName
	}
	if err := models.ValidateIdentifier(identifier); err != nil {
		return false, err
	}
	exists, err := s.ledger.EventExists(eventName)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, models.ErrUnknownEvent
	}
	return s.ledger.Contains(eventName, identifier)
}

// eventLocks serializes check-then-append per event inside this process.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *eventLocks) lock(eventName string) func() {
	l.mu.Lock()
	m, ok := l.locks[eventName]
	if !ok {
		m = &sync.Mutex{}
		l.locks[strings.Clone(eventName)] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
