package service

import (
	"context"
	"fmt"
	"log"
	"membership-service/internal/event"
	"membership-service/internal/metrics"
	"membership-service/internal/models"
	"time"
)

type ProfileStore interface {
	Exists(identifier string) (bool, error)
	Load(identifier string) (*models.Profile, error)
	Save(profile *models.Profile) error
}

type ProfileMirror interface {
	Upsert(ctx context.Context, profile *models.Profile) error
}

type ProfileService struct {
	profileRepo ProfileStore
	mirror      ProfileMirror
	publisher   event.Publisher
}

// NewProfileService wires the profile store. mirror may be nil.
func NewProfileService(profileRepo ProfileStore, mirror ProfileMirror, publisher event.Publisher) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		mirror:      mirror,
		publisher:   publisher,
	}
}

func (s *ProfileService) Exists(identifier string) (bool, error) {
	return s.profileRepo.Exists(identifier)
}

// GetProfile returns the stored profile, or an unsaved default one for a
// first-time user.
func (s *ProfileService) GetProfile(ctx context.Context, identifier string) (*models.Profile, error) {
	profile, err := s.profileRepo.Load(identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies the submitted fields and persists the whole document.
// It returns the saved profile and the paths whose value changed.
func (s *ProfileService) UpdateProfile(ctx context.Context, identifier string, values map[string]string) (*models.Profile, []string, error) {
	profile, err := s.GetProfile(ctx, identifier)
	if err != nil {
		return nil, nil, err
	}

	changed, err := profile.Update(values)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if err := s.SaveProfile(ctx, profile, changed); err != nil {
		return nil, nil, err
	}
	return profile, changed, nil
}

// EnsureProfile makes sure a stored document exists for identifier.
func (s *ProfileService) EnsureProfile(ctx context.Context, identifier string) (*models.Profile, error) {
	exists, err := s.Exists(identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to check profile: %w", err)
	}
	if exists {
		return s.GetProfile(ctx, identifier)
	}

	profile, err := s.GetProfile(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !profile.IsNew {
		return profile, nil
	}
	if err := s.SaveProfile(ctx, profile, nil); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ProfileService) SaveProfile(ctx context.Context, profile *models.Profile, changed []string) error {
	created := profile.IsNew
	kind := "updated"
	if created {
		kind = "created"
	}

	if err := s.profileRepo.Save(profile); err != nil {
		metrics.ProfileSaves.WithLabelValues("failure", kind).Inc()
		return fmt.Errorf("failed to save profile: %w", err)
	}
	metrics.ProfileSaves.WithLabelValues("success", kind).Inc()

	if s.mirror != nil {
		mirrorCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.mirror.Upsert(mirrorCtx, profile); err != nil {
			log.Printf("Warning: %v", err)
		}
		cancel()
	}

	switch {
	case created:
		s.publish(&models.ProfileEvent{
			BaseEvent:  event.NewBaseEvent(models.EventTypeProfileCreated),
			Identifier: profile.Identifier,
		})
	case len(changed) > 0:
		s.publish(&models.ProfileEvent{
			BaseEvent:     event.NewBaseEvent(models.EventTypeProfileUpdated),
			Identifier:    profile.Identifier,
			ChangedFields: changed,
		})
	}
	return nil
}

func (s *ProfileService) publish(evt *models.ProfileEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishProfileEvent(evt); err != nil {
		log.Printf("Failed to publish %s event for %s: %v", evt.Type, evt.Identifier, err)
	}
}
