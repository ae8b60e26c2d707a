package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"membership-service/internal/models"
	"time"

	redis_v9 "github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	sessionKeyPrefix = "membership-session-"
	stateKeyPrefix   = "google-auth-state:"
)

// SessionRepository keeps sessions and OAuth states in Redis.
type SessionRepository struct {
	client *redis_v9.Client
}

func NewSessionRepository(client *redis_v9.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func (r *SessionRepository) SaveStructCached(ctx context.Context, key string, model any, ttl time.Duration) error {
	val, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("error saving struct to cache: %w", err)
	}
	if err := r.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("error saving struct to cache: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetStructCached(ctx context.Context, key string, model any) error {
	coded, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis_v9.Nil) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("error get struct in cache: %w", err)
	}
	return json.Unmarshal(coded, model)
}

func (r *SessionRepository) SaveSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	return r.SaveStructCached(ctx, sessionKeyPrefix+session.ID, session, ttl)
}

func (r *SessionRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	if err := r.GetStructCached(ctx, sessionKeyPrefix+id, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

func (r *SessionRepository) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	if err := r.client.Set(ctx, stateKeyPrefix+state, "1", ttl).Err(); err != nil {
		return fmt.Errorf("error saving oauth state: %w", err)
	}
	return nil
}

// ConsumeState reports whether state was issued and removes it.
func (r *SessionRepository) ConsumeState(ctx context.Context, state string) (bool, error) {
	err := r.client.GetDel(ctx, stateKeyPrefix+state).Err()
	if errors.Is(err, redis_v9.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error reading oauth state: %w", err)
	}
	return true, nil
}
