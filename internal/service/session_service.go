package service

import (
	"context"
	"fmt"
	"membership-service/internal/models"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer = "membership-service"
	stateTTL    = 10 * time.Minute
)

type SessionStore interface {
	SaveSession(ctx context.Context, session *models.Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	SaveState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) (bool, error)
}

type SessionService struct {
	store  SessionStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(store SessionStore, secret string, ttl time.Duration) *SessionService {
	return &SessionService{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *SessionService) TTL() time.Duration { return s.ttl }

// NewSession stores a session for identifier and returns the signed cookie
// token that refers to it. The strings are copied, so callers may pass values
// backed by a reused request buffer.
func (s *SessionService) NewSession(ctx context.Context, identifier string, method models.SignInMethod, userAgent, ip string) (string, *models.Session, error) {
	if err := models.ValidateIdentifier(identifier); err != nil {
		return "", nil, err
	}
	identifier = strings.Clone(identifier)
	userAgent = strings.Clone(userAgent)
	ip = strings.Clone(ip)

	now := s.now()
	session := &models.Session{
		ID:             uuid.NewString(),
		Identifier:     identifier,
		Method:         method,
		UserAgent:      userAgent,
		IPAddress:      ip,
		IsValid:        true,
		CreatedAt:      now.Unix(),
		LastActivityAt: now.Unix(),
	}

	claims := models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    tokenIssuer,
		},
		SessionID:  session.ID,
		Identifier: identifier,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("error generate token string: %w", err)
	}

	if err := s.store.SaveSession(ctx, session, s.ttl); err != nil {
		return "", nil, fmt.Errorf("error saving session: %w", err)
	}
	return token, session, nil
}

// Authenticate resolves a cookie token to its live session. Every failure
// is reported as ErrNotAuthenticated.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	session, err := s.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNotAuthenticated, err)
	}
	if !session.IsValid || session.Identifier != claims.Identifier {
		return nil, fmt.Errorf("%w: session revoked", models.ErrNotAuthenticated)
	}
	return session, nil
}

// EndSession removes the session behind token. An unparseable token is not
// an error: there is nothing to end.
func (s *SessionService) EndSession(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	return s.store.DeleteSession(ctx, claims.SessionID)
}

func (s *SessionService) NewState(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.store.SaveState(ctx, state, stateTTL); err != nil {
		return "", err
	}
	return state, nil
}

func (s *SessionService) CheckState(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	return s.store.ConsumeState(ctx, state)
}

func (s *SessionService) parse(token string) (*models.Claims, error) {
	if token == "" {
		return nil, models.ErrNotAuthenticated
	}
	claims := &models.Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNotAuthenticated, err)
	}
	if claims.SessionID == "" || claims.Identifier == "" {
		return nil, fmt.Errorf("%w: incomplete token", models.ErrNotAuthenticated)
	}
	return claims, nil
}
