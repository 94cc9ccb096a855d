package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ipede/authz-server/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key layout: the session body lives under its session id; callback ids and
// authorization codes are index keys pointing at the session id so they can
// be invalidated independently of the session itself.
const (
	sessionKeyPrefix  = "authn:session:"
	callbackKeyPrefix = "authn:callback:"
	codeKeyPrefix     = "authn:code:"
)

// RedisSessionStore implements domain.SessionStore on Redis.
//
// The consume operations rely on GETDEL, which removes the index key in the
// same command that reads it. Under concurrent consumption of one key, Redis
// serializes the commands and exactly one caller receives the value.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSessionStore creates a new RedisSessionStore. Sessions and their
// index keys expire after ttl.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) domain.SessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisSessionStore) Create(ctx context.Context, session *domain.AuthnSession) error {
	return s.write(ctx, session)
}

func (s *RedisSessionStore) Update(ctx context.Context, session *domain.AuthnSession) error {
	return s.write(ctx, session)
}

func (s *RedisSessionStore) write(ctx context.Context, session *domain.AuthnSession) error {
	encoded, err := json.Marshal(session)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+session.ID, encoded, s.ttl)
		if session.CallbackID != "" {
			pipe.Set(ctx, callbackKeyPrefix+session.CallbackID, session.ID, s.ttl)
		}
		if session.AuthzCode != "" {
			pipe.Set(ctx, codeKeyPrefix+session.AuthzCode, session.ID, s.ttl)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to write session",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisSessionStore) GetByID(ctx context.Context, id string) (*domain.AuthnSession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return decodeSession(data)
}

// ConsumeCallbackID resolves and invalidates a callback id in one atomic
// operation. At most one concurrent caller wins; the rest observe
// ErrSessionNotFound.
func (s *RedisSessionStore) ConsumeCallbackID(ctx context.Context, callbackID string) (*domain.AuthnSession, error) {
	return s.consumeIndex(ctx, callbackKeyPrefix+callbackID)
}

// ConsumeAuthorizationCode resolves and invalidates an authorization code in
// one atomic operation. A redeemed code can never be resolved again.
func (s *RedisSessionStore) ConsumeAuthorizationCode(ctx context.Context, code string) (*domain.AuthnSession, error) {
	return s.consumeIndex(ctx, codeKeyPrefix+code)
}

func (s *RedisSessionStore) consumeIndex(ctx context.Context, indexKey string) (*domain.AuthnSession, error) {
	sessionID, err := s.client.GetDel(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return s.GetByID(ctx, sessionID)
}

func decodeSession(data []byte) (*domain.AuthnSession, error) {
	session := &domain.AuthnSession{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, err
	}
	return session, nil
}
