package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/admin-verify/pkg/domain"
)

const redisMaxRetries = 4

// redisAttemptRetries bounds RecordAttempt, which sees more contention than
// other writes when guesses arrive in bursts.
const redisAttemptRetries = 16

// DefaultSessionMaxAge bounds how long any session key lives in Redis.
const DefaultSessionMaxAge = 96 * time.Hour

// RedisSessionStoreConfig configures a RedisSessionStore.
type RedisSessionStoreConfig struct {
	Prefix string
	// MaxAge is the TTL of every key written by the store.
	MaxAge time.Duration
	Now    func() time.Time
}

// RedisSessionStore keeps verification sessions in Redis.
//
// Keys:
//
//	<prefix>:session:<id>              JSON session record
//	<prefix>:active:<flow>:<email>     id of the session for (flow, email)
//	<prefix>:account:<flow>:<account>  id of the session for (flow, account)
//
// Writes use WATCH/MULTI so concurrent transitions cannot interleave.
type RedisSessionStore struct {
	redis  redis.UniversalClient
	prefix string
	maxAge time.Duration
	now    func() time.Time
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client redis.UniversalClient, cfg RedisSessionStoreConfig) *RedisSessionStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "avs"
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultSessionMaxAge
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RedisSessionStore{
		redis:  client,
		prefix: cfg.Prefix,
		maxAge: cfg.MaxAge,
		now:    cfg.Now,
	}
}

type redisSessionRecord struct {
	ID                    uuid.UUID             `json:"id"`
	FlowType              domain.FlowType       `json:"flow_type"`
	Email                 string                `json:"email"`
	AccountID             *uuid.UUID            `json:"account_id,omitempty"`
	OTPHash               *string               `json:"otp_hash,omitempty"`
	OTPExpiresAt          *time.Time            `json:"otp_expires_at,omitempty"`
	VerificationTokenHash *string               `json:"verification_token_hash,omitempty"`
	TokenExpiresAt        *time.Time            `json:"token_expires_at,omitempty"`
	FailedAttempts        int                   `json:"failed_attempts"`
	Status                domain.SessionStatus  `json:"status"`
	Payload               domain.SessionPayload `json:"payload"`
	Version               int                   `json:"version"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

func encodeRedisSession(s *domain.VerificationSession) ([]byte, error) {
	return json.Marshal(redisSessionRecord{
		ID:                    s.ID,
		FlowType:              s.FlowType,
		Email:                 s.Email,
		AccountID:             s.AccountID,
		OTPHash:               s.OTPHash,
		OTPExpiresAt:          s.OTPExpiresAt,
		VerificationTokenHash: s.VerificationTokenHash,
		TokenExpiresAt:        s.TokenExpiresAt,
		FailedAttempts:        s.FailedAttempts,
		Status:                s.Status,
		Payload:               s.Payload,
		Version:               s.Version,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	})
}

func decodeRedisSession(data []byte) (*domain.VerificationSession, error) {
	var r redisSessionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode session record: %w", err)
	}
	if !r.FlowType.Valid() {
		return nil, fmt.Errorf("failed to decode session record: unknown flow %q", r.FlowType)
	}
	return &domain.VerificationSession{
		ID:                    r.ID,
		FlowType:              r.FlowType,
		Email:                 r.Email,
		AccountID:             r.AccountID,
		OTPHash:               r.OTPHash,
		OTPExpiresAt:          r.OTPExpiresAt,
		VerificationTokenHash: r.VerificationTokenHash,
		TokenExpiresAt:        r.TokenExpiresAt,
		FailedAttempts:        r.FailedAttempts,
		Status:                r.Status,
		Payload:               r.Payload,
		Version:               r.Version,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}, nil
}

func (s *RedisSessionStore) sessionKey(id uuid.UUID) string {
	return s.prefix + ":session:" + id.String()
}

func (s *RedisSessionStore) activeKey(flow domain.FlowType, email string) string {
	return s.prefix + ":active:" + string(flow) + ":" + email
}

func (s *RedisSessionStore) accountKey(flow domain.FlowType, accountID uuid.UUID) string {
	return s.prefix + ":account:" + string(flow) + ":" + accountID.String()
}

// indexKeys returns the secondary index keys that point at session.
func (s *RedisSessionStore) indexKeys(session *domain.VerificationSession) []string {
	keys := []string{s.activeKey(session.FlowType, session.Email)}
	if session.AccountID != nil {
		keys = append(keys, s.accountKey(session.FlowType, *session.AccountID))
	}
	return keys
}

// Create stores session and points its index keys at it. Sessions the
// index keys pointed at before are deleted in the same transaction.
func (s *RedisSessionStore) Create(ctx context.Context, session *domain.VerificationSession) error {
	data, err := encodeRedisSession(session)
	if err != nil {
		return err
	}
	indexKeys := s.indexKeys(session)

	for i := 0; i < redisMaxRetries; i++ {
		err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
			var superseded []string
			for _, key := range indexKeys {
				id, err := tx.Get(ctx, key).Result()
				if errors.Is(err, redis.Nil) {
					continue
				}
				if err != nil {
					return err
				}
				superseded = append(superseded, s.prefix+":session:"+id)
			}

			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if len(superseded) > 0 {
					pipe.Del(ctx, superseded...)
				}
				pipe.Set(ctx, s.sessionKey(session.ID), data, s.maxAge)
				for _, key := range indexKeys {
					pipe.Set(ctx, key, session.ID.String(), s.maxAge)
				}
				return nil
			})
			return err
		}, indexKeys...)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to create session: %w", redis.TxFailedErr)
}

// Get retrieves a session by ID. An expired session is deleted and
// reported as domain.ErrSessionExpired.
func (s *RedisSessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.VerificationSession, error) {
	session, err := s.load(ctx, s.redis, id)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(s.now()) {
		if err := s.remove(ctx, session); err != nil {
			return nil, err
		}
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// FindActive follows the (flow, email) index to the current session.
func (s *RedisSessionStore) FindActive(ctx context.Context, flow domain.FlowType, email string) (*domain.VerificationSession, error) {
	raw, err := s.redis.Get(ctx, s.activeKey(flow, email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionExpired) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Update writes the session if the stored version still matches.
// The remaining TTL of the key is preserved.
func (s *RedisSessionStore) Update(ctx context.Context, session *domain.VerificationSession) error {
	key := s.sessionKey(session.ID)
	next := session.Clone()
	next.Version++
	data, err := encodeRedisSession(next)
	if err != nil {
		return err
	}

	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.load(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if current.Version != session.Version {
			return domain.ErrSessionStale
		}

		ttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}
		if ttl <= 0 {
			ttl = s.maxAge
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		session.Version = next.Version
		return nil
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, redis.TxFailedErr):
		return domain.ErrSessionStale
	default:
		return err
	}
}

// RecordAttempt increments the attempt counter under WATCH, retrying when
// another writer touched the record. The version and TTL are preserved.
func (s *RedisSessionStore) RecordAttempt(ctx context.Context, id uuid.UUID, otpHash string) (int, error) {
	key := s.sessionKey(id)

	for i := 0; i < redisAttemptRetries; i++ {
		var attempts int
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			current, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if current.OTPHash == nil || *current.OTPHash != otpHash {
				return domain.ErrSessionStale
			}
			current.FailedAttempts++
			data, err := encodeRedisSession(current)
			if err != nil {
				return err
			}

			ttl, err := tx.PTTL(ctx, key).Result()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = s.maxAge
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, ttl)
				return nil
			})
			attempts = current.FailedAttempts
			return err
		}, key)

		switch {
		case err == nil:
			return attempts, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, domain.ErrSessionNotFound):
			return 0, domain.ErrSessionStale
		default:
			return 0, err
		}
	}
	return 0, domain.ErrSessionStale
}

// Delete removes a session and the index entries pointing at it.
func (s *RedisSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	session, err := s.load(ctx, s.redis, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.remove(ctx, session)
}

// remove deletes the session key and every index key still pointing at it.
func (s *RedisSessionStore) remove(ctx context.Context, session *domain.VerificationSession) error {
	indexKeys := s.indexKeys(session)
	id := session.ID.String()

	for i := 0; i < redisMaxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			var owned []string
			for _, key := range indexKeys {
				current, err := tx.Get(ctx, key).Result()
				if errors.Is(err, redis.Nil) {
					continue
				}
				if err != nil {
					return err
				}
				if current == id {
					owned = append(owned, key)
				}
			}

			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, append(owned, s.sessionKey(session.ID))...)
				return nil
			})
			return err
		}, indexKeys...)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to delete session: %w", redis.TxFailedErr)
}

// stringGetter is satisfied by clients and by *redis.Tx inside WATCH.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisSessionStore) load(ctx context.Context, c stringGetter, id uuid.UUID) (*domain.VerificationSession, error) {
	data, err := c.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRedisSession(data)
}
