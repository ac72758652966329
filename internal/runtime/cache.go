package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"interviewgo/internal/interview"
	"interviewgo/internal/models"
	"interviewgo/internal/redis"
)

const (
	sessionKeyPrefix  = "interview:session:"
	defaultSessionTTL = 30 * time.Minute
)

// sessionCache keeps active sessions in redis so an in-progress interview
// survives a process restart. A nil cache disables resumption.
type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newSessionCache(client *redis.Client, ttl time.Duration) *sessionCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &sessionCache{client: client, ttl: ttl}
}

type cachedSession struct {
	Turns     []models.Turn    `json:"turns"`
	Status    interview.Status `json:"status"`
	StartedAt time.Time        `json:"started_at"`
}

func sessionKey(username string) string {
	return sessionKeyPrefix + username
}

// Save stores the session under its respondent key. Terminal sessions are
// dropped instead of saved.
func (c *sessionCache) Save(ctx context.Context, sess *interview.Session) error {
	if c == nil {
		return nil
	}
	if sess.Status.Terminal() {
		return c.Drop(ctx, sess.Username)
	}
	payload, err := json.Marshal(cachedSession{
		Turns:     sess.Turns,
		Status:    sess.Status,
		StartedAt: sess.StartedAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return c.client.Set(ctx, sessionKey(sess.Username), payload, c.ttl)
}

// Load returns the cached active session for the respondent, or nil when none
// is cached.
func (c *sessionCache) Load(ctx context.Context, username string) (*interview.Session, error) {
	if c == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, sessionKey(username))
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var cached cachedSession
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if cached.Status != interview.StatusActive {
		return nil, nil
	}
	return &interview.Session{
		Username:  username,
		Turns:     cached.Turns,
		Status:    cached.Status,
		StartedAt: cached.StartedAt,
	}, nil
}

// Drop removes the cached session.
func (c *sessionCache) Drop(ctx context.Context, username string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, sessionKey(username))
}
