package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/travel-session/internal/domain"
)

// Durable keys shared with the web client.
const (
	KeyToken               = "token"
	KeyUser                = "user"
	KeyRefreshToken        = "refreshToken"
	KeyTokenExpirationTime = "tokenExpirationTime"
)

// SessionKeys lists every key owned by the session.
var SessionKeys = []string{KeyToken, KeyUser, KeyRefreshToken, KeyTokenExpirationTime}

// ErrEmptyToken is returned when saving a record without a token.
var ErrEmptyToken = errors.New("session record has no token")

// Record is the durable view of a session. Absent keys leave fields zero.
type Record struct {
	Token          string
	User           *domain.UserProfile
	RefreshToken   string
	ExpirationTime time.Time
}

// Empty reports whether no token is stored.
func (r Record) Empty() bool {
	return r.Token == ""
}

// SessionStore maps Records onto the durable keys of a KV.
type SessionStore struct {
	kv KV
}

// NewSessionStore wraps kv.
func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// Load reads all session keys. Unreadable user JSON or timestamps yield zero fields.
func (s *SessionStore) Load(ctx context.Context) (Record, error) {
	values, err := s.kv.Get(ctx, SessionKeys...)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Token:        values[KeyToken],
		RefreshToken: values[KeyRefreshToken],
	}
	if raw := values[KeyUser]; raw != "" {
		var user domain.UserProfile
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			user.Role = domain.ParseRole(string(user.Role))
			rec.User = &user
		}
	}
	if raw := values[KeyTokenExpirationTime]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rec.ExpirationTime = ts
		}
	}
	return rec, nil
}

// Save writes the token together with its expiration, user and refresh token.
func (s *SessionStore) Save(ctx context.Context, rec Record) error {
	if rec.Token == "" {
		return ErrEmptyToken
	}

	user := ""
	if rec.User != nil {
		raw, err := json.Marshal(rec.User)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		user = string(raw)
	}
	expiration := ""
	if !rec.ExpirationTime.IsZero() {
		expiration = rec.ExpirationTime.UTC().Format(time.RFC3339Nano)
	}

	return s.kv.Set(ctx, map[string]string{
		KeyToken:               rec.Token,
		KeyUser:                user,
		KeyRefreshToken:        rec.RefreshToken,
		KeyTokenExpirationTime: expiration,
	})
}

// Clear removes every session key.
func (s *SessionStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, SessionKeys...)
}

// Close releases the underlying store.
func (s *SessionStore) Close() error {
	return s.kv.Close()
}
