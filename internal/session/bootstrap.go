package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-session/internal/domain"
)

// Bootstrap decides, once per process, whether the stored session is usable.
//
// No stored token leaves the manager anonymous. A token that does not decode, has no
// exp claim or is already expired is purged through the shared teardown. A valid token
// becomes the active session: the cached tokenExpirationTime is rewritten when it is
// missing or disagrees with the token, the scheduler is armed from the token's exp and
// the validator starts. Token problems never surface as errors; only a storage read
// failure does.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.lifecycle.Lock()
	if m.bootstrapped {
		m.lifecycle.Unlock()
		return ErrAlreadyBootstrapped
	}
	m.bootstrapped = true

	rec, err := m.store.Load(ctx)
	if err != nil {
		m.lifecycle.Unlock()
		return fmt.Errorf("load durable session: %w", err)
	}
	if rec.Empty() {
		m.lifecycle.Unlock()
		m.logger.Debug("no stored session")
		return nil
	}

	claims, err := m.decoder.Decode(rec.Token)
	if err != nil || !claims.ExpiresAt().After(m.now()) {
		reason := "expired"
		if err != nil {
			reason = err.Error()
		}
		m.logger.Info("discarding stored session", zap.String("reason", reason))

		ended := m.teardownLocked(ctx, domain.TriggerBootstrap, true)
		m.lifecycle.Unlock()
		m.announce(ctx, ended)
		return nil
	}

	exp := claims.ExpiresAt()
	if !rec.ExpirationTime.Equal(exp) {
		m.logger.Debug("repairing cached expiration",
			zap.Time("cached", rec.ExpirationTime),
			zap.Time("token", exp))
		rec.ExpirationTime = exp
		if err := m.store.Save(ctx, rec); err != nil {
			m.logger.Warn("persist repaired expiration", zap.Error(err))
		}
	}

	sess := &domain.Session{
		ID:             uuid.NewString(),
		User:           rec.User,
		Token:          rec.Token,
		RefreshToken:   rec.RefreshToken,
		ExpirationTime: exp,
		IssuedAt:       claims.IssuedAt(),
	}
	m.setState(domain.StateAuthenticated, sess)
	m.lifecycle.Unlock()

	m.scheduler.Arm(exp)
	m.validator.Start()
	m.publishStarted(ctx, sess, true)
	return nil
}
