// Package session owns the client session lifecycle: the in-memory and durable session,
// the expiration timer, the periodic validator and the single teardown path.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/domain"
	"github.com/spec-kit/travel-session/internal/events"
	"github.com/spec-kit/travel-session/internal/navigation"
	"github.com/spec-kit/travel-session/internal/storage"
)

var (
	// ErrInvalidToken is returned by SetSession for malformed or expired tokens.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrAlreadyBootstrapped is returned when Bootstrap runs a second time.
	ErrAlreadyBootstrapped = errors.New("session already bootstrapped")
)

// Dependencies groups the collaborators of a Manager.
type Dependencies struct {
	Store      *storage.SessionStore
	Decoder    *auth.Decoder
	Dispatcher events.Dispatcher
	Navigator  navigation.Navigator
	Logger     *zap.Logger
}

// Options tunes timing and routing.
type Options struct {
	ValidationInterval time.Duration
	MaxTimerSegment    time.Duration
	LoginPath          string
	Clock              func() time.Time
}

// Manager is the only writer of session state. States move
// Anonymous -> Authenticated on login, refresh or a valid bootstrap and
// Authenticated -> Expiring -> Anonymous on expiry, logout or a rejected token.
type Manager struct {
	store      *storage.SessionStore
	decoder    *auth.Decoder
	dispatcher events.Dispatcher
	navigator  navigation.Navigator
	logger     *zap.Logger
	now        func() time.Time
	loginPath  string

	scheduler *Scheduler
	validator *Validator

	// lifecycle serializes transitions and durable writes. Timers are armed
	// only after it is released because Arm may fire synchronously.
	lifecycle    sync.Mutex
	bootstrapped bool

	mu      sync.RWMutex
	state   domain.State
	session *domain.Session
}

// NewManager builds an anonymous manager. Call Bootstrap once at process start.
func NewManager(deps Dependencies, opts Options) *Manager {
	m := &Manager{
		store:      deps.Store,
		decoder:    deps.Decoder,
		dispatcher: deps.Dispatcher,
		navigator:  deps.Navigator,
		logger:     deps.Logger,
		now:        opts.Clock,
		loginPath:  opts.LoginPath,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.decoder == nil {
		m.decoder = auth.NewDecoder("")
	}
	if m.dispatcher == nil {
		m.dispatcher = events.NewInMemoryDispatcher(m.logger)
	}
	if m.navigator == nil {
		m.navigator = navigation.NewHistory(navigation.HomePath, m.logger)
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.loginPath == "" {
		m.loginPath = navigation.LoginPath
	}

	m.scheduler = NewScheduler(m.onDeadline, opts.MaxTimerSegment, m.now)
	m.validator = NewValidator(opts.ValidationInterval, m.onValidate)
	return m
}

// GetSession returns a copy of the active session, or nil when anonymous.
func (m *Manager) GetSession() *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSession(m.session)
}

// State returns the lifecycle state.
func (m *Manager) State() domain.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Navigator returns the router collaborator.
func (m *Manager) Navigator() navigation.Navigator {
	return m.navigator
}

// Subscribe registers a listener for session events.
func (m *Manager) Subscribe(eventType events.EventType, handler events.EventHandler) {
	m.dispatcher.Subscribe(eventType, handler)
}

// SetSession stores a session from a login, registration or refresh response and arms
// its expiration. The token's exp claim overrides any expiration supplied by the caller.
// A malformed or expired token is rejected and the current state is left unchanged.
func (m *Manager) SetSession(ctx context.Context, in domain.Session) error {
	claims, err := m.decoder.Decode(in.Token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	exp := claims.ExpiresAt()
	if !exp.After(m.now()) {
		return fmt.Errorf("%w: expired at %s", ErrInvalidToken, exp.UTC().Format(time.RFC3339))
	}

	sess := cloneSession(&in)
	sess.ExpirationTime = exp
	sess.IssuedAt = claims.IssuedAt()

	m.lifecycle.Lock()
	prev := m.GetSession()
	refreshed := prev != nil && sameUser(prev, sess)
	if refreshed {
		sess.ID = prev.ID
	} else if sess.ID == "" {
		sess.ID = uuid.NewString()
	}

	if err := m.store.Save(ctx, recordOf(sess)); err != nil {
		m.lifecycle.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	m.setState(domain.StateAuthenticated, sess)
	m.lifecycle.Unlock()

	m.scheduler.Arm(exp)
	m.validator.Start()

	if refreshed {
		m.logger.Info("session refreshed", sessionFields(sess)...)
		ev := events.NewEvent(events.EventSessionRefreshed, sess.ID, userID(sess))
		_ = m.dispatcher.Publish(ctx, ev)
		return nil
	}
	m.publishStarted(ctx, sess, false)
	return nil
}

// ClearSession logs the user out.
func (m *Manager) ClearSession(ctx context.Context) {
	m.Expire(ctx, domain.TriggerManualLogout)
}

// Expire is the shared teardown for every trigger. It purges durable keys, resets the
// in-memory session, stops both timers, publishes session_ended and redirects to the
// login view unless the current view is anonymous-safe. Repeated calls only purge again.
func (m *Manager) Expire(ctx context.Context, trigger domain.Trigger) {
	m.lifecycle.Lock()
	ended := m.teardownLocked(ctx, trigger, false)
	m.lifecycle.Unlock()

	m.announce(ctx, ended)
}

// Close stops both timers without touching the session.
func (m *Manager) Close() {
	m.scheduler.Cancel()
	m.validator.Stop()
}

type teardown struct {
	trigger domain.Trigger
	session *domain.Session
}

// teardownLocked requires m.lifecycle. force tears down even when no session was
// active, for a stored token rejected at bootstrap.
func (m *Manager) teardownLocked(ctx context.Context, trigger domain.Trigger, force bool) *teardown {
	m.mu.Lock()
	prev := m.session
	active := m.state == domain.StateAuthenticated
	if active {
		m.state = domain.StateExpiring
	}
	m.mu.Unlock()

	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error("purge durable session", zap.String("trigger", string(trigger)), zap.Error(err))
	}
	if !active && !force {
		return nil
	}

	m.setState(domain.StateAnonymous, nil)
	m.scheduler.Cancel()
	m.validator.Stop()
	return &teardown{trigger: trigger, session: prev}
}

func (m *Manager) announce(ctx context.Context, t *teardown) {
	if t == nil {
		return
	}

	ev := events.NewEvent(events.EventSessionEnded, "", "")
	if t.session != nil {
		ev.SessionID, ev.UserID = t.session.ID, userID(t.session)
	}
	ev.Trigger = t.trigger

	m.logger.Info("session ended",
		zap.String("session_id", ev.SessionID),
		zap.String("user_id", ev.UserID),
		zap.String("trigger", string(t.trigger)))
	_ = m.dispatcher.Publish(context.WithoutCancel(ctx), ev)

	if current := m.navigator.Current(); !navigation.IsAnonymousSafe(current) {
		m.navigator.Navigate(m.loginPath)
	}
}

func (m *Manager) onDeadline() {
	m.expireIfStale(context.Background(), domain.TriggerScheduler)
}

func (m *Manager) onValidate() {
	m.expireIfStale(context.Background(), domain.TriggerValidator)
}

// expireIfStale re-reads the durable token and tears down only when it is gone,
// unreadable or expired. A timer left over from a replaced session finds the
// current token valid and re-arms for it instead.
func (m *Manager) expireIfStale(ctx context.Context, trigger domain.Trigger) {
	m.lifecycle.Lock()
	if m.State() != domain.StateAuthenticated {
		m.lifecycle.Unlock()
		m.validator.Stop()
		return
	}

	rec, exp, valid := m.checkDurable(ctx)
	if valid {
		if cur := m.GetSession(); cur != nil && cur.Token != rec.Token {
			m.adoptLocked(cur, rec, exp)
		}
		m.lifecycle.Unlock()
		if trigger == domain.TriggerScheduler {
			m.scheduler.Arm(exp)
		}
		return
	}

	ended := m.teardownLocked(ctx, trigger, false)
	m.lifecycle.Unlock()
	m.announce(ctx, ended)
}

// checkDurable decodes the stored token. When storage cannot be read the in-memory
// token is judged instead.
func (m *Manager) checkDurable(ctx context.Context) (storage.Record, time.Time, bool) {
	rec, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("read durable session; checking in-memory token", zap.Error(err))
		cur := m.GetSession()
		if cur == nil {
			return storage.Record{}, time.Time{}, false
		}
		rec = recordOf(cur)
	}
	if rec.Empty() {
		return rec, time.Time{}, false
	}

	claims, err := m.decoder.Decode(rec.Token)
	if err != nil {
		return rec, time.Time{}, false
	}
	exp := claims.ExpiresAt()
	return rec, exp, exp.After(m.now())
}

// adoptLocked takes over a token written to durable storage by another process.
func (m *Manager) adoptLocked(cur *domain.Session, rec storage.Record, exp time.Time) {
	next := cloneSession(cur)
	next.Token = rec.Token
	next.RefreshToken = rec.RefreshToken
	next.ExpirationTime = exp
	if rec.User != nil {
		next.User = rec.User
	}
	m.setState(domain.StateAuthenticated, next)
	m.logger.Info("adopted durable token", sessionFields(next)...)
}

func (m *Manager) setState(state domain.State, sess *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.session = sess
}

func (m *Manager) publishStarted(ctx context.Context, sess *domain.Session, restored bool) {
	fields := append(sessionFields(sess), zap.Bool("restored", restored))
	m.logger.Info("session started", fields...)

	ev := events.NewEvent(events.EventSessionStarted, sess.ID, userID(sess))
	payload := events.SessionStartedPayload{ExpiresAt: sess.ExpirationTime, Restored: restored}
	if sess.User != nil {
		payload.Role = sess.User.Role
	}
	ev.Payload = payload
	_ = m.dispatcher.Publish(ctx, ev)
}

func recordOf(sess *domain.Session) storage.Record {
	return storage.Record{
		Token:          sess.Token,
		User:           sess.User,
		RefreshToken:   sess.RefreshToken,
		ExpirationTime: sess.ExpirationTime,
	}
}

func cloneSession(sess *domain.Session) *domain.Session {
	if sess == nil {
		return nil
	}
	out := *sess
	if sess.User != nil {
		user := *sess.User
		out.User = &user
	}
	return &out
}

func sameUser(a, b *domain.Session) bool {
	return a.User != nil && b.User != nil && a.User.ID != "" && a.User.ID == b.User.ID
}

func userID(sess *domain.Session) string {
	if sess == nil || sess.User == nil {
		return ""
	}
	return sess.User.ID
}

func sessionFields(sess *domain.Session) []zap.Field {
	return []zap.Field{
		zap.String("session_id", sess.ID),
		zap.String("user_id", userID(sess)),
		zap.Time("expires_at", sess.ExpirationTime),
	}
}
