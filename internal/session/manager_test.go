package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/domain"
	"github.com/spec-kit/travel-session/internal/events"
	"github.com/spec-kit/travel-session/internal/navigation"
	"github.com/spec-kit/travel-session/internal/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) of(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	kv      *storage.MemoryKV
	store   *storage.SessionStore
	nav     *navigation.History
	tokens  *auth.TokenManager
	events  *recorder
	manager *Manager
}

func newFixture(t *testing.T, view string, opts Options) *fixture {
	t.Helper()
	return newFixtureWithKV(t, view, opts, nil)
}

func newFixtureWithKV(t *testing.T, view string, opts Options, kv storage.KV) *fixture {
	t.Helper()

	mem := storage.NewMemoryKV()
	if kv == nil {
		kv = mem
	}
	f := &fixture{
		kv:     mem,
		store:  storage.NewSessionStore(kv),
		nav:    navigation.NewHistory(view, nil),
		tokens: auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour),
		events: &recorder{},
	}
	f.manager = NewManager(Dependencies{
		Store:     f.store,
		Navigator: f.nav,
	}, opts)
	f.manager.Subscribe(events.EventSessionStarted, f.events.handle)
	f.manager.Subscribe(events.EventSessionRefreshed, f.events.handle)
	f.manager.Subscribe(events.EventSessionEnded, f.events.handle)
	t.Cleanup(f.manager.Close)
	return f
}

func (f *fixture) issue(t *testing.T, userID string, ttl time.Duration) (string, time.Time) {
	t.Helper()
	token, exp, err := f.tokens.GenerateTokenWithTTL(userID, domain.RoleCustomer, ttl)
	require.NoError(t, err)
	return token, exp
}

func (f *fixture) session(t *testing.T, userID string, ttl time.Duration) (domain.Session, time.Time) {
	t.Helper()
	token, exp := f.issue(t, userID, ttl)
	return domain.Session{
		User:  &domain.UserProfile{ID: userID, Name: "Traveler " + userID, Role: domain.RoleCustomer},
		Token: token,
	}, exp
}

func (f *fixture) anonymous() bool {
	return f.manager.State() == domain.StateAnonymous
}

func TestSetSessionExpiresAtTokenDeadline(t *testing.T) {
	f := newFixture(t, "/tours/42", Options{})
	sess, exp := f.session(t, "u-1", 3*time.Second)

	require.NoError(t, f.manager.SetSession(context.Background(), sess))
	require.Equal(t, domain.StateAuthenticated, f.manager.State())
	require.Equal(t, 4, f.kv.Len())

	assert.Never(t, f.anonymous, time.Until(exp)-250*time.Millisecond, 25*time.Millisecond)
	require.Eventually(t, f.anonymous, time.Until(exp)+time.Second, 20*time.Millisecond)

	assert.Nil(t, f.manager.GetSession())
	assert.Equal(t, 0, f.kv.Len())
	assert.Equal(t, navigation.LoginPath, f.nav.Current())

	ended := f.events.of(events.EventSessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, domain.TriggerScheduler, ended[0].Trigger)
	assert.Equal(t, "u-1", ended[0].UserID)
}

func TestSetSessionUsesTokenExpiration(t *testing.T) {
	f := newFixture(t, navigation.HomePath, Options{})
	sess, exp := f.session(t, "u-1", time.Hour)
	sess.ExpirationTime = time.Now().Add(30 * 24 * time.Hour)

	require.NoError(t, f.manager.SetSession(context.Background(), sess))

	got := f.manager.GetSession()
	require.NotNil(t, got)
	assert.True(t, got.ExpirationTime.Equal(exp))
	assert.NotEmpty(t, got.ID)

	rec, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.ExpirationTime.Equal(exp))

	deadline, armed := f.manager.scheduler.Deadline()
	assert.True(t, armed)
	assert.True(t, deadline.Equal(exp))
	assert.True(t, f.manager.validator.Running())

	started := f.events.of(events.EventSessionStarted)
	require.Len(t, started, 1)
	payload, ok := started[0].Payload.(events.SessionStartedPayload)
	require.True(t, ok)
	assert.False(t, payload.Restored)
	assert.Equal(t, domain.RoleCustomer, payload.Role)
}

func TestSetSessionRejectsInvalidTokens(t *testing.T) {
	f := newFixture(t, "/tours", Options{})
	ctx := context.Background()

	expired, _ := f.issue(t, "u-1", -time.Minute)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"}).SignedString([]byte("k"))
	require.NoError(t, err)

	cases := map[string]string{
		"garbage": "not-a-jwt",
		"empty":   "",
		"expired": expired,
		"no exp":  noExp,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			err := f.manager.SetSession(ctx, domain.Session{Token: token})
			require.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, domain.StateAnonymous, f.manager.State())
			assert.Equal(t, 0, f.kv.Len())
		})
	}

	sess, _ := f.session(t, "u-1", time.Hour)
	require.NoError(t, f.manager.SetSession(ctx, sess))
	require.ErrorIs(t, f.manager.SetSession(ctx, domain.Session{Token: "broken"}), ErrInvalidToken)
	assert.Equal(t, domain.StateAuthenticated, f.manager.State())
	assert.Equal(t, sess.Token, f.manager.GetSession().Token)
	assert.Equal(t, 0, f.nav.Navigations())
}

func TestExpireIsIdempotent(t *testing.T) {
	f := newFixture(t, "/account/bookings", Options{})
	ctx := context.Background()
	sess, _ := f.session(t, "u-1", time.Hour)
	require.NoError(t, f.manager.SetSession(ctx, sess))

	f.manager.Expire(ctx, domain.TriggerUnauthorized)
	f.manager.ClearSession(ctx)
	f.manager.Expire(ctx, domain.TriggerValidator)

	assert.Equal(t, domain.StateAnonymous, f.manager.State())
	assert.Equal(t, 0, f.kv.Len())
	assert.Equal(t, 1, f.nav.Navigations())
	assert.Equal(t, navigation.LoginPath, f.nav.Current())
	assert.False(t, f.manager.scheduler.Armed())
	assert.False(t, f.manager.validator.Running())

	ended := f.events.of(events.EventSessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, domain.TriggerUnauthorized, ended[0].Trigger)
}

func TestExpireConcurrentCallers(t *testing.T) {
	f := newFixture(t, "/shop/cart", Options{})
	ctx := context.Background()
	sess, _ := f.session(t, "u-1", time.Hour)
	require.NoError(t, f.manager.SetSession(ctx, sess))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.manager.Expire(ctx, domain.TriggerUnauthorized)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.nav.Navigations())
	assert.Len(t, f.events.of(events.EventSessionEnded), 1)
	assert.Equal(t, 0, f.kv.Len())
}

func TestExpireOnAnonymousSafeViewStaysPut(t *testing.T) {
	f := newFixture(t, navigation.HomePath, Options{})
	ctx := context.Background()
	sess, _ := f.session(t, "u-1", time.Hour)
	require.NoError(t, f.manager.SetSession(ctx, sess))

	f.manager.ClearSession(ctx)

	assert.Equal(t, 0, f.nav.Navigations())
	assert.Equal(t, navigation.HomePath, f.nav.Current())
	assert.Len(t, f.events.of(events.EventSessionEnded), 1)
}

func TestExpireWhileAnonymousOnlyPurges(t *testing.T) {
	f := newFixture(t, "/blog/new", Options{})
	ctx := context.Background()
	require.NoError(t, f.kv.Set(ctx, map[string]string{storage.KeyUser: `{"id":"stale"}`}))

	f.manager.Expire(ctx, domain.TriggerManualLogout)

	assert.Equal(t, 0, f.kv.Len())
	assert.Equal(t, 0, f.nav.Navigations())
	assert.Empty(t, f.events.of(events.EventSessionEnded))
}

func TestReplacingSessionSupersedesEarlierTimer(t *testing.T) {
	f := newFixture(t, "/tours", Options{})
	ctx := context.Background()

	first, firstExp := f.session(t, "u-1", 2*time.Second)
	require.NoError(t, f.manager.SetSession(ctx, first))
	second, _ := f.session(t, "u-2", time.Hour)
	require.NoError(t, f.manager.SetSession(ctx, second))

	assert.Never(t, f.anonymous, time.Until(firstExp)+700*time.Millisecond, 25*time.Millisecond)

	got := f.manager.GetSession()
	require.NotNil(t, got)
	assert.Equal(t, "u-2", got.User.ID)
	assert.Empty(t, f.events.of(events.EventSessionEnded))
	assert.Len(t, f.events.of(events.EventSessionStarted), 2)
}

func TestRefreshKeepsSessionIdentity(t *testing.T) {
	f := newFixture(t, "/tours", Options{})
	ctx := context.Background()

	first, _ := f.session(t, "u-1", time.Minute)
	require.NoError(t, f.manager.SetSession(ctx, first))
	id := f.manager.GetSession().ID

	refreshed, exp := f.session(t, "u-1", time.Hour)
	refreshed.RefreshToken = "r-2"
	require.NoError(t, f.manager.SetSession(ctx, refreshed))

	got := f.manager.GetSession()
	assert.Equal(t, id, got.ID)
	assert.Equal(t, refreshed.Token, got.Token)
	assert.True(t, got.ExpirationTime.Equal(exp))

	rec, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r-2", rec.RefreshToken)

	assert.Len(t, f.events.of(events.EventSessionStarted), 1)
	assert.Len(t, f.events.of(events.EventSessionRefreshed), 1)
}

func TestValidatorCatchesMissedTimer(t *testing.T) {
	f := newFixture(t, "/admin/dashboard", Options{ValidationInterval: 50 * time.Millisecond})
	sess, exp := f.session(t, "u-1", 2*time.Second)
	require.NoError(t, f.manager.SetSession(context.Background(), sess))

	// a suspended device never delivers the timer
	f.manager.scheduler.Cancel()

	require.Eventually(t, f.anonymous, time.Until(exp)+time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, f.kv.Len())
	assert.Equal(t, navigation.LoginPath, f.nav.Current())

	ended := f.events.of(events.EventSessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, domain.TriggerValidator, ended[0].Trigger)
}

func TestValidatorDetectsLogoutElsewhere(t *testing.T) {
	f := newFixture(t, "/company/dashboard", Options{ValidationInterval: 30 * time.Millisecond})
	ctx := context.Background()
	sess, _ := f.session(t, "u-1", time.Hour)
	require.NoError(t, f.manager.SetSession(ctx, sess))

	require.NoError(t, f.store.Clear(ctx))

	require.Eventually(t, f.anonymous, time.Second, 10*time.Millisecond)
	assert.Equal(t, navigation.LoginPath, f.nav.Current())
	assert.False(t, f.manager.scheduler.Armed())
}

func TestValidatorAdoptsTokenWrittenElsewhere(t *testing.T) {
	f := newFixture(t, "/tours", Options{ValidationInterval: 30 * time.Millisecond})
	ctx := context.Background()
	sess, _ := f.session(t, "u-1", time.Minute)
	require.NoError(t, f.manager.SetSession(ctx, sess))

	token, exp := f.issue(t, "u-1", 2*time.Hour)
	require.NoError(t, f.store.Save(ctx, storage.Record{Token: token, User: sess.User, ExpirationTime: exp}))

	require.Eventually(t, func() bool {
		got := f.manager.GetSession()
		return got != nil && got.Token == token
	}, time.Second, 10*time.Millisecond)
	assert.True(t, f.manager.GetSession().ExpirationTime.Equal(exp))
	assert.Equal(t, domain.StateAuthenticated, f.manager.State())
}

type failingDeleteKV struct {
	*storage.MemoryKV
}

func (f failingDeleteKV) Delete(context.Context, ...string) error {
	return errors.New("disk full")
}

func TestTeardownSurvivesStorageFailure(t *testing.T) {
	mem := storage.NewMemoryKV()
	f := newFixtureWithKV(t, "/tours/7", Options{}, failingDeleteKV{mem})
	ctx := context.Background()
	sess, _ := f.session(t, "u-1", time.Hour)
	require.NoError(t, f.manager.SetSession(ctx, sess))

	f.manager.ClearSession(ctx)

	assert.Equal(t, domain.StateAnonymous, f.manager.State())
	assert.Nil(t, f.manager.GetSession())
	assert.Equal(t, navigation.LoginPath, f.nav.Current())
	assert.Len(t, f.events.of(events.EventSessionEnded), 1)
}
