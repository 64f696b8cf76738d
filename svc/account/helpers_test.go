package account_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pcbuilder/configurator/pkg/jwt"
	"github.com/pcbuilder/configurator/pkg/password"
	"github.com/pcbuilder/configurator/pkg/token"
	"github.com/pcbuilder/configurator/svc/account"
)

const testSigningKey = "test-signing-key-that-is-long-enough-0123"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	Kind string
	To   string
	Link string
}

// recordingNotifier keeps every message it is asked to send.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) SendVerification(_ context.Context, to, link string) error {
	n.record("verify", to, link)
	return nil
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, to, link string) error {
	n.record("reset", to, link)
	return nil
}

func (n *recordingNotifier) record(kind, to, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{Kind: kind, To: to, Link: link})
}

func (n *recordingNotifier) last(t *testing.T, kind string) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Kind == kind {
			return n.sent[i]
		}
	}
	t.Fatalf("no %s mail was sent", kind)
	return sentMail{}
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.sent {
		if m.Kind == kind {
			c++
		}
	}
	return c
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerification(ctx context.Context, to, link string) error {
	return m.Called(ctx, to, link).Error(0)
}

func (m *MockNotifier) SendPasswordReset(ctx context.Context, to, link string) error {
	return m.Called(ctx, to, link).Error(0)
}

type failingRevocations struct{ err error }

func (f failingRevocations) Revoke(context.Context, string, time.Time) error { return f.err }

func (f failingRevocations) IsRevoked(context.Context, string) (bool, error) { return false, f.err }

type fixture struct {
	svc         *account.Service
	store       *account.MemoryStore
	notifier    *recordingNotifier
	codec       *jwt.Codec
	revocations *jwt.MemoryRevocationList
	clock       *clock
}

type fixtureOption func(*account.Config, *[]account.Option)

func withStrictReset() fixtureOption {
	return func(cfg *account.Config, _ *[]account.Option) { cfg.ResetStrict = true }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	return newFixtureWithNotifier(t, &recordingNotifier{}, opts...)
}

func newFixtureWithNotifier(t *testing.T, notifier account.Notifier, opts ...fixtureOption) *fixture {
	t.Helper()

	clk := newClock()
	hasher, err := password.New(password.WithCost(bcrypt.MinCost))
	require.NoError(t, err)
	issuer, err := token.NewIssuer(token.WithClock(clk.Now))
	require.NoError(t, err)
	codec, err := jwt.NewCodec([]byte(testSigningKey), jwt.WithClock(clk.Now), jwt.WithTTL(time.Hour))
	require.NoError(t, err)
	revocations := jwt.NewMemoryRevocationList(jwt.WithRevocationClock(clk.Now))
	store := account.NewMemoryStore()

	cfg := account.DefaultConfig()
	svcOpts := []account.Option{
		account.WithClock(clk.Now),
		account.WithRevocationList(revocations),
	}
	for _, opt := range opts {
		opt(&cfg, &svcOpts)
	}

	svc, err := account.NewService(store, hasher, issuer, codec, notifier, cfg, svcOpts...)
	require.NoError(t, err)

	f := &fixture{
		svc:         svc,
		store:       store,
		codec:       codec,
		revocations: revocations,
		clock:       clk,
	}
	if rec, ok := notifier.(*recordingNotifier); ok {
		f.notifier = rec
	}
	return f
}

// register signs up an account and returns the raw verification token.
func (f *fixture) register(t *testing.T, email, pass string) string {
	t.Helper()
	reg, err := f.svc.Register(t.Context(), account.RegisterInput{Email: email, Password: pass})
	require.NoError(t, err)
	require.NoError(t, reg.DeliveryErr)
	return verifyTokenFrom(t, f.notifier.last(t, "verify").Link)
}

// activate registers and verifies an account.
func (f *fixture) activate(t *testing.T, email, pass string) {
	t.Helper()
	raw := f.register(t, email, pass)
	_, err := f.svc.VerifyEmail(t.Context(), raw)
	require.NoError(t, err)
}

func verifyTokenFrom(t *testing.T, link string) string {
	t.Helper()
	idx := strings.LastIndex(link, "/")
	require.GreaterOrEqual(t, idx, 0)
	raw, err := url.PathUnescape(link[idx+1:])
	require.NoError(t, err)
	return raw
}

func resetTokenFrom(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	raw := u.Query().Get("token")
	require.NotEmpty(t, raw)
	return raw
}
