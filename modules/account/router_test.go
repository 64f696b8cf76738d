package account_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pcbuilder/configurator/handler"
	"github.com/pcbuilder/configurator/modules/account"
	"github.com/pcbuilder/configurator/pkg/jwt"
	"github.com/pcbuilder/configurator/pkg/password"
	"github.com/pcbuilder/configurator/pkg/ratelimiter"
	"github.com/pcbuilder/configurator/pkg/token"
	accountsvc "github.com/pcbuilder/configurator/svc/account"
)

type mailbox struct {
	mu     sync.Mutex
	links  map[string]string
	failOn string
}

func (o *mailbox) SendVerification(_ context.Context, to, link string) error {
	return o.put("verify:"+to, link)
}

func (o *mailbox) SendPasswordReset(_ context.Context, to, link string) error {
	return o.put("reset:"+to, link)
}

func (o *mailbox) put(key, link string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failOn != "" && strings.HasPrefix(key, o.failOn) {
		return errors.New("queue unavailable")
	}
	if o.links == nil {
		o.links = make(map[string]string)
	}
	o.links[key] = link
	return nil
}

func (o *mailbox) link(key string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.links[key]
}

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Time) error {
	return errors.New("redis down")
}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

type testServer struct {
	router      http.Handler
	mail        *mailbox
	revocations jwt.RevocationList
}

type serverOptions struct {
	cfg         accountsvc.Config
	limiter     *ratelimiter.FixedWindow
	revocations jwt.RevocationList
	failMail    string
}

func newServer(t *testing.T, mutate ...func(*serverOptions)) *testServer {
	t.Helper()

	opts := serverOptions{
		cfg:         accountsvc.DefaultConfig(),
		revocations: jwt.NewMemoryRevocationList(),
	}
	for _, m := range mutate {
		m(&opts)
	}

	hasher, err := password.New(password.WithCost(bcrypt.MinCost))
	require.NoError(t, err)
	issuer, err := token.NewIssuer()
	require.NoError(t, err)
	codec, err := jwt.NewCodec([]byte("router-test-signing-key-0123456789abcdef"))
	require.NoError(t, err)

	mail := &mailbox{failOn: opts.failMail}
	svc, err := accountsvc.NewService(accountsvc.NewMemoryStore(), hasher, issuer, codec, mail, opts.cfg,
		accountsvc.WithRevocationList(opts.revocations),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/api/v1/accounts", account.Router(account.RouterOptions{
		Service:     svc,
		Codec:       codec,
		Revocations: opts.revocations,
		Limiter:     opts.limiter,
	}))
	r.Get("/app-redirect", account.AppRedirect(svc, nil))

	return &testServer{router: r, mail: mail, revocations: opts.revocations}
}

func (s *testServer) do(t *testing.T, method, target, body string, header ...string) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var envelope handler.JSONResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec, envelope
}

func (s *testServer) verifyPath(t *testing.T, email string) string {
	t.Helper()
	link := s.mail.link("verify:" + email)
	require.NotEmpty(t, link)
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Path
}

func (s *testServer) resetToken(t *testing.T, email string) string {
	t.Helper()
	link := s.mail.link("reset:" + email)
	require.NotEmpty(t, link)
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

// activate signs up and verifies an account.
func (s *testServer) activate(t *testing.T, email, pass string) {
	t.Helper()
	rec, _ := s.do(t, http.MethodPost, "/api/v1/accounts/signup", `{"email":"`+email+`","password":"`+pass+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = s.do(t, http.MethodGet, s.verifyPath(t, email), "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func (s *testServer) login(t *testing.T, email, pass string) string {
	t.Helper()
	rec, body := s.do(t, http.MethodPost, "/api/v1/accounts/login", `{"email":"`+email+`","password":"`+pass+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body.Data.(map[string]any)
	return data["token"].(string)
}

func errorCode(t *testing.T, body handler.JSONResponse) string {
	t.Helper()
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestAccountLifecycle(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/accounts/signup", `{"email":"a@x.com","password":"pw1","username":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := body.Data.(map[string]any)
	assert.Equal(t, float64(1), data["accountId"])
	assert.Equal(t, "pending_verification", data["status"])
	assert.Nil(t, body.Meta)

	rec, body = s.do(t, http.MethodPost, "/api/v1/accounts/login", `{"email":"a@x.com","password":"pw1"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, body))
	assert.Equal(t, "Invalid email or password", body.Error.Message)

	verify := s.verifyPath(t, "a@x.com")
	rec, body = s.do(t, http.MethodGet, verify, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", body.Data.(map[string]any)["status"])

	rec, body = s.do(t, http.MethodGet, verify, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_token", errorCode(t, body))

	rec, body = s.do(t, http.MethodPost, "/api/v1/accounts/login", `{"email":"a@x.com","password":"pw1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data = body.Data.(map[string]any)
	assert.Equal(t, float64(1), data["accountId"])
	assert.Equal(t, "a@x.com", data["email"])
	assert.NotEmpty(t, data["token"])
	assert.NotEmpty(t, data["expiresAt"])

	bearer := "Bearer " + data["token"].(string)
	rec, body = s.do(t, http.MethodGet, "/api/v1/accounts/me", "", "Authorization", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", body.Data.(map[string]any)["username"])

	rec, _ = s.do(t, http.MethodPost, "/api/v1/accounts/logout", "", "Authorization", bearer)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/v1/accounts/me", "", "Authorization", bearer)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, body))
	assert.Equal(t, "Valid session token required", body.Error.Message)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestSignup(t *testing.T) {
	t.Parallel()

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		t.Parallel()
		s := newServer(t)

		rec, _ := s.do(t, http.MethodPost, "/api/v1/accounts/signup", `{"email":"b@x.com","password":"pw"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		rec, body := s.do(t, http.MethodPost, "/api/v1/accounts/signup", `{"email":"B@X.com","password":"pw"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "duplicate_email", errorCode(t, body))
	})

	t.Run("invalid input is unprocessable", func(t *testing.T) {
		t.Parallel()
		s := newServer(t)

		rec, body := s.do(t, http.MethodPost, "/api/v1/accounts/signup", `{"email":"nope","password":""}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "validation_error", errorCode(t, body))
		assert.Contains(t, body.Error.Details, "email")
		assert.Contains(t, body.Error.Details, "password")
	})

	t.Run("accepts form bodies", func(t *testing.T) {
		t.Parallel()
		s := newServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/signup",
			strings.NewReader(url.Values{"email": {"form@x.com"}, "password": {"pw"}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("warns when the verification mail was not queued", func(t *testing.T) {
		t.Parallel()
		s := newServer(t, func(o *serverOptions) { o.failMail = "verify:" })

		rec, body := s.do(t, http.MethodPost, "/api/v1/accounts/signup", `{"email":"c@x.com","password":"pw"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "email_delivery_failed", body.Meta["warning"])
	})

	t.Run("concurrent signups on one email", func(t *testing.T) {
		t.Parallel()
		s := newServer(t)

		codes := make(chan int, 2)
		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/signup", strings.NewReader(`{"email":"race@x.com","password":"pw"}`))
				req.Header.Set("Content-Type", "application/json")
				rec := httptest.NewRecorder()
				s.router.ServeHTTP(rec, req)
				codes <- rec.Code
			}()
		}
		wg.Wait()
		close(codes)

		var got []int
		for c := range codes {
			got = append(got, c)
		}
		assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, got)
	})

	t.Run("throttles per client", func(t *testing.T) {
		t.Parallel()

		store := ratelimiter.NewMemoryStore(ratelimiter.WithSweepInterval(0))
		t.Cleanup(store.Close)
		limiter, err := ratelimiter.NewFixedWindow(store, 1, time.Minute)
		require.NoError(t, err)
		s := newServer(t, func(o *serverOptions) { o.limiter = limiter })

		rec, _ := s.do(t, http.MethodPost, "/api/v1/accounts/signup", `{"email":"d@x.com","password":"pw"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec, body := s.do(t, http.MethodPost, "/api/v1/accounts/signup", `{"email":"e@x.com","password":"pw"}`)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "too_many_requests", errorCode(t, body))
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))

		rec, _ = s.do(t, http.MethodPost, "/api/v1/accounts/login", `{"email":"d@x.com","password":"pw"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("reset switches the accepted password", func(t *testing.T) {
		t.Parallel()
		s := newServer(t)
		s.activate(t, "r@x.com", "old")

		rec, _ := s.do(t, http.MethodPost, "/api/v1/accounts/reset-password/request?email=r@x.com", "")
		require.Equal(t, http.StatusOK, rec.Code)
		tok := s.resetToken(t, "r@x.com")
		require.NotEmpty(t, tok)

		form := url.Values{"token": {tok}, "newPassword": {"new"}}.Encode()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/reset-password", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec = httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, _ = s.do(t, http.MethodPost, "/api/v1/accounts/login", `{"email":"r@x.com","password":"old"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		s.login(t, "r@x.com", "new")

		rec, body := s.do(t, http.MethodPost, "/api/v1/accounts/reset-password", `{"token":"`+tok+`","newPassword":"again"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_token", errorCode(t, body))
	})

	t.Run("uniform response for unknown accounts", func(t *testing.T) {
		t.Parallel()
		s := newServer(t)

		rec, _ := s.do(t, http.MethodPost, "/api/v1/accounts/reset-password/request", `{"email":"ghost@x.com"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, s.mail.link("reset:ghost@x.com"))
	})

	t.Run("strict mode reports unknown accounts", func(t *testing.T) {
		t.Parallel()
		s := newServer(t, func(o *serverOptions) { o.cfg.ResetStrict = true })

		rec, body := s.do(t, http.MethodPost, "/api/v1/accounts/reset-password/request", `{"email":"ghost@x.com"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email not found or account not verified", body.Error.Message)
	})

	t.Run("strict mode reports mail failures", func(t *testing.T) {
		t.Parallel()
		s := newServer(t, func(o *serverOptions) {
			o.cfg.ResetStrict = true
			o.failMail = "reset:"
		})
		s.activate(t, "m@x.com", "pw")

		rec, body := s.do(t, http.MethodPost, "/api/v1/accounts/reset-password/request", `{"email":"m@x.com"}`)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "email_delivery_failed", errorCode(t, body))
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()
		s := newServer(t)

		rec, body := s.do(t, http.MethodPost, "/api/v1/accounts/reset-password", `{"token":"bogus","newPassword":"x"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_token", errorCode(t, body))
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	t.Run("no token is still no content", func(t *testing.T) {
		t.Parallel()
		s := newServer(t)

		rec, _ := s.do(t, http.MethodPost, "/api/v1/accounts/logout", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec, _ = s.do(t, http.MethodPost, "/api/v1/accounts/logout", "", "Authorization", "Bearer garbage")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("revocation outage", func(t *testing.T) {
		t.Parallel()
		s := newServer(t, func(o *serverOptions) { o.revocations = failingRevocations{} })
		s.activate(t, "l@x.com", "pw")
		bearer := "Bearer " + s.login(t, "l@x.com", "pw")

		rec, _ := s.do(t, http.MethodPost, "/api/v1/accounts/logout", "", "Authorization", bearer)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec, body := s.do(t, http.MethodGet, "/api/v1/accounts/me", "", "Authorization", bearer)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "service_unavailable", errorCode(t, body))
	})
}

func TestAppRedirect(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec, _ := s.do(t, http.MethodGet, "/app-redirect?token=abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `href="pcbuilder://reset-password?token=abc123"`)

	rec, _ = s.do(t, http.MethodGet, "/app-redirect", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid link")
}
