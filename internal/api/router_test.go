package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/shoehub/inventory-system/internal/core/domain"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

type fakeAuth struct{}

func (fakeAuth) ValidateToken(token string) (string, error) {
	if token == "good" {
		return "alice", nil
	}
	return "", domain.ErrInvalidToken
}

func (fakeAuth) Register(_ context.Context, username, _ string) (*domain.User, error) {
	if username == "taken" {
		return nil, domain.ErrUserExists
	}
	return &domain.User{Username: username}, nil
}

func (fakeAuth) Login(_ context.Context, username, password string) (*ports.LoginResult, error) {
	if username != "alice" || password != "secret" {
		return nil, domain.ErrInvalidCredentials
	}
	return &ports.LoginResult{Token: "good", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type fakeShoes struct{}

func (fakeShoes) Create(_ context.Context, in ports.CreateShoeInput) (*domain.Shoe, error) {
	if in.IdempotencyKey == "busy" {
		return nil, domain.ErrRequestInProgress
	}
	return nil, domain.NewValidationError("Price > 0, Stock >= 0")
}

func (fakeShoes) List(context.Context, string) ([]domain.Shoe, error) {
	return []domain.Shoe{{ID: 1, Brand: "Nike", Model: "Air Max", Size: 9.5, Color: "Black", Price: 150, Stock: 25}}, nil
}

func (fakeShoes) Get(_ context.Context, id int64) (*domain.Shoe, error) {
	if id == 500 {
		return nil, errors.New("connection reset by peer")
	}
	return nil, domain.ErrShoeNotFound
}

func (fakeShoes) Update(context.Context, int64, ports.ShoeInput, string) (*domain.Shoe, error) {
	return nil, domain.ErrShoeNotFound
}

func (fakeShoes) Delete(context.Context, int64, string) error { return domain.ErrShoeNotFound }

type countingLimiter struct{ n int }

func (l *countingLimiter) Allow(context.Context, string, int) (bool, int, error) {
	l.n++
	if l.n > 2 {
		return false, 0, nil
	}
	return true, 2 - l.n, nil
}

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	e, err := NewRouter(Deps{
		Auth:               fakeAuth{},
		Shoes:              fakeShoes{},
		Limiter:            &countingLimiter{},
		RateLimitPerMinute: 2,
		Log:                zerolog.Nop(),
		Registry:           prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return e
}

func do(e *echo.Echo, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_RecordsRequireToken(t *testing.T) {
	e := newTestRouter(t)

	rec := do(e, http.MethodGet, "/shoes?format=json", "", nil)
	if rec.Code != http.StatusUnauthorized || rec.Body.String() != `{"message":"Token is missing!"}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "Nike") {
		t.Fatal("record data leaked without a token")
	}

	rec = do(e, http.MethodGet, "/shoes", "", nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/shoes?format=json", "", map[string]string{"x-access-token": "good"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"price":150.0`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	e := newTestRouter(t)
	auth := map[string]string{"Authorization": "Bearer good"}
	form := map[string]string{"Authorization": "Bearer good", echo.HeaderContentType: echo.MIMEApplicationForm}
	busy := map[string]string{"Authorization": "Bearer good", echo.HeaderContentType: echo.MIMEApplicationForm, "Idempotency-Key": "busy"}

	cases := []struct {
		name     string
		method   string
		target   string
		body     string
		headers  map[string]string
		wantCode int
		wantBody string
	}{
		{"not found json", http.MethodGet, "/shoes/7?format=json", "", auth, http.StatusNotFound, `{"error":"Shoe not found"}`},
		{"not found xml", http.MethodGet, "/shoes/7?format=xml", "", auth, http.StatusNotFound, "<error>Shoe not found</error>"},
		{"not found html", http.MethodGet, "/shoes/7", "", auth, http.StatusNotFound, "<h3>Shoe not found</h3>"},
		{"validation json", http.MethodPost, "/shoes?format=json", "price=0", form, http.StatusBadRequest, `{"error":"Price > 0, Stock >= 0"}`},
		{"validation html", http.MethodPost, "/shoes/new", "price=0", form, http.StatusBadRequest, `<a href="/shoes/new">Try again</a>`},
		{"idempotency in flight", http.MethodPost, "/shoes?format=json", "price=0", busy, http.StatusConflict, `{"error":"A request with this Idempotency-Key is still in progress"}`},
		{"internal", http.MethodGet, "/shoes/500?format=json", "", auth, http.StatusInternalServerError, `{"error":"internal server error"}`},
		{"duplicate user", http.MethodPost, "/register?format=json", "username=taken&password=x", map[string]string{echo.HeaderContentType: echo.MIMEApplicationForm}, http.StatusBadRequest, `{"error":"Username already exists"}`},
		{"bad login", http.MethodPost, "/login?format=json", "username=alice&password=bad", map[string]string{echo.HeaderContentType: echo.MIMEApplicationForm}, http.StatusUnauthorized, `{"error":"Invalid credentials"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, tc.method, tc.target, tc.body, tc.headers)
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Fatalf("body %q does not contain %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestRouter_UpdateErrorLinksToEditForm(t *testing.T) {
	e := newTestRouter(t)
	rec := do(e, http.MethodPost, "/shoes/3", "brand=x", map[string]string{
		"x-access-token":        "good",
		echo.HeaderContentType: echo.MIMEApplicationForm,
	})
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `href="/shoes/3/edit"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_LoginRateLimited(t *testing.T) {
	e := newTestRouter(t)
	headers := map[string]string{echo.HeaderContentType: echo.MIMEApplicationForm}

	for i := 0; i < 2; i++ {
		rec := do(e, http.MethodPost, "/login?format=json", "username=alice&password=secret", headers)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := do(e, http.MethodPost, "/login?format=json", "username=alice&password=secret", headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
		t.Fatalf("expected error body, got %s", rec.Body.String())
	}
}

type keyRecorder struct{ hits map[string]int }

func (l *keyRecorder) Allow(_ context.Context, key string, limit int) (bool, int, error) {
	l.hits[key]++
	n := l.hits[key]
	return n <= limit, max(limit-n, 0), nil
}

func newLimitedRouter(t *testing.T, trusted []string) (*echo.Echo, *keyRecorder) {
	t.Helper()
	lim := &keyRecorder{hits: make(map[string]int)}
	e, err := NewRouter(Deps{
		Auth:               fakeAuth{},
		Shoes:              fakeShoes{},
		Limiter:            lim,
		RateLimitPerMinute: 1,
		TrustedProxies:     trusted,
		Log:                zerolog.Nop(),
		Registry:           prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return e, lim
}

func loginFrom(e *echo.Echo, peer, forwarded string) int {
	req := httptest.NewRequest(http.MethodPost, "/login?format=json", strings.NewReader("username=alice&password=secret"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(echo.HeaderXForwardedFor, forwarded)
	req.Header.Set(echo.HeaderXRealIP, forwarded)
	req.RemoteAddr = peer
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouter_RateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	e, lim := newLimitedRouter(t, nil)

	passed := 0
	for i := 0; i < 5; i++ {
		if loginFrom(e, "10.0.0.1:5000", fmt.Sprintf("203.0.113.%d", i)) == http.StatusOK {
			passed++
		}
	}

	if passed != 1 {
		t.Fatalf("expected 1 request through, got %d", passed)
	}
	if len(lim.hits) != 1 || lim.hits["10.0.0.1:/login"] != 5 {
		t.Fatalf("expected one bucket for the peer, got %v", lim.hits)
	}
}

func TestRouter_RateLimitTrustedProxy(t *testing.T) {
	e, lim := newLimitedRouter(t, []string{"10.0.0.0/24"})

	if code := loginFrom(e, "10.0.0.1:5000", "203.0.113.7"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := loginFrom(e, "10.0.0.1:5000", "203.0.113.8"); code != http.StatusOK {
		t.Fatalf("expected 200 for a second client behind the proxy, got %d", code)
	}
	// Outside the trusted range the header is ignored.
	loginFrom(e, "198.51.100.9:5000", "203.0.113.7")
	loginFrom(e, "198.51.100.9:5000", "203.0.113.9")

	want := map[string]int{"203.0.113.7:/login": 1, "203.0.113.8:/login": 1, "198.51.100.9:/login": 2}
	for k, n := range want {
		if lim.hits[k] != n {
			t.Fatalf("bucket %s: expected %d hits, got %v", k, n, lim.hits)
		}
	}
}

func TestNewRouter_BadTrustedProxy(t *testing.T) {
	if _, err := NewRouter(Deps{TrustedProxies: []string{"not-a-cidr"}, Log: zerolog.Nop(), Registry: prometheus.NewRegistry()}); err == nil {
		t.Fatal("expected error for malformed CIDR")
	}
}

func TestRouter_LoginCookieFlow(t *testing.T) {
	e := newTestRouter(t)
	rec := do(e, http.MethodPost, "/login", "username=alice&password=secret", map[string]string{
		echo.HeaderContentType: echo.MIMEApplicationForm,
	})
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected token cookie, got %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/shoes", nil)
	req.AddCookie(cookies[0])
	out := httptest.NewRecorder()
	e.ServeHTTP(out, req)
	if out.Code != http.StatusOK || !strings.Contains(out.Body.String(), "Air Max") {
		t.Fatalf("cookie not accepted: %d %s", out.Code, out.Body.String())
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	e := newTestRouter(t)

	if rec := do(e, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health/ready", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready with no deps: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/register", "", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h2>Register</h2>") {
		t.Fatalf("register page: %d", rec.Code)
	}
}

func TestBackLink(t *testing.T) {
	e := echo.New()
	cases := []struct {
		method, path, want string
	}{
		{http.MethodPost, "/register", "/register"},
		{http.MethodPost, "/shoes", "/shoes/new"},
		{http.MethodPost, "/shoes/4", "/shoes/4/edit"},
		{http.MethodPut, "/shoes/4", "/shoes/4/edit"},
		{http.MethodPost, "/shoes/4/delete", "/shoes"},
		{http.MethodGet, "/shoes/4", "/shoes"},
	}
	for _, tc := range cases {
		c := e.NewContext(httptest.NewRequest(tc.method, tc.path, nil), httptest.NewRecorder())
		if got, _ := backLink(c); got != tc.want {
			t.Fatalf("%s %s: got %q, want %q", tc.method, tc.path, got, tc.want)
		}
	}
}
