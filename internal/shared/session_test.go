package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/decagraff/lc-service/internal/shared"
	_ "github.com/decagraff/lc-service/testing"
)

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	return shared.NewSessionManager(redisClient, "test_session", "test-secret", time.Hour, false)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestSessionSignedCookieRoundTrip(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("42")

	rec := httptest.NewRecorder()
	if err := sm.Commit(ctx, rec, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := sessionCookie(t, rec, sm.CookieName())
	if !strings.Contains(cookie.Value, ".") {
		t.Fatalf("cookie value %q is not signed", cookie.Value)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	got, err := sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.User() != "42" {
		t.Fatalf("user = %q, want 42", got.User())
	}
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("42")

	rec := httptest.NewRecorder()
	if err := sm.Commit(ctx, rec, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := sessionCookie(t, rec, sm.CookieName())

	cases := map[string]string{
		"bare id":       sess.ID,
		"bad signature": sess.ID + ".AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		"garbage":       "not-a-session",
	}
	for name, value := range cases {
		forged := httptest.NewRequest(http.MethodGet, "/", nil)
		forged.AddCookie(&http.Cookie{Name: cookie.Name, Value: value})
		got, err := sm.Load(ctx, forged)
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		if got.User() != "" {
			t.Fatalf("%s: forged cookie resolved to user %q", name, got.User())
		}
		if got.ID == sess.ID {
			t.Fatalf("%s: forged cookie reused session id", name)
		}
	}
}
