package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	store := NewSessionStore(time.Hour)
	p := Principal{ID: "user-1", Email: "jane@example.com", Name: "Jane"}

	token := store.Create(p)
	if token == "" {
		t.Fatal("empty token")
	}

	got, err := store.Resolve(token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != p {
		t.Fatalf("principal = %+v, want %+v", got, p)
	}

	store.Destroy(token)
	if _, err := store.Resolve(token); err != ErrUnauthenticated {
		t.Fatalf("resolve after destroy: err = %v, want ErrUnauthenticated", err)
	}
}

func TestSessionExpiryAndSliding(t *testing.T) {
	store := NewSessionStore(time.Hour)
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	token := store.Create(Principal{ID: "user-1"})

	// 40 minutes later: still valid, expiry slides.
	current = current.Add(40 * time.Minute)
	if _, err := store.Resolve(token); err != nil {
		t.Fatalf("resolve at 40m: %v", err)
	}

	// Another 40 minutes (80 total, but slid at 40): still valid.
	current = current.Add(40 * time.Minute)
	if _, err := store.Resolve(token); err != nil {
		t.Fatalf("resolve at 80m after slide: %v", err)
	}

	// 61 minutes of silence: expired.
	current = current.Add(61 * time.Minute)
	if _, err := store.Resolve(token); err != ErrUnauthenticated {
		t.Fatalf("expired session: err = %v, want ErrUnauthenticated", err)
	}
}

func TestSweep(t *testing.T) {
	store := NewSessionStore(time.Minute)
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Create(Principal{ID: "user-1"})
	store.Create(Principal{ID: "user-2"})
	keep := store.Create(Principal{ID: "user-3"})

	current = current.Add(2 * time.Minute)
	keep2 := store.Create(Principal{ID: "user-4"})

	store.Sweep()
	if store.Len() != 1 {
		t.Fatalf("live sessions = %d, want 1", store.Len())
	}
	if _, err := store.Resolve(keep2); err != nil {
		t.Fatalf("fresh session swept: %v", err)
	}
	if _, err := store.Resolve(keep); err != ErrUnauthenticated {
		t.Fatalf("stale session survived sweep: %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	store := NewSessionStore(time.Hour)
	p := Principal{ID: "user-1", Name: "Jane"}
	token := store.Create(p)

	var seen Principal
	handler := Middleware(store, "/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		seen, err = FromContext(r.Context())
		if err != nil {
			t.Errorf("FromContext: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid session", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if seen != p {
			t.Fatalf("principal = %+v", seen)
		}
	})

	t.Run("missing cookie redirects", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		if w.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want 303", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/login" {
			t.Fatalf("location = %q", loc)
		}
	})

	t.Run("htmx request gets HX-Redirect", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		r.Header.Set("HX-Request", "true")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		if w.Header().Get("HX-Redirect") != "/login" {
			t.Fatal("missing HX-Redirect header")
		}
	})

	t.Run("expired token redirects", func(t *testing.T) {
		store.Destroy(token)
		r := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		if w.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want 303", w.Code)
		}
	})
}

func TestFromContextWithoutPrincipal(t *testing.T) {
	if _, err := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()); err != ErrUnauthenticated {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}
