package http

import (
	"testing"
	"time"

	"dealtrack/internal/forms"
)

func newTestController() *forms.Controller {
	variant := forms.DefaultRegistry().Lookup("buyer")
	return forms.NewController(variant, nil)
}

func TestWizardStoreLifecycle(t *testing.T) {
	store := newWizardStore(time.Hour)
	ctrl := newTestController()

	token := store.Open("user-1", "", ctrl)
	if token == "" {
		t.Fatal("empty token")
	}

	sess, err := store.Get(token, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.ctrl != ctrl {
		t.Fatal("controller identity not preserved")
	}

	store.Close(token)
	if _, err := store.Get(token, "user-1"); err != errWizardNotFound {
		t.Fatalf("get after close: err = %v, want errWizardNotFound", err)
	}
}

func TestWizardStoreOwnerScoping(t *testing.T) {
	store := newWizardStore(time.Hour)
	token := store.Open("user-1", "", newTestController())

	if _, err := store.Get(token, "user-2"); err != errWizardNotFound {
		t.Fatalf("foreign user resolved wizard: err = %v", err)
	}
	// The rightful owner still can.
	if _, err := store.Get(token, "user-1"); err != nil {
		t.Fatalf("owner get: %v", err)
	}
}

func TestWizardStoreExpiry(t *testing.T) {
	store := newWizardStore(30 * time.Minute)
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	token := store.Open("user-1", "", newTestController())

	// 20 minutes later: valid, expiry slides.
	current = current.Add(20 * time.Minute)
	if _, err := store.Get(token, "user-1"); err != nil {
		t.Fatalf("get at 20m: %v", err)
	}

	// Another 25 minutes (slid at 20): still valid.
	current = current.Add(25 * time.Minute)
	if _, err := store.Get(token, "user-1"); err != nil {
		t.Fatalf("get after slide: %v", err)
	}

	// 31 minutes of silence: expired.
	current = current.Add(31 * time.Minute)
	if _, err := store.Get(token, "user-1"); err != errWizardNotFound {
		t.Fatalf("expired wizard resolved: err = %v", err)
	}
}

func TestWizardStoreCleanExpired(t *testing.T) {
	store := newWizardStore(time.Minute)
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Open("user-1", "", newTestController())
	store.Open("user-1", "", newTestController())
	current = current.Add(2 * time.Minute)
	keep := store.Open("user-1", "", newTestController())

	if removed := store.CleanExpired(); removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if store.Size() != 1 {
		t.Fatalf("size = %d, want 1", store.Size())
	}
	if _, err := store.Get(keep, "user-1"); err != nil {
		t.Fatalf("fresh wizard swept: %v", err)
	}
}
