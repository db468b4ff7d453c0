package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeTriggers(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	header := w.Header().Get("HX-Trigger")
	if header == "" {
		t.Fatal("missing HX-Trigger header")
	}
	var triggers map[string]interface{}
	if err := json.Unmarshal([]byte(header), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not valid JSON: %v", err)
	}
	return triggers
}

func TestHTMXResponseDefaults(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Write(w)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Fatal("trigger header set without triggers")
	}
}

func TestTransactionTriggers(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerTransactionCreated("txn-1").
		TriggerWizardClosed().
		TriggerSuccessNotification("Transaction created").
		Write(w)

	triggers := decodeTriggers(t, w)
	created, ok := triggers["transaction:created"].(map[string]interface{})
	if !ok || created["id"] != "txn-1" {
		t.Fatalf("transaction:created = %v", triggers["transaction:created"])
	}
	if _, ok := triggers["wizard:closed"]; !ok {
		t.Fatal("missing wizard:closed trigger")
	}
	notif, ok := triggers["show-notification"].(map[string]interface{})
	if !ok || notif["type"] != "success" {
		t.Fatalf("show-notification = %v", triggers["show-notification"])
	}
}

func TestErrorResponseEscapesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequestError(`<img src=x onerror=alert(1)>`).Write(w)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "<img") {
		t.Fatalf("unescaped markup in body: %s", body)
	}
	if !strings.Contains(body, `class="error"`) {
		t.Fatalf("body missing error wrapper: %s", body)
	}
}

func TestMethodNotAllowedSetsAllowHeader(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError("POST, DELETE").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "POST, DELETE" {
		t.Fatalf("Allow = %q", got)
	}
}

func TestConflictError(t *testing.T) {
	w := httptest.NewRecorder()
	ConflictError("This form was superseded").Write(w)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}
