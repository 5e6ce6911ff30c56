package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeTrigger(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := w.Header().Get("HX-Trigger")
	if raw == "" {
		return nil
	}
	var events map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %q: %v", raw, err)
	}
	return events
}

func TestFragmentRecordedExpense(t *testing.T) {
	w := httptest.NewRecorder()
	NewFragment().
		ExpenseRecorded("Clothing").
		FormReset().
		BudgetRefresh().
		Notify(NoticeSuccess, "Expense recorded").
		HTML(`<div class="success">ok</div>`).
		Write(w)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	events := decodeTrigger(t, w)
	for _, name := range []string{"expense:recorded", "form:reset", "budget:refresh", "show-notification"} {
		if _, ok := events[name]; !ok {
			t.Errorf("HX-Trigger missing %s: %v", name, events)
		}
	}
	if got := string(events["expense:recorded"]); got != `{"category":"Clothing"}` {
		t.Errorf("expense:recorded = %s", got)
	}
}

func TestFragmentNotifyDurations(t *testing.T) {
	tests := []struct {
		kind     Notice
		duration int
	}{
		{NoticeSuccess, 3000},
		{NoticeError, 5000},
		{NoticeWarning, 4000},
		{NoticeInfo, 3000},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			w := httptest.NewRecorder()
			NewFragment().Notify(tt.kind, "hi").Write(w)

			var n struct {
				Type     string `json:"type"`
				Message  string `json:"message"`
				Duration int    `json:"duration"`
			}
			if err := json.Unmarshal(decodeTrigger(t, w)["show-notification"], &n); err != nil {
				t.Fatalf("decode notification: %v", err)
			}
			if n.Type != string(tt.kind) || n.Message != "hi" || n.Duration != tt.duration {
				t.Errorf("notification = %+v", n)
			}
		})
	}
}

func TestFragmentNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NewFragment().Status(http.StatusNoContent).BudgetRefresh().Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("got %d with body %q", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Type") != "" {
		t.Errorf("unexpected Content-Type on empty reply")
	}
}

func TestErrorFragment(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		message  string
		wantBody string
	}{
		{"unprocessable", http.StatusUnprocessableEntity, "Choose a category", `<div class="error">Choose a category</div>`},
		{"bad gateway", http.StatusBadGateway, "Ledger down", `<div class="error">Ledger down</div>`},
		{"escaped", http.StatusBadRequest, "<b>x</b>", `<div class="error">&lt;b&gt;x&lt;/b&gt;</div>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFragment(tt.status, tt.message).Write(w)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if _, ok := decodeTrigger(t, w)["show-notification"]; !ok {
				t.Errorf("error reply raised no notification")
			}
		})
	}
}

func TestMethodNotAllowedFragment(t *testing.T) {
	w := httptest.NewRecorder()
	methodNotAllowed("GET, HEAD").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "GET, HEAD" {
		t.Errorf("Allow = %q", got)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("405 should raise no events")
	}
}
