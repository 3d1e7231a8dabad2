package flow

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func roundTrip(t *testing.T, store *CookieStore, d *Draft) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := store.Save(rec, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestCookieStoreRoundTrip(t *testing.T) {
	store := NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), []byte("fedcba9876543210fedcba9876543210"), false)
	d := filledDraft()
	d.CheckedItems = []string{"1"}

	req := roundTrip(t, store, d)
	got, err := store.Load(req, "plan-a", "tok")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.CustomerName != d.CustomerName || len(got.CheckedItems) != 1 {
		t.Errorf("unexpected draft %+v", got)
	}

	if _, err := store.Load(req, "plan-a", "another-token"); err != ErrNoDraft {
		t.Errorf("draft must not load for another token, got %v", err)
	}
	if _, err := store.Load(req, "plan-b", "tok"); err != ErrNoDraft {
		t.Errorf("draft must not load for another plan, got %v", err)
	}
}

func TestCookieStoreRejectsTampering(t *testing.T) {
	store := NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), []byte("fedcba9876543210fedcba9876543210"), false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName("plan-a"), Value: "forged"})
	if _, err := store.Load(req, "plan-a", "tok"); err != ErrNoDraft {
		t.Errorf("expected ErrNoDraft, got %v", err)
	}
}

func TestCookieStoreClear(t *testing.T) {
	store := NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), nil, false)
	rec := httptest.NewRecorder()
	store.Clear(rec, "plan-a")
	c := rec.Result().Cookies()
	if len(c) != 1 || c[0].Name != "aspform_draft_plan-a" || c[0].MaxAge >= 0 {
		t.Errorf("expected expiring cookie, got %+v", c)
	}
}
