package service_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/unclebandit/aspform-backend/internal/service"
)

func TestGenerateMailtoURL(t *testing.T) {
	got := service.GenerateMailtoURL("a@b.com", "S", "B\nC")
	if !strings.HasPrefix(got, "mailto:a@b.com?") {
		t.Errorf("unexpected prefix: %s", got)
	}
	if !strings.Contains(got, "subject=S") || !strings.Contains(got, "body=B%0AC") {
		t.Errorf("missing encoded params: %s", got)
	}
	if strings.Index(got, "subject=") > strings.Index(got, "body=") {
		t.Errorf("subject should come before body: %s", got)
	}
}

func TestGenerateMailtoURLRoundTrip(t *testing.T) {
	subject := "【契約同意】プランA（山田 様）"
	body := "1 + 1 = 2 & more\n以上"
	got := service.GenerateMailtoURL("raise@example.jp", subject, body)

	if strings.Contains(got, "+") {
		t.Errorf("spaces and plus signs must be percent-encoded: %s", got)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	if q.Get("subject") != subject || q.Get("body") != body {
		t.Errorf("round trip mismatch: %q / %q", q.Get("subject"), q.Get("body"))
	}
}
