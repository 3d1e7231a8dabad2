package service_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	appErrors "github.com/unclebandit/aspform-backend/internal/errors"
	"github.com/unclebandit/aspform-backend/internal/model"
	"github.com/unclebandit/aspform-backend/internal/queue"
	"github.com/unclebandit/aspform-backend/internal/repository"
	"github.com/unclebandit/aspform-backend/internal/service"
)

var fixedNow = time.Date(2025, 1, 15, 1, 0, 0, 0, time.UTC) // 10:00 in Tokyo

// MockQueue records published payloads.
type MockQueue struct {
	mu        sync.Mutex
	published []any
	err       error
}

func (q *MockQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, payload)
	return q.err
}

func (q *MockQueue) Subscribe(topic string, handler func(payload any) error) error { return nil }

type fixture struct {
	store *repository.MemoryStore
	queue *MockQueue
	svc   *service.ConsentService
	plan  *model.Plan
	group *model.Group
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	plan := &model.Plan{
		Name:                 "プランA",
		Slug:                 "plan-a",
		Status:               true,
		ContractBodyHTML:     "<p>{{customer_name}} 様 / {{plan_name}} / 期限 {{survey_due_date}}</p>",
		ChecklistItems:       model.ChecklistItems{{ID: "1", Text: "期限は {{survey_due_date}}"}},
		EmailSubjectTemplate: "【契約同意】{{plan_name}}（{{customer_name}} 様）",
		EmailBodyTemplate:    "{{group_name}} 様\n開始日：{{contract_start_date}}\n期限：{{survey_due_date}}\n生成日時：{{generated_at}}\nコード：{{contract_fingerprint}}",
		SurveyDueMonths:      2,
	}
	if err := store.Plans().Create(ctx, plan); err != nil {
		t.Fatalf("create plan: %v", err)
	}
	group := &model.Group{Type: model.GroupTypeGroup, Name: "RAISEチーム", Email: "raise@example.jp", Token: "tok-1", Status: true}
	if err := store.Groups().Create(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}

	tokyo, _ := time.LoadLocation("Asia/Tokyo")
	q := &MockQueue{}
	return &fixture{
		store: store,
		queue: q,
		plan:  plan,
		group: group,
		svc: &service.ConsentService{
			PlanRepo:       store.Plans(),
			GroupRepo:      store.Groups(),
			SubmissionRepo: store.Submissions(),
			Queue:          q,
			Now:            func() time.Time { return fixedNow },
			TokenExpiry:    service.DefaultTokenExpiry,
			Location:       tokyo,
		},
	}
}

func validRequest() service.SubmitRequest {
	return service.SubmitRequest{
		Token:             "tok-1",
		CustomerName:      "山田太郎",
		CustomerEmail:     "yamada@example.jp",
		ContractStartDate: "2025-01-15",
		AgreeChecked:      true,
	}
}

func assertCode(t *testing.T, err error, code appErrors.Code, status int) {
	t.Helper()
	fe, ok := appErrors.AsFlowError(err)
	if !ok {
		t.Fatalf("expected FlowError %s, got %v", code, err)
	}
	if fe.Code != code || fe.Status != status {
		t.Errorf("expected %s/%d, got %s/%d", code, status, fe.Code, fe.Status)
	}
}

func submissionCount(t *testing.T, f *fixture) int {
	t.Helper()
	n, err := f.store.Submissions().Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestResolveAccess(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.ResolveAccess(context.Background(), "plan-a", "tok-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.Plan.Slug != "plan-a" || view.Plan.SurveyDueMonths != 2 || view.Group.Name != "RAISEチーム" {
		t.Errorf("unexpected view %+v", view)
	}
	if len(view.Plan.ChecklistItems) != 1 {
		t.Errorf("expected checklist items in view")
	}
}

func TestResolveAccessErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ResolveAccess(ctx, "plan-a", "")
		assertCode(t, err, appErrors.CodeMissingToken, http.StatusBadRequest)
	})
	t.Run("unknown plan", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ResolveAccess(ctx, "nope", "tok-1")
		assertCode(t, err, appErrors.CodePlanInactive, http.StatusBadRequest)
	})
	t.Run("inactive plan", func(t *testing.T) {
		f := newFixture(t)
		off := false
		_, _ = f.store.Plans().Update(ctx, f.plan.ID, model.PlanUpdate{Status: &off})
		_, err := f.svc.ResolveAccess(ctx, "plan-a", "tok-1")
		assertCode(t, err, appErrors.CodePlanInactive, http.StatusBadRequest)
	})
	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ResolveAccess(ctx, "plan-a", "nope")
		assertCode(t, err, appErrors.CodeInvalidToken, http.StatusBadRequest)
	})
	t.Run("inactive group", func(t *testing.T) {
		f := newFixture(t)
		off := false
		_, _ = f.store.Groups().Update(ctx, f.group.ID, model.GroupUpdate{Status: &off})
		_, err := f.svc.ResolveAccess(ctx, "plan-a", "tok-1")
		assertCode(t, err, appErrors.CodeInvalidToken, http.StatusBadRequest)
	})
	t.Run("expired token", func(t *testing.T) {
		f := newFixture(t)
		_ = f.store.Groups().TouchLastUsed(ctx, f.group.ID, fixedNow.AddDate(0, 0, -100))
		_, err := f.svc.ResolveAccess(ctx, "plan-a", "tok-1")
		assertCode(t, err, appErrors.CodeTokenExpired, http.StatusBadRequest)
	})
	t.Run("recently used token", func(t *testing.T) {
		f := newFixture(t)
		_ = f.store.Groups().TouchLastUsed(ctx, f.group.ID, fixedNow.AddDate(0, 0, -89))
		if _, err := f.svc.ResolveAccess(ctx, "plan-a", "tok-1"); err != nil {
			t.Errorf("expected access, got %v", err)
		}
	})
}

func TestSubmitEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, "plan-a", validRequest(), "test-agent")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !hex16.MatchString(res.Fingerprint) {
		t.Errorf("unexpected fingerprint %q", res.Fingerprint)
	}
	if res.Fallback.To != "raise@example.jp" || res.Fallback.Subject != "【契約同意】プランA（山田太郎 様）" {
		t.Errorf("unexpected fallback %+v", res.Fallback)
	}
	for _, want := range []string{"RAISEチーム 様", "開始日：2025年1月15日", "期限：2025年3月15日", "生成日時：2025年1月15日 10:00", "コード：" + res.Fingerprint} {
		if !strings.Contains(res.Fallback.Body, want) {
			t.Errorf("email body missing %q:\n%s", want, res.Fallback.Body)
		}
	}
	if !strings.HasPrefix(res.MailtoURL, "mailto:raise@example.jp?subject=") {
		t.Errorf("unexpected mailto %s", res.MailtoURL)
	}

	sub, err := f.store.Submissions().GetByID(ctx, res.SubmissionID)
	if err != nil || sub == nil {
		t.Fatalf("submission not stored: %v", err)
	}
	if sub.ComputedDates.SurveyDueDate != "2025年3月15日" {
		t.Errorf("unexpected survey due date %q", sub.ComputedDates.SurveyDueDate)
	}
	if sub.RenderedContractBody != "<p>山田太郎 様 / プランA / 期限 2025年3月15日</p>" {
		t.Errorf("unexpected contract body %q", sub.RenderedContractBody)
	}
	if sub.ContractFingerprint != res.Fingerprint || sub.CustomerPhone != nil || sub.UserAgent == nil || *sub.UserAgent != "test-agent" {
		t.Errorf("unexpected stored submission %+v", sub)
	}

	// the fingerprint is the hash of exactly the six defining fields
	want, _ := service.GenerateFingerprint(service.FingerprintInput{
		PlanID:            f.plan.ID,
		ContractBody:      sub.RenderedContractBody,
		CustomerData:      service.CustomerData{Name: "山田太郎", Email: "yamada@example.jp"},
		ContractStartDate: "2025-01-15",
		GroupEmail:        "raise@example.jp",
		GeneratedAt:       "2025年1月15日 10:00",
	})
	if want != res.Fingerprint {
		t.Errorf("fingerprint %s is not reproducible (want %s)", res.Fingerprint, want)
	}

	group, _ := f.store.Groups().GetByID(ctx, f.group.ID)
	if group.LastUsedAt == nil || !group.LastUsedAt.Equal(fixedNow) {
		t.Errorf("expected last_used_at to be touched, got %v", group.LastUsedAt)
	}
	if len(f.queue.published) != 1 {
		t.Fatalf("expected one event, got %d", len(f.queue.published))
	}
	ev := f.queue.published[0].(queue.SubmissionEvent)
	if ev.SubmissionID != sub.ID || ev.Fingerprint != res.Fingerprint {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestSubmitFingerprintIgnoresEmailBodyTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Submit(ctx, "plan-a", validRequest(), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	body := "全く別の本文 {{contract_fingerprint}}"
	if _, err := f.store.Plans().Update(ctx, f.plan.ID, model.PlanUpdate{EmailBodyTemplate: &body}); err != nil {
		t.Fatalf("update: %v", err)
	}
	second, err := f.svc.Submit(ctx, "plan-a", validRequest(), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Errorf("email body template changed the fingerprint: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
	if second.Fallback.Body != "全く別の本文 "+second.Fingerprint {
		t.Errorf("unexpected body %q", second.Fallback.Body)
	}
}

func TestSubmitPhone(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	phone := "090-1234-5678"
	req.CustomerPhone = &phone

	res, err := f.svc.Submit(context.Background(), "plan-a", req, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	sub, _ := f.store.Submissions().GetByID(context.Background(), res.SubmissionID)
	if sub.CustomerPhone == nil || *sub.CustomerPhone != phone {
		t.Errorf("phone not stored: %+v", sub.CustomerPhone)
	}
	without, _ := f.svc.Submit(context.Background(), "plan-a", validRequest(), "")
	if without.Fingerprint == res.Fingerprint {
		t.Errorf("phone should be part of the fingerprint")
	}
}

func TestSubmitRejections(t *testing.T) {
	ctx := context.Background()
	off := false

	tests := []struct {
		name   string
		setup  func(f *fixture)
		mutate func(r *service.SubmitRequest)
		slug   string
		code   appErrors.Code
	}{
		{name: "agreement unchecked", mutate: func(r *service.SubmitRequest) { r.AgreeChecked = false }, code: appErrors.CodeAgreeRequired},
		{name: "agreement checked first", mutate: func(r *service.SubmitRequest) { r.AgreeChecked = false; r.Token = "" }, code: appErrors.CodeAgreeRequired},
		{name: "missing token", mutate: func(r *service.SubmitRequest) { r.Token = "" }, code: appErrors.CodeMissingToken},
		{name: "unknown plan", slug: "nope", code: appErrors.CodeInvalidRequest},
		{name: "unknown token", mutate: func(r *service.SubmitRequest) { r.Token = "nope" }, code: appErrors.CodeInvalidRequest},
		{name: "inactive plan", setup: func(f *fixture) {
			_, _ = f.store.Plans().Update(ctx, f.plan.ID, model.PlanUpdate{Status: &off})
		}, code: appErrors.CodeInvalidRequest},
		{name: "inactive group", setup: func(f *fixture) {
			_, _ = f.store.Groups().Update(ctx, f.group.ID, model.GroupUpdate{Status: &off})
		}, code: appErrors.CodeInvalidRequest},
		{name: "missing name", mutate: func(r *service.SubmitRequest) { r.CustomerName = " " }, code: appErrors.CodeInvalidRequest},
		{name: "bad start date", mutate: func(r *service.SubmitRequest) { r.ContractStartDate = "2025/13/45" }, code: appErrors.CodeInvalidRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}
			req := validRequest()
			if tc.mutate != nil {
				tc.mutate(&req)
			}
			slug := "plan-a"
			if tc.slug != "" {
				slug = tc.slug
			}
			_, err := f.svc.Submit(ctx, slug, req, "")
			assertCode(t, err, tc.code, http.StatusBadRequest)
			if n := submissionCount(t, f); n != 0 {
				t.Errorf("expected no submission, got %d", n)
			}
			if len(f.queue.published) != 0 {
				t.Errorf("expected no event")
			}
		})
	}
}

// failingSubmissions wraps a real repository and fails every Create.
type failingSubmissions struct {
	repository.SubmissionRepositoryInterface
}

func (failingSubmissions) Create(ctx context.Context, s *model.Submission) error {
	return errors.New("disk full")
}

func TestSubmitStorageFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.svc.SubmissionRepo = failingSubmissions{f.store.Submissions()}

	_, err := f.svc.Submit(context.Background(), "plan-a", validRequest(), "")
	assertCode(t, err, appErrors.CodeInvalidRequest, http.StatusInternalServerError)
	if len(f.queue.published) != 0 {
		t.Errorf("no event should be published when the insert fails")
	}
	group, _ := f.store.Groups().GetByID(context.Background(), f.group.ID)
	if group.LastUsedAt != nil {
		t.Errorf("last_used_at must not change when the insert fails")
	}
}

func TestSubmitSurvivesQueueFailure(t *testing.T) {
	f := newFixture(t)
	f.queue.err = errors.New("broker down")

	if _, err := f.svc.Submit(context.Background(), "plan-a", validRequest(), ""); err != nil {
		t.Fatalf("queue failure must not fail the submit: %v", err)
	}
	if n := submissionCount(t, f); n != 1 {
		t.Errorf("expected 1 submission, got %d", n)
	}
}

func TestSubmitCreatesNewRecordEachTime(t *testing.T) {
	f := newFixture(t)
	a, _ := f.svc.Submit(context.Background(), "plan-a", validRequest(), "")
	b, _ := f.svc.Submit(context.Background(), "plan-a", validRequest(), "")
	if a.SubmissionID == b.SubmissionID {
		t.Errorf("expected distinct submissions")
	}
	if n := submissionCount(t, f); n != 2 {
		t.Errorf("expected 2 submissions, got %d", n)
	}
}
