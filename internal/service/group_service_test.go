package service_test

import (
	"context"
	"fmt"
	"testing"

	appErrors "github.com/unclebandit/aspform-backend/internal/errors"
	"github.com/unclebandit/aspform-backend/internal/model"
	"github.com/unclebandit/aspform-backend/internal/repository"
	"github.com/unclebandit/aspform-backend/internal/service"
)

func TestGroupCreateDefaults(t *testing.T) {
	svc := service.NewGroupService(repository.NewMemoryStore().Groups())

	g, err := svc.Create(context.Background(), model.GroupUpdate{Name: strPtr("RAISEチーム"), Email: strPtr("raise@example.jp")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.Type != model.GroupTypeGroup || !g.Status || g.LastUsedAt != nil || len(g.Token) != 32 {
		t.Errorf("unexpected group %+v", g)
	}
}

func TestGroupCreateValidation(t *testing.T) {
	svc := service.NewGroupService(repository.NewMemoryStore().Groups())
	cases := []model.GroupUpdate{
		{Name: strPtr("x")},
		{Email: strPtr("a@example.jp")},
		{Name: strPtr("x"), Email: strPtr("not-an-email")},
		{Name: strPtr("x"), Email: strPtr("RAISE <raise@example.jp>")},
		{Name: strPtr("x"), Email: strPtr(" raise@example.jp")},
		{Name: strPtr("x"), Email: strPtr("a@example.jp"), Type: strPtr("team")},
	}
	for i, in := range cases {
		if _, err := svc.Create(context.Background(), in); !appErrors.IsValidation(err) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestGroupCreateRetriesTokenCollision(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	_ = store.Groups().Create(ctx, &model.Group{Name: "old", Token: "dup"})

	tokens := []string{"dup", "fresh"}
	svc := &service.GroupService{Repo: store.Groups(), NewToken: func() (string, error) {
		tok := tokens[0]
		tokens = tokens[1:]
		return tok, nil
	}}

	g, err := svc.Create(ctx, model.GroupUpdate{Name: strPtr("new"), Email: strPtr("n@example.jp")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.Token != "fresh" {
		t.Errorf("expected retry to pick a fresh token, got %q", g.Token)
	}
}

func TestGroupRegenerateToken(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	n := 0
	svc := &service.GroupService{Repo: store.Groups(), NewToken: func() (string, error) {
		n++
		return fmt.Sprintf("token-%d", n), nil
	}}

	g, _ := svc.Create(ctx, model.GroupUpdate{Name: strPtr("g"), Email: strPtr("g@example.jp")})
	_ = store.Groups().TouchLastUsed(ctx, g.ID, fixedNow)

	regenerated, err := svc.RegenerateToken(ctx, g.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if regenerated.Token == g.Token || regenerated.LastUsedAt != nil {
		t.Errorf("unexpected group after regenerate %+v", regenerated)
	}
	if _, err := svc.RegenerateToken(ctx, "missing"); !appErrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGroupUpdateKeepsToken(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGroupService(repository.NewMemoryStore().Groups())
	g, _ := svc.Create(ctx, model.GroupUpdate{Name: strPtr("g"), Email: strPtr("g@example.jp")})

	updated, err := svc.Update(ctx, g.ID, model.GroupUpdate{Name: strPtr("renamed"), Type: strPtr(model.GroupTypePerson)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "renamed" || updated.Type != model.GroupTypePerson || updated.Token != g.Token {
		t.Errorf("unexpected group %+v", updated)
	}
	if err := svc.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Update(ctx, g.ID, model.GroupUpdate{Name: strPtr("x")}); !appErrors.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestGroupUpdateRejectsDisplayNameEmail(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGroupService(repository.NewMemoryStore().Groups())
	g, err := svc.Create(ctx, model.GroupUpdate{Name: strPtr("RAISEチーム"), Email: strPtr("raise@example.jp")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Update(ctx, g.ID, model.GroupUpdate{Email: strPtr("RAISE <raise@example.jp>")}); !appErrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ := svc.Get(ctx, g.ID)
	if url := service.GenerateMailtoURL(got.Email, "S", "B"); url != "mailto:raise@example.jp?subject=S&body=B" {
		t.Errorf("unexpected mailto %q", url)
	}
}
