package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/JohanU89-coder/radius-api/internal/models"
	"github.com/JohanU89-coder/radius-api/internal/rowops"
)

func TestMemory_CreateAndRead(t *testing.T) {
	repo := NewMemoryAccountRepository()
	b := rowops.NewBuilder(true)
	ctx := context.Background()

	stmts, err := b.Create("alice", models.AccountFields{
		Password:        strPtr("p1"),
		SimultaneousUse: strPtr("1"),
		Group:           strPtr("staff"),
		Profile:         models.ProfileFields{Email: strPtr("alice@example.com")},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := repo.Run(ctx, stmts); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := repo.Run(ctx, b.Read("alice"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out.Check) != 2 || out.Check[0].Attribute != models.AttrCleartextPassword || out.Check[0].Op != ":=" {
		t.Errorf("unexpected check attributes: %+v", out.Check)
	}
	if len(out.Groups) != 1 || out.Groups[0] != "staff" {
		t.Errorf("unexpected groups: %+v", out.Groups)
	}
	if len(out.Profiles) != 1 || out.Profiles[0].Email != "alice@example.com" || out.Profiles[0].CreatedAt == nil {
		t.Errorf("unexpected profile: %+v", out.Profiles)
	}
}

func TestMemory_FailedUnitRestoresSnapshot(t *testing.T) {
	repo := NewMemoryAccountRepository()
	b := rowops.NewBuilder(false)
	ctx := context.Background()

	stmts, _ := b.Create("bob", models.AccountFields{Password: strPtr("p1")})
	if _, err := repo.Run(ctx, stmts); err != nil {
		t.Fatalf("create: %v", err)
	}

	// the insert lands before the guard fails, and must be undone
	unit := []rowops.Statement{
		{Relation: rowops.ReplyAttributes, Op: rowops.OpInsert, Username: "bob",
			Set: []rowops.Column{{Name: "attribute", Value: "Session-Timeout"}, {Name: "op", Value: ":="}, {Name: "value", Value: "10"}}},
		{Relation: rowops.CredentialAttributes, Op: rowops.OpGuardAbsent, Username: "bob"},
	}
	if _, err := repo.Run(ctx, unit); !errors.Is(err, models.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	out, err := repo.Run(ctx, b.Read("bob"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out.Reply) != 0 {
		t.Errorf("expected rolled back reply rows, got %+v", out.Reply)
	}
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryAccountRepository().Run(ctx, rowops.NewBuilder(false).List())
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestMemory_ListDistinctUsernames(t *testing.T) {
	repo := NewMemoryAccountRepository()
	b := rowops.NewBuilder(false)
	ctx := context.Background()

	for _, name := range []string{"zoe", "adam"} {
		stmts, _ := b.Create(name, models.AccountFields{Password: strPtr("x"), SimultaneousUse: strPtr("1")})
		if _, err := repo.Run(ctx, stmts); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	out, err := repo.Run(ctx, b.List())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Profiles) != 2 || out.Profiles[0].Username != "adam" || out.Profiles[1].Username != "zoe" {
		t.Errorf("unexpected listing: %+v", out.Profiles)
	}
}

func TestMemory_GroupsOrderedByNumericPriority(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()

	membership := func(group string, priority int) rowops.Statement {
		return rowops.Statement{Relation: rowops.GroupMembership, Op: rowops.OpInsert, Username: "frank",
			Set: []rowops.Column{{Name: "groupname", Value: group}, {Name: "priority", Value: priority}}}
	}
	unit := []rowops.Statement{membership("late", 10), membership("early", 2), membership("b-tie", 2)}
	if _, err := repo.Run(ctx, unit); err != nil {
		t.Fatalf("insert groups: %v", err)
	}

	out, err := repo.Run(ctx, rowops.NewBuilder(false).Read("frank"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"b-tie", "early", "late"}
	if len(out.Groups) != len(want) {
		t.Fatalf("groups = %v; want %v", out.Groups, want)
	}
	for i := range want {
		if out.Groups[i] != want[i] {
			t.Errorf("groups = %v; want %v", out.Groups, want)
			break
		}
	}
}
