package store

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestUserLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	user, err := st.CreateUser(ctx, "Alice", "hash-a", false, now)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if !strings.HasPrefix(user.ID, "us-") {
		t.Fatalf("user id = %q", user.ID)
	}
	if user.Name != "alice" {
		t.Fatalf("name not normalized: %q", user.Name)
	}

	admin, err := st.CreateUser(ctx, "root", "hash-r", true, now)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if !admin.Privileged {
		t.Fatal("expected privileged")
	}

	got, err := st.GetUser(ctx, user.ID)
	if err != nil || got == nil {
		t.Fatalf("get user: %v, %v", got, err)
	}
	if got.KeyHash != "hash-a" {
		t.Fatalf("key hash = %q", got.KeyHash)
	}

	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[0].Name != "alice" || users[1].Name != "root" {
		t.Fatalf("unexpected user list %v", users)
	}

	ok, err := st.SetUserDisabled(ctx, "alice", true, now)
	if err != nil || !ok {
		t.Fatalf("disable = %v, %v", ok, err)
	}
	got, _ = st.GetUser(ctx, user.ID)
	if !got.Disabled {
		t.Fatal("expected disabled")
	}

	ok, err = st.SetUserDisabled(ctx, "nobody", true, now)
	if err != nil || ok {
		t.Fatalf("disable unknown = %v, %v; want false, nil", ok, err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := st.CreateUser(ctx, "", "hash", false, now); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := st.CreateUser(ctx, "bob", "", false, now); err == nil {
		t.Fatal("expected error for empty key hash")
	}
	if _, err := st.CreateUser(ctx, "dup", "h1", false, now); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.CreateUser(ctx, "dup", "h2", false, now); err == nil {
		t.Fatal("expected unique name violation")
	}
}
