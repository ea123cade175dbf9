package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestSubjectRoundTrip(t *testing.T) {
	ctx := WithRole(WithUserID(context.Background(), "42"), "admin")
	if id, ok := UserID(ctx); !ok || id != "42" {
		t.Fatalf("UserID = %q, %v", id, ok)
	}
	if r, ok := Role(ctx); !ok || r != "admin" {
		t.Fatalf("Role = %q, %v", r, ok)
	}
	if _, ok := UserID(context.Background()); ok {
		t.Fatal("empty context must not carry a user")
	}
	if _, ok := UserID(WithUserID(context.Background(), "")); ok {
		t.Fatal("blank id must be reported as missing")
	}
}

func TestWithDBTimeout_KeepsShorterParentDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	ctx, cancel2 := WithDBTimeout(parent)
	defer cancel2()

	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatal("deadline expected")
	}
	if time.Until(dl) > 200*time.Millisecond {
		t.Fatalf("deadline too far: %s", time.Until(dl))
	}
}

func TestWithTimeout_ZeroMeansCancelOnly(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("no deadline expected for d<=0")
	}
}
