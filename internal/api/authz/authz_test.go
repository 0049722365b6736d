package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/codr1/Padelicious/internal/models"
)

func TestRequireUserUnauthenticated(t *testing.T) {
	_, err := RequireUser(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRequireUserEmptyID(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{Role: models.RoleMember})
	_, err := RequireUser(ctx)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRequireAdminMemberForbidden(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{ID: "11111111-1", Role: models.RoleMember})
	_, err := RequireAdmin(ctx)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireAdminAllowed(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{ID: "11111111-1", Role: models.RoleAdmin})
	user, err := RequireAdmin(ctx)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if user.ID != "11111111-1" {
		t.Fatalf("expected admin user, got %+v", user)
	}
}
