package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/draftline/draftline/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:       "01HTESTUSER00000000000000",
		Username: "writer",
		Email:    "writer@example.com",
		Role:     model.RoleUser,
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("test-secret", 24*time.Hour)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	authCtx, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if authCtx.UserID != "01HTESTUSER00000000000000" {
		t.Errorf("unexpected user ID: %s", authCtx.UserID)
	}
	if authCtx.Username != "writer" {
		t.Errorf("unexpected username: %s", authCtx.Username)
	}
	if authCtx.Role != model.RoleUser {
		t.Errorf("unexpected role: %s", authCtx.Role)
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewTokenIssuer("secret-a", time.Hour).Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = NewTokenIssuer("secret-b", time.Hour).Verify(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("test-secret", time.Hour)

	issuedAt := time.Now().Add(-48 * time.Hour)
	issuer.now = func() time.Time { return issuedAt }

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestTokenIssuer_Garbage(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("test-secret", time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("token %q: expected ErrTokenInvalid, got %v", token, err)
		}
	}
}

func TestTokenIssuer_AdminRoleSurvives(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("test-secret", time.Hour)

	admin := testUser()
	admin.Role = model.RoleAdmin

	token, err := issuer.Issue(admin)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	authCtx, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !authCtx.IsAdmin() {
		t.Error("expected admin role in verified claims")
	}
}
