package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/tableside/internal/models"
)

func TestGenerateAndValidate(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.Generate(&models.Staff{ID: "staff-1", Name: "Ravi"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.StaffID != "staff-1" || claims.Name != "Ravi" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Role != models.RoleStaff {
		t.Errorf("expected default role staff, got %q", claims.Role)
	}
	if staff := claims.Staff(); staff.ID != "staff-1" {
		t.Errorf("unexpected staff: %+v", staff)
	}
}

func TestValidateRejects(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	token, err := manager.Generate(&models.Staff{ID: "staff-1", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tests := []struct {
		name    string
		manager *JWTManager
		token   string
	}{
		{name: "wrong secret", manager: NewJWTManager("other-secret", time.Hour), token: token},
		{name: "garbage", manager: manager, token: "not-a-token"},
		{
			name: "expired",
			manager: &JWTManager{
				secretKey:     []byte("test-secret"),
				tokenDuration: time.Hour,
				now:           func() time.Time { return time.Now().Add(2 * time.Hour) },
			},
			token: token,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.Validate(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestGenerateRequiresStaffID(t *testing.T) {
	if _, err := NewJWTManager("s", time.Hour).Generate(&models.Staff{}); err == nil {
		t.Error("expected error for missing staff ID")
	}
}

func TestEmptySecretIssuesAndAcceptsNothing(t *testing.T) {
	manager := NewJWTManager("", time.Hour)
	if _, err := manager.Generate(&models.Staff{ID: "mallory", Role: models.RoleAdmin}); !errors.Is(err, ErrNoSecret) {
		t.Errorf("expected ErrNoSecret from Generate, got %v", err)
	}

	// A token signed with an empty HMAC key by someone else.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		StaffID: "mallory",
		Role:    models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte{})
	if err != nil {
		t.Fatalf("failed to sign forged token: %v", err)
	}

	claims, err := manager.Validate(token)
	if !errors.Is(err, ErrInvalidToken) || !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected empty-key token to be refused, got claims=%+v err=%v", claims, err)
	}
}
