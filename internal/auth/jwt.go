// Package auth validates the signed staff tokens terminals present.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/tableside/internal/models"
)

const issuer = "tableside"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
	// ErrNoSecret is returned by a manager built without a signing key.
	// Such a manager neither issues nor accepts tokens.
	ErrNoSecret = errors.New("no signing secret configured")
)

// JWTManager handles JWT token generation and validation.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// Claims represents the custom JWT claims for a staff session.
type Claims struct {
	StaffID string      `json:"staff_id"`
	Name    string      `json:"name,omitempty"`
	Role    models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Staff returns the identity carried by the claims.
func (c *Claims) Staff() models.Staff {
	return models.Staff{ID: c.StaffID, Name: c.Name, Role: c.Role}
}

// NewJWTManager creates a new JWT manager with the given secret and token duration.
// secretKey should be a strong random string (e.g., 32 bytes).
// tokenDuration is how long tokens remain valid (e.g., one shift).
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// Generate creates a new JWT token for the given staff member.
func (m *JWTManager) Generate(staff *models.Staff) (string, error) {
	if len(m.secretKey) == 0 {
		return "", ErrNoSecret
	}
	if staff.ID == "" {
		return "", errors.New("staff ID is required")
	}
	role := staff.Role
	if role == "" {
		role = models.RoleStaff
	}

	now := m.now()
	claims := &Claims{
		StaffID: staff.ID,
		Name:    staff.Name,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   staff.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate parses and validates a JWT token, returning the claims if valid.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	if len(m.secretKey) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrNoSecret)
	}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.StaffID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
