package middleware

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// StaffIDKey is the context key for storing the authenticated staff ID.
	StaffIDKey contextKey = "staff_id"
	// RoleKey is the context key for storing the authenticated staff role.
	RoleKey contextKey = "role"
)

// GetStaffID extracts the staff ID from the context.
// Returns empty string if not found.
func GetStaffID(ctx context.Context) string {
	staffID, _ := ctx.Value(StaffIDKey).(string)
	return staffID
}

// GetRole extracts the staff role from the context.
// Returns empty string if not found.
func GetRole(ctx context.Context) models.Role {
	role, _ := ctx.Value(RoleKey).(models.Role)
	return role
}

// WithStaff returns a context carrying the given staff identity.
func WithStaff(ctx context.Context, staffID string, role models.Role) context.Context {
	ctx = context.WithValue(ctx, StaffIDKey, staffID)
	return context.WithValue(ctx, RoleKey, role)
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// It extracts the token from the Authorization header, validates it, and adds
// the staff ID and role to the request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithStaff(ctx, claims.StaffID, claims.Role), req)
		}
	}
}

// OptionalAuth returns a middleware that validates JWT tokens if present, but allows
// requests without authentication. Orders placed anonymously simply carry no staff ID.
func OptionalAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if tokenString, ok := bearerToken(req.Header().Get("Authorization")); ok {
				// Validate token (ignore errors - optional auth)
				if claims, err := jwtManager.Validate(tokenString); err == nil {
					ctx = WithStaff(ctx, claims.StaffID, claims.Role)
				}
			}
			return next(ctx, req)
		}
	}
}

var errAdminOnly = errors.New("this operation requires an admin")

// RequireAdmin rejects calls whose identity is not an admin. It must run
// after RequireAuth or OptionalAuth.
func RequireAdmin(procedures ...string) connect.UnaryInterceptorFunc {
	guarded := make(map[string]bool, len(procedures))
	for _, p := range procedures {
		guarded[p] = true
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if guarded[req.Spec().Procedure] && GetRole(ctx) != models.RoleAdmin {
				return nil, connect.NewError(connect.CodePermissionDenied, errAdminOnly)
			}
			return next(ctx, req)
		}
	}
}
