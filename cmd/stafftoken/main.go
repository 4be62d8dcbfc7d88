// Command stafftoken issues a signed staff token for a terminal.
//
//	JWT_SECRET=... stafftoken -id staff-7 -name Ravi -role admin
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/internal/config"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/pkg/logging"
)

func main() {
	logging.Setup()

	id := flag.String("id", "", "staff ID (required)")
	name := flag.String("name", "", "display name")
	role := flag.String("role", string(models.RoleStaff), "role: staff or admin")
	ttl := flag.Duration("ttl", 0, "token lifetime (default TOKEN_TTL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	token, err := issue(cfg, *id, *name, models.Role(*role), *ttl)
	if err != nil {
		slog.Error("Failed to issue token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func issue(cfg *config.Config, id, name string, role models.Role, ttl time.Duration) (string, error) {
	if id == "" {
		return "", fmt.Errorf("staff ID is required")
	}
	if role != models.RoleStaff && role != models.RoleAdmin {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("JWT_SECRET is not set")
	}
	if ttl <= 0 {
		ttl = cfg.TokenTTL
	}
	return auth.NewJWTManager(cfg.JWTSecret, ttl).Generate(&models.Staff{ID: id, Name: name, Role: role})
}
