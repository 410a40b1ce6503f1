package globals

import (
	"context"
	"os"
)

var JwtSecret = []byte(EnvOr("JWT_SECRET", "change_me_in_production"))

// Context keys
type ContextKey string

const UserIDKey ContextKey = "userId"
const RoleKey ContextKey = "role"

// Account roles. NORMAL customers shop; CS and ADMIN manage the catalog;
// ADMIN alone manages accounts.
const (
	RoleAdmin  = "ADMIN"
	RoleCS     = "CS"
	RoleNormal = "NORMAL"
)

var Ctx = context.Background()

func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
