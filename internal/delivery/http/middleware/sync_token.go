package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v3"
)

const HeaderSyncToken = "X-Sync-Token"

// SyncTokenMiddleware guards the trigger endpoints with a shared secret. An
// empty token disables the check.
type SyncTokenMiddleware struct {
	token string
}

func NewSyncTokenMiddleware(token string) *SyncTokenMiddleware {
	return &SyncTokenMiddleware{token: strings.TrimSpace(token)}
}

func (m *SyncTokenMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m == nil || m.token == "" {
			return c.Next()
		}
		got := strings.TrimSpace(c.Get(HeaderSyncToken))
		if got == "" {
			return NewAppError(fiber.StatusUnauthorized, "missing sync token", nil)
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(m.token)) != 1 {
			return NewAppError(fiber.StatusUnauthorized, "invalid sync token", nil)
		}
		return c.Next()
	}
}
