package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/services"
	"github.com/sirupsen/logrus"
)

// Locals keys set by the auth middleware and read by the guard and handlers.
const (
	LocalIdentity = "identity"
	LocalToken    = "token"
)

// AuthMiddleware resolves the bearer token into a platform identity. It never
// rejects a request itself: requests without a resolvable identity continue
// with empty locals and the guard decides what that means for the route.
type AuthMiddleware struct {
	Resolver services.AuthResolver
}

func NewAuthMiddleware(resolver services.AuthResolver) *AuthMiddleware {
	return &AuthMiddleware{Resolver: resolver}
}

func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return c.Next()
	}
	token := strings.TrimPrefix(header, "Bearer ")

	identity, err := m.Resolver.ResolveIdentity(c.Context(), token)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "AuthMiddleware",
			"cause":     err,
		}).Warn("Failed to resolve identity, continuing unauthenticated")
		return c.Next()
	}

	c.Locals(LocalIdentity, identity)
	c.Locals(LocalToken, token)
	return c.Next()
}

// identityFromContext returns the resolved identity and token, or nil when
// the request is unauthenticated.
func identityFromContext(c *fiber.Ctx) (*models.Identity, string) {
	identity, _ := c.Locals(LocalIdentity).(*models.Identity)
	token, _ := c.Locals(LocalToken).(string)
	return identity, token
}
