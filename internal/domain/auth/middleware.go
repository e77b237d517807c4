package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Lernia/authgate/internal/domain/cookie"
	"github.com/Lernia/authgate/internal/utils"
)

const (
	// IdentityKey is the key used to store the identity in Fiber context
	IdentityKey = "identity"
)

// RequireAuth validates the auth cookie on each request. Unauthenticated
// requests get the same treatment no matter which check failed: the cookie
// is cleared and the client is sent to the login location (or a 401 for
// JSON clients). When validation rotated the credential, the replacement
// cookie is set on the response before the next handler runs.
func RequireAuth(manager *cookie.Manager, loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(manager.CookieName())

		result, err := manager.Validate(c.UserContext(), raw, clientFromCtx(c))
		if err != nil {
			clearAuthCookie(c, manager.CookieName())
			if wantsJSON(c) {
				return utils.ErrorResponse(c, utils.ErrUnauthorized)
			}
			return c.Redirect(loginPath, fiber.StatusFound)
		}

		if result.Rotated != nil {
			setAuthCookie(c, result.Rotated)
		}

		c.Locals(IdentityKey, &result.Identity)
		return c.Next()
	}
}

// GetIdentity extracts the identity from Fiber context
func GetIdentity(c *fiber.Ctx) *cookie.Identity {
	identity, ok := c.Locals(IdentityKey).(*cookie.Identity)
	if !ok {
		return nil
	}
	return identity
}

func wantsJSON(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON)
}
