// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/runwiththewinners/bounties/models"
	"github.com/runwiththewinners/bounties/services"
	"go.uber.org/zap"
)

const memberLocalsKey = "member"

// UserContextMiddleware reads the member identity the gateway forwards in
// X-User-* headers. Requests without X-User-ID are rejected.
func UserContextMiddleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Warn("X-User-ID missing", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID: request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
				roles = append(roles, r)
			}
		}

		member := services.Member{
			ID:       userID,
			Name:     strings.TrimSpace(c.Get("X-User-Name")),
			Initials: strings.TrimSpace(c.Get("X-User-Initials")),
			Roles:    roles,
		}
		if tier := models.UserTier(strings.ToLower(strings.TrimSpace(c.Get("X-User-Tier")))); tier.Valid() {
			member.Tier = &tier
		}
		if member.Initials == "" {
			member.Initials = initialsOf(member.Name)
		}

		c.Locals(memberLocalsKey, member)
		return c.Next()
	}
}

// RequireAdmin only lets members with the admin role through.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		member, ok := CurrentMember(c)
		if !ok || !member.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin access required"})
		}
		return c.Next()
	}
}

func CurrentMember(c *fiber.Ctx) (services.Member, bool) {
	member, ok := c.Locals(memberLocalsKey).(services.Member)
	return member, ok
}

func initialsOf(name string) string {
	var initials []rune
	for _, part := range strings.Fields(name) {
		initials = append(initials, []rune(part)[0])
		if len(initials) == 2 {
			break
		}
	}
	return strings.ToUpper(string(initials))
}
