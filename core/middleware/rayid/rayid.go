// Package rayid assigns a unique request identifier to every incoming request.
package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderName is the response header carrying the request identifier.
const HeaderName = "X-Ray-Id"

// LocalsKey is the Fiber locals key where the identifier is stored.
const LocalsKey = "ray_id"

// New returns a middleware that generates a RayID for each request.
// An incoming X-Ray-Id header is honored so upstream proxies can
// propagate their own identifiers.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(HeaderName)
		if rid == "" {
			rid = uuid.NewString()
		}

		c.Locals(LocalsKey, rid)
		c.Set(HeaderName, rid)

		return c.Next()
	}
}
