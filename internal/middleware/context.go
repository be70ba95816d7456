package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestContext gives every request a user context derived from parent and
// bounded by timeout. Handlers pass c.UserContext() to services, so an
// expired deadline aborts work that has not committed yet.
func RequestContext(parent context.Context, timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(parent, timeout)
		} else {
			ctx, cancel = context.WithCancel(parent)
		}
		defer cancel()

		c.SetUserContext(ctx)
		return c.Next()
	}
}
