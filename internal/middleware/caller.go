package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CallerHeader carries the authenticated caller's ledger account code. The
// service trusts an upstream gateway to have authenticated it; policy modules
// never infer identity from ambient state.
const CallerHeader = "X-Caller-Account"

const callerLocalKey = "caller_account"

// Caller requires the caller account header on every request it guards and
// exposes it to handlers via locals.
func Caller() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := strings.TrimSpace(c.Get(CallerHeader))
		if caller == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing "+CallerHeader+" header")
		}
		c.Locals(callerLocalKey, caller)
		return c.Next()
	}
}

// CallerAccount returns the caller account code set by the Caller middleware.
func CallerAccount(c *fiber.Ctx) string {
	caller, _ := c.Locals(callerLocalKey).(string)
	return caller
}
