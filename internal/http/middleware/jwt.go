package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"backend-queueflex/internal/auth"
	"backend-queueflex/internal/models"
)

const callerKey = "caller"

// Authenticate resolves the bearer token through the verifier and stores
// the caller in c.Locals.
func Authenticate(verifier auth.Verifier) fiber.Handler {
	return authenticate(verifier, bearerToken)
}

// AuthenticateWebsocket is Authenticate for upgrade requests. Browsers cannot
// set headers on a websocket handshake, so the token may also be passed as
// the "token" query parameter.
func AuthenticateWebsocket(verifier auth.Verifier) fiber.Handler {
	return authenticate(verifier, func(c *fiber.Ctx) (string, error) {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return bearerToken(c)
	})
}

func bearerToken(c *fiber.Ctx) (string, error) {
	return auth.ExtractBearer(c.Get(fiber.HeaderAuthorization))
}

func authenticate(verifier auth.Verifier, tokenOf func(*fiber.Ctx) (string, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := tokenOf(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}

		res := verifier.Verify(c.UserContext(), token)
		switch res.Outcome {
		case auth.Valid:
		case auth.Unavailable:
			log.Warn().Err(res.Err).Str("path", c.Path()).Msg("auth oracle unavailable")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"error":   "authentication service unavailable",
			})
		default:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "invalid or expired token",
			})
		}

		c.Locals(callerKey, models.Caller{
			SubjectID: res.Identity.SubjectID,
			Operator:  res.Identity.Operator,
		})
		return c.Next()
	}
}

// RequireOperator must run after Authenticate.
func RequireOperator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CallerFrom(c).Operator {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "operator access required",
			})
		}
		return c.Next()
	}
}

// CallerFrom returns the caller set by Authenticate, or the zero Caller.
func CallerFrom(c *fiber.Ctx) models.Caller {
	caller, _ := c.Locals(callerKey).(models.Caller)
	return caller
}
