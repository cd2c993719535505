package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"library_auth/internal/models"
	"library_auth/internal/service"
)

// ctxUserKey is where AuthMiddleware stores the authenticated identity
// for the rest of the request.
const ctxUserKey = "authUser"

// Messages returned to unauthenticated or forbidden requests. Token
// failures share one message on purpose: the response must not tell an
// attacker whether a token was malformed, expired, or badly signed.
const (
	msgNotLoggedIn     = "You are not logged in! Please log in to get access."
	msgInvalidToken    = "Invalid token or session expired. Please log in again."
	msgUserGone        = "The user belonging to this token no longer exists."
	msgPasswordChanged = "User recently changed password! Please log in again."
	msgForbidden       = "You do not have permission to perform this action"
)

// AuthMiddleware gates protected routes. The token comes from the
// Authorization header or, failing that, the jwt cookie. Verification
// re-checks live state: the subject must still exist and must not have
// changed their password after the token was issued.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "handler.AuthMiddleware"

		log := h.log.With(slog.String("op", op))

		rawToken := extractToken(c)
		if rawToken == "" {
			newFailResponse(c, http.StatusUnauthorized, msgNotLoggedIn)

			return
		}

		user, err := h.serviceLayer.Authenticate(c.Request.Context(), rawToken)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUserGone):
				log.Debug("token subject no longer exists")

				newFailResponse(c, http.StatusUnauthorized, msgUserGone)
			case errors.Is(err, service.ErrSessionSuperseded):
				log.Debug("token predates password change")

				newFailResponse(c, http.StatusUnauthorized, msgPasswordChanged)
			case isTokenError(err):
				// The precise cause is for the log only.
				log.Debug("token rejected", slog.Any("error", err))

				newFailResponse(c, http.StatusUnauthorized, msgInvalidToken)
			default:
				log.Error("authentication failed", slog.Any("error", err))

				newErrorResponse(c, http.StatusInternalServerError, "An internal error occurred")
			}

			return
		}

		c.Set(ctxUserKey, user)

		c.Next()
	}
}

// RequireRoles rejects authenticated requests whose role is not in the
// allow-list. It composes after AuthMiddleware and never runs without
// an identity in the context.
func (h *Handler) RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			newFailResponse(c, http.StatusUnauthorized, msgNotLoggedIn)

			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()

				return
			}
		}

		newFailResponse(c, http.StatusForbidden, msgForbidden)
	}
}

// CurrentUser returns the identity attached by AuthMiddleware.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(ctxUserKey)
	if !ok {
		return models.User{}, false
	}

	user, ok := value.(models.User)

	return user, ok
}

// extractToken pulls the bearer token from the Authorization header or
// the jwt cookie. An empty string means neither was present.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	cookie, err := c.Cookie(jwtCookieName)
	if err != nil {
		return ""
	}

	return cookie
}

func isTokenError(err error) bool {
	return errors.Is(err, service.ErrTokenExpired) ||
		errors.Is(err, service.ErrTokenMalformed) ||
		errors.Is(err, service.ErrTokenInvalid)
}
