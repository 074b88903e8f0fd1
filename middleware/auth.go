package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"tourbook-api/models"
	"tourbook-api/services"
	"tourbook-api/utils"
)

const (
	// CookieName holds the session token for browser clients.
	CookieName = "jwt"

	currentUserKey = "currentUser"
	authErrorKey   = "authError"
)

// bearerToken returns the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func cookieToken(c *gin.Context) string {
	token, err := c.Cookie(CookieName)
	if err != nil || token == services.LoggedOutCookie || token == "undefined" {
		return ""
	}
	return token
}

// SessionToken prefers the Authorization header over the cookie.
func SessionToken(c *gin.Context) string {
	if token := bearerToken(c); token != "" {
		return token
	}
	return cookieToken(c)
}

// Authenticate resolves the session on every request without rejecting any.
// A verified user is stored on the context and marked online; a failure is
// kept so Protect can report it.
func Authenticate(auth *services.AuthService, presence *services.PresenceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, err := auth.Verify(c.Request.Context(), SessionToken(c))
		if err != nil {
			c.Set(authErrorKey, err)
			c.Next()
			return
		}

		SetCurrentUser(c, user)
		presence.Heartbeat(c.Request.Context(), user)
		c.Next()
	}
}

// Protect rejects requests without a verified session.
func Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}

		var err error = utils.Unauthenticated("You are not logged in! Please log in to get access.")
		if cause, ok := c.Get(authErrorKey); ok {
			err = cause.(error)
		}
		c.Error(err)
		c.Abort()
	}
}

// RestrictTo lets through only users holding one of roles. It must run
// after Protect.
func RestrictTo(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.Role.In(roles...) {
			c.Error(utils.Forbidden("You do not have permission to perform this action."))
			c.Abort()
			return
		}
		c.Next()
	}
}

func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(currentUserKey, user)
}

// CurrentUser is the verified user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}
