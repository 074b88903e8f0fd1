package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"tourbook-api/config"
	"tourbook-api/middleware"
	"tourbook-api/models"
	"tourbook-api/services"
	"tourbook-api/utils"
)

// fieldMessager is implemented by requests whose binding failures are
// reported per form field.
type fieldMessager interface {
	fieldMessages() map[string]utils.FieldError
}

// bindJSON decodes the body into dst and runs its binding rules. An empty body
// leaves dst untouched but is still validated. On failure the error is queued
// for ErrorHandler and false is returned.
func bindJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(dst)
	}
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.Error(utils.Validation("Request body is too large."))
		return false
	}
	if m, ok := dst.(fieldMessager); ok {
		if fields, ok := utils.BindingFieldErrors(err, m.fieldMessages()); ok {
			c.Error(utils.ValidationFields(fields))
			return false
		}
	}
	c.Error(utils.Validation("Invalid input data: %v", err))
	return false
}

// baseURL is scheme://host of the current request.
func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// sessionCookies writes the jwt cookie the way browsers expect it.
type sessionCookies struct {
	days   int
	secure bool
}

func newSessionCookies(cfg *config.Config) sessionCookies {
	return sessionCookies{days: cfg.JWTCookieExpiresIn, secure: cfg.IsProduction()}
}

func (s sessionCookies) set(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(s.days) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   s.secure,
	})
}

func (s sessionCookies) clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    services.LoggedOutCookie,
		Path:     "/",
		Expires:  time.Now().Add(services.LoggedOutCookieTTL),
		HttpOnly: true,
	})
}

// sendToken sets the cookie and answers with {status, token, data: {user}}.
func (s sessionCookies) sendToken(c *gin.Context, status int, user *models.User, token string) {
	s.set(c, token)
	c.JSON(status, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": user},
	})
}
