package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tourbook-api/config"
	"tourbook-api/database"
	"tourbook-api/models"
	"tourbook-api/repositories"
	"tourbook-api/services"
	"tourbook-api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authFixture struct {
	db       *gorm.DB
	auth     *services.AuthService
	presence *services.PresenceService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	users := repositories.NewUserRepository(db)
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiresIn: time.Hour}
	return &authFixture{
		db:       db,
		auth:     services.NewAuthService(users, nil, cfg),
		presence: services.NewPresenceService(users),
	}
}

func (f *authFixture) user(t *testing.T, role models.Role) (*models.User, string) {
	t.Helper()
	user := &models.User{
		ID:             uuid.NewString(),
		Name:           "Laura Wilson",
		Email:          uuid.NewString() + "@example.com",
		Password:       "unused",
		Role:           role,
		AccountActive:  true,
		ConfirmedEmail: true,
	}
	require.NoError(t, f.db.Create(user).Error)
	token, err := f.auth.SignToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func (f *authFixture) router(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(false), Authenticate(f.auth, f.presence))
	chain := append(handlers, func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusOK, gin.H{"user": ""})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user.ID})
	})
	r.GET("/resource", chain...)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestProtect_BearerHeaderAndCookie(t *testing.T) {
	f := newAuthFixture(t)
	user, token := f.user(t, models.RoleUser)
	r := f.router(Protect())

	// GIVEN: a bearer token
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// THEN
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID, decode(t, w)["user"])

	// AND: the same token in the cookie works too
	req = httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// AND: the heartbeat marked the user online
	var stored models.User
	require.NoError(t, f.db.First(&stored, "id = ?", user.ID).Error)
	assert.True(t, stored.Active)
}

func TestProtect_RejectsMissingAndInvalidTokens(t *testing.T) {
	f := newAuthFixture(t)
	r := f.router(Protect())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "fail", decode(t, w)["status"])

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token. Please log in again!", decode(t, w)["message"])

	// a logged out cookie counts as no session
	req = httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: services.LoggedOutCookie})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_AnonymousPassesThrough(t *testing.T) {
	f := newAuthFixture(t)
	r := f.router()

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "undefined"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decode(t, w)["user"])
}

func TestRestrictTo(t *testing.T) {
	f := newAuthFixture(t)
	_, userToken := f.user(t, models.RoleUser)
	_, adminToken := f.user(t, models.RoleAdmin)
	r := f.router(Protect(), RestrictTo(models.RoleAdmin, models.RoleLeadGuide))

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"regular user is forbidden", userToken, http.StatusForbidden},
		{"admin passes", adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/resource", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, "You do not have permission to perform this action.", decode(t, w)["message"])
			}
		})
	}
}

func TestErrorHandler_MasksUnexpectedErrorsInProduction(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(true))
	r.GET("/boom", func(c *gin.Context) {
		c.Error(errors.New("connection reset by peer"))
	})
	r.GET("/fields", func(c *gin.Context) {
		c.Error(utils.ValidationFields([]utils.FieldError{{Field: "name", Message: "Name is required."}}))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Something went very wrong!", body["message"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fields", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"name"`)
}

func TestErrorHandler_ViewRedirectsToLogin(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(false), MarkView())
	r.GET("/profile", Protect(), func(c *gin.Context) {})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profile", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	limiter := NewRateLimiter(2, time.Hour)
	r := gin.New()
	r.GET("/api", limiter.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, rateLimitMessage, decode(t, w)["message"])
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestValidateJSON(t *testing.T) {
	r := gin.New()
	r.Use(ValidateJSON("/updateProfile"))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.POST("/api/v1/tours", ok)
	r.PATCH("/api/v1/users/updateProfile", ok)

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		status      int
	}{
		{"json body", http.MethodPost, "/api/v1/tours", `{"name":"x"}`, "application/json", http.StatusOK},
		{"form body", http.MethodPost, "/api/v1/tours", "name=x", "application/x-www-form-urlencoded", http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/v1/tours", "", "", http.StatusOK},
		{"multipart upload is exempt", http.MethodPatch, "/api/v1/users/updateProfile", "--x--", "multipart/form-data; boundary=x", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "https://js.stripe.com")
}
