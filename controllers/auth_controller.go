// File: /controllers/auth_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tourbook-api/config"
	"tourbook-api/middleware"
	"tourbook-api/services"
	"tourbook-api/utils"
)

type AuthController struct {
	auth    *services.AuthService
	cookies sessionCookies
}

func NewAuthController(auth *services.AuthService, cfg *config.Config) *AuthController {
	return &AuthController{auth: auth, cookies: newSessionCookies(cfg)}
}

const strongPasswordMessage = "Password must be strong. Please include at least 8 characters, one uppercase, one lowercase, one number, and one special character."

type SignupRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,strongpassword"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
	Role            string `json:"role" binding:"omitempty,oneof=user guide lead-guide"`
}

func (SignupRequest) fieldMessages() map[string]utils.FieldError {
	return map[string]utils.FieldError{
		"Name":                     {Field: "name", Message: "Name is required."},
		"Email.required":           {Field: "email", Message: "Email is required."},
		"Email":                    {Field: "email", Message: "Please provide a valid email."},
		"Password.required":        {Field: "password", Message: "Password is required."},
		"Password":                 {Field: "password", Message: strongPasswordMessage},
		"PasswordConfirm.required": {Field: "password-confirm", Message: "Password confirmation is required."},
		"PasswordConfirm":          {Field: "password-confirm", Message: "Passwords do not match."},
		"Role":                     {Field: "role", Message: "Role must be one of: user, guide, lead-guide."},
	}
}

func (r SignupRequest) input() services.SignupInput {
	return services.SignupInput{
		Name:            r.Name,
		Email:           r.Email,
		Password:        r.Password,
		PasswordConfirm: r.PasswordConfirm,
		Role:            r.Role,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (LoginRequest) fieldMessages() map[string]utils.FieldError {
	return map[string]utils.FieldError{
		"Email":    {Field: "email", Message: "Please provide email and password!"},
		"Password": {Field: "password", Message: "Please provide email and password!"},
	}
}

// NewPasswordRequest is the body of a password reset.
type NewPasswordRequest struct {
	Password        string `json:"password" binding:"required,strongpassword"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

func (NewPasswordRequest) fieldMessages() map[string]utils.FieldError {
	return map[string]utils.FieldError{
		"Password.required":        {Field: "password", Message: "Password is required."},
		"Password":                 {Field: "password", Message: strongPasswordMessage},
		"PasswordConfirm.required": {Field: "password-confirm", Message: "Password confirmation is required."},
		"PasswordConfirm":          {Field: "password-confirm", Message: "Confirm Password does not match password"},
	}
}

// PasswordRequest is the body of a password change by a signed-in user.
type PasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	NewPasswordRequest
}

func (r PasswordRequest) fieldMessages() map[string]utils.FieldError {
	messages := r.NewPasswordRequest.fieldMessages()
	messages["PasswordCurrent"] = utils.FieldError{Field: "password-current", Message: "Your current password is required."}
	return messages
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (forgotPasswordRequest) fieldMessages() map[string]utils.FieldError {
	return map[string]utils.FieldError{
		"Email": {Field: "email", Message: "Please provide a valid email."},
	}
}

func (ac *AuthController) Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := ac.auth.Signup(c.Request.Context(), req.input(), baseURL(c)+"/confirm-email/"); err != nil {
		c.Error(err)
		return
	}

	utils.SendMessage(c, http.StatusOK, "Please check your email to confirm your email address.")
}

// ConfirmEmail is the link from the welcome mail; it signs the user in and
// lands on the overview page.
func (ac *AuthController) ConfirmEmail(c *gin.Context) {
	_, token, err := ac.auth.ConfirmEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.Error(err)
		return
	}

	ac.cookies.set(c, token)
	c.Redirect(http.StatusFound, "/")
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, token, err := ac.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	ac.cookies.sendToken(c, http.StatusOK, user, token)
}

func (ac *AuthController) Logout(c *gin.Context) {
	token, _ := c.Cookie(middleware.CookieName)
	if err := ac.auth.Logout(c.Request.Context(), token); err != nil {
		c.Error(err)
		return
	}

	ac.cookies.clear(c)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	err := ac.auth.ForgotPassword(c.Request.Context(), req.Email, baseURL(c)+"/api/v1/users/resetPassword/")
	if err != nil {
		c.Error(err)
		return
	}

	utils.SendMessage(c, http.StatusOK, "Token sent to email!")
}

func (ac *AuthController) ResetPassword(c *gin.Context) {
	var req NewPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	user, token, err := ac.auth.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	ac.cookies.sendToken(c, http.StatusOK, user, token)
}

func (ac *AuthController) UpdatePassword(c *gin.Context) {
	var req PasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	current := middleware.CurrentUser(c)
	user, token, err := ac.auth.UpdatePassword(c.Request.Context(), current.ID, req.PasswordCurrent, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	ac.cookies.sendToken(c, http.StatusOK, user, token)
}
