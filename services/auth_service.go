package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tourbook-api/config"
	"tourbook-api/models"
	"tourbook-api/repositories"
	"tourbook-api/utils"
)

const (
	BcryptCost              = 12
	EmailConfirmTTL         = 3 * 24 * time.Hour
	PasswordResetTTL        = 10 * time.Minute
	LoggedOutCookie         = "loggedout"
	LoggedOutCookieTTL      = 10 * time.Second
	passwordChangedBackdate = time.Second
)

// Claims carries the user id; iat and exp come from the registered claims.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users     *repositories.UserRepository
	mailer    Mailer
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

func NewAuthService(users *repositories.UserRepository, mailer Mailer, cfg *config.Config) *AuthService {
	return &AuthService{
		users:     users,
		mailer:    mailer,
		secret:    []byte(cfg.JWTSecret),
		expiresIn: cfg.JWTExpiresIn,
		now:       time.Now,
	}
}

// SignToken issues a session token for userID.
func (s *AuthService) SignToken(userID string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *AuthService) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}

// ParseToken verifies signature and expiry.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, utils.InvalidOrExpiredToken()
	}
	return claims, nil
}

// Verify resolves a bearer token to its user, rejecting deleted accounts and
// tokens issued before the last password change.
func (s *AuthService) Verify(ctx context.Context, tokenString string) (*models.User, *Claims, error) {
	if tokenString == "" || tokenString == LoggedOutCookie {
		return nil, nil, utils.Unauthenticated("You are not logged in or your token is expired. Please log in again.")
	}
	claims, err := s.parse(tokenString)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, nil, utils.Unauthenticated("Your token has expired! Please log in again.")
	}
	if err != nil {
		return nil, nil, utils.Unauthenticated("Invalid token. Please log in again!")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, nil, utils.UserGone()
		}
		return nil, nil, err
	}

	var iat int64
	if claims.IssuedAt != nil {
		iat = claims.IssuedAt.Unix()
	}
	if user.ChangedPasswordAfter(iat) {
		return nil, nil, utils.StalePassword()
	}
	return user, claims, nil
}

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
	Role            string
}

// ValidateSignup checks the rules binding cannot: the email must be free and
// the role must not grant admin rights. Form shape is checked by the request.
func (s *AuthService) ValidateSignup(ctx context.Context, in SignupInput) ([]utils.FieldError, error) {
	var fields []utils.FieldError

	taken, err := s.users.EmailTaken(ctx, strings.ToLower(strings.TrimSpace(in.Email)), "")
	if err != nil {
		return nil, err
	}
	if taken {
		fields = append(fields, utils.FieldError{Field: "email", Message: "Email already exists."})
	}

	if in.Role != "" {
		role, err := models.ParseRole(in.Role)
		if err != nil || role == models.RoleAdmin {
			fields = append(fields, utils.FieldError{Field: "role", Message: "Role must be one of: user, guide, lead-guide."})
		}
	}

	return fields, nil
}

// Signup creates an unconfirmed account and mails the confirmation link.
// confirmBaseURL gets the raw token appended.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, confirmBaseURL string) (*models.User, error) {
	fields, err := s.ValidateSignup(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, utils.ValidationFields(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		return nil, utils.Internal(err, "Failed to hash password")
	}
	raw, hashed, err := utils.NewSecretToken()
	if err != nil {
		return nil, utils.Internal(err, "Failed to generate confirmation token")
	}

	role := models.RoleUser
	if in.Role != "" {
		role = models.Role(in.Role)
	}
	expires := s.now().Add(EmailConfirmTTL)
	user := &models.User{
		ID:                  uuid.NewString(),
		Name:                strings.TrimSpace(in.Name),
		Email:               strings.ToLower(strings.TrimSpace(in.Email)),
		Password:            string(hash),
		Role:                role,
		Photo:               models.DefaultPhoto,
		AccountActive:       true,
		EmailConfirmToken:   &hashed,
		EmailConfirmExpires: &expires,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.mailer.SendWelcome(user, confirmBaseURL+raw); err != nil {
		if clearErr := s.users.Update(ctx, user.ID, map[string]interface{}{
			"email_confirm_token":   nil,
			"email_confirm_expires": nil,
		}); clearErr != nil {
			return nil, clearErr
		}
		return nil, utils.Upstream(err, "There was an error sending the email. Try again later!")
	}
	return user, nil
}

// ConfirmEmail activates the account holding the raw token and signs it in.
func (s *AuthService) ConfirmEmail(ctx context.Context, rawToken string) (*models.User, string, error) {
	user, err := s.users.FindByConfirmToken(ctx, utils.HashToken(rawToken), s.now())
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, "", utils.InvalidOrExpiredToken()
		}
		return nil, "", err
	}

	now := s.now()
	err = s.users.Update(ctx, user.ID, map[string]interface{}{
		"confirmed_email":       true,
		"email_confirm_token":   nil,
		"email_confirm_expires": nil,
		"active":                true,
		"last_active_at":        now,
	})
	if err != nil {
		return nil, "", err
	}
	user.ConfirmedEmail = true
	user.Active = true
	user.LastActiveAt = &now

	token, err := s.SignToken(user.ID)
	return user, token, err
}

// Login checks credentials and email confirmation.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, "", utils.InvalidCredentials()
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, "", utils.InvalidCredentials()
	}

	if !user.ConfirmedEmail {
		if user.EmailConfirmExpires != nil && user.EmailConfirmExpires.After(s.now()) {
			return nil, "", utils.Unauthenticated("Please confirm your email address before logging in.")
		}
		return nil, "", utils.Unauthenticated("The user does no longer exist. Please sign up.")
	}

	now := s.now()
	if err := s.users.Update(ctx, user.ID, map[string]interface{}{"active": true, "last_active_at": now}); err != nil {
		return nil, "", err
	}
	user.Active = true
	user.LastActiveAt = &now

	token, err := s.SignToken(user.ID)
	return user, token, err
}

// Logout marks the token's user offline. An absent or already cleared
// cookie is not an error; a forged one is.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	if tokenString == "" || tokenString == LoggedOutCookie || tokenString == "undefined" {
		return nil
	}
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return err
	}
	err = s.users.Update(ctx, claims.UserID, map[string]interface{}{"active": false, "last_active_at": s.now()})
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return err
	}
	return nil
}

// ForgotPassword mails a reset link; resetBaseURL gets the raw token appended.
func (s *AuthService) ForgotPassword(ctx context.Context, email, resetBaseURL string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}

	raw, hashed, err := utils.NewSecretToken()
	if err != nil {
		return utils.Internal(err, "Failed to generate reset token")
	}
	expires := s.now().Add(PasswordResetTTL)
	err = s.users.Update(ctx, user.ID, map[string]interface{}{
		"password_reset_token":   hashed,
		"password_reset_expires": expires,
	})
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(user, resetBaseURL+raw); err != nil {
		if clearErr := s.users.Update(ctx, user.ID, map[string]interface{}{
			"password_reset_token":   nil,
			"password_reset_expires": nil,
		}); clearErr != nil {
			return clearErr
		}
		return utils.Upstream(err, "There was an error sending the email. Try again later!")
	}
	return nil
}

// setPassword stores a new hash with passwordChangedAt one second in the
// past so the token issued right after still verifies.
func (s *AuthService) setPassword(ctx context.Context, userID, password string, extra map[string]interface{}) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return utils.Internal(err, "Failed to hash password")
	}
	updates := map[string]interface{}{
		"password":            string(hash),
		"password_changed_at": s.now().Add(-passwordChangedBackdate),
	}
	for k, v := range extra {
		updates[k] = v
	}
	return s.users.Update(ctx, userID, updates)
}

// ResetPassword consumes a reset token and signs the user in.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, password string) (*models.User, string, error) {
	user, err := s.users.FindByResetToken(ctx, utils.HashToken(rawToken), s.now())
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, "", utils.InvalidOrExpiredToken()
		}
		return nil, "", err
	}

	err = s.setPassword(ctx, user.ID, password, map[string]interface{}{
		"password_reset_token":   nil,
		"password_reset_expires": nil,
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.SignToken(user.ID)
	return user, token, err
}

// UpdatePassword changes the password of a logged in user.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, password string) (*models.User, string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return nil, "", utils.Unauthenticated("Your current password is wrong.")
	}
	if password == current {
		return nil, "", utils.Validation("New password cannot be the same as current Password.")
	}
	if err := s.setPassword(ctx, user.ID, password, nil); err != nil {
		return nil, "", err
	}

	token, err := s.SignToken(user.ID)
	return user, token, err
}
