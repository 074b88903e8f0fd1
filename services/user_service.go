package services

import (
	"context"
	"net/url"
	"strings"

	"tourbook-api/models"
	"tourbook-api/repositories"
	"tourbook-api/utils"
)

type UserService struct {
	users *repositories.UserRepository
	tours *repositories.TourRepository
}

func NewUserService(users *repositories.UserRepository, tours *repositories.TourRepository) *UserService {
	return &UserService{users: users, tours: tours}
}

func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

// ProfileUpdate carries the self-service profile fields. Photo is the stored
// file name of an uploaded picture, if any.
type ProfileUpdate struct {
	Name            *string `json:"name" form:"name"`
	Email           *string `json:"email" form:"email"`
	Password        string  `json:"password" form:"password"`
	PasswordConfirm string  `json:"passwordConfirm" form:"passwordConfirm"`
	Photo           string  `json:"-" form:"-"`
}

// UpdateProfile changes name, email and photo only.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	if in.Password != "" || in.PasswordConfirm != "" {
		return nil, utils.Validation("This route is not for password updates. Please use /updatePassword.")
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, utils.Validation("Please tell us your name!")
		}
		updates["name"] = name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !utils.IsValidEmail(email) {
			return nil, utils.Validation("Please provide a valid email")
		}
		taken, err := s.users.EmailTaken(ctx, email, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, utils.Conflict("Email Already exists!")
		}
		updates["email"] = email
	}
	if in.Photo != "" {
		updates["photo"] = in.Photo
	}

	if len(updates) > 0 {
		if err := s.users.Update(ctx, userID, updates); err != nil {
			return nil, err
		}
	}
	return s.users.FindByID(ctx, userID)
}

// DeleteMyAccount deactivates the account; the row stays for booking history.
func (s *UserService) DeleteMyAccount(ctx context.Context, userID string) error {
	return s.users.Update(ctx, userID, map[string]interface{}{
		"account_active": false,
		"active":         false,
	})
}

// FavoriteResult reports the outcome of a favorite toggle.
type FavoriteResult struct {
	Action        string `json:"action"`
	FavoriteCount int64  `json:"favoriteCount"`
}

func (s *UserService) ToggleFavorite(ctx context.Context, userID, tourID string) (*FavoriteResult, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, utils.NotFound("User not found.")
	}
	if _, err := s.tours.FindByID(ctx, tourID); err != nil {
		return nil, utils.NotFound("Tour not found.")
	}

	added, count, err := s.users.ToggleFavorite(ctx, userID, tourID)
	if err != nil {
		return nil, err
	}
	action := "removed"
	if added {
		action = "added"
	}
	return &FavoriteResult{Action: action, FavoriteCount: count}, nil
}

func (s *UserService) FavoriteTours(ctx context.Context, userID string) ([]models.Tour, error) {
	return s.users.FavoriteTours(ctx, userID)
}

func (s *UserService) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	return s.users.FavoriteIDs(ctx, userID)
}

// CheckEmail reports whether any account, deactivated or not, holds email.
func (s *UserService) CheckEmail(ctx context.Context, email string) (bool, error) {
	return s.users.EmailTaken(ctx, strings.ToLower(strings.TrimSpace(email)), "")
}

func (s *UserService) List(ctx context.Context, values url.Values) ([]models.User, error) {
	return s.users.List(ctx, repositories.NewQueryFeatures(values, repositories.UserFields))
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

// UserUpdate is the administrator's edit. Passwords are changed elsewhere.
type UserUpdate struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Role   *string `json:"role"`
	Photo  *string `json:"photo"`
	Active *bool   `json:"active"`
}

func (s *UserService) Update(ctx context.Context, id string, in UserUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, utils.Validation("Please tell us your name!")
		}
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !utils.IsValidEmail(email) {
			return nil, utils.Validation("Please provide a valid email")
		}
		taken, err := s.users.EmailTaken(ctx, email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, utils.Conflict("Email Already exists!")
		}
		updates["email"] = email
	}
	if in.Role != nil {
		role, err := models.ParseRole(*in.Role)
		if err != nil {
			return nil, utils.Validation("Role must be one of: user, guide, lead-guide, admin.")
		}
		updates["role"] = role
	}
	if in.Photo != nil {
		updates["photo"] = *in.Photo
	}
	if in.Active != nil {
		updates["active"] = *in.Active
	}

	if len(updates) > 0 {
		if err := s.users.Update(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.users.FindByID(ctx, id)
}

// Delete removes the account and its favorites for good.
func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}
