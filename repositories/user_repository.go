package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tourbook-api/models"
	"tourbook-api/utils"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Scopes(models.ActiveAccounts)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.active(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "No user found with that ID")
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.active(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, notFoundOr(err, "There is no user with email address.")
	}
	return &user, nil
}

// EmailTaken checks every account, deactivated ones included, since the
// unique index spans them all.
func (r *UserRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByResetToken matches a hashed reset token that has not expired.
func (r *UserRepository) FindByResetToken(ctx context.Context, hashed string, now time.Time) (*models.User, error) {
	var user models.User
	err := r.active(ctx).
		Where("password_reset_token = ? AND password_reset_expires > ?", hashed, now).
		First(&user).Error
	if err != nil {
		return nil, notFoundOr(err, "Token is invalid or has expired")
	}
	return &user, nil
}

// FindByConfirmToken matches a hashed email confirmation token that has not expired.
func (r *UserRepository) FindByConfirmToken(ctx context.Context, hashed string, now time.Time) (*models.User, error) {
	var user models.User
	err := r.active(ctx).
		Where("email_confirm_token = ? AND email_confirm_expires > ?", hashed, now).
		First(&user).Error
	if err != nil {
		return nil, notFoundOr(err, "Token is invalid or has expired")
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.active(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) List(ctx context.Context, qf *QueryFeatures) ([]models.User, error) {
	var users []models.User
	if err := qf.Apply(r.active(ctx).Model(&models.User{})).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Update writes columns on an active account. Pointer fields set to nil clear the column.
func (r *UserRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.active(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NotFound("No user found with that ID")
	}
	return nil
}

// Touch records presence without failing when the account vanished.
func (r *UserRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"active": true, "last_active_at": at}).Error
}

// Delete removes a user with their favorites. Bookings and reviews are kept
// for the tour history.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.FavoriteTour{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return utils.NotFound("No user found with that ID")
		}
		return nil
	})
}

// ClearExpiredTokens drops password reset tokens that can no longer be used.
func (r *UserRepository) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("password_reset_expires IS NOT NULL AND password_reset_expires <= ?", now).
		Updates(map[string]interface{}{"password_reset_token": nil, "password_reset_expires": nil})
	return result.RowsAffected, result.Error
}

// ToggleFavorite adds or removes tourID from the user's favorites and
// returns whether it is now a favorite along with the new count.
func (r *UserRepository) ToggleFavorite(ctx context.Context, userID, tourID string) (added bool, count int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND tour_id = ?", userID, tourID).Delete(&models.FavoriteTour{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if err := tx.Create(&models.FavoriteTour{UserID: userID, TourID: tourID}).Error; err != nil {
				return err
			}
			added = true
		}
		return tx.Model(&models.FavoriteTour{}).Where("user_id = ?", userID).Count(&count).Error
	})
	return added, count, err
}

// FavoriteTours returns the visible tours a user bookmarked.
func (r *UserRepository) FavoriteTours(ctx context.Context, userID string) ([]models.Tour, error) {
	var tours []models.Tour
	err := r.db.WithContext(ctx).
		Scopes(models.VisibleTours).
		Joins("JOIN favorite_tours ON favorite_tours.tour_id = tours.id").
		Where("favorite_tours.user_id = ?", userID).
		Order("favorite_tours.created_at ASC").
		Find(&tours).Error
	if err != nil {
		return nil, err
	}
	return tours, nil
}

func (r *UserRepository) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.FavoriteTour{}).
		Where("user_id = ?", userID).
		Pluck("tour_id", &ids).Error
	return ids, err
}
