package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tourbook-api/models"
	"tourbook-api/utils"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) WithTx(tx *gorm.DB) *BookingRepository {
	return &BookingRepository{db: tx}
}

// BookingFilter narrows listings to a user, a tour or both.
type BookingFilter struct {
	UserID string
	TourID string
}

func (f BookingFilter) apply(db *gorm.DB) *gorm.DB {
	if f.UserID != "" {
		db = db.Where("user_id = ?", f.UserID)
	}
	if f.TourID != "" {
		db = db.Where("tour_id = ?", f.TourID)
	}
	return db
}

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Tour").
		Preload("User").
		First(&booking, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "No booking found with that ID")
	}
	return &booking, nil
}

func (r *BookingRepository) List(ctx context.Context, filter BookingFilter, qf *QueryFeatures) ([]models.Booking, error) {
	var bookings []models.Booking
	q := filter.apply(r.db.WithContext(ctx).Model(&models.Booking{}))
	err := qf.Apply(q).Preload("Tour").Preload("User").Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// ForUser returns a user's bookings oldest first, tours loaded.
func (r *BookingRepository) ForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Tour").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// Earliest returns the pair's booking with the smallest tour date, or nil.
func (r *BookingRepository) Earliest(ctx context.Context, tourID, userID string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Tour").
		Where("tour_id = ? AND user_id = ?", tourID, userID).
		Order("tour_date ASC").
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.Booking, error) {
	result := r.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NotFound("No booking found with that ID")
	}
	return r.FindByID(ctx, id)
}

func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Booking{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NotFound("No booking found with that ID")
	}
	return nil
}
