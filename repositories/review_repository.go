package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tourbook-api/models"
	"tourbook-api/utils"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Tour", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "slug", "image_cover") }).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "email", "photo") })
}

func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	if err := r.withRelations(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "No review found with that ID")
	}
	return &review, nil
}

// Exists reports whether userID already reviewed tourID.
func (r *ReviewRepository) Exists(ctx context.Context, tourID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("tour_id = ? AND user_id = ?", tourID, userID).
		Count(&count).Error
	return count > 0, err
}

// List returns reviews shaped by qf, restricted to tourID when set.
func (r *ReviewRepository) List(ctx context.Context, tourID string, qf *QueryFeatures) ([]models.Review, error) {
	var reviews []models.Review
	q := r.withRelations(ctx).Model(&models.Review{})
	if tourID != "" {
		q = q.Where("tour_id = ?", tourID)
	}
	if err := qf.Apply(q).Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ReviewRepository) ForUser(ctx context.Context, userID string) ([]models.Review, error) {
	var reviews []models.Review
	err := r.withRelations(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ReviewRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.Review, error) {
	result := r.db.WithContext(ctx).Model(&models.Review{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NotFound("No review found with that ID")
	}
	return r.FindByID(ctx, id)
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NotFound("No review found with that ID")
	}
	return nil
}

// RatingAggregate is the count and mean rating of a tour's reviews.
type RatingAggregate struct {
	Count   int
	Average float64
}

func (r *ReviewRepository) Aggregate(ctx context.Context, tourID string) (RatingAggregate, error) {
	var row struct {
		Count   int
		Average *float64
	}
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("COUNT(*) AS count, AVG(rating) AS average").
		Where("tour_id = ?", tourID).
		Scan(&row).Error
	if err != nil {
		return RatingAggregate{}, err
	}
	agg := RatingAggregate{Count: row.Count}
	if row.Average != nil {
		agg.Average = *row.Average
	}
	return agg, nil
}

// IsDuplicate reports whether err is a unique index violation on the
// one-review-per-pair index.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
