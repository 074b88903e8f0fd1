package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tourbook-api/models"
	"tourbook-api/utils"
)

type TourRepository struct {
	db *gorm.DB
}

func NewTourRepository(db *gorm.DB) *TourRepository {
	return &TourRepository{db: db}
}

// WithTx binds the repository to a running transaction.
func (r *TourRepository) WithTx(tx *gorm.DB) *TourRepository {
	return &TourRepository{db: tx}
}

func (r *TourRepository) visible(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Scopes(models.VisibleTours)
}

// FindByID returns a visible tour.
func (r *TourRepository) FindByID(ctx context.Context, id string) (*models.Tour, error) {
	var tour models.Tour
	if err := r.visible(ctx).First(&tour, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "No tour found with that ID")
	}
	return &tour, nil
}

// FindByIDWithReviews also loads the tour's reviews and their authors.
func (r *TourRepository) FindByIDWithReviews(ctx context.Context, id string) (*models.Tour, error) {
	var tour models.Tour
	err := r.visible(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Reviews.User").
		First(&tour, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "No tour found with that ID")
	}
	return &tour, nil
}

// FindBySlug returns a visible tour with its reviews and their authors loaded.
func (r *TourRepository) FindBySlug(ctx context.Context, slug string) (*models.Tour, error) {
	var tour models.Tour
	err := r.visible(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Reviews.User").
		First(&tour, "slug = ?", slug).Error
	if err != nil {
		return nil, notFoundOr(err, "There is no tour with that name.")
	}
	return &tour, nil
}

// List applies the query features to visible tours.
func (r *TourRepository) List(ctx context.Context, qf *QueryFeatures) ([]models.Tour, error) {
	var tours []models.Tour
	if err := qf.Apply(r.visible(ctx).Model(&models.Tour{})).Find(&tours).Error; err != nil {
		return nil, err
	}
	return tours, nil
}

// All returns every visible tour in creation order.
func (r *TourRepository) All(ctx context.Context) ([]models.Tour, error) {
	var tours []models.Tour
	if err := r.visible(ctx).Order("created_at ASC").Find(&tours).Error; err != nil {
		return nil, err
	}
	return tours, nil
}

// FindByIDs returns the visible tours among ids.
func (r *TourRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Tour, error) {
	var tours []models.Tour
	if len(ids) == 0 {
		return tours, nil
	}
	if err := r.visible(ctx).Where("id IN ?", ids).Find(&tours).Error; err != nil {
		return nil, err
	}
	return tours, nil
}

// NameTaken reports whether another tour already uses name.
func (r *TourRepository) NameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Tour{}).Where("name = ?", name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *TourRepository) Create(ctx context.Context, tour *models.Tour) error {
	return r.db.WithContext(ctx).Create(tour).Error
}

// Update writes the given columns and reloads the tour.
func (r *TourRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.Tour, error) {
	result := r.visible(ctx).Model(&models.Tour{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NotFound("No tour found with that ID")
	}
	return r.FindByID(ctx, id)
}

// SaveLedger persists the start dates and guide roster of a tour loaded at
// tour.Version. A concurrent writer makes the update miss and yields a Conflict.
func (r *TourRepository) SaveLedger(ctx context.Context, tour *models.Tour) error {
	result := r.db.WithContext(ctx).Model(&models.Tour{}).
		Where("id = ? AND version = ?", tour.ID, tour.Version).
		Updates(map[string]interface{}{
			"start_dates": tour.StartDates,
			"guides":      tour.Guides,
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.Conflict("This tour was booked by someone else at the same time. Please try again.")
	}
	tour.Version++
	return nil
}

// UpdateRatings stores the aggregated review statistics.
func (r *TourRepository) UpdateRatings(ctx context.Context, tourID string, average float64, quantity int) error {
	return r.db.WithContext(ctx).Model(&models.Tour{}).
		Where("id = ?", tourID).
		Updates(map[string]interface{}{
			"ratings_average":  average,
			"ratings_quantity": quantity,
		}).Error
}

// Delete removes a tour with its bookings, reviews and favorites.
func (r *TourRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tour models.Tour
		if err := tx.Scopes(models.VisibleTours).Select("id").First(&tour, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "No tour found with that ID")
		}
		if err := tx.Where("tour_id = ?", id).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tour_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tour_id = ?", id).Delete(&models.FavoriteTour{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tour{}, "id = ?", id).Error
	})
}

// DifficultyStats is one group of the tour statistics report.
type DifficultyStats struct {
	Difficulty string  `json:"_id"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// Stats groups well rated tours by difficulty, cheapest group first.
func (r *TourRepository) Stats(ctx context.Context, minRating float64) ([]DifficultyStats, error) {
	var stats []DifficultyStats
	err := r.visible(ctx).Model(&models.Tour{}).
		Select(`UPPER(difficulty) AS difficulty,
			COUNT(*) AS num_tours,
			SUM(ratings_quantity) AS num_ratings,
			AVG(ratings_average) AS avg_rating,
			AVG(price) AS avg_price,
			MIN(price) AS min_price,
			MAX(price) AS max_price`).
		Where("ratings_average >= ?", minRating).
		Group("UPPER(difficulty)").
		Order("avg_price ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFound("%s", message)
	}
	return err
}
