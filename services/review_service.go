package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tourbook-api/models"
	"tourbook-api/repositories"
	"tourbook-api/utils"
)

// ReviewService gates review creation on a past booking and keeps each
// tour's rating aggregate in step with its reviews.
type ReviewService struct {
	reviews  *repositories.ReviewRepository
	bookings *repositories.BookingRepository
	tours    *repositories.TourRepository
	now      func() time.Time
}

func NewReviewService(reviews *repositories.ReviewRepository, bookings *repositories.BookingRepository, tours *repositories.TourRepository) *ReviewService {
	return &ReviewService{reviews: reviews, bookings: bookings, tours: tours, now: time.Now}
}

// EligibleToReview requires a booking whose earliest tour date has passed and
// no existing review for the pair.
func (s *ReviewService) EligibleToReview(ctx context.Context, tourID, userID string) error {
	earliest, err := s.bookings.Earliest(ctx, tourID, userID)
	if err != nil {
		return err
	}
	if earliest == nil {
		return utils.NotBooked()
	}

	exists, err := s.reviews.Exists(ctx, tourID, userID)
	if err != nil {
		return err
	}
	if exists {
		return utils.AlreadyReviewed()
	}

	if !earliest.TourDate.Before(s.now()) {
		name := "this tour"
		if earliest.Tour != nil {
			name = earliest.Tour.Name
		}
		return utils.TooEarly(name, utils.FormatLongDate(earliest.TourDate))
	}
	return nil
}

// Recompute writes the review count and mean rating onto the tour, or the
// defaults when no review is left.
func (s *ReviewService) Recompute(ctx context.Context, tourID string) error {
	agg, err := s.reviews.Aggregate(ctx, tourID)
	if err != nil {
		return err
	}
	if agg.Count == 0 {
		return s.tours.UpdateRatings(ctx, tourID, models.DefaultRatingsAverage, models.DefaultRatingsQuantity)
	}
	return s.tours.UpdateRatings(ctx, tourID, roundToDecimal(agg.Average, 1), agg.Count)
}

// RejectNoOpEdit refuses an edit that changes neither text nor rating.
func RejectNoOpEdit(existing *models.Review, text *string, rating *int) error {
	sameText := text == nil || *text == existing.Review
	sameRating := rating == nil || *rating == existing.Rating
	if sameText && sameRating {
		return utils.NoChange()
	}
	return nil
}

func validateReview(text string, rating int) error {
	var fields []utils.FieldError
	if strings.TrimSpace(text) == "" {
		fields = append(fields, utils.FieldError{Field: "review", Message: "Review can not be empty!"})
	}
	if rating < 1 || rating > 5 {
		fields = append(fields, utils.FieldError{Field: "rating", Message: "Rating must be between 1 and 5."})
	}
	if len(fields) > 0 {
		return utils.ValidationFields(fields)
	}
	return nil
}

type ReviewInput struct {
	Review string `json:"review"`
	Rating int    `json:"rating"`
	TourID string `json:"tour"`
	UserID string `json:"user"`
}

// Create stores a review written by actor. Admins write on behalf of the
// tour and user named in the input; everyone else reviews the route tour as
// themselves.
func (s *ReviewService) Create(ctx context.Context, actor *models.User, routeTourID string, in ReviewInput) (*models.Review, error) {
	tourID, userID := firstNonEmpty(routeTourID, in.TourID), actor.ID
	if actor.Role == models.RoleAdmin {
		tourID, userID = firstNonEmpty(in.TourID, routeTourID), firstNonEmpty(in.UserID, actor.ID)
	}
	if tourID == "" {
		return nil, utils.Validation("Review must belong to a tour")
	}

	if err := s.EligibleToReview(ctx, tourID, userID); err != nil {
		return nil, err
	}
	if err := validateReview(in.Review, in.Rating); err != nil {
		return nil, err
	}

	review := &models.Review{
		ID:     uuid.NewString(),
		Review: strings.TrimSpace(in.Review),
		Rating: in.Rating,
		TourID: tourID,
		UserID: userID,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if repositories.IsDuplicate(err) {
			return nil, utils.AlreadyReviewed()
		}
		return nil, err
	}
	if err := s.Recompute(ctx, tourID); err != nil {
		return nil, err
	}
	return s.reviews.FindByID(ctx, review.ID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type ReviewUpdate struct {
	Review *string `json:"review"`
	Rating *int    `json:"rating"`
}

// Update edits text and rating. The owning tour is read before the write so
// its aggregate can be refreshed afterwards.
func (s *ReviewService) Update(ctx context.Context, id string, in ReviewUpdate) (*models.Review, error) {
	existing, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tourID := existing.TourID

	if err := RejectNoOpEdit(existing, in.Review, in.Rating); err != nil {
		return nil, err
	}

	text, rating := existing.Review, existing.Rating
	if in.Review != nil {
		text = *in.Review
	}
	if in.Rating != nil {
		rating = *in.Rating
	}
	if err := validateReview(text, rating); err != nil {
		return nil, err
	}

	updated, err := s.reviews.Update(ctx, id, map[string]interface{}{
		"review": strings.TrimSpace(text),
		"rating": rating,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Recompute(ctx, tourID); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ReviewService) Delete(ctx context.Context, id string) error {
	existing, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}
	return s.Recompute(ctx, existing.TourID)
}

func (s *ReviewService) Get(ctx context.Context, id string) (*models.Review, error) {
	return s.reviews.FindByID(ctx, id)
}

// List returns reviews, restricted to tourID when nested under a tour.
func (s *ReviewService) List(ctx context.Context, tourID string, values url.Values) ([]models.Review, error) {
	return s.reviews.List(ctx, tourID, repositories.NewQueryFeatures(values, repositories.ReviewFields))
}

func (s *ReviewService) ForUser(ctx context.Context, userID string) ([]models.Review, error) {
	return s.reviews.ForUser(ctx, userID)
}
