package services

import (
	"context"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"tourbook-api/models"
	"tourbook-api/repositories"
	"tourbook-api/utils"
)

const (
	tourNameMin = 10
	tourNameMax = 40
	// Stats only consider tours rated at least this well.
	statsMinRating = 4.5
)

type TourService struct {
	tours *repositories.TourRepository
	users *repositories.UserRepository
	now   func() time.Time
}

func NewTourService(tours *repositories.TourRepository, users *repositories.UserRepository) *TourService {
	return &TourService{tours: tours, users: users, now: time.Now}
}

// TourInput is the create payload. Image files are uploaded elsewhere; only
// their file names arrive here.
type TourInput struct {
	Name          string             `json:"name"`
	Duration      int                `json:"duration"`
	MaxGroupSize  int                `json:"maxGroupSize"`
	Difficulty    string             `json:"difficulty"`
	Price         decimal.Decimal    `json:"price"`
	PriceDiscount *decimal.Decimal   `json:"priceDiscount"`
	Summary       string             `json:"summary"`
	Description   string             `json:"description"`
	ImageCover    string             `json:"imageCover"`
	Images        []string           `json:"images"`
	StartDates    []models.StartDate `json:"startDates"`
	StartLocation *models.GeoPoint   `json:"startLocation"`
	Locations     []models.Location  `json:"locations"`
	SecretTour    bool               `json:"secretTour"`
}

func (s *TourService) validateName(ctx context.Context, name, exceptID string) ([]utils.FieldError, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []utils.FieldError{{Field: "name", Message: "Tour name is required."}}, nil
	}
	if n := len([]rune(name)); n > tourNameMax {
		return []utils.FieldError{{Field: "name", Message: "A tour name must have less or equal than 40 characters"}}, nil
	} else if n < tourNameMin {
		return []utils.FieldError{{Field: "name", Message: "A tour name must have more or equal than 10 characters"}}, nil
	}
	taken, err := s.tours.NameTaken(ctx, name, exceptID)
	if err != nil {
		return nil, err
	}
	if taken {
		return []utils.FieldError{{Field: "name", Message: "Tour with this name already exists."}}, nil
	}
	return nil, nil
}

func validStartLocation(loc *models.GeoPoint) bool {
	if loc == nil {
		return false
	}
	lat, lng, ok := loc.LatLng()
	return ok && utils.IsValidLatitude(lat) && utils.IsValidLongitude(lng)
}

// Validate lists every problem of a create payload.
func (s *TourService) Validate(ctx context.Context, in TourInput) ([]utils.FieldError, error) {
	fields, err := s.validateName(ctx, in.Name, "")
	if err != nil {
		return nil, err
	}

	if !in.Price.IsPositive() {
		fields = append(fields, utils.FieldError{Field: "price", Message: "Valid price is required."})
	}
	if in.PriceDiscount != nil && !in.PriceDiscount.LessThan(in.Price) {
		fields = append(fields, utils.FieldError{
			Field:   "priceDiscount",
			Message: "Discount price (" + in.PriceDiscount.String() + ") should be below regular price",
		})
	}
	if in.Duration <= 0 {
		fields = append(fields, utils.FieldError{Field: "duration", Message: "Valid duration is required."})
	}
	if in.MaxGroupSize <= 0 {
		fields = append(fields, utils.FieldError{Field: "maxGroupSize", Message: "Valid maxGroupSize is required."})
	}
	if !models.Difficulty(strings.ToLower(in.Difficulty)).Valid() {
		fields = append(fields, utils.FieldError{Field: "difficulty", Message: "Difficulty must be one of: easy, medium, difficult."})
	}
	if strings.TrimSpace(in.Summary) == "" {
		fields = append(fields, utils.FieldError{Field: "summary", Message: "Summary is required."})
	}
	if strings.TrimSpace(in.Description) == "" {
		fields = append(fields, utils.FieldError{Field: "description", Message: "Description is required."})
	}
	if len(in.StartDates) < 3 || !parseableDates(in.StartDates) {
		fields = append(fields, utils.FieldError{Field: "startDates", Message: "Three start date is required."})
	}
	if !validStartLocation(in.StartLocation) {
		fields = append(fields, utils.FieldError{Field: "startLocation", Message: "Valid start location is required."})
	}
	if strings.TrimSpace(in.ImageCover) == "" {
		fields = append(fields, utils.FieldError{Field: "imageCover", Message: "Image cover is required."})
	}
	if len(in.Images) != 3 {
		fields = append(fields, utils.FieldError{Field: "images", Message: "three images are required."})
	}
	return fields, nil
}

func parseableDates(dates []models.StartDate) bool {
	for _, d := range dates {
		if _, err := utils.ParseStartDate(d.Date); err != nil {
			return false
		}
	}
	return true
}

func freshStartDates(dates []models.StartDate) models.StartDates {
	out := make(models.StartDates, 0, len(dates))
	for _, d := range dates {
		out = append(out, models.StartDate{Date: strings.TrimSpace(d.Date)})
	}
	return out
}

func (s *TourService) Create(ctx context.Context, in TourInput) (*models.Tour, error) {
	fields, err := s.Validate(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, utils.ValidationFields(fields)
	}

	name := strings.TrimSpace(in.Name)
	start := *in.StartLocation
	if start.Type == "" {
		start.Type = "Point"
	}
	tour := &models.Tour{
		ID:              uuid.NewString(),
		Name:            name,
		Slug:            utils.Slugify(name),
		Duration:        in.Duration,
		MaxGroupSize:    in.MaxGroupSize,
		Difficulty:      models.Difficulty(strings.ToLower(in.Difficulty)),
		RatingsAverage:  models.DefaultRatingsAverage,
		RatingsQuantity: models.DefaultRatingsQuantity,
		Price:           in.Price,
		Summary:         strings.TrimSpace(in.Summary),
		Description:     strings.TrimSpace(in.Description),
		ImageCover:      in.ImageCover,
		Images:          datatypes.JSONSlice[string](in.Images),
		StartDates:      freshStartDates(in.StartDates),
		SecretTour:      in.SecretTour,
		StartLocation:   datatypes.NewJSONType(start),
		Locations:       datatypes.JSONSlice[models.Location](in.Locations),
		Guides:          models.GuideRoster{},
		Version:         1,
	}
	if in.PriceDiscount != nil {
		tour.PriceDiscount = decimal.NewNullDecimal(*in.PriceDiscount)
	}
	if tour.Locations == nil {
		tour.Locations = datatypes.JSONSlice[models.Location]{}
	}

	if err := s.tours.Create(ctx, tour); err != nil {
		return nil, err
	}
	return s.tours.FindByID(ctx, tour.ID)
}

// TourUpdate is a partial edit; nil fields are left alone.
type TourUpdate struct {
	Name          *string            `json:"name"`
	Duration      *int               `json:"duration"`
	MaxGroupSize  *int               `json:"maxGroupSize"`
	Difficulty    *string            `json:"difficulty"`
	Price         *decimal.Decimal   `json:"price"`
	PriceDiscount *decimal.Decimal   `json:"priceDiscount"`
	Summary       *string            `json:"summary"`
	Description   *string            `json:"description"`
	ImageCover    *string            `json:"imageCover"`
	Images        []string           `json:"images"`
	StartDates    []models.StartDate `json:"startDates"`
	StartLocation *models.GeoPoint   `json:"startLocation"`
	Locations     []models.Location  `json:"locations"`
	SecretTour    *bool              `json:"secretTour"`
}

func (s *TourService) Update(ctx context.Context, id string, in TourUpdate) (*models.Tour, error) {
	current, err := s.tours.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields []utils.FieldError
	updates := map[string]interface{}{}

	if in.Name != nil && strings.TrimSpace(*in.Name) != current.Name {
		nameErrs, err := s.validateName(ctx, *in.Name, id)
		if err != nil {
			return nil, err
		}
		fields = append(fields, nameErrs...)
		name := strings.TrimSpace(*in.Name)
		updates["name"] = name
		updates["slug"] = utils.Slugify(name)
	}
	if in.Duration != nil {
		if *in.Duration <= 0 {
			fields = append(fields, utils.FieldError{Field: "duration", Message: "Valid duration is required."})
		}
		updates["duration"] = *in.Duration
	}
	if in.MaxGroupSize != nil {
		if *in.MaxGroupSize <= 0 {
			fields = append(fields, utils.FieldError{Field: "maxGroupSize", Message: "Valid maxGroupSize is required."})
		}
		updates["max_group_size"] = *in.MaxGroupSize
	}
	if in.Difficulty != nil {
		d := models.Difficulty(strings.ToLower(*in.Difficulty))
		if !d.Valid() {
			fields = append(fields, utils.FieldError{Field: "difficulty", Message: "Difficulty must be one of: easy, medium, difficult."})
		}
		updates["difficulty"] = d
	}
	price := current.Price
	if in.Price != nil {
		if !in.Price.IsPositive() {
			fields = append(fields, utils.FieldError{Field: "price", Message: "Valid price is required."})
		}
		price = *in.Price
		updates["price"] = *in.Price
	}
	if in.PriceDiscount != nil {
		if !in.PriceDiscount.LessThan(price) {
			fields = append(fields, utils.FieldError{
				Field:   "priceDiscount",
				Message: "Discount price (" + in.PriceDiscount.String() + ") should be below regular price",
			})
		}
		updates["price_discount"] = decimal.NewNullDecimal(*in.PriceDiscount)
	}
	if in.Summary != nil {
		updates["summary"] = strings.TrimSpace(*in.Summary)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.ImageCover != nil {
		updates["image_cover"] = *in.ImageCover
	}
	if in.Images != nil {
		if len(in.Images) != 3 {
			fields = append(fields, utils.FieldError{Field: "images", Message: "three images are required."})
		}
		updates["images"] = datatypes.JSONSlice[string](in.Images)
	}
	if in.StartDates != nil {
		if len(in.StartDates) == 0 || !parseableDates(in.StartDates) {
			fields = append(fields, utils.FieldError{Field: "startDates", Message: "A tour must have at least one start date"})
		}
		updates["start_dates"] = mergeStartDates(current.StartDates, in.StartDates)
	}
	if in.StartLocation != nil {
		if !validStartLocation(in.StartLocation) {
			fields = append(fields, utils.FieldError{Field: "startLocation", Message: "Valid start location is required."})
		}
		updates["start_location"] = datatypes.NewJSONType(*in.StartLocation)
	}
	if in.Locations != nil {
		updates["locations"] = datatypes.JSONSlice[models.Location](in.Locations)
	}
	if in.SecretTour != nil {
		updates["secret_tour"] = *in.SecretTour
	}

	if len(fields) > 0 {
		return nil, utils.ValidationFields(fields)
	}
	if len(updates) == 0 {
		return current, nil
	}
	updates["version"] = current.Version + 1
	return s.tours.Update(ctx, id, updates)
}

// mergeStartDates keeps the counters of dates that survive an edit.
func mergeStartDates(current models.StartDates, next []models.StartDate) models.StartDates {
	out := make(models.StartDates, 0, len(next))
	for _, d := range next {
		date := strings.TrimSpace(d.Date)
		entry := models.StartDate{Date: date}
		for _, c := range current {
			if c.Date == date {
				entry = c
				break
			}
		}
		out = append(out, entry)
	}
	return out
}

// Delete removes the tour with its bookings, reviews and favorites.
func (s *TourService) Delete(ctx context.Context, id string) error {
	return s.tours.Delete(ctx, id)
}

// Get loads a tour with reviews and populated guides.
func (s *TourService) Get(ctx context.Context, id string) (*models.Tour, error) {
	tour, err := s.tours.FindByIDWithReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.PopulateGuides(ctx, tour); err != nil {
		return nil, err
	}
	return tour, nil
}

func (s *TourService) List(ctx context.Context, values url.Values) ([]models.Tour, error) {
	return s.tours.List(ctx, repositories.NewQueryFeatures(values, repositories.TourFields))
}

func (s *TourService) TopCheap(ctx context.Context, values url.Values) ([]models.Tour, error) {
	return s.List(ctx, repositories.TopCheapAlias(values))
}

func (s *TourService) All(ctx context.Context) ([]models.Tour, error) {
	return s.tours.All(ctx)
}

func (s *TourService) CheckName(ctx context.Context, name string) (bool, error) {
	return s.tours.NameTaken(ctx, name, "")
}

// PopulateGuides fills the user summary of every roster entry.
func (s *TourService) PopulateGuides(ctx context.Context, tour *models.Tour) error {
	if len(tour.Guides) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tour.Guides))
	for _, g := range tour.Guides {
		ids = append(ids, g.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i := range tour.Guides {
		if u, ok := byID[tour.Guides[i].UserID]; ok {
			tour.Guides[i].User = u.Summarize()
		}
	}
	return nil
}

func rosterSize(tour *models.Tour) int {
	n := 0
	for _, g := range tour.Guides {
		n += len(g.Bookings)
	}
	return n
}

// purge releases expired roster entries and persists the ledger when it changed.
func (s *TourService) purge(ctx context.Context, tour *models.Tour) (bool, error) {
	before := rosterSize(tour)
	if err := tour.PurgeExpiredDates(s.now()); err != nil {
		return false, err
	}
	if rosterSize(tour) == before {
		return false, nil
	}
	return true, s.tours.SaveLedger(ctx, tour)
}

// PurgeExpired frees past seats of the tour with the given slug. Run it before
// rendering the tour page, never while a booking commits.
func (s *TourService) PurgeExpired(ctx context.Context, slug string) error {
	tour, err := s.tours.FindBySlug(ctx, slug)
	if err != nil {
		return err
	}
	_, err = s.purge(ctx, tour)
	return err
}

// GetBySlug loads a tour page: reviews with authors and populated guides.
func (s *TourService) GetBySlug(ctx context.Context, slug string) (*models.Tour, error) {
	tour, err := s.tours.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.PopulateGuides(ctx, tour); err != nil {
		return nil, err
	}
	return tour, nil
}

// SweepExpired purges every tour. Tours that fail are logged and skipped.
func (s *TourService) SweepExpired(ctx context.Context) (int, error) {
	tours, err := s.tours.All(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range tours {
		ok, err := s.purge(ctx, &tours[i])
		if err != nil {
			log.Printf("Warning: could not purge expired dates of tour %s: %v", tours[i].ID, err)
			continue
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

func (s *TourService) Stats(ctx context.Context) ([]repositories.DifficultyStats, error) {
	return s.tours.Stats(ctx, statsMinRating)
}

// MonthPlan counts the tour starts of one month.
type MonthPlan struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// MonthlyPlan groups the start dates falling in year by month, busiest first.
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]MonthPlan, error) {
	tours, err := s.tours.All(ctx)
	if err != nil {
		return nil, err
	}

	byMonth := map[int]*MonthPlan{}
	for _, t := range tours {
		for _, sd := range t.StartDates {
			d, err := utils.ParseStartDate(sd.Date)
			if err != nil || d.Year() != year {
				continue
			}
			m := int(d.Month())
			if byMonth[m] == nil {
				byMonth[m] = &MonthPlan{Month: m, Tours: []string{}}
			}
			byMonth[m].NumTourStarts++
			byMonth[m].Tours = append(byMonth[m].Tours, t.Name)
		}
	}

	plan := make([]MonthPlan, 0, len(byMonth))
	for _, p := range byMonth {
		plan = append(plan, *p)
	}
	sort.Slice(plan, func(i, j int) bool {
		if plan[i].NumTourStarts != plan[j].NumTourStarts {
			return plan[i].NumTourStarts > plan[j].NumTourStarts
		}
		return plan[i].Month < plan[j].Month
	})
	if len(plan) > 12 {
		plan = plan[:12]
	}
	return plan, nil
}

// Within returns tours whose start location lies within distance of latlng.
func (s *TourService) Within(ctx context.Context, distance float64, latlng, unit string) ([]models.Tour, error) {
	lat, lng, err := ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	if unit, err = ParseDistanceUnit(unit); err != nil {
		return nil, err
	}
	if distance <= 0 {
		return nil, utils.Validation("Distance must be a positive number.")
	}

	tours, err := s.tours.All(ctx)
	if err != nil {
		return nil, err
	}
	radius := radiusInRadians(distance, unit)
	within := make([]models.Tour, 0)
	for _, t := range tours {
		tLat, tLng, ok := t.StartLocation.Data().LatLng()
		if !ok {
			continue
		}
		if centralAngle(lat, lng, tLat, tLng) <= radius {
			within = append(within, t)
		}
	}
	return within, nil
}

// TourDistance is one row of the distances report.
type TourDistance struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// Distances lists every tour's distance from latlng, nearest first.
func (s *TourService) Distances(ctx context.Context, latlng, unit string) ([]TourDistance, error) {
	lat, lng, err := ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	if unit, err = ParseDistanceUnit(unit); err != nil {
		return nil, err
	}

	tours, err := s.tours.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TourDistance, 0, len(tours))
	for _, t := range tours {
		tLat, tLng, ok := t.StartLocation.Data().LatLng()
		if !ok {
			continue
		}
		out = append(out, TourDistance{
			ID:       t.ID,
			Name:     t.Name,
			Distance: distanceIn(lat, lng, tLat, tLng, unit),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}
