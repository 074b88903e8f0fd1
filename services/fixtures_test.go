package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tourbook-api/config"
	"tourbook-api/database"
	"tourbook-api/models"
	"tourbook-api/repositories"
)

const testPassword = "Passw0rd!"

type fakeMailer struct {
	welcomeURLs []string
	resetURLs   []string
	err         error
}

func (m *fakeMailer) SendWelcome(user *models.User, confirmURL string) error {
	if m.err != nil {
		return m.err
	}
	m.welcomeURLs = append(m.welcomeURLs, confirmURL)
	return nil
}

func (m *fakeMailer) SendPasswordReset(user *models.User, resetURL string) error {
	if m.err != nil {
		return m.err
	}
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

type fakePayments struct {
	requests []CheckoutRequest
	err      error
}

func (p *fakePayments) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.requests = append(p.requests, req)
	return &CheckoutSession{ID: "cs_test", SuccessURL: req.SuccessURL, CancelURL: req.CancelURL}, nil
}

var errMailDown = errors.New("smtp unavailable")

// testEnv wires every service onto one in-memory database and a shared
// clock that tests may move.
type testEnv struct {
	db    *gorm.DB
	clock time.Time

	tourRepo    *repositories.TourRepository
	bookingRepo *repositories.BookingRepository
	reviewRepo  *repositories.ReviewRepository
	userRepo    *repositories.UserRepository

	mailer   *fakeMailer
	payments *fakePayments

	auth      *AuthService
	tours     *TourService
	bookings  *BookingService
	reviews   *ReviewService
	users     *UserService
	presence  *PresenceService
	dashboard *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	env := &testEnv{
		db:          db,
		clock:       time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		tourRepo:    repositories.NewTourRepository(db),
		bookingRepo: repositories.NewBookingRepository(db),
		reviewRepo:  repositories.NewReviewRepository(db),
		userRepo:    repositories.NewUserRepository(db),
		mailer:      &fakeMailer{},
		payments:    &fakePayments{},
	}
	now := func() time.Time { return env.clock }

	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiresIn: 90 * 24 * time.Hour}
	env.auth = NewAuthService(env.userRepo, env.mailer, cfg)
	env.auth.now = now
	env.tours = NewTourService(env.tourRepo, env.userRepo)
	env.tours.now = now
	env.bookings = NewBookingService(db, env.tourRepo, env.bookingRepo, env.userRepo, env.payments)
	env.bookings.now = now
	env.reviews = NewReviewService(env.reviewRepo, env.bookingRepo, env.tourRepo)
	env.reviews.now = now
	env.users = NewUserService(env.userRepo, env.tourRepo)
	env.presence = NewPresenceService(env.userRepo)
	env.presence.now = now
	env.dashboard = NewDashboardService(env.auth, env.users, env.tours, env.reviews, env.bookings)
	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.clock = env.clock.Add(d)
}

func (env *testEnv) createUser(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Password:       string(hash),
		Role:           role,
		Photo:          models.DefaultPhoto,
		AccountActive:  true,
		ConfirmedEmail: true,
	}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func (env *testEnv) createTour(t *testing.T, name string, maxGroupSize int, price int64) *models.Tour {
	t.Helper()
	tour := &models.Tour{
		ID:             uuid.NewString(),
		Name:           name,
		Slug:           strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Duration:       5,
		MaxGroupSize:   maxGroupSize,
		Difficulty:     models.DifficultyEasy,
		RatingsAverage: models.DefaultRatingsAverage,
		Price:          decimal.NewFromInt(price),
		Summary:        "Breathtaking hike through the Canadian Banff National Park",
		ImageCover:     "tour-1-cover.jpg",
		Images:         datatypes.JSONSlice[string]{"tour-1-1.jpg", "tour-1-2.jpg", "tour-1-3.jpg"},
		StartDates: models.StartDates{
			{Date: "2021-06-19"},
			{Date: "2021-07-20"},
			{Date: "2021-08-18"},
		},
		StartLocation: datatypes.NewJSONType(models.GeoPoint{
			Type:        "Point",
			Coordinates: []float64{-115.570154, 51.178456},
			Address:     "224 Banff Ave, Banff, AB, Canada",
		}),
		Locations: datatypes.JSONSlice[models.Location]{},
		Guides:    models.GuideRoster{},
		Version:   1,
	}
	require.NoError(t, env.db.Create(tour).Error)
	return tour
}

func (env *testEnv) reloadTour(t *testing.T, id string) *models.Tour {
	t.Helper()
	var tour models.Tour
	require.NoError(t, env.db.First(&tour, "id = ?", id).Error)
	return &tour
}

// createBooking inserts a paid booking without touching the ledger.
func (env *testEnv) createBooking(t *testing.T, tourID, userID string, tourDate time.Time) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ID:              uuid.NewString(),
		TourID:          tourID,
		UserID:          userID,
		Price:           decimal.NewFromInt(497),
		NumbersOfPeople: 1,
		TourDate:        tourDate,
		Paid:            true,
	}
	require.NoError(t, env.db.Create(booking).Error)
	return booking
}

// rawToken strips the base URL a mailer received.
func rawToken(t *testing.T, link, base string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(link, base), "link %q", link)
	return strings.TrimPrefix(link, base)
}
