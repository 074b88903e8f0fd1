package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tourbook-api/models"
	"tourbook-api/repositories"
	"tourbook-api/utils"
)

// BookingService turns confirmed payments into bookings and keeps the
// availability ledger of the booked tour in step.
type BookingService struct {
	db       *gorm.DB
	tours    *repositories.TourRepository
	bookings *repositories.BookingRepository
	users    *repositories.UserRepository
	payments PaymentProvider
	now      func() time.Time
}

func NewBookingService(db *gorm.DB, tours *repositories.TourRepository, bookings *repositories.BookingRepository, users *repositories.UserRepository, payments PaymentProvider) *BookingService {
	return &BookingService{
		db:       db,
		tours:    tours,
		bookings: bookings,
		users:    users,
		payments: payments,
		now:      time.Now,
	}
}

// NormalizeTourDate places a stored start date in the year it will next occur.
func NormalizeTourDate(date string, now time.Time) (time.Time, error) {
	parsed, err := utils.ParseStartDate(date)
	if err != nil {
		return time.Time{}, utils.Validation("Invalid tour date %s", date)
	}
	return utils.RollToUpcomingYear(parsed, now), nil
}

// PersonsFor derives the group size paid for. Partial persons are refused.
func PersonsFor(price, unitPrice decimal.Decimal) (int, error) {
	if !unitPrice.IsPositive() {
		return 0, utils.Internal(nil, "Tour has no valid price")
	}
	if !price.IsPositive() {
		return 0, utils.Validation("Price must be a positive number")
	}
	persons := price.Div(unitPrice)
	if !persons.Equal(persons.Truncate(0)) {
		return 0, utils.Validation("Price %s is not a whole number of persons at %s each", price.String(), unitPrice.String())
	}
	return int(persons.IntPart()), nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !price.IsPositive() {
		return decimal.Zero, utils.Validation("Invalid price %s", raw)
	}
	return price, nil
}

// CheckDuplicate refuses a second booking of the same dated departure by the
// same person. onBehalf switches the message to name the booked user.
func (s *BookingService) CheckDuplicate(tour *models.Tour, bookingUser *models.User, date string, onBehalf bool) error {
	tourDate, err := NormalizeTourDate(date, s.now())
	if err != nil {
		return err
	}
	if !tour.HasExistingBooking(bookingUser.ID, tourDate) {
		return nil
	}
	when := utils.FormatMonthDay(tourDate)
	if onBehalf {
		return utils.DuplicateBooking(bookingUser.Name + " has already booked this tour on " + when)
	}
	return utils.DuplicateBooking("You have already booked this tour on " + when)
}

// CheckAvailability refuses dates that are sold out or too small for persons.
func (s *BookingService) CheckAvailability(tour *models.Tour, date string, persons int) error {
	remaining, err := tour.RemainingSeats(date)
	if err != nil {
		return err
	}
	entry := tour.FindStartDate(date)
	if entry.SoldOut || remaining == 0 {
		return utils.Conflict("There are no tickets available. Sold Out!")
	}
	if persons > remaining {
		return utils.Conflict("Only %d tickets left for this date.", remaining)
	}
	return nil
}

type CheckoutInput struct {
	Actor         *models.User
	TourID        string
	Date          string
	Price         string
	BookForUserID string
	BaseURL       string
}

// CheckoutSession validates a booking request and opens a payment session
// whose success URL calls back into Commit.
func (s *BookingService) CheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	tour, err := s.tours.FindByID(ctx, in.TourID)
	if err != nil {
		return nil, err
	}

	bookingUser := in.Actor
	onBehalf := in.BookForUserID != ""
	if onBehalf {
		if !in.Actor.Role.In(models.StaffRoles...) {
			return nil, utils.Forbidden("You do not have permission to perform this action.")
		}
		bookingUser, err = s.users.FindByID(ctx, in.BookForUserID)
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return nil, utils.NotFound("User not found")
			}
			return nil, err
		}
	}

	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	persons, err := PersonsFor(price, tour.Price)
	if err != nil {
		return nil, err
	}
	if err := s.CheckDuplicate(tour, bookingUser, in.Date, onBehalf); err != nil {
		return nil, err
	}
	if err := s.CheckAvailability(tour, in.Date, persons); err != nil {
		return nil, err
	}

	callback := url.Values{}
	callback.Set("tour", tour.ID)
	callback.Set("user", bookingUser.ID)
	callback.Set("price", price.String())
	callback.Set("date", in.Date)
	if onBehalf {
		callback.Set("admin", "true")
	}

	session, err := s.payments.CreateCheckoutSession(ctx, CheckoutRequest{
		TourID:        tour.ID,
		TourName:      tour.Name,
		TourSummary:   tour.Summary,
		ImageURL:      in.BaseURL + "/img/tours/" + tour.ImageCover,
		CustomerEmail: bookingUser.Email,
		Amount:        price,
		SuccessURL:    in.BaseURL + "/?" + callback.Encode(),
		CancelURL:     in.BaseURL + "/tour/" + tour.Slug,
	})
	if err != nil {
		return nil, utils.Upstream(err, "Could not create the checkout session. Try again later!")
	}
	return session, nil
}

// CommitInput is the untrusted payment callback.
type CommitInput struct {
	TourID string
	UserID string
	Price  string
	Date   string
	Admin  bool
}

// Commit records a paid booking. The ledger write and booking insert share a
// transaction and the ledger write fails if the tour changed since it was read.
func (s *BookingService) Commit(ctx context.Context, in CommitInput) (*models.Booking, error) {
	tour, err := s.tours.FindByID(ctx, in.TourID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	persons, err := PersonsFor(price, tour.Price)
	if err != nil {
		return nil, err
	}
	if err := s.CheckDuplicate(tour, user, in.Date, in.Admin); err != nil {
		return nil, err
	}
	if err := s.CheckAvailability(tour, in.Date, persons); err != nil {
		return nil, err
	}

	tourDate, err := NormalizeTourDate(in.Date, s.now())
	if err != nil {
		return nil, err
	}
	if err := tour.RecordBooking(user.ID, in.Date, tourDate, persons); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:              uuid.NewString(),
		TourID:          tour.ID,
		UserID:          user.ID,
		Price:           price,
		NumbersOfPeople: persons,
		TourDate:        tourDate,
		Paid:            true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tours.WithTx(tx).SaveLedger(ctx, tour); err != nil {
			return err
		}
		return s.bookings.WithTx(tx).Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) List(ctx context.Context, filter repositories.BookingFilter, values url.Values) ([]models.Booking, error) {
	return s.bookings.List(ctx, filter, repositories.NewQueryFeatures(values, repositories.BookingFields))
}

func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	return s.bookings.FindByID(ctx, id)
}

// BookingInput is the administrator's direct booking payload.
type BookingInput struct {
	TourID          string          `json:"tour" binding:"required"`
	UserID          string          `json:"user" binding:"required"`
	Price           decimal.Decimal `json:"price" binding:"required"`
	NumbersOfPeople int             `json:"numbersOfPeople" binding:"required,min=1"`
	TourDate        time.Time       `json:"tourDate" binding:"required"`
	Paid            *bool           `json:"paid"`
}

// Create stores a booking entered by staff. It is a record only and leaves
// the ledger untouched.
func (s *BookingService) Create(ctx context.Context, in BookingInput) (*models.Booking, error) {
	if _, err := s.tours.FindByID(ctx, in.TourID); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, in.UserID); err != nil {
		return nil, err
	}
	if !in.Price.IsPositive() {
		return nil, utils.Validation("Price must be a positive number")
	}
	paid := true
	if in.Paid != nil {
		paid = *in.Paid
	}

	booking := &models.Booking{
		ID:              uuid.NewString(),
		TourID:          in.TourID,
		UserID:          in.UserID,
		Price:           in.Price,
		NumbersOfPeople: in.NumbersOfPeople,
		TourDate:        in.TourDate.UTC(),
		Paid:            paid,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}
	return s.bookings.FindByID(ctx, booking.ID)
}

// BookingUpdate carries the mutable booking fields.
type BookingUpdate struct {
	Price           *decimal.Decimal `json:"price"`
	NumbersOfPeople *int             `json:"numbersOfPeople"`
	Paid            *bool            `json:"paid"`
}

func (s *BookingService) Update(ctx context.Context, id string, in BookingUpdate) (*models.Booking, error) {
	updates := map[string]interface{}{}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return nil, utils.Validation("Price must be a positive number")
		}
		updates["price"] = *in.Price
	}
	if in.NumbersOfPeople != nil {
		if *in.NumbersOfPeople < 1 {
			return nil, utils.Validation("At least one person should be booked")
		}
		updates["numbers_of_people"] = *in.NumbersOfPeople
	}
	if in.Paid != nil {
		updates["paid"] = *in.Paid
	}
	if len(updates) == 0 {
		return s.bookings.FindByID(ctx, id)
	}
	return s.bookings.Update(ctx, id, updates)
}

func (s *BookingService) Delete(ctx context.Context, id string) error {
	return s.bookings.Delete(ctx, id)
}

// LatestPerTourDate keeps, for each tour date, the most recently created of
// the user's bookings.
func (s *BookingService) LatestPerTourDate(ctx context.Context, userID string) ([]models.Booking, error) {
	bookings, err := s.bookings.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	index := map[int64]int{}
	latest := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		key := b.TourDate.UTC().UnixNano()
		if i, ok := index[key]; ok {
			latest[i] = b
			continue
		}
		index[key] = len(latest)
		latest = append(latest, b)
	}
	return latest, nil
}
