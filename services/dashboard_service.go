package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/xuri/excelize/v2"

	"tourbook-api/models"
	"tourbook-api/repositories"
	"tourbook-api/utils"
)

// SectionKind names one managed collection of the admin dashboard.
type SectionKind string

const (
	SectionUser    SectionKind = "user"
	SectionTour    SectionKind = "tour"
	SectionReview  SectionKind = "review"
	SectionBooking SectionKind = "booking"
)

var sectionKinds = []SectionKind{SectionUser, SectionTour, SectionReview, SectionBooking}

// ParseSection accepts the singular or plural section name.
func ParseSection(s string) (SectionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range sectionKinds {
		if s == string(k) || s == string(k)+"s" {
			return k, nil
		}
	}
	return "", utils.NotFound("There is no dashboard section %s", s)
}

// Plural is the section as it appears in dashboard URLs.
func (k SectionKind) Plural() string {
	return string(k) + "s"
}

// Title builds page titles such as "Manage Users" or "Add Tour".
func (k SectionKind) Title(action string) string {
	name := strings.ToUpper(string(k[:1])) + string(k[1:])
	if action == "Manage" {
		return action + " " + name + "s"
	}
	return action + " " + name
}

// SectionPayload is a create or update form of one section. The set of
// implementations is closed.
type SectionPayload interface {
	Section() SectionKind
	sealed()
}

type UserPayload struct {
	Create SignupInput
	Update UserUpdate
}

type TourPayload struct {
	Create TourInput
	Update TourUpdate
}

type ReviewPayload struct {
	Create ReviewInput
	Update ReviewUpdate
}

// BookingPayload creates through a checkout session opened on behalf of the
// chosen user, the same way the booking page does.
type BookingPayload struct {
	Create CheckoutInput
	Update BookingUpdate
}

func (UserPayload) Section() SectionKind    { return SectionUser }
func (TourPayload) Section() SectionKind    { return SectionTour }
func (ReviewPayload) Section() SectionKind  { return SectionReview }
func (BookingPayload) Section() SectionKind { return SectionBooking }

func (UserPayload) sealed()    {}
func (TourPayload) sealed()    {}
func (ReviewPayload) sealed()  {}
func (BookingPayload) sealed() {}

// DashboardService dispatches dashboard actions to the owning domain service,
// so review edits still refresh ratings and tour deletes still cascade.
type DashboardService struct {
	auth     *AuthService
	users    *UserService
	tours    *TourService
	reviews  *ReviewService
	bookings *BookingService
}

func NewDashboardService(auth *AuthService, users *UserService, tours *TourService, reviews *ReviewService, bookings *BookingService) *DashboardService {
	return &DashboardService{auth: auth, users: users, tours: tours, reviews: reviews, bookings: bookings}
}

// List returns every record of a section.
func (s *DashboardService) List(ctx context.Context, kind SectionKind) (interface{}, error) {
	all := url.Values{"limit": {"1000"}}
	switch kind {
	case SectionUser:
		return s.users.List(ctx, all)
	case SectionTour:
		return s.tours.All(ctx)
	case SectionReview:
		return s.reviews.List(ctx, "", all)
	case SectionBooking:
		return s.bookings.List(ctx, repositories.BookingFilter{}, all)
	}
	return nil, utils.NotFound("There is no dashboard section %s", kind)
}

func (s *DashboardService) Get(ctx context.Context, kind SectionKind, id string) (interface{}, error) {
	switch kind {
	case SectionUser:
		user, err := s.users.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		favorites, err := s.users.FavoriteTours(ctx, id)
		if err != nil {
			return nil, err
		}
		return &UserDetail{User: user, FavoriteTours: favorites}, nil
	case SectionTour:
		return s.tours.Get(ctx, id)
	case SectionReview:
		return s.reviews.Get(ctx, id)
	case SectionBooking:
		return s.bookings.Get(ctx, id)
	}
	return nil, utils.NotFound("There is no dashboard section %s", kind)
}

// UserDetail is a user with the bookmarked tours populated.
type UserDetail struct {
	*models.User
	FavoriteTours []models.Tour `json:"favoriteTours"`
}

// FormOptions are the choices offered by the add forms.
type FormOptions struct {
	Tours []models.Tour
	Users []models.User
}

// AddFormOptions lists every tour and every non-admin user.
func (s *DashboardService) AddFormOptions(ctx context.Context) (*FormOptions, error) {
	tours, err := s.tours.All(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, url.Values{"limit": {"1000"}, "sort": {"name"}})
	if err != nil {
		return nil, err
	}
	opts := &FormOptions{Tours: tours, Users: make([]models.User, 0, len(users))}
	for _, u := range users {
		if u.Role != models.RoleAdmin {
			opts.Users = append(opts.Users, u)
		}
	}
	return opts, nil
}

// Create adds a record for the payload's section. Booking payloads return the
// checkout session still to be paid.
func (s *DashboardService) Create(ctx context.Context, actor *models.User, payload SectionPayload, confirmBaseURL string) (interface{}, error) {
	switch p := payload.(type) {
	case UserPayload:
		return s.auth.Signup(ctx, p.Create, confirmBaseURL)
	case TourPayload:
		return s.tours.Create(ctx, p.Create)
	case ReviewPayload:
		return s.reviews.Create(ctx, actor, "", p.Create)
	case BookingPayload:
		in := p.Create
		in.Actor = actor
		return s.bookings.CheckoutSession(ctx, in)
	}
	return nil, utils.Validation("Unsupported dashboard payload")
}

func (s *DashboardService) Update(ctx context.Context, id string, payload SectionPayload) (interface{}, error) {
	switch p := payload.(type) {
	case UserPayload:
		return s.users.Update(ctx, id, p.Update)
	case TourPayload:
		return s.tours.Update(ctx, id, p.Update)
	case ReviewPayload:
		return s.reviews.Update(ctx, id, p.Update)
	case BookingPayload:
		return s.bookings.Update(ctx, id, p.Update)
	}
	return nil, utils.Validation("Unsupported dashboard payload")
}

func (s *DashboardService) Delete(ctx context.Context, kind SectionKind, id string) error {
	switch kind {
	case SectionUser:
		return s.users.Delete(ctx, id)
	case SectionTour:
		return s.tours.Delete(ctx, id)
	case SectionReview:
		return s.reviews.Delete(ctx, id)
	case SectionBooking:
		return s.bookings.Delete(ctx, id)
	}
	return utils.NotFound("There is no dashboard section %s", kind)
}

// Export writes a section as an xlsx workbook with one header row.
func (s *DashboardService) Export(ctx context.Context, kind SectionKind) ([]byte, error) {
	header, rows, err := s.exportRows(ctx, kind)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := kind.Title("Manage")
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, utils.Internal(err, "Failed to build export")
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, utils.Internal(err, "Failed to build export")
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, utils.Internal(err, "Failed to build export")
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return nil, utils.Internal(err, "Failed to build export")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, utils.Internal(err, "Failed to write export")
	}
	return buf.Bytes(), nil
}

func (s *DashboardService) exportRows(ctx context.Context, kind SectionKind) ([]interface{}, [][]interface{}, error) {
	all := url.Values{"limit": {"1000"}}
	var rows [][]interface{}

	switch kind {
	case SectionUser:
		users, err := s.users.List(ctx, all)
		if err != nil {
			return nil, nil, err
		}
		for _, u := range users {
			rows = append(rows, []interface{}{u.ID, u.Name, u.Email, string(u.Role), u.Active})
		}
		return []interface{}{"ID", "Name", "Email", "Role", "Active"}, rows, nil

	case SectionTour:
		tours, err := s.tours.All(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range tours {
			dates := make([]string, 0, len(t.StartDates))
			for _, d := range t.StartDates {
				dates = append(dates, fmt.Sprintf("%s (%d/%d)", d.Date, d.BookedPersons, t.MaxGroupSize))
			}
			price, _ := t.Price.Float64()
			rows = append(rows, []interface{}{t.ID, t.Name, string(t.Difficulty), price, t.RatingsAverage, t.RatingsQuantity, strings.Join(dates, ", ")})
		}
		return []interface{}{"ID", "Name", "Difficulty", "Price", "Rating", "Reviews", "Start dates"}, rows, nil

	case SectionReview:
		reviews, err := s.reviews.List(ctx, "", all)
		if err != nil {
			return nil, nil, err
		}
		for _, r := range reviews {
			tourName, userName := "", ""
			if r.Tour != nil {
				tourName = r.Tour.Name
			}
			if r.User != nil {
				userName = r.User.Name
			}
			rows = append(rows, []interface{}{r.ID, tourName, userName, r.Rating, r.Review, r.CreatedAt})
		}
		return []interface{}{"ID", "Tour", "User", "Rating", "Review", "Created"}, rows, nil

	case SectionBooking:
		bookings, err := s.bookings.List(ctx, repositories.BookingFilter{}, all)
		if err != nil {
			return nil, nil, err
		}
		for _, b := range bookings {
			tourName, userEmail := "", ""
			if b.Tour != nil {
				tourName = b.Tour.Name
			}
			if b.User != nil {
				userEmail = b.User.Email
			}
			price, _ := b.Price.Float64()
			rows = append(rows, []interface{}{b.ID, tourName, userEmail, b.NumbersOfPeople, price, utils.FormatLongDate(b.TourDate), b.Paid})
		}
		return []interface{}{"ID", "Tour", "User", "Persons", "Price", "Tour date", "Paid"}, rows, nil
	}
	return nil, nil, utils.NotFound("There is no dashboard section %s", kind)
}
