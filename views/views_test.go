package views

import (
	"bytes"
	"io/fs"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"tourbook-api/models"
)

func sampleTour() *models.Tour {
	return &models.Tour{
		ID:             "tour-1",
		Name:           "The Sea Explorer",
		Slug:           "the-sea-explorer",
		Duration:       7,
		MaxGroupSize:   15,
		Difficulty:     models.DifficultyMedium,
		RatingsAverage: 4.8,
		Price:          decimal.NewFromInt(497),
		Summary:        "Exploring the jaw-dropping US east coast by foot and by boat",
		ImageCover:     "tour-2-cover.jpg",
		Images:         datatypes.JSONSlice[string]{"tour-2-1.jpg"},
		StartDates: models.StartDates{
			{Date: "2021-06-19", BookedPersons: 15, SoldOut: true},
			{Date: "2021-07-20", BookedPersons: 3},
		},
		StartLocation: datatypes.NewJSONType(models.GeoPoint{Type: "Point", Description: "Miami, USA"}),
	}
}

func execute(t *testing.T, page string, data map[string]interface{}) string {
	t.Helper()
	pages, err := Load()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, pages.ExecuteTemplate(&out, page, data))
	return out.String()
}

func TestLoad_ParsesEveryPage(t *testing.T) {
	pages, err := Load()
	require.NoError(t, err)

	for _, name := range []string{"overview.html", "tour.html", "login.html", "signup.html", "account.html", "bookings.html", "dashboard.html", "error.html"} {
		assert.NotNil(t, pages.Lookup(name), name)
	}
}

func TestOverview_RendersCardsForGuest(t *testing.T) {
	// GIVEN one tour and no signed-in user
	var guest *models.User

	// WHEN the overview renders
	html := execute(t, "overview.html", map[string]interface{}{
		"title": "All Tours",
		"tours": []models.Tour{*sampleTour()},
		"user":  guest,
	})

	// THEN the card shows the next open start month and the login links
	assert.Contains(t, html, "Tourbook | All Tours")
	assert.Contains(t, html, `href="/tour/the-sea-explorer"`)
	assert.Contains(t, html, "July 2021")
	assert.Contains(t, html, "Miami, USA")
	assert.Contains(t, html, `href="/login"`)
	assert.NotContains(t, html, "Dashboard")
}

func TestTour_ShowsSeatsAndFavoriteState(t *testing.T) {
	// GIVEN a signed-in admin who favorited the tour
	admin := &models.User{ID: "u-1", Name: "Jonas Schmedtmann", Role: models.RoleAdmin, Photo: models.DefaultPhoto}

	// WHEN the tour page renders
	html := execute(t, "tour.html", map[string]interface{}{
		"title":     "The Sea Explorer Tour",
		"tour":      sampleTour(),
		"favorites": []string{"tour-1"},
		"user":      admin,
	})

	// THEN remaining seats per date and the favorite toggle are shown
	assert.Contains(t, html, "(0 left)")
	assert.Contains(t, html, "(12 left)")
	assert.Contains(t, html, "Remove from favorites")
	assert.Contains(t, html, `href="/dashboard/users"`)
	assert.Contains(t, html, "<span>Jonas</span>")
}

func TestDashboard_RendersBookingRows(t *testing.T) {
	// GIVEN one booking in the bookings section
	tour := sampleTour()
	admin := &models.User{ID: "u-1", Name: "Admin", Role: models.RoleAdmin}
	bookings := []models.Booking{{
		ID:              "b-1",
		TourID:          tour.ID,
		UserID:          admin.ID,
		Price:           decimal.NewFromInt(994),
		NumbersOfPeople: 2,
		TourDate:        time.Date(2027, time.July, 20, 0, 0, 0, 0, time.UTC),
		Tour:            tour,
		User:            admin,
	}}

	// WHEN the dashboard renders
	html := execute(t, "dashboard.html", map[string]interface{}{
		"title":   "Manage Bookings",
		"section": "booking",
		"plural":  "bookings",
		"data":    bookings,
		"user":    admin,
	})

	// THEN each row links to its view and update pages
	assert.Contains(t, html, "July 20, 2027")
	assert.Contains(t, html, `href="/dashboard/bookings/b-1"`)
	assert.Contains(t, html, `href="/dashboard/bookings/b-1/update"`)
	assert.Contains(t, html, `href="/api/v1/dashboard/bookings/export"`)
}

func TestError_ShowsMessage(t *testing.T) {
	var guest *models.User
	html := execute(t, "error.html", map[string]interface{}{
		"title": "Something went wrong!",
		"msg":   "There is no tour with that name.",
		"user":  guest,
	})
	assert.Contains(t, html, "There is no tour with that name.")
}

func TestStatic_ServesAssets(t *testing.T) {
	_, err := fs.Stat(Static(), "app.js")
	assert.NoError(t, err)
	_, err = fs.Stat(Static(), "style.css")
	assert.NoError(t, err)
}
