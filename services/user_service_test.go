package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tourbook-api/models"
	"tourbook-api/utils"
)

func TestUpdateProfile_RejectsPasswordFields(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Laura Wilson", models.RoleUser)

	_, err := env.users.UpdateProfile(context.Background(), user.ID, ProfileUpdate{Password: "N3w!Password"})

	require.Error(t, err)
	assert.Equal(t, "This route is not for password updates. Please use /updatePassword.", err.Error())
}

func TestUpdateProfile_NameEmailAndPhoto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)
	other := env.createUser(t, "Max Smith", models.RoleUser)

	name, email := "Laura W.", "LAURA@example.com"
	updated, err := env.users.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: &name, Email: &email, Photo: "user-1.jpeg"})

	require.NoError(t, err)
	assert.Equal(t, "Laura W.", updated.Name)
	assert.Equal(t, "laura@example.com", updated.Email)
	assert.Equal(t, "user-1.jpeg", updated.Photo)
	assert.Equal(t, models.RoleUser, updated.Role)

	_, err = env.users.UpdateProfile(ctx, user.ID, ProfileUpdate{Email: &other.Email})
	assert.True(t, errors.Is(err, utils.ErrConflict))
}

func TestDeleteMyAccount_HidesUserButKeepsEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)

	require.NoError(t, env.users.DeleteMyAccount(ctx, user.ID))

	_, err := env.users.Me(ctx, user.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	exists, err := env.users.CheckEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.True(t, exists)

	_, _, err = env.auth.Login(ctx, user.Email, testPassword)
	assert.Equal(t, "Incorrect email or password", err.Error())
}

func TestToggleFavorite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)
	forest := env.createTour(t, "The Forest Hiker", 10, 497)
	sea := env.createTour(t, "The Sea Explorer", 10, 497)

	res, err := env.users.ToggleFavorite(ctx, user.ID, forest.ID)
	require.NoError(t, err)
	assert.Equal(t, &FavoriteResult{Action: "added", FavoriteCount: 1}, res)

	res, err = env.users.ToggleFavorite(ctx, user.ID, sea.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.FavoriteCount)

	res, err = env.users.ToggleFavorite(ctx, user.ID, forest.ID)
	require.NoError(t, err)
	assert.Equal(t, &FavoriteResult{Action: "removed", FavoriteCount: 1}, res)

	favorites, err := env.users.FavoriteTours(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, sea.ID, favorites[0].ID)

	_, err = env.users.ToggleFavorite(ctx, user.ID, "missing")
	assert.Equal(t, "Tour not found.", err.Error())
}

func TestAdminUserUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)
	tour := env.createTour(t, "The Forest Hiker", 10, 497)
	booking := env.createBooking(t, tour.ID, user.ID, time.Date(2025, time.June, 19, 0, 0, 0, 0, time.UTC))
	_, err := env.users.ToggleFavorite(ctx, user.ID, tour.ID)
	require.NoError(t, err)

	role := "lead-guide"
	updated, err := env.users.Update(ctx, user.ID, UserUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleLeadGuide, updated.Role)

	bad := "pilot"
	_, err = env.users.Update(ctx, user.ID, UserUpdate{Role: &bad})
	assert.True(t, errors.Is(err, utils.ErrValidation))

	// WHEN: the admin deletes the account
	require.NoError(t, env.users.Delete(ctx, user.ID))

	// THEN: favorites go, bookings stay
	var favorites int64
	require.NoError(t, env.db.Model(&models.FavoriteTour{}).Where("user_id = ?", user.ID).Count(&favorites).Error)
	assert.Zero(t, favorites)
	_, err = env.bookings.Get(ctx, booking.ID)
	assert.NoError(t, err)
}

func TestParseSection(t *testing.T) {
	for input, want := range map[string]SectionKind{
		"users": SectionUser, "tour": SectionTour, "Reviews": SectionReview, "bookings": SectionBooking,
	} {
		got, err := ParseSection(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseSection("payments")
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	assert.Equal(t, "Manage Users", SectionUser.Title("Manage"))
	assert.Equal(t, "Add Tour", SectionTour.Title("Add"))
	assert.Equal(t, "bookings", SectionBooking.Plural())
}

func TestDashboard_DispatchesToDomainServices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "Jonas Schmedtmann", models.RoleAdmin)
	user := env.createUser(t, "Laura Wilson", models.RoleUser)
	tour := env.createTour(t, "The Forest Hiker", 10, 497)
	env.createBooking(t, tour.ID, user.ID, time.Date(2025, time.June, 19, 0, 0, 0, 0, time.UTC))

	// GIVEN: a review created from the dashboard
	created, err := env.dashboard.Create(ctx, admin, ReviewPayload{
		Create: ReviewInput{Review: "Superb", Rating: 3, TourID: tour.ID, UserID: user.ID},
	}, confirmBase)
	require.NoError(t, err)
	review := created.(*models.Review)

	// THEN: ratings were recomputed through the aggregator
	assert.Equal(t, 3.0, env.reloadTour(t, tour.ID).RatingsAverage)

	// WHEN: the review is deleted from the dashboard
	require.NoError(t, env.dashboard.Delete(ctx, SectionReview, review.ID))
	assert.Equal(t, models.DefaultRatingsAverage, env.reloadTour(t, tour.ID).RatingsAverage)

	// AND: booking payloads open a checkout for the chosen user
	session, err := env.dashboard.Create(ctx, admin, BookingPayload{
		Create: CheckoutInput{TourID: tour.ID, Date: "2021-07-20", Price: "497", BookForUserID: user.ID},
	}, confirmBase)
	require.NoError(t, err)
	assert.Contains(t, session.(*CheckoutSession).SuccessURL, "admin=true")

	// AND: the add form offers only non-admin users
	opts, err := env.dashboard.AddFormOptions(ctx)
	require.NoError(t, err)
	require.Len(t, opts.Users, 1)
	assert.Equal(t, user.ID, opts.Users[0].ID)
	assert.Len(t, opts.Tours, 1)

	detail, err := env.dashboard.Get(ctx, SectionUser, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, detail.(*UserDetail).ID)
}

func TestDashboard_DeleteTourCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "Laura Wilson", models.RoleUser)
	tour := env.createTour(t, "The Forest Hiker", 10, 497)
	booking := env.createBooking(t, tour.ID, user.ID, time.Date(2025, time.June, 19, 0, 0, 0, 0, time.UTC))

	require.NoError(t, env.dashboard.Delete(ctx, SectionTour, tour.ID))

	_, err := env.bookings.Get(ctx, booking.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestDashboard_ExportWorkbook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createTour(t, "The Forest Hiker", 10, 497)

	data, err := env.dashboard.Export(ctx, SectionTour)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Manage Tours")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"ID", "Name", "Difficulty", "Price", "Rating", "Reviews", "Start dates"}, rows[0])
	assert.Equal(t, "The Forest Hiker", rows[1][1])
	assert.Equal(t, "2021-06-19 (0/10), 2021-07-20 (0/10), 2021-08-18 (0/10)", rows[1][6])
}
