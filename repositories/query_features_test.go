package repositories_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tourbook-api/database"
	"tourbook-api/models"
	"tourbook-api/repositories"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	return db
}

func createTour(t *testing.T, db *gorm.DB, name string, price int64, rating float64, createdAt time.Time) models.Tour {
	t.Helper()
	tour := models.Tour{
		ID:             uuid.NewString(),
		Name:           name,
		Slug:           name,
		Duration:       5,
		MaxGroupSize:   10,
		Difficulty:     models.DifficultyEasy,
		RatingsAverage: rating,
		Price:          decimal.NewFromInt(price),
		Summary:        "summary",
		ImageCover:     "cover.jpg",
		StartDates:     models.StartDates{{Date: "2021-06-19"}},
		CreatedAt:      createdAt,
	}
	require.NoError(t, db.Create(&tour).Error)
	return tour
}

func seedListing(t *testing.T, db *gorm.DB) {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	createTour(t, db, "cheap-tour-one", 100, 4.8, base)
	createTour(t, db, "mid-tour-two", 500, 4.2, base.Add(time.Hour))
	createTour(t, db, "pricey-tour-three", 900, 4.9, base.Add(2*time.Hour))
}

func names(tours []models.Tour) []string {
	out := make([]string, 0, len(tours))
	for _, t := range tours {
		out = append(out, t.Name)
	}
	return out
}

func TestQueryFeatures_ComparisonFilter(t *testing.T) {
	db := setupDB(t)
	seedListing(t, db)
	repo := repositories.NewTourRepository(db)

	values := url.Values{"price[gte]": {"500"}}
	tours, err := repo.List(context.Background(), repositories.NewQueryFeatures(values, repositories.TourFields))

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mid-tour-two", "pricey-tour-three"}, names(tours))
}

func TestQueryFeatures_EqualityAndUnknownFields(t *testing.T) {
	db := setupDB(t)
	seedListing(t, db)
	repo := repositories.NewTourRepository(db)

	// GIVEN: an equality filter and a field that is not whitelisted
	values := url.Values{"name": {"mid-tour-two"}, "password": {"x"}}

	// WHEN
	tours, err := repo.List(context.Background(), repositories.NewQueryFeatures(values, repositories.TourFields))

	// THEN: only the equality filter applies
	require.NoError(t, err)
	assert.Equal(t, []string{"mid-tour-two"}, names(tours))
}

func TestQueryFeatures_DefaultSortNewestFirst(t *testing.T) {
	db := setupDB(t)
	seedListing(t, db)
	repo := repositories.NewTourRepository(db)

	tours, err := repo.List(context.Background(), repositories.NewQueryFeatures(url.Values{}, repositories.TourFields))

	require.NoError(t, err)
	assert.Equal(t, []string{"pricey-tour-three", "mid-tour-two", "cheap-tour-one"}, names(tours))
}

func TestQueryFeatures_SortAndPaginate(t *testing.T) {
	db := setupDB(t)
	seedListing(t, db)
	repo := repositories.NewTourRepository(db)

	values := url.Values{"sort": {"price"}, "page": {"2"}, "limit": {"1"}}
	qf := repositories.NewQueryFeatures(values, repositories.TourFields)
	tours, err := repo.List(context.Background(), qf)

	require.NoError(t, err)
	assert.Equal(t, 2, qf.Page)
	assert.Equal(t, []string{"mid-tour-two"}, names(tours))
}

func TestQueryFeatures_InvalidPagingFallsBack(t *testing.T) {
	qf := repositories.NewQueryFeatures(url.Values{"page": {"-3"}, "limit": {"abc"}}, repositories.TourFields)

	assert.Equal(t, repositories.DefaultPage, qf.Page)
	assert.Equal(t, repositories.DefaultLimit, qf.Limit)
}

func TestQueryFeatures_FieldProjectionKeepsID(t *testing.T) {
	db := setupDB(t)
	seedListing(t, db)
	repo := repositories.NewTourRepository(db)

	values := url.Values{"fields": {"name"}, "sort": {"price"}}
	tours, err := repo.List(context.Background(), repositories.NewQueryFeatures(values, repositories.TourFields))

	require.NoError(t, err)
	require.Len(t, tours, 3)
	assert.NotEmpty(t, tours[0].ID)
	assert.Equal(t, "cheap-tour-one", tours[0].Name)
	assert.True(t, tours[0].Price.IsZero(), "price was not selected")
}

func TestQueryFeatures_HugePagingIsClamped(t *testing.T) {
	db := setupDB(t)
	seedListing(t, db)
	repo := repositories.NewTourRepository(db)

	// GIVEN: a page and limit whose product overflows int
	values := url.Values{"page": {"9223372036854775807"}, "limit": {"9223372036854775807"}}

	// WHEN
	qf := repositories.NewQueryFeatures(values, repositories.TourFields)
	tours, err := repo.List(context.Background(), qf)

	// THEN: both are capped and the query simply finds nothing
	require.NoError(t, err)
	assert.Equal(t, repositories.MaxPage, qf.Page)
	assert.Equal(t, repositories.MaxLimit, qf.Limit)
	assert.Greater(t, (qf.Page-1)*qf.Limit, 0)
	assert.Empty(t, tours)
}

func TestQueryFeatures_PaginateClampsDirectAssignment(t *testing.T) {
	db := setupDB(t)
	seedListing(t, db)
	repo := repositories.NewTourRepository(db)

	qf := repositories.NewQueryFeatures(url.Values{"sort": {"price"}}, repositories.TourFields)
	qf.Page, qf.Limit = 0, 0
	tours, err := repo.List(context.Background(), qf)

	require.NoError(t, err)
	assert.Equal(t, repositories.DefaultPage, qf.Page)
	assert.Equal(t, repositories.DefaultLimit, qf.Limit)
	assert.Len(t, tours, 3)
}

func TestQueryFeatures_FieldProjectionKeepsForeignKeys(t *testing.T) {
	db := setupDB(t)
	tour := createTour(t, db, "the-forest-hiker", 497, 4.5, time.Now())
	user := models.User{
		ID:       uuid.NewString(),
		Name:     "Laura Wilson",
		Email:    "laura@example.com",
		Password: "hash",
		Role:     models.RoleUser,
		Photo:    models.DefaultPhoto,
	}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.Review{
		ID: uuid.NewString(), Review: "Great", Rating: 5, TourID: tour.ID, UserID: user.ID,
	}).Error)
	repo := repositories.NewReviewRepository(db)

	// GIVEN: a projection that names neither tour nor user
	values := url.Values{"fields": {"review,rating"}}

	// WHEN
	reviews, err := repo.List(context.Background(), "", repositories.NewQueryFeatures(values, repositories.ReviewFields))

	// THEN: the keys survive and the relations still preload
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, tour.ID, reviews[0].TourID)
	assert.Equal(t, user.ID, reviews[0].UserID)
	require.NotNil(t, reviews[0].Tour)
	assert.Equal(t, "the-forest-hiker", reviews[0].Tour.Name)
	require.NotNil(t, reviews[0].User)
	assert.Equal(t, "Laura Wilson", reviews[0].User.Name)
	assert.Equal(t, 5, reviews[0].Rating)
	assert.True(t, reviews[0].CreatedAt.IsZero(), "createdAt was not selected")
}

func TestTopCheapAlias(t *testing.T) {
	db := setupDB(t)
	seedListing(t, db)
	repo := repositories.NewTourRepository(db)

	values := repositories.TopCheapAlias(url.Values{"page": {"1"}})
	tours, err := repo.List(context.Background(), repositories.NewQueryFeatures(values, repositories.TourFields))

	require.NoError(t, err)
	assert.Equal(t, "5", values.Get("limit"))
	assert.Equal(t, []string{"pricey-tour-three", "cheap-tour-one", "mid-tour-two"}, names(tours))
}

func TestTourRepository_SecretToursHidden(t *testing.T) {
	db := setupDB(t)
	secret := createTour(t, db, "hidden-tour-four", 50, 5, time.Now())
	require.NoError(t, db.Model(&models.Tour{}).Where("id = ?", secret.ID).Update("secret_tour", true).Error)
	repo := repositories.NewTourRepository(db)

	tours, err := repo.List(context.Background(), repositories.NewQueryFeatures(url.Values{}, repositories.TourFields))
	require.NoError(t, err)
	assert.Empty(t, tours)

	_, err = repo.FindByID(context.Background(), secret.ID)
	assert.Error(t, err)
}

func TestTourRepository_SaveLedgerVersionCheck(t *testing.T) {
	db := setupDB(t)
	created := createTour(t, db, "ledger-tour-five", 100, 4.5, time.Now())
	repo := repositories.NewTourRepository(db)
	ctx := context.Background()

	first, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	stale, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)

	// GIVEN: two readers of the same version; the first commits
	require.NoError(t, first.RecordBooking("user-1", "2021-06-19", time.Date(2026, 6, 19, 0, 0, 0, 0, time.UTC), 2))
	require.NoError(t, repo.SaveLedger(ctx, first))

	// WHEN: the stale reader commits
	require.NoError(t, stale.RecordBooking("user-2", "2021-06-19", time.Date(2026, 6, 19, 0, 0, 0, 0, time.UTC), 1))
	err = repo.SaveLedger(ctx, stale)

	// THEN: the second write is refused and the first survives
	require.Error(t, err)
	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.StartDates[0].BookedPersons)
	assert.Equal(t, first.Version, reloaded.Version)
}

func TestTourRepository_DeleteCascades(t *testing.T) {
	db := setupDB(t)
	tour := createTour(t, db, "cascade-tour-six", 100, 4.5, time.Now())
	require.NoError(t, db.Create(&models.Booking{ID: uuid.NewString(), TourID: tour.ID, UserID: "u1", Price: decimal.NewFromInt(100), NumbersOfPeople: 1, TourDate: time.Now()}).Error)
	require.NoError(t, db.Create(&models.Review{ID: uuid.NewString(), TourID: tour.ID, UserID: "u1", Review: "great", Rating: 5}).Error)
	require.NoError(t, db.Create(&models.FavoriteTour{TourID: tour.ID, UserID: "u1"}).Error)

	require.NoError(t, repositories.NewTourRepository(db).Delete(context.Background(), tour.ID))

	for _, model := range []interface{}{&models.Tour{}, &models.Booking{}, &models.Review{}, &models.FavoriteTour{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
}
