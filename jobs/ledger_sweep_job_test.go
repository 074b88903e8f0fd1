package jobs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"tourbook-api/database"
	"tourbook-api/models"
)

func TestLedgerSweepJob_ReleasesPastSeatsAndClearsTokens(t *testing.T) {
	// GIVEN a tour holding seats for a date that has passed
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	user := &models.User{
		ID:            uuid.NewString(),
		Name:          "Laura Wilson",
		Email:         "laura@example.com",
		Password:      "hashed",
		Role:          models.RoleUser,
		Photo:         models.DefaultPhoto,
		AccountActive: true,
	}
	token := "stale-reset-token"
	expired := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	user.PasswordResetToken = &token
	user.PasswordResetExpires = &expired
	require.NoError(t, db.Create(user).Error)

	tour := &models.Tour{
		ID:           uuid.NewString(),
		Name:         "The Forest Hiker",
		Slug:         "the-forest-hiker",
		Duration:     5,
		MaxGroupSize: 2,
		Difficulty:   models.DifficultyEasy,
		Price:        decimal.NewFromInt(397),
		Summary:      "Breathtaking hike through the Canadian Banff National Park",
		ImageCover:   "tour-1-cover.jpg",
		Images:       datatypes.JSONSlice[string]{"tour-1-1.jpg"},
		StartLocation: datatypes.NewJSONType(models.GeoPoint{
			Type:        "Point",
			Coordinates: []float64{-115.570154, 51.178456},
		}),
		Locations:    datatypes.JSONSlice[models.Location]{},
		StartDates:   models.StartDates{{Date: "2021-06-19", BookedPersons: 2, SoldOut: true}},
		Guides: models.GuideRoster{{
			UserID:   user.ID,
			Bookings: []models.GuideBooking{{Date: time.Date(2021, time.June, 19, 0, 0, 0, 0, time.UTC), BookedPersons: 2}},
		}},
		Version: 1,
	}
	require.NoError(t, db.Create(tour).Error)

	job := NewLedgerSweepJob(db, time.Hour)
	defer job.ticker.Stop()
	job.now = func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }

	// WHEN one sweep runs
	job.sweep()

	// THEN the seats are released and the reset token is gone
	var reloaded models.Tour
	require.NoError(t, db.First(&reloaded, "id = ?", tour.ID).Error)
	require.Len(t, reloaded.StartDates, 1)
	assert.Equal(t, 0, reloaded.StartDates[0].BookedPersons)
	assert.False(t, reloaded.StartDates[0].SoldOut)
	require.Len(t, reloaded.Guides, 1)
	assert.Empty(t, reloaded.Guides[0].Bookings)

	var reloadedUser models.User
	require.NoError(t, db.First(&reloadedUser, "id = ?", user.ID).Error)
	assert.Nil(t, reloadedUser.PasswordResetToken)
	assert.Nil(t, reloadedUser.PasswordResetExpires)
}

func TestLedgerSweepJob_StartStop(t *testing.T) {
	// GIVEN an empty database
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	job := NewLedgerSweepJob(db, time.Hour)

	// WHEN the job starts and stops
	job.Start()

	// THEN stopping returns once the loop exits
	done := make(chan struct{})
	go func() {
		job.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not stop")
	}
}
