package database

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tourbook-api/models"
	"tourbook-api/utils"
)

// SeedData populates an empty database with an admin and a few tours.
func SeedData(db *gorm.DB, adminEmail, adminPassword string) error {
	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}
	if userCount > 0 {
		log.Println("Database already has data, skipping seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), 12)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}
	now := time.Now()

	users := []models.User{
		{ID: uuid.NewString(), Name: "Site Admin", Email: adminEmail, Role: models.RoleAdmin},
		{ID: uuid.NewString(), Name: "Lead Guide", Email: "lead@example.com", Role: models.RoleLeadGuide},
		{ID: uuid.NewString(), Name: "Jane Traveller", Email: "jane@example.com", Role: models.RoleUser},
	}
	for i := range users {
		users[i].Password = string(hash)
		users[i].Photo = models.DefaultPhoto
		users[i].ConfirmedEmail = true
		users[i].AccountActive = true
		users[i].LastActiveAt = &now
		if err := db.Create(&users[i]).Error; err != nil {
			log.Printf("Warning: Could not create seed user %s: %v", users[i].Email, err)
		}
	}

	tours := []models.Tour{
		seedTour("The Forest Hiker", 5, 25, models.DifficultyEasy, 397, []float64{-116.214531, 51.417611}, "Banff, Canada"),
		seedTour("The Sea Explorer", 7, 15, models.DifficultyMedium, 497, []float64{-80.185942, 25.774772}, "Miami, USA"),
		seedTour("The Snow Adventurer", 4, 10, models.DifficultyDifficult, 997, []float64{-106.822318, 39.190872}, "Aspen, USA"),
	}
	for i := range tours {
		if err := db.Create(&tours[i]).Error; err != nil {
			log.Printf("Warning: Could not create seed tour %s: %v", tours[i].Name, err)
		}
	}

	log.Println("Database seeded with users and tours")
	return nil
}

func seedTour(name string, duration, maxGroupSize int, difficulty models.Difficulty, price int64, coords []float64, address string) models.Tour {
	slug := utils.Slugify(name)
	return models.Tour{
		ID:           uuid.NewString(),
		Name:         name,
		Slug:         slug,
		Duration:     duration,
		MaxGroupSize: maxGroupSize,
		Difficulty:   difficulty,
		Price:        decimal.NewFromInt(price),
		Summary:      "Breathtaking hike through the " + address + " area",
		Description:  "A carefully guided tour for small groups.",
		ImageCover:   "tour-" + slug + "-cover.jpg",
		Images: datatypes.JSONSlice[string]{
			"tour-" + slug + "-1.jpg",
			"tour-" + slug + "-2.jpg",
			"tour-" + slug + "-3.jpg",
		},
		StartDates: models.StartDates{
			{Date: "2021-04-25"},
			{Date: "2021-07-20"},
			{Date: "2021-10-05"},
		},
		StartLocation: datatypes.NewJSONType(models.GeoPoint{Type: "Point", Coordinates: coords, Address: address, Description: address}),
		Locations:     datatypes.JSONSlice[models.Location]{},
		Guides:        models.GuideRoster{},
	}
}
