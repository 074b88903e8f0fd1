package database

import (
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tourbook-api/models"
)

// Initialize opens the database for driver ("mysql", "postgres" or "sqlite").
func Initialize(driver, databaseURL string, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql", "":
		dialector = mysql.Open(databaseURL)
	case "postgres":
		dialector = postgres.Open(databaseURL)
	case "sqlite":
		dialector = sqlite.Open(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite" {
		// In-memory sqlite databases exist per connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// OpenInMemory returns a migrated, empty sqlite database.
func OpenInMemory() (*gorm.DB, error) {
	db, err := Initialize("sqlite", ":memory:", logger.Silent)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Tour{},
		&models.Booking{},
		&models.Review{},
		&models.FavoriteTour{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := addCustomIndexes(db); err != nil {
		return fmt.Errorf("failed to add custom indexes: %w", err)
	}

	return nil
}

func addCustomIndexes(db *gorm.DB) error {
	// listing default and top-5-cheap ordering
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_tours_price_ratings ON tours(price, ratings_average DESC)").Error; err != nil {
		log.Printf("Warning: Could not create index for tours price/ratings: %v", err)
	}

	// review eligibility looks up the earliest booking of a pair
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_bookings_tour_user_date ON bookings(tour_id, user_id, tour_date)").Error; err != nil {
		log.Printf("Warning: Could not create index for bookings tour/user/date: %v", err)
	}

	return nil
}
