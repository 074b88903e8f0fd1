package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	// Prices go out as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	DefaultRatingsAverage  = 4.5
	DefaultRatingsQuantity = 0
)

type Tour struct {
	ID              string                        `json:"id" gorm:"primaryKey;size:191"`
	Name            string                        `json:"name" gorm:"uniqueIndex;not null;size:40"`
	Slug            string                        `json:"slug" gorm:"index;size:191"`
	Duration        int                           `json:"duration" gorm:"not null"`
	DurationWeeks   float64                       `json:"durationWeeks" gorm:"-"`
	MaxGroupSize    int                           `json:"maxGroupSize" gorm:"not null"`
	Difficulty      Difficulty                    `json:"difficulty" gorm:"not null;size:20"`
	RatingsAverage  float64                       `json:"ratingsAverage" gorm:"default:4.5"`
	RatingsQuantity int                           `json:"ratingsQuantity" gorm:"default:0"`
	Price           decimal.Decimal               `json:"price" gorm:"type:decimal(10,2);not null"`
	PriceDiscount   decimal.NullDecimal           `json:"priceDiscount" gorm:"type:decimal(10,2)"`
	Summary         string                        `json:"summary" gorm:"not null;size:500"`
	Description     string                        `json:"description" gorm:"type:text"`
	ImageCover      string                        `json:"imageCover" gorm:"not null;size:255"`
	Images          datatypes.JSONSlice[string]   `json:"images"`
	StartDates      StartDates                    `json:"startDates"`
	SecretTour      bool                          `json:"secretTour" gorm:"default:false;index"`
	StartLocation   datatypes.JSONType[GeoPoint]  `json:"startLocation"`
	Locations       datatypes.JSONSlice[Location] `json:"locations"`
	Guides          GuideRoster                   `json:"guides"`
	Version         int                           `json:"-" gorm:"not null;default:1"`
	CreatedAt       time.Time                     `json:"createdAt" gorm:"index"`

	Reviews []Review `json:"reviews,omitempty" gorm:"foreignKey:TourID"`
}

// AfterFind fills the derived duration in weeks.
func (t *Tour) AfterFind(tx *gorm.DB) error {
	t.DurationWeeks = float64(t.Duration) / 7
	return nil
}

// TourSummary is the subset of tour fields embedded in bookings and reviews.
type TourSummary struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Price          decimal.Decimal `json:"price"`
	Duration       int             `json:"duration"`
	MaxGroupSize   int             `json:"maxGroupSize"`
	RatingsAverage float64         `json:"ratingsAverage"`
	ImageCover     string          `json:"imageCover"`
	Summary        string          `json:"summary"`
}

func (t *Tour) Summarize() TourSummary {
	return TourSummary{
		ID:             t.ID,
		Name:           t.Name,
		Slug:           t.Slug,
		Price:          t.Price,
		Duration:       t.Duration,
		MaxGroupSize:   t.MaxGroupSize,
		RatingsAverage: t.RatingsAverage,
		ImageCover:     t.ImageCover,
		Summary:        t.Summary,
	}
}

// VisibleTours hides secret tours from listings.
func VisibleTours(db *gorm.DB) *gorm.DB {
	return db.Where("secret_tour = ?", false)
}
