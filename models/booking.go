package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID              string          `json:"id" gorm:"primaryKey;size:191"`
	TourID          string          `json:"tourId" gorm:"not null;size:191;index:idx_bookings_tour_user"`
	UserID          string          `json:"userId" gorm:"not null;size:191;index:idx_bookings_tour_user;index"`
	Price           decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	NumbersOfPeople int             `json:"numbersOfPeople" gorm:"not null"`
	TourDate        time.Time       `json:"tourDate" gorm:"not null;index"`
	CreatedAt       time.Time       `json:"createdAt"`
	Paid            bool            `json:"paid" gorm:"default:true"`

	Tour *Tour `json:"tour,omitempty" gorm:"foreignKey:TourID"`
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

type Review struct {
	ID        string    `json:"id" gorm:"primaryKey;size:191"`
	Review    string    `json:"review" gorm:"type:text;not null"`
	Rating    int       `json:"rating" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	TourID    string    `json:"tourId" gorm:"not null;size:191;uniqueIndex:idx_reviews_tour_user"`
	UserID    string    `json:"userId" gorm:"not null;size:191;uniqueIndex:idx_reviews_tour_user;index"`

	Tour *Tour `json:"tour,omitempty" gorm:"foreignKey:TourID"`
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
