package models

import (
	"time"

	"gorm.io/gorm"
)

const DefaultPhoto = "default.jpg"

type User struct {
	ID                   string     `json:"id" gorm:"primaryKey;size:191"`
	Name                 string     `json:"name" gorm:"not null;size:255"`
	Email                string     `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password             string     `json:"-" gorm:"not null;size:255"`
	Role                 Role       `json:"role" gorm:"not null;size:20;default:'user'"`
	Photo                string     `json:"photo" gorm:"size:255;default:'default.jpg'"`
	Active               bool       `json:"active" gorm:"default:false"`
	AccountActive        bool       `json:"-" gorm:"not null;default:true;index"`
	LastActiveAt         *time.Time `json:"lastActiveAt"`
	ConfirmedEmail       bool       `json:"-" gorm:"default:false"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   *string    `json:"-" gorm:"size:64;index"`
	PasswordResetExpires *time.Time `json:"-"`
	EmailConfirmToken    *string    `json:"-" gorm:"size:64;index"`
	EmailConfirmExpires  *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"-"`

	FavoriteTours []FavoriteTour `json:"favoriteTours,omitempty" gorm:"foreignKey:UserID"`
}

// ChangedPasswordAfter reports whether the password changed after a token
// issued at iat (unix seconds).
func (u *User) ChangedPasswordAfter(iat int64) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat < u.PasswordChangedAt.Unix()
}

// ActiveAccounts excludes soft-deleted accounts.
func ActiveAccounts(db *gorm.DB) *gorm.DB {
	return db.Where("account_active = ?", true)
}

// UserSummary is the public face of a user embedded in other documents.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
	Role  Role   `json:"role"`
}

func (u *User) Summarize() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo, Role: u.Role}
}

// FavoriteTour is a user's bookmarked tour.
type FavoriteTour struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    string    `json:"-" gorm:"not null;size:191;uniqueIndex:idx_favorite_user_tour"`
	TourID    string    `json:"tourId" gorm:"not null;size:191;uniqueIndex:idx_favorite_user_tour;index"`
	CreatedAt time.Time `json:"-"`

	Tour *Tour `json:"tour,omitempty" gorm:"foreignKey:TourID"`
}
