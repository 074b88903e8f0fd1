package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StartDate is one recurring departure of a tour and its capacity counter.
type StartDate struct {
	Date          string `json:"date"`
	SoldOut       bool   `json:"soldOut"`
	BookedPersons int    `json:"bookedPersons"`
}

// UnmarshalJSON also accepts a bare date string, as admin forms send them.
func (sd *StartDate) UnmarshalJSON(data []byte) error {
	var date string
	if err := json.Unmarshal(data, &date); err == nil {
		*sd = StartDate{Date: date}
		return nil
	}
	type plain StartDate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*sd = StartDate(p)
	return nil
}

// StartDates is stored as a JSON array column.
type StartDates []StartDate

// Value implements driver.Valuer interface for database storage
func (sd StartDates) Value() (driver.Value, error) {
	if sd == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]StartDate(sd))
	return string(b), err
}

// Scan implements sql.Scanner interface for database retrieval
func (sd *StartDates) Scan(value interface{}) error {
	return scanJSON(value, sd, "StartDates")
}

// GormDataType returns the data type for GORM
func (StartDates) GormDataType() string {
	return "json"
}

// GuideBooking is a single booked date on a guide roster. StartDate is the
// stored start-date string the seats were taken from; rows written before it
// existed leave it empty.
type GuideBooking struct {
	Date          time.Time `json:"date"`
	StartDate     string    `json:"startDate,omitempty"`
	BookedPersons int       `json:"bookedPersons"`
}

// Guide is a roster entry: the person on whose behalf dates were booked.
// User is populated on read and never persisted.
type Guide struct {
	UserID   string         `json:"userId"`
	User     *UserSummary   `json:"user,omitempty"`
	Bookings []GuideBooking `json:"bookings"`
}

type storedGuide struct {
	UserID   string         `json:"userId"`
	Bookings []GuideBooking `json:"bookings"`
}

// GuideRoster is stored as a JSON array column.
type GuideRoster []Guide

func (gr GuideRoster) Value() (driver.Value, error) {
	stored := make([]storedGuide, 0, len(gr))
	for _, g := range gr {
		bookings := g.Bookings
		if bookings == nil {
			bookings = []GuideBooking{}
		}
		stored = append(stored, storedGuide{UserID: g.UserID, Bookings: bookings})
	}
	b, err := json.Marshal(stored)
	return string(b), err
}

func (gr *GuideRoster) Scan(value interface{}) error {
	return scanJSON(value, gr, "GuideRoster")
}

func (GuideRoster) GormDataType() string {
	return "json"
}

func scanJSON(value interface{}, dest interface{}, name string) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %s", value, name)
	}
}

// GeoPoint is a GeoJSON point; Coordinates are [lng, lat].
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
}

// LatLng returns the point's latitude and longitude.
func (g GeoPoint) LatLng() (lat, lng float64, ok bool) {
	if len(g.Coordinates) != 2 {
		return 0, 0, false
	}
	return g.Coordinates[1], g.Coordinates[0], true
}

// Location is a stop on the tour itinerary.
type Location struct {
	GeoPoint
	Day int `json:"day"`
}
