package models

import (
	"time"

	"tourbook-api/utils"
)

// The availability ledger lives on the Tour aggregate: StartDates carries the
// per-date counters and Guides the per-person roster. Both views must agree:
// the sum of roster persons for a month-day equals that start date's
// BookedPersons until the roster entry expires and is purged.

// FindStartDate returns the start date whose stored string equals date.
func (t *Tour) FindStartDate(date string) *StartDate {
	for i := range t.StartDates {
		if t.StartDates[i].Date == date {
			return &t.StartDates[i]
		}
	}
	return nil
}

// RemainingSeats is the capacity left on the given start date.
func (t *Tour) RemainingSeats(date string) (int, error) {
	entry := t.FindStartDate(date)
	if entry == nil {
		return 0, utils.NotFound("There is no start date %s for this tour.", date)
	}
	remaining := t.MaxGroupSize - entry.BookedPersons
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Guide returns the roster entry for userID, or nil.
func (t *Tour) Guide(userID string) *Guide {
	for i := range t.Guides {
		if t.Guides[i].UserID == userID {
			return &t.Guides[i]
		}
	}
	return nil
}

func (t *Tour) startDateByMonthDay(key string) *StartDate {
	for i := range t.StartDates {
		d, err := utils.ParseStartDate(t.StartDates[i].Date)
		if err != nil {
			continue
		}
		if utils.MonthDay(d) == key {
			return &t.StartDates[i]
		}
	}
	return nil
}

// startDateFor finds the start date a roster booking holds seats on. A Feb 29
// start date rolled onto Mar 1 of a non-leap year is matched back to Feb 29.
func (t *Tour) startDateFor(booking GuideBooking) *StartDate {
	if booking.StartDate != "" {
		if entry := t.FindStartDate(booking.StartDate); entry != nil {
			return entry
		}
	}
	if entry := t.startDateByMonthDay(utils.MonthDay(booking.Date)); entry != nil {
		return entry
	}
	if utils.IsRolledLeapDay(booking.Date) {
		return t.startDateByMonthDay(utils.MonthDay(time.Date(2000, time.February, 29, 0, 0, 0, 0, time.UTC)))
	}
	return nil
}

func (t *Tour) refreshSoldOut(entry *StartDate) {
	entry.SoldOut = entry.BookedPersons >= t.MaxGroupSize
}

// PurgeExpiredDates releases the seats held by roster entries dated before
// now, matching start dates by month-day since they recur every year.
// It must run before a tour is displayed, never while committing a booking.
// Every expired entry is resolved first; on error the tour is left untouched.
func (t *Tour) PurgeExpiredDates(now time.Time) error {
	type release struct {
		entry   *StartDate
		persons int
	}
	var releases []release
	kept := make([][]GuideBooking, len(t.Guides))

	for gi, guide := range t.Guides {
		kept[gi] = make([]GuideBooking, 0, len(guide.Bookings))
		for _, booking := range guide.Bookings {
			if !booking.Date.Before(now) {
				kept[gi] = append(kept[gi], booking)
				continue
			}

			entry := t.startDateFor(booking)
			if entry == nil {
				return utils.NotFound("There is no start date matching %s for this tour.", utils.FormatMonthDay(booking.Date))
			}
			releases = append(releases, release{entry: entry, persons: booking.BookedPersons})
		}
	}

	for _, r := range releases {
		r.entry.BookedPersons -= r.persons
		if r.entry.BookedPersons < 0 {
			r.entry.BookedPersons = 0
		}
		t.refreshSoldOut(r.entry)
	}
	for gi := range t.Guides {
		t.Guides[gi].Bookings = kept[gi]
	}
	return nil
}

// RecordBooking adds persons to the start date stored as date and appends
// tourDate to the booking user's roster entry, creating it if needed.
func (t *Tour) RecordBooking(guideUserID, date string, tourDate time.Time, persons int) error {
	if persons < 1 {
		return utils.Validation("At least one person should be booked")
	}

	entry := t.FindStartDate(date)
	if entry == nil {
		return utils.NotFound("There is no start date %s for this tour.", date)
	}
	if entry.BookedPersons+persons > t.MaxGroupSize {
		return utils.Conflict("There are no tickets available. Sold Out!")
	}

	entry.BookedPersons += persons
	t.refreshSoldOut(entry)

	booking := GuideBooking{Date: tourDate.UTC(), StartDate: date, BookedPersons: persons}
	if guide := t.Guide(guideUserID); guide != nil {
		guide.Bookings = append(guide.Bookings, booking)
		return nil
	}

	t.Guides = append(t.Guides, Guide{
		UserID:   guideUserID,
		Bookings: []GuideBooking{booking},
	})
	return nil
}

// HasExistingBooking reports whether guideUserID already holds tourDate,
// same year included.
func (t *Tour) HasExistingBooking(guideUserID string, tourDate time.Time) bool {
	guide := t.Guide(guideUserID)
	if guide == nil {
		return false
	}
	for _, b := range guide.Bookings {
		if b.Date.Equal(tourDate) {
			return true
		}
	}
	return false
}
