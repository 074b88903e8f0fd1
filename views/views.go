// Package views holds the server-rendered pages and their browser assets.
package views

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"tourbook-api/models"
	"tourbook-api/utils"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Static is the file system served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var funcs = template.FuncMap{
	"isAdmin": func(u *models.User) bool {
		return u != nil && u.Role == models.RoleAdmin
	},
	"firstName": func(name string) string {
		return strings.Fields(name + " ")[0]
	},
	"formatDate": func(t time.Time) string {
		return t.UTC().Format("January 2, 2006")
	},
	"startMonth": func(date string) string {
		t, err := utils.ParseStartDate(date)
		if err != nil {
			return date
		}
		return t.Format("January 2006")
	},
	"nextStart": func(dates models.StartDates) *models.StartDate {
		for i := range dates {
			if !dates[i].SoldOut {
				return &dates[i]
			}
		}
		return nil
	},
	"seatsLeft": func(tour *models.Tour, date string) int {
		left, err := tour.RemainingSeats(date)
		if err != nil {
			return 0
		}
		return left
	},
	"stars": func(rating int) []bool {
		out := make([]bool, 5)
		for i := range out {
			out[i] = i < rating
		}
		return out
	},
	"isFavorite": func(ids []string, id string) bool {
		for _, candidate := range ids {
			if candidate == id {
				return true
			}
		}
		return false
	},
	"roles": func() []models.Role {
		return []models.Role{models.RoleUser, models.RoleGuide, models.RoleLeadGuide, models.RoleAdmin}
	},
	"dict": func(pairs ...interface{}) (map[string]interface{}, error) {
		if len(pairs)%2 != 0 {
			return nil, errors.New("dict needs key value pairs")
		}
		out := make(map[string]interface{}, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return nil, errors.New("dict keys must be strings")
			}
			out[key] = pairs[i+1]
		}
		return out, nil
	},
}

// Load parses every page. Pages are looked up by file name, e.g. "tour.html".
func Load() (*template.Template, error) {
	return template.New("pages").Funcs(funcs).ParseFS(templateFiles, "templates/*.html")
}
