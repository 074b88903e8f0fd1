package repositories

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000
	// MaxPage keeps (page-1)*limit inside a 32-bit offset.
	MaxPage = math.MaxInt32/MaxLimit + 1
)

var reservedParams = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// field[op] as sent by query-string encoders, e.g. price[gte]=500.
var bracketParam = regexp.MustCompile(`^([A-Za-z0-9_]+)\[(gte|gt|lte|lt)\]$`)

var comparisonOps = map[string]string{"gte": ">=", "gt": ">", "lte": "<=", "lt": "<"}

// FieldMap maps API field names to database columns. Fields not in the map
// cannot be filtered, sorted or selected.
type FieldMap map[string]string

var TourFields = FieldMap{
	"id":              "id",
	"name":            "name",
	"slug":            "slug",
	"duration":        "duration",
	"maxGroupSize":    "max_group_size",
	"difficulty":      "difficulty",
	"ratingsAverage":  "ratings_average",
	"ratingsQuantity": "ratings_quantity",
	"price":           "price",
	"priceDiscount":   "price_discount",
	"summary":         "summary",
	"description":     "description",
	"imageCover":      "image_cover",
	"images":          "images",
	"startDates":      "start_dates",
	"startLocation":   "start_location",
	"locations":       "locations",
	"guides":          "guides",
	"createdAt":       "created_at",
}

var BookingFields = FieldMap{
	"id":              "id",
	"tour":            "tour_id",
	"user":            "user_id",
	"price":           "price",
	"numbersOfPeople": "numbers_of_people",
	"tourDate":        "tour_date",
	"createdAt":       "created_at",
	"paid":            "paid",
}

var ReviewFields = FieldMap{
	"id":        "id",
	"tour":      "tour_id",
	"user":      "user_id",
	"review":    "review",
	"rating":    "rating",
	"createdAt": "created_at",
}

var UserFields = FieldMap{
	"id":             "id",
	"name":           "name",
	"email":          "email",
	"role":           "role",
	"photo":          "photo",
	"active":         "active",
	"lastActiveAt":   "last_active_at",
	"confirmedEmail": "confirmed_email",
	"createdAt":      "created_at",
}

// foreignKeys lists the *_id columns of the map in a stable order.
func (m FieldMap) foreignKeys() []string {
	var keys []string
	for _, column := range m {
		if strings.HasSuffix(column, "_id") {
			keys = append(keys, column)
		}
	}
	sort.Strings(keys)
	return keys
}

// QueryFeatures translates filter, sort, projection and pagination query
// parameters into a gorm query.
type QueryFeatures struct {
	values url.Values
	fields FieldMap

	Page  int
	Limit int
}

func NewQueryFeatures(values url.Values, fields FieldMap) *QueryFeatures {
	qf := &QueryFeatures{values: values, fields: fields, Page: DefaultPage, Limit: DefaultLimit}
	if p, err := strconv.Atoi(values.Get("page")); err == nil && p > 0 {
		qf.Page = p
	}
	if l, err := strconv.Atoi(values.Get("limit")); err == nil && l > 0 {
		qf.Limit = l
	}
	qf.clamp()
	return qf
}

func (qf *QueryFeatures) clamp() {
	if qf.Page < 1 {
		qf.Page = DefaultPage
	}
	if qf.Page > MaxPage {
		qf.Page = MaxPage
	}
	if qf.Limit < 1 {
		qf.Limit = DefaultLimit
	}
	if qf.Limit > MaxLimit {
		qf.Limit = MaxLimit
	}
}

// Filter applies equality and gte/gt/lte/lt comparisons.
func (qf *QueryFeatures) Filter(db *gorm.DB) *gorm.DB {
	for key, vals := range qf.values {
		if reservedParams[key] || len(vals) == 0 {
			continue
		}

		field, op := key, ""
		if m := bracketParam.FindStringSubmatch(key); m != nil {
			field, op = m[1], m[2]
		}
		column, ok := qf.fields[field]
		if !ok {
			continue
		}

		if op == "" {
			if len(vals) > 1 {
				db = db.Where(column+" IN ?", vals)
			} else {
				db = db.Where(column+" = ?", vals[0])
			}
			continue
		}
		db = db.Where(column+" "+comparisonOps[op]+" ?", comparable(vals[0]))
	}
	return db
}

// comparable keeps numeric comparisons numeric.
func comparable(v string) interface{} {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// Sort orders by a comma list; a leading "-" sorts descending. Defaults to newest first.
func (qf *QueryFeatures) Sort(db *gorm.DB) *gorm.DB {
	order := qf.values.Get("sort")
	if order == "" {
		order = "-createdAt"
	}

	applied := false
	for _, part := range strings.Split(order, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		column, ok := qf.fields[strings.TrimPrefix(part, "-")]
		if !ok {
			continue
		}
		if desc {
			db = db.Order(column + " DESC")
		} else {
			db = db.Order(column + " ASC")
		}
		applied = true
	}
	if !applied {
		db = db.Order("id ASC")
	}
	return db
}

// LimitFields projects the requested fields. The id and the foreign keys the
// relations preload on are always kept.
func (qf *QueryFeatures) LimitFields(db *gorm.DB) *gorm.DB {
	raw := qf.values.Get("fields")
	if raw == "" {
		return db
	}

	columns := append([]string{"id"}, qf.fields.foreignKeys()...)
	for _, f := range strings.Split(raw, ",") {
		column, ok := qf.fields[strings.TrimSpace(f)]
		if !ok || column == "id" || strings.HasSuffix(column, "_id") {
			continue
		}
		columns = append(columns, column)
	}
	return db.Select(columns)
}

func (qf *QueryFeatures) Paginate(db *gorm.DB) *gorm.DB {
	qf.clamp()
	return db.Offset((qf.Page - 1) * qf.Limit).Limit(qf.Limit)
}

// Apply runs every stage in order.
func (qf *QueryFeatures) Apply(db *gorm.DB) *gorm.DB {
	return qf.Paginate(qf.LimitFields(qf.Sort(qf.Filter(db))))
}

// TopCheapAlias rewrites the query for the "top 5 cheap" listing.
func TopCheapAlias(values url.Values) url.Values {
	out := url.Values{}
	for k, v := range values {
		out[k] = v
	}
	out.Set("limit", "5")
	out.Set("sort", "-ratingsAverage,price")
	out.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	return out
}
