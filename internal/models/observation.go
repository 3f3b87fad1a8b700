package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Category is one entry of the indicator taxonomy (e.g. "Indeks Gini").
type Category struct {
	ID          int64     `json:"id" db:"id" yaml:"id"`
	Name        string    `json:"name" db:"name" yaml:"name"`
	DisplayName *string   `json:"display_name,omitempty" db:"display_name" yaml:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" yaml:"-"`
}

// Label returns the display name, falling back to the canonical name.
func (c *Category) Label() string {
	if c.DisplayName != nil && *c.DisplayName != "" {
		return *c.DisplayName
	}
	return c.Name
}

// Observation is one numeric value of one category for one region in one year.
// A region is either a legacy city name or a (province_id, regency_id) pair.
type Observation struct {
	ID         int64     `json:"id" db:"id"`
	CategoryID int64     `json:"category_id" db:"category_id"`
	Year       int       `json:"year" db:"year"`
	Amount     Amount    `json:"amount" db:"amount"`
	City       *string   `json:"city,omitempty" db:"city"`
	ProvinceID *int64    `json:"province_id,omitempty" db:"province_id"`
	RegencyID  *int64    `json:"regency_id,omitempty" db:"regency_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Region returns the region key the observation is filed under.
func (o *Observation) Region() Region {
	if o.ProvinceID != nil && o.RegencyID != nil {
		return Region{ProvinceID: *o.ProvinceID, RegencyID: *o.RegencyID}
	}
	if o.City != nil {
		return Region{City: *o.City}
	}
	return Region{}
}

// Validate checks the fields a store write depends on.
func (o *Observation) Validate() error {
	if o.CategoryID <= 0 {
		return &ValidationError{Field: "category_id", Value: strconv.FormatInt(o.CategoryID, 10), Message: "category_id is required"}
	}
	if o.Year < 1900 || o.Year > 2200 {
		return &ValidationError{Field: "year", Value: strconv.Itoa(o.Year), Message: "year must be between 1900 and 2200"}
	}
	f := float64(o.Amount)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &ValidationError{Field: "amount", Value: fmt.Sprint(f), Message: "amount must be a finite number"}
	}
	if (o.ProvinceID == nil) != (o.RegencyID == nil) {
		return &ValidationError{Field: "regency_id", Message: "province_id and regency_id must be given together"}
	}
	if o.Region().IsZero() {
		return &ValidationError{Field: "city", Message: "either city or province_id/regency_id is required"}
	}
	return nil
}

// Amount is a numeric observation value. In JSON it accepts either a number
// or a localized string such as "1.885,42 M" or "Rp 1.000.000".
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*a = Amount(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return &ValidationError{Field: "amount", Value: string(data), Message: "amount must be a number"}
	}
	*a = Amount(f)
	return nil
}

// ParseAmount converts Indonesian-formatted amounts to a float. '.' is the
// thousands separator and ',' the decimal mark; a trailing M multiplies by
// 1e6 (juta) and T by 1e12 (triliun).
func ParseAmount(value string) (float64, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return 0, &ValidationError{Field: "amount", Value: value, Message: "amount is empty"}
	}

	v = strings.ReplaceAll(v, "RP", "")
	multiplier := 1.0
	switch {
	case strings.Contains(v, "M"):
		multiplier = 1e6
		v = strings.ReplaceAll(v, "M", "")
	case strings.Contains(v, "T"):
		multiplier = 1e12
		v = strings.ReplaceAll(v, "T", "")
	}

	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, ".", "")
	v = strings.ReplaceAll(v, ",", ".")

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ValidationError{Field: "amount", Value: value, Message: "amount is not a number"}
	}
	return f * multiplier, nil
}

// Region identifies where an observation was measured.
type Region struct {
	City       string
	ProvinceID int64
	RegencyID  int64
}

var regionCodePattern = regexp.MustCompile(`^(\d+):(\d+)$`)

// ParseRegion accepts either "province_id:regency_id" or a free-text city name.
func ParseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Region{}, &ValidationError{Field: "cities", Message: "region must not be empty"}
	}
	if m := regionCodePattern.FindStringSubmatch(s); m != nil {
		p, _ := strconv.ParseInt(m[1], 10, 64)
		r, _ := strconv.ParseInt(m[2], 10, 64)
		return Region{ProvinceID: p, RegencyID: r}, nil
	}
	return Region{City: s}, nil
}

// IsCode reports whether the region is a (province_id, regency_id) pair.
func (r Region) IsCode() bool {
	return r.City == "" && r.ProvinceID > 0 && r.RegencyID > 0
}

func (r Region) IsZero() bool {
	return r.City == "" && !r.IsCode()
}

// Key is the canonical string form, the inverse of ParseRegion.
func (r Region) Key() string {
	if r.IsCode() {
		return fmt.Sprintf("%d:%d", r.ProvinceID, r.RegencyID)
	}
	return r.City
}

func (r Region) String() string { return r.Key() }

// YearRange bounds a series query. Zero bounds are open.
type YearRange struct {
	From int
	To   int
}

func (y *YearRange) Contains(year int) bool {
	if y == nil {
		return true
	}
	if y.From != 0 && year < y.From {
		return false
	}
	if y.To != 0 && year > y.To {
		return false
	}
	return true
}

// SeriesPoint is one row of a (category, region) time series.
type SeriesPoint struct {
	Amount float64 `db:"amount"`
	Year   int     `db:"year"`
	Region string  `db:"-"`
}

// DuplicatePolicy decides what a write does when an observation already
// exists for the same (category, region, year).
type DuplicatePolicy string

const (
	DuplicateReject DuplicatePolicy = "reject"
	DuplicateUpdate DuplicatePolicy = "update"
	DuplicateSkip   DuplicatePolicy = "skip"
)

// ParseDuplicatePolicy validates a policy name. Empty selects reject.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DuplicateReject:
		return DuplicateReject, nil
	case DuplicateUpdate:
		return DuplicateUpdate, nil
	case DuplicateSkip:
		return DuplicateSkip, nil
	default:
		return "", &ValidationError{Field: "on_duplicate", Value: s, Message: "on_duplicate must be one of reject, update, skip"}
	}
}

// UpsertOutcome reports what a single write did.
type UpsertOutcome string

const (
	OutcomeInserted  UpsertOutcome = "inserted"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeUnchanged UpsertOutcome = "unchanged"
	OutcomeSkipped   UpsertOutcome = "skipped"
)

// BatchResult counts the outcomes of a batch write.
type BatchResult struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

func (b *BatchResult) Add(o UpsertOutcome) {
	switch o {
	case OutcomeInserted:
		b.Inserted++
	case OutcomeUpdated:
		b.Updated++
	case OutcomeUnchanged:
		b.Unchanged++
	case OutcomeSkipped:
		b.Skipped++
	}
}

func (b BatchResult) Total() int {
	return b.Inserted + b.Updated + b.Unchanged + b.Skipped
}

// RawIndicatorRecord is one cell of a statistical-agency table before it is
// mapped onto the taxonomy.
type RawIndicatorRecord struct {
	Indicator string
	Region    string
	Year      string
	Value     float64
}

// ToObservation files the record under categoryID with the region label as city.
func (r *RawIndicatorRecord) ToObservation(categoryID int64) (*Observation, error) {
	year, err := strconv.Atoi(strings.TrimSpace(r.Year))
	if err != nil {
		return nil, &ValidationError{
			Field:   "year",
			Value:   r.Year,
			Message: "invalid year label, expected YYYY",
		}
	}
	city := strings.TrimSpace(r.Region)
	obs := &Observation{
		CategoryID: categoryID,
		Year:       year,
		Amount:     Amount(r.Value),
		City:       &city,
	}
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	return obs, nil
}
