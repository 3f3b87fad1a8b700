package models

import (
	"errors"
	"math"
	"testing"
)

// TestRawIndicatorRecord_ToObservation tests the conversion of agency cells
func TestRawIndicatorRecord_ToObservation(t *testing.T) {
	tests := []struct {
		name        string
		record      RawIndicatorRecord
		categoryID  int64
		wantErr     bool
		checkValues func(*testing.T, *Observation)
	}{
		{
			name:       "valid record",
			record:     RawIndicatorRecord{Indicator: "Gini Ratio", Region: " Kulon Progo ", Year: "2022", Value: 0.379},
			categoryID: 10,
			checkValues: func(t *testing.T, obs *Observation) {
				if obs.CategoryID != 10 {
					t.Errorf("CategoryID = %v, want %v", obs.CategoryID, 10)
				}
				if obs.Year != 2022 {
					t.Errorf("Year = %v, want %v", obs.Year, 2022)
				}
				if obs.City == nil || *obs.City != "Kulon Progo" {
					t.Errorf("City = %v, want %q", obs.City, "Kulon Progo")
				}
				if obs.Region().Key() != "Kulon Progo" {
					t.Errorf("Region = %v, want %v", obs.Region(), "Kulon Progo")
				}
			},
		},
		{
			name:       "non numeric year label",
			record:     RawIndicatorRecord{Region: "Sleman", Year: "Agustus 2022", Value: 1},
			categoryID: 10,
			wantErr:    true,
		},
		{
			name:       "year out of range",
			record:     RawIndicatorRecord{Region: "Sleman", Year: "1850", Value: 1},
			categoryID: 10,
			wantErr:    true,
		},
		{
			name:       "empty region",
			record:     RawIndicatorRecord{Region: "  ", Year: "2022", Value: 1},
			categoryID: 10,
			wantErr:    true,
		},
		{
			name:       "missing category",
			record:     RawIndicatorRecord{Region: "Sleman", Year: "2022", Value: 1},
			categoryID: 0,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := tt.record.ToObservation(tt.categoryID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToObservation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error type = %T, want *ValidationError", err)
				}
				return
			}
			if tt.checkValues != nil {
				tt.checkValues(t, obs)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1.885,42 M", 1885.42e6, false},
		{"Rp 1.000.000", 1e6, false},
		{"2,5 T", 2.5e12, false},
		{"0,379", 0.379, false},
		{"42", 42, false},
		{"", 0, true},
		{"n/a", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6*math.Max(1, math.Abs(tt.want)) {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion("34:71")
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsCode() || r.ProvinceID != 34 || r.RegencyID != 71 {
		t.Errorf("ParseRegion(34:71) = %+v", r)
	}
	if r.Key() != "34:71" {
		t.Errorf("Key() = %q, want %q", r.Key(), "34:71")
	}

	r, err = ParseRegion(" Kota Yogyakarta ")
	if err != nil {
		t.Fatal(err)
	}
	if r.IsCode() || r.City != "Kota Yogyakarta" {
		t.Errorf("ParseRegion(city) = %+v", r)
	}

	if _, err := ParseRegion(""); err == nil {
		t.Error("ParseRegion(\"\") should fail")
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var a Amount
	if err := a.UnmarshalJSON([]byte(`"1.250,5"`)); err != nil {
		t.Fatal(err)
	}
	if float64(a) != 1250.5 {
		t.Errorf("Amount = %v, want 1250.5", float64(a))
	}
	if err := a.UnmarshalJSON([]byte(`true`)); err == nil {
		t.Error("boolean amount should fail")
	}
}
