package services

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

func TestHolidayService_IsWorkday(t *testing.T) {
	svc := NewHolidayService()

	tests := []struct {
		name    string
		date    string
		country string
		workday bool
	}{
		{"BR new year", "2024-01-01", "BR", false},
		{"BR ordinary monday", "2024-03-04", "BR", true},
		{"BR christmas", "2024-12-25", "BR", false},
		{"saturday", "2024-03-02", "BR", false},
		{"sunday", "2024-03-03", "US", false},
		{"US independence day", "2024-07-04", "US", false},
		{"lowercase code", "2024-01-01", "br", false},
		{"NONE weekday", "2024-01-01", "NONE", true},
		{"NONE weekend", "2024-03-02", "NONE", false},
		{"unknown code weekday", "2024-01-01", "XX", true},
		{"empty code", "2024-03-04", "", true},
		{"CN national day", "2023-10-02", "CN", false},
		{"CN makeup saturday", "2023-10-07", "CN", true},
		{"CN ordinary weekday", "2023-11-01", "CN", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.IsWorkday(day(tt.date), tt.country); got != tt.workday {
				t.Errorf("IsWorkday(%s, %s) = %v, expected %v", tt.date, tt.country, got, tt.workday)
			}
		})
	}
}

func TestHolidayService_SupportedCountries(t *testing.T) {
	svc := NewHolidayService()

	countries := svc.SupportedCountries()
	if len(countries) != len(supportedCalendars) {
		t.Fatalf("got %d countries, expected %d", len(countries), len(supportedCalendars))
	}
	if countries[0].Code != "BR" || countries[0].Name != "Brasil" {
		t.Errorf("first country = %+v", countries[0])
	}

	for _, code := range []string{"BR", "pt", "CN", "NONE"} {
		if !svc.IsSupported(code) {
			t.Errorf("IsSupported(%q) = false", code)
		}
	}
	if svc.IsSupported("XX") {
		t.Error("IsSupported(XX) = true")
	}
}
