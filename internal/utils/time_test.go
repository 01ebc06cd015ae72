package utils

import (
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{name: "empty string", timezone: "", wantErr: true},
		{name: "Local returns local", timezone: "Local"},
		{name: "valid timezone UTC", timezone: "UTC"},
		{name: "valid timezone America/New_York", timezone: "America/New_York"},
		{name: "invalid timezone", timezone: "Mars/Olympus_Mons", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadLocation(%q) error = %v, wantErr %v", tt.timezone, err, tt.wantErr)
			}
			if !tt.wantErr && loc == nil {
				t.Errorf("LoadLocation(%q) returned nil location", tt.timezone)
			}
			if got := ValidateTimezone(tt.timezone); got == tt.wantErr {
				t.Errorf("ValidateTimezone(%q) = %v", tt.timezone, got)
			}
		})
	}
}

func TestDayKey(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	inputs := []time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 1, 10, 1, 30, 0, 0, tokyo),
	}
	for _, in := range inputs {
		if got := DayKey(in); !got.Equal(want) {
			t.Errorf("DayKey(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestTodayIn(t *testing.T) {
	now := time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		hours int
		want  string
	}{
		{name: "utc", hours: 0, want: "2024-01-10"},
		{name: "east of midnight", hours: 14, want: "2024-01-11"},
		{name: "west", hours: -12, want: "2024-01-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDay(TodayAtOffset(now, tt.hours)); got != tt.want {
				t.Errorf("TodayAtOffset(%d) = %s, want %s", tt.hours, got, tt.want)
			}
		})
	}

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if got := FormatDay(TodayIn(now, tokyo)); got != "2024-01-11" {
		t.Errorf("TodayIn(Tokyo) = %s, want 2024-01-11", got)
	}
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2024-02-29")
	if err != nil {
		t.Fatalf("ParseDay() error = %v", err)
	}
	if got := FormatDay(day); got != "2024-02-29" {
		t.Errorf("FormatDay(ParseDay()) = %s", got)
	}

	for _, bad := range []string{"", "2024-13-01", "10/01/2024", "2023-02-29"} {
		if _, err := ParseDay(bad); err == nil {
			t.Errorf("ParseDay(%q) expected error", bad)
		}
	}
}

func TestDayArithmetic(t *testing.T) {
	start := time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC)

	if got := FormatDay(AddDays(start, 3)); got != "2024-03-01" {
		t.Errorf("AddDays(+3) = %s, want 2024-03-01", got)
	}
	if got := FormatDay(AddDays(start, -27)); got != "2024-01-31" {
		t.Errorf("AddDays(-27) = %s, want 2024-01-31", got)
	}
	if got := DaysBetween(start, AddDays(start, 200)); got != 200 {
		t.Errorf("DaysBetween() = %d, want 200", got)
	}
	if got := DaysBetween(AddDays(start, 5), start); got != -5 {
		t.Errorf("DaysBetween() reversed = %d, want -5", got)
	}
}
