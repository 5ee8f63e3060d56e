package model

import (
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestWindow_Overlaps(t *testing.T) {
	tests := []struct {
		name     string
		a        Window
		b        Window
		expected bool
	}{
		{"identical", win(t, "10:00", "11:00"), win(t, "10:00", "11:00"), true},
		{"partial overlap at end", win(t, "10:00", "11:00"), win(t, "10:30", "11:30"), true},
		{"partial overlap at start", win(t, "10:30", "11:30"), win(t, "10:00", "11:00"), true},
		{"contained", win(t, "09:00", "12:00"), win(t, "10:00", "11:00"), true},
		{"touching end to start", win(t, "10:00", "11:00"), win(t, "11:00", "12:00"), false},
		{"touching start to end", win(t, "11:00", "12:00"), win(t, "10:00", "11:00"), false},
		{"disjoint", win(t, "08:00", "09:00"), win(t, "10:00", "11:00"), false},
		{"one second overlap", win(t, "10:00:00", "11:00:01"), win(t, "11:00:00", "12:00:00"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.expected {
				t.Errorf("%s.Overlaps(%s) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestWindow_Valid(t *testing.T) {
	if win(t, "10:00", "10:00").Valid() {
		t.Error("start == end must be invalid")
	}
	if win(t, "11:00", "10:00").Valid() {
		t.Error("start > end must be invalid")
	}
	if !win(t, "00:00:00", "23:59:59").Valid() {
		t.Error("full day window should be valid")
	}
}

func TestWindow_Within(t *testing.T) {
	bounds := win(t, "08:00", "18:00")

	if !win(t, "08:00", "18:00").Within(bounds) {
		t.Error("window equal to bounds should be within")
	}
	if win(t, "07:59", "09:00").Within(bounds) {
		t.Error("window starting before opening should not be within")
	}
	if win(t, "17:00", "18:00:01").Within(bounds) {
		t.Error("window ending after closing should not be within")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00:00", 0, false},
		{"10:30:15", TimeOfDay(10*3600 + 30*60 + 15), false},
		{"10:30", TimeOfDay(10*3600 + 30*60), false},
		{" 09:00 ", TimeOfDay(9 * 3600), false},
		{"24:00:00", 0, true},
		{"9am", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.input, got, tt.want)
			}
			if got.String() == "" {
				t.Error("String() should not be empty")
			}
		})
	}
}

func TestDate_ParseAndCompare(t *testing.T) {
	d, err := ParseDate("2024-06-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-06-01" {
		t.Errorf("String() = %q, want 2024-06-01", d.String())
	}

	next, _ := ParseDate("2024-06-02")
	if !d.Before(next) {
		t.Error("2024-06-01 should be before 2024-06-02")
	}
	if d.Compare(d) != 0 {
		t.Error("date should compare equal to itself")
	}
	if DateOf(time.Date(2024, time.June, 1, 23, 59, 0, 0, time.UTC)) != d {
		t.Error("DateOf should drop the clock time")
	}

	if _, err := ParseDate("2024-13-01"); err == nil {
		t.Error("expected error for invalid month")
	}
	if _, err := ParseDate("01/06/2024"); err == nil {
		t.Error("expected error for wrong layout")
	}
}

func TestBooking_JSONEncoding(t *testing.T) {
	b := Booking{
		ID:        "b1",
		RoomID:    "r1",
		UserID:    "u1",
		Date:      Date{Year: 2024, Month: time.June, Day: 1},
		StartTime: MustParseTimeOfDay("10:00:00"),
		EndTime:   MustParseTimeOfDay("11:00:00"),
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if raw["date"] != "2024-06-01" {
		t.Errorf("date encoded as %v, want 2024-06-01", raw["date"])
	}
	if raw["start_time"] != "10:00:00" || raw["end_time"] != "11:00:00" {
		t.Errorf("times encoded as %v / %v", raw["start_time"], raw["end_time"])
	}

	var decoded Booking
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Window() != b.Window() || decoded.Date != b.Date {
		t.Errorf("decoded booking differs: %+v", decoded)
	}
}

func TestBooking_BSONStoresSortableStrings(t *testing.T) {
	b := Booking{
		ID:        "b1",
		Date:      Date{Year: 2024, Month: time.June, Day: 1},
		StartTime: MustParseTimeOfDay("09:05:00"),
		EndTime:   MustParseTimeOfDay("10:00:00"),
	}

	data, err := bson.Marshal(b)
	if err != nil {
		t.Fatalf("bson marshal failed: %v", err)
	}

	raw := bson.Raw(data)
	if got := raw.Lookup("date").StringValue(); got != "2024-06-01" {
		t.Errorf("bson date = %q", got)
	}
	if got := raw.Lookup("start_time").StringValue(); got != "09:05:00" {
		t.Errorf("bson start_time = %q", got)
	}

	var decoded Booking
	if err := bson.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("bson unmarshal failed: %v", err)
	}
	if decoded.Date != b.Date || decoded.Window() != b.Window() {
		t.Errorf("decoded booking differs: %+v", decoded)
	}
}

func win(t *testing.T, start, end string) Window {
	t.Helper()
	w, err := NewWindow(start, end)
	if err != nil {
		t.Fatalf("bad window %s-%s: %v", start, end, err)
	}
	return w
}
