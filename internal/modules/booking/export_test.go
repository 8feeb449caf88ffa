package booking

import (
	"strings"
	"testing"
	"time"

	"hatid/internal/types"
)

func TestWriteCSV(t *testing.T) {
	list := []Booking{{
		ID:        "b1",
		Pickup:    Location{Address: "Town plaza, north gate"},
		Dropoff:   Location{Address: "Market"},
		Fare:      types.PHP(23),
		Status:    StatusCompleted,
		CreatedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}}

	var sb strings.Builder
	if err := WriteCSV(&sb, list); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	want := "id,pickup,dropoff,fare,status,createdAt\n" +
		"b1,\"Town plaza, north gate\",Market,23,completed,2025-03-01T08:00:00Z\n"
	if sb.String() != want {
		t.Fatalf("csv = %q, want %q", sb.String(), want)
	}
}
