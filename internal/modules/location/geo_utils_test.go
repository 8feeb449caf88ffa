package location

import (
	"math"
	"testing"

	"hatid/internal/types"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 13.9411, Lng: 121.6236},
			b:         types.Point{Lat: 13.9411, Lng: 121.6236},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "one hundredth of a degree of latitude (~1.11km)",
			a:         types.Point{Lat: 13.90, Lng: 121.60},
			b:         types.Point{Lat: 13.91, Lng: 121.60},
			wantKm:    1.11,
			tolerance: 0.01,
		},
		{
			name:      "Manila to Cebu (~570km)",
			a:         types.Point{Lat: 14.5995, Lng: 120.9842},
			b:         types.Point{Lat: 10.3157, Lng: 123.8854},
			wantKm:    570,
			tolerance: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := haversineKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("haversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	a := types.Point{Lat: 13.0, Lng: 121.0}
	b := types.Point{Lat: 14.0, Lng: 122.0}
	if d1, d2 := haversineKm(a, b), haversineKm(b, a); math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func TestSortByDistance(t *testing.T) {
	drivers := []NearbyDriver{
		{DriverID: "c", DistanceKm: 5.0},
		{DriverID: "a", DistanceKm: 1.0},
		{DriverID: "b", DistanceKm: 3.0},
		{DriverID: "a2", DistanceKm: 1.0},
	}

	sortByDistance(drivers, func(d NearbyDriver) float64 { return d.DistanceKm })

	want := []types.ID{"a", "a2", "b", "c"}
	for i, id := range want {
		if drivers[i].DriverID != id {
			t.Fatalf("unexpected sort order: %v", drivers)
		}
	}
}

func TestSortByDistance_Empty(t *testing.T) {
	var drivers []NearbyDriver
	sortByDistance(drivers, func(d NearbyDriver) float64 { return d.DistanceKm })
}
