// README: Driver profile (position, availability, rating aggregate) and nearby-search results.
package location

import (
	"errors"
	"time"

	"hatid/internal/types"
)

var (
	ErrNotFound   = errors.New("driver profile not found")
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
)

// DriverProfile is the driver-owned record that discovery and rating read.
type DriverProfile struct {
	UserID        types.ID
	Plate         string
	Online        bool
	Location      types.LngLat
	TotalRatings  int
	AverageRating float64
	UpdatedAt     time.Time
}

// Candidate is what the geo index returns for a search.
type Candidate struct {
	DriverID types.ID
	Location types.LngLat
	Plate    string
	Online   bool
}

// NearbyDriver is one discovery result.
type NearbyDriver struct {
	DriverID   types.ID
	Location   types.LngLat
	Plate      string
	DistanceKm float64
}

// Aggregate is a driver's running rating.
type Aggregate struct {
	TotalRatings  int
	AverageRating float64
}
