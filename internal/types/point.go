// README: Coordinate value objects. Stored as [lng, lat], exposed as {lat, lng}.
package types

import (
	"errors"
	"math"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// LngLat is a coordinate pair in storage order: longitude first.
type LngLat [2]float64

func (c LngLat) Lng() float64 { return c[0] }
func (c LngLat) Lat() float64 { return c[1] }

// Point returns the labelled form used at API boundaries.
func (c LngLat) Point() Point {
	return Point{Lat: c[1], Lng: c[0]}
}

// Point is the labelled coordinate pair callers see.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) LngLat() LngLat {
	return LngLat{p.Lng, p.Lat}
}

func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return ErrInvalidCoordinates
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
