package tools

import (
	"errors"
	"math"
)

const (
	EarthRadiusKm = 6371.0

	// SearchBoxDegrees is the half-width of the coarse prefilter around the
	// query point. It is a box, not a radius.
	SearchBoxDegrees = 0.5
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// FieldError ties a validation failure to the request field it concerns.
type FieldError struct {
	Err   error
	Field string
	Msg   string
}

func (e *FieldError) Error() string { return e.Err.Error() + ": " + e.Msg }

func (e *FieldError) Unwrap() error { return e.Err }

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	a = math.Min(1, math.Max(0, a))
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

type Box struct {
	MinLat, MaxLat, MinLng, MaxLng float64
}

func BoundingBox(lat, lng, delta float64) Box {
	return Box{
		MinLat: math.Max(-90, lat-delta),
		MaxLat: math.Min(90, lat+delta),
		MinLng: math.Max(-180, lng-delta),
		MaxLng: math.Min(180, lng+delta),
	}
}

// ValidateCoordinates requires both or neither, within range.
func ValidateCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return &FieldError{Err: ErrInvalidCoordinates, Field: "lat", Msg: "lat and lng must be provided together"}
	}
	if lat == nil {
		return nil
	}
	if math.IsNaN(*lat) || *lat < -90 || *lat > 90 {
		return &FieldError{Err: ErrInvalidCoordinates, Field: "lat", Msg: "lat must be between -90 and 90"}
	}
	if math.IsNaN(*lng) || *lng < -180 || *lng > 180 {
		return &FieldError{Err: ErrInvalidCoordinates, Field: "lng", Msg: "lng must be between -180 and 180"}
	}
	return nil
}
