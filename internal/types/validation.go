package types

import "fmt"

// Validation constraint constants.
const (
	MinLat        = -90.0
	MaxLat        = 90.0
	MinLon        = -180.0
	MaxLon        = 180.0
	MaxCityLength = 100
)

// ValidateCoordinates checks that a coordinate pair is inside the WGS84 range.
func ValidateCoordinates(c Coordinates) error {
	if c.Lat < MinLat || c.Lat > MaxLat {
		return NewAppErrorWithDetails(
			ErrCodeValidationInvalidLat,
			fmt.Sprintf("latitude must be between %.0f and %.0f", MinLat, MaxLat),
			nil,
			map[string]any{"lat": c.Lat},
		)
	}
	if c.Lon < MinLon || c.Lon > MaxLon {
		return NewAppErrorWithDetails(
			ErrCodeValidationInvalidLon,
			fmt.Sprintf("longitude must be between %.0f and %.0f", MinLon, MaxLon),
			nil,
			map[string]any{"lon": c.Lon},
		)
	}
	return nil
}
