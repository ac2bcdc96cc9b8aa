package types

import (
	"fmt"
	"time"
)

// Coordinates is a geographic point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

// String renders the pair with the precision the upstream geocoder returns.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.7f,%.7f", c.Lat, c.Lon)
}

// Condition is the weather descriptor attached to a forecast entry.
type Condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ForecastEntry is one 3-hourly upstream data point. Values are metric:
// temperatures in Celsius, pressure in hPa, wind speed in m/s.
type ForecastEntry struct {
	Time      int64     `json:"dt"`
	Temp      float64   `json:"temp"`
	FeelsLike float64   `json:"feels_like"`
	Humidity  int       `json:"humidity"`
	Pressure  int       `json:"pressure"`
	WindSpeed float64   `json:"wind_speed"`
	Condition Condition `json:"condition"`
}

// Timestamp returns the entry time in the given location.
func (e ForecastEntry) Timestamp(loc *time.Location) time.Time {
	return time.Unix(e.Time, 0).In(loc)
}

// ForecastPayload is the decoded forecast response for one location.
type ForecastPayload struct {
	LocationName string          `json:"location_name"`
	Entries      []ForecastEntry `json:"entries"`
}

// CivilDate identifies a calendar day independent of time zone.
type CivilDate struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time returns midnight of the date in loc.
func (d CivilDate) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// DayGroup pairs a calendar day with the entries falling on it, in source order.
type DayGroup struct {
	Date    CivilDate       `json:"date"`
	Entries []ForecastEntry `json:"entries"`
}

// MapLayer selects an upstream weather tile overlay.
type MapLayer string

const (
	MapLayerPrecipitation MapLayer = "precipitation"
	MapLayerTemperature   MapLayer = "temperature"
	MapLayerWind          MapLayer = "wind"
)

// MapLayers lists the selectable layers in display order.
var MapLayers = []MapLayer{MapLayerPrecipitation, MapLayerTemperature, MapLayerWind}

// Valid reports whether l is one of the known layers.
func (l MapLayer) Valid() bool {
	switch l {
	case MapLayerPrecipitation, MapLayerTemperature, MapLayerWind:
		return true
	}
	return false
}

// ParseMapLayer converts user input into a MapLayer. The short "temp" alias
// is accepted alongside "temperature".
func ParseMapLayer(s string) (MapLayer, error) {
	if s == "temp" {
		return MapLayerTemperature, nil
	}
	l := MapLayer(s)
	if !l.Valid() {
		return "", NewAppErrorWithDetails(
			ErrCodeValidationInvalidLayer,
			"unknown map layer",
			nil,
			map[string]any{"layer": s},
		)
	}
	return l, nil
}
