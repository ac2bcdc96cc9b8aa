package dashboard

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"sunforecast/internal/tiles"
	"sunforecast/internal/types"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Page is the view-model handed to the HTML template and the JSON snapshot.
type Page struct {
	Ready          bool         `json:"ready"`
	Query          string       `json:"query"`
	Loading        bool         `json:"loading"`
	Failed         bool         `json:"failed"`
	ErrorMessage   string       `json:"error_message,omitempty"`
	LocationName   string       `json:"location_name,omitempty"`
	Days           []DayTab     `json:"days"`
	Current        *Current     `json:"current,omitempty"`
	Hourly         []HourRow    `json:"hourly"`
	Layers         []LayerTab   `json:"layers"`
	Tiles          []tiles.Tile `json:"tiles"`
	PlaceholderURL string       `json:"placeholder_url"`
}

// DayTab is one entry of the day navigation bar.
type DayTab struct {
	Index    int    `json:"index"`
	Label    string `json:"label"`
	Date     string `json:"date"`
	Selected bool   `json:"selected"`
}

// Current summarises the first entry of the selected day.
type Current struct {
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
	Temp        int    `json:"temp"`
	FeelsLike   int    `json:"feels_like"`
	Humidity    int    `json:"humidity"`
	WindKmh     int    `json:"wind_kmh"`
}

// HourRow is one line of the selected day's hourly list.
type HourRow struct {
	Time        string `json:"time"`
	IconURL     string `json:"icon_url"`
	Description string `json:"description"`
	Temp        int    `json:"temp"`
}

// LayerTab is one map layer button.
type LayerTab struct {
	Value    types.MapLayer `json:"value"`
	Label    string         `json:"label"`
	Accent   string         `json:"accent"`
	Selected bool           `json:"selected"`
}

// Generic failure text shown to the viewer whatever went wrong upstream.
const loadFailedMessage = "Erreur de chargement des données météo"

var layerLabels = map[types.MapLayer]struct{ label, accent string }{
	types.MapLayerPrecipitation: {"Précipitations", "#3b82f6"},
	types.MapLayerTemperature:   {"Température", "#ef4444"},
	types.MapLayerWind:          {"Vent", "#22c55e"},
}

var frenchWeekdays = [...]string{"dim.", "lun.", "mar.", "mer.", "jeu.", "ven.", "sam."}

// PresenterConfig holds the display settings.
type PresenterConfig struct {
	IconBaseURL string
	Tiles       *tiles.Builder
	TileZoom    int
	TileOriginX int
	TileOriginY int
	Location    *time.Location
}

// Presenter turns a State into a Page.
type Presenter struct {
	cfg  PresenterConfig
	lang language.Tag
}

// NewPresenter creates a Presenter.
func NewPresenter(cfg PresenterConfig) *Presenter {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.IconBaseURL == "" {
		cfg.IconBaseURL = "https://openweathermap.org"
	}
	cfg.IconBaseURL = strings.TrimSuffix(cfg.IconBaseURL, "/")
	if cfg.Tiles == nil {
		cfg.Tiles = tiles.NewBuilder("", "")
	}
	return &Presenter{
		cfg:  cfg,
		lang: language.French,
	}
}

// Present builds the page for s. A state without any applied forecast is
// rendered as loading or failed.
func (p *Presenter) Present(s State) (Page, error) {
	page := Page{
		Query:          s.City,
		Loading:        s.Loading,
		Days:           []DayTab{},
		Hourly:         []HourRow{},
		PlaceholderURL: tiles.PlaceholderPath,
	}
	if s.LastError != nil {
		page.ErrorMessage = loadFailedMessage
	}

	for _, layer := range types.MapLayers {
		meta := layerLabels[layer]
		page.Layers = append(page.Layers, LayerTab{
			Value:    layer,
			Label:    meta.label,
			Accent:   meta.accent,
			Selected: layer == s.Layer,
		})
	}

	grid, err := p.cfg.Tiles.Grid(s.Layer, p.cfg.TileZoom, p.cfg.TileOriginX, p.cfg.TileOriginY)
	if err != nil {
		return Page{}, err
	}
	page.Tiles = grid

	if !s.Loaded() {
		page.Failed = !s.Loading
		if page.Failed {
			page.ErrorMessage = loadFailedMessage
		}
		return page, nil
	}

	page.Ready = true
	page.LocationName = s.Payload.LocationName

	for i, day := range s.Days {
		page.Days = append(page.Days, DayTab{
			Index:    i,
			Label:    dayLabel(i, day.Date),
			Date:     fmt.Sprintf("%02d/%02d", day.Date.Day, int(day.Date.Month)),
			Selected: i == s.SelectedDay,
		})
	}

	if s.SelectedDay < 0 || s.SelectedDay >= len(s.Days) || len(s.Days[s.SelectedDay].Entries) == 0 {
		return page, nil
	}
	entries := s.Days[s.SelectedDay].Entries

	// A Caser is stateful and cannot be shared across requests.
	upper := cases.Upper(p.lang)

	first := entries[0]
	page.Current = &Current{
		Description: capitalizeFirst(upper, first.Condition.Description),
		IconURL:     p.iconURL(first.Condition.Icon, "@2x"),
		Temp:        roundHalfUp(first.Temp),
		FeelsLike:   roundHalfUp(first.FeelsLike),
		Humidity:    first.Humidity,
		WindKmh:     roundHalfUp(first.WindSpeed * 3.6),
	}

	for _, e := range entries {
		page.Hourly = append(page.Hourly, HourRow{
			Time:        e.Timestamp(p.cfg.Location).Format("15:04"),
			IconURL:     p.iconURL(e.Condition.Icon, ""),
			Description: capitalizeFirst(upper, e.Condition.Description),
			Temp:        roundHalfUp(e.Temp),
		})
	}

	return page, nil
}

// capitalizeFirst upper-cases the first letter of s and leaves the rest as
// the upstream wrote it.
func capitalizeFirst(upper cases.Caser, s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return upper.String(s[:size]) + s[size:]
}

func (p *Presenter) iconURL(code, suffix string) string {
	if code == "" {
		return ""
	}
	return p.cfg.IconBaseURL + "/img/wn/" + code + suffix + ".png"
}

// dayLabel names the first tab "Aujourd'hui" and the others by their
// abbreviated French weekday.
func dayLabel(index int, d types.CivilDate) string {
	if index == 0 {
		return "Aujourd'hui"
	}
	return frenchWeekdays[d.Time(time.UTC).Weekday()]
}

// roundHalfUp rounds x to the nearest integer, halves toward +Inf.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
