// Package tiles builds OpenWeatherMap weather-map tile URLs. Building a URL
// never touches the network; the browser fetches the image and swaps in
// PlaceholderSVG when that fails.
package tiles

import (
	"fmt"
	"net/url"
	"strings"

	"sunforecast/internal/types"
)

// defaultBaseURL is the OpenWeatherMap tile host.
const defaultBaseURL = "https://tile.openweathermap.org"

// layerIDs maps each selectable layer to its fixed upstream tile set.
var layerIDs = map[types.MapLayer]string{
	types.MapLayerPrecipitation: "precipitation_new",
	types.MapLayerTemperature:   "temp_new",
	types.MapLayerWind:          "wind_new",
}

// LayerID returns the upstream tile-set identifier for layer.
func LayerID(layer types.MapLayer) (string, error) {
	id, ok := layerIDs[layer]
	if !ok {
		return "", types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidLayer,
			"unknown map layer",
			nil,
			map[string]any{"layer": string(layer)},
		)
	}
	return id, nil
}

// Builder derives tile URLs from a base URL and an access key.
type Builder struct {
	baseURL string
	apiKey  string
}

// NewBuilder creates a Builder. An empty baseURL selects the public tile host.
func NewBuilder(baseURL, apiKey string) *Builder {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Builder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// URL returns {base}/map/{layerID}/{z}/{x}/{y}.png?appid={key}.
// It is pure: the same arguments always yield the same string.
func (b *Builder) URL(layer types.MapLayer, zoom, x, y int) (string, error) {
	id, err := LayerID(layer)
	if err != nil {
		return "", err
	}
	if err := ValidateTile(zoom, x, y); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/map/%s/%d/%d/%d.png?appid=%s",
		b.baseURL, id, zoom, x, y, url.QueryEscape(b.apiKey)), nil
}

// MaxZoom is the deepest zoom level served by the tile host.
const MaxZoom = 20

// ValidateTile checks that (x, y) addresses a tile that exists at zoom.
func ValidateTile(zoom, x, y int) error {
	if zoom < 0 || zoom > MaxZoom {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidTile,
			fmt.Sprintf("zoom must be between 0 and %d", MaxZoom),
			nil,
			map[string]any{"zoom": zoom},
		)
	}
	n := 1 << zoom
	if x < 0 || x >= n || y < 0 || y >= n {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidTile,
			fmt.Sprintf("tile coordinates must be between 0 and %d at zoom %d", n-1, zoom),
			nil,
			map[string]any{"zoom": zoom, "x": x, "y": y},
		)
	}
	return nil
}
