package tiles

import "encoding/base64"

// PlaceholderSVG is shown in place of a tile image that failed to load.
const PlaceholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="256" height="256" viewBox="0 0 256 256">` +
	`<rect width="256" height="256" fill="#f0f0f0"/>` +
	`<text x="128" y="128" font-family="Arial, sans-serif" font-size="16" fill="#999" text-anchor="middle" dominant-baseline="middle">Carte non disponible</text>` +
	`</svg>`

// PlaceholderPath is where the HTTP layer serves PlaceholderSVG.
const PlaceholderPath = "/static/tile-placeholder.svg"

// PlaceholderDataURI returns PlaceholderSVG as a base64 data URI.
func PlaceholderDataURI() string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(PlaceholderSVG))
}
