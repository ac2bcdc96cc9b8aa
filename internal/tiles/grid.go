package tiles

import (
	"fmt"

	"sunforecast/internal/types"
)

// Grid layout of the map gallery: GridColumns x GridRows tiles, skipping every
// other tile so each one covers a distinct area.
const (
	GridColumns = 3
	GridRows    = 2
	GridStride  = 2
)

// Tile is one gallery cell.
type Tile struct {
	Label string `json:"label"`
	Zoom  int    `json:"zoom"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	URL   string `json:"url"`
}

// Grid returns the gallery tiles for layer anchored at (originX, originY).
// Tile i sits at x = originX + (i mod 3)*2, y = originY + (i div 3)*2.
func (b *Builder) Grid(layer types.MapLayer, zoom, originX, originY int) ([]Tile, error) {
	out := make([]Tile, 0, GridColumns*GridRows)
	for i := range GridColumns * GridRows {
		x := originX + (i%GridColumns)*GridStride
		y := originY + (i/GridColumns)*GridStride

		u, err := b.URL(layer, zoom, x, y)
		if err != nil {
			return nil, err
		}
		out = append(out, Tile{
			Label: fmt.Sprintf("Zone %d", i+1),
			Zoom:  zoom,
			X:     x,
			Y:     y,
			URL:   u,
		})
	}
	return out, nil
}
