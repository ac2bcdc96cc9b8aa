package dashboard

import (
	"bytes"
	"strings"
	"testing"

	"sunforecast/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_LoadedPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	page, err := newTestPresenter(t).Present(loadedState(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, page))
	html := buf.String()

	assert.Contains(t, html, "Sun Forecast")
	assert.Contains(t, html, `action="/search"`)
	assert.Contains(t, html, "Aujourd&#39;hui")
	assert.Contains(t, html, "Légère pluie")
	assert.Contains(t, html, "15 km/h")
	assert.Contains(t, html, "Zone 6")
	assert.Contains(t, html, "/temp_new/8/132/99.png")
	assert.Contains(t, html, "tile-placeholder.svg")
	assert.NotContains(t, html, "Chargement...")
}

func TestRenderer_LoadingAndFailedScreens(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	p := newTestPresenter(t)

	loading, err := p.Present(State{Layer: types.MapLayerWind, Loading: true})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, loading))
	assert.Contains(t, buf.String(), "Chargement...")
	assert.Contains(t, buf.String(), `http-equiv="refresh"`)

	failed, err := p.Present(State{Layer: types.MapLayerWind})
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, r.Render(&buf, failed))
	assert.Contains(t, buf.String(), "Erreur de chargement des données météo")
	assert.False(t, strings.Contains(buf.String(), `action="/search"`))
}

func TestRenderer_EscapesUserInput(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	s := loadedState(t)
	s.City = `"><script>alert(1)</script>`
	page, err := newTestPresenter(t).Present(s)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, page))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
}
