package dashboard

import (
	"errors"
	"testing"
	"time"

	"sunforecast/internal/forecasts"
	"sunforecast/internal/tiles"
	"sunforecast/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func newTestPresenter(t *testing.T) *Presenter {
	t.Helper()
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return NewPresenter(PresenterConfig{
		IconBaseURL: "https://openweathermap.org/",
		Tiles:       tiles.NewBuilder("https://tile.openweathermap.org", "k"),
		TileZoom:    8,
		TileOriginX: 128,
		TileOriginY: 97,
		Location:    paris,
	})
}

func loadedState(t *testing.T) State {
	t.Helper()
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// Saturday 17 October 2026, 14:00 and 17:00 in Paris, then Sunday.
	sat := time.Date(2026, 10, 17, 14, 0, 0, 0, paris)
	payload := &types.ForecastPayload{
		LocationName: "Lyon",
		Entries: []types.ForecastEntry{
			{Time: sat.Unix(), Temp: 17.5, FeelsLike: -0.5, Humidity: 64, WindSpeed: 4.17,
				Condition: types.Condition{Description: "légère pluie", Icon: "10d"}},
			{Time: sat.Add(3 * time.Hour).Unix(), Temp: 15.49,
				Condition: types.Condition{Description: "nuageux", Icon: "04d"}},
			{Time: sat.Add(24 * time.Hour).Unix(), Temp: 12,
				Condition: types.Condition{Description: "ciel dégagé", Icon: "01d"}},
		},
	}
	return State{
		City:    "Lyon",
		Layer:   types.MapLayerTemperature,
		Payload: payload,
		Days:    forecasts.GroupByDay(payload.Entries, paris),
	}
}

func TestPresent_LoadedState(t *testing.T) {
	page, err := newTestPresenter(t).Present(loadedState(t))
	require.NoError(t, err)

	assert.True(t, page.Ready)
	assert.False(t, page.Failed)
	assert.Equal(t, "Lyon", page.LocationName)
	assert.Equal(t, "Lyon", page.Query)
	assert.Empty(t, page.ErrorMessage)

	require.Len(t, page.Days, 2)
	assert.Equal(t, DayTab{Index: 0, Label: "Aujourd'hui", Date: "17/10", Selected: true}, page.Days[0])
	assert.Equal(t, DayTab{Index: 1, Label: "dim.", Date: "18/10"}, page.Days[1])

	require.NotNil(t, page.Current)
	assert.Equal(t, "Légère pluie", page.Current.Description)
	assert.Equal(t, "https://openweathermap.org/img/wn/10d@2x.png", page.Current.IconURL)
	assert.Equal(t, 18, page.Current.Temp, "17.5 rounds half up")
	assert.Equal(t, 0, page.Current.FeelsLike, "-0.5 rounds half up")
	assert.Equal(t, 64, page.Current.Humidity)
	assert.Equal(t, 15, page.Current.WindKmh, "4.17 m/s is 15.012 km/h")

	require.Len(t, page.Hourly, 2)
	assert.Equal(t, HourRow{Time: "14:00", IconURL: "https://openweathermap.org/img/wn/10d.png", Description: "Légère pluie", Temp: 18}, page.Hourly[0])
	assert.Equal(t, "17:00", page.Hourly[1].Time)
	assert.Equal(t, 15, page.Hourly[1].Temp)

	require.Len(t, page.Layers, 3)
	assert.True(t, page.Layers[1].Selected)
	assert.Equal(t, "Température", page.Layers[1].Label)

	require.Len(t, page.Tiles, 6)
	assert.Contains(t, page.Tiles[0].URL, "/temp_new/8/128/97.png")
	assert.Equal(t, "Zone 6", page.Tiles[5].Label)
	assert.Equal(t, tiles.PlaceholderPath, page.PlaceholderURL)
}

func TestPresent_SelectedDayDrivesDetails(t *testing.T) {
	s := loadedState(t)
	s.SelectedDay = 1

	page, err := newTestPresenter(t).Present(s)
	require.NoError(t, err)

	assert.True(t, page.Days[1].Selected)
	assert.False(t, page.Days[0].Selected)
	assert.Equal(t, "Ciel dégagé", page.Current.Description)
	require.Len(t, page.Hourly, 1)
	assert.Equal(t, page.Current.Description, page.Hourly[0].Description)
}

func TestPresent_NotLoaded(t *testing.T) {
	p := newTestPresenter(t)

	loading, err := p.Present(State{City: "Lyon", Layer: types.MapLayerWind, Loading: true, Days: []types.DayGroup{}})
	require.NoError(t, err)
	assert.False(t, loading.Ready)
	assert.True(t, loading.Loading)
	assert.False(t, loading.Failed)
	assert.Nil(t, loading.Current)
	assert.Empty(t, loading.Days)

	failed, err := p.Present(State{City: "Lyon", Layer: types.MapLayerWind, LastError: errors.New("boom")})
	require.NoError(t, err)
	assert.True(t, failed.Failed)
	assert.Equal(t, "Erreur de chargement des données météo", failed.ErrorMessage)
}

func TestPresent_ErrorBannerKeepsData(t *testing.T) {
	s := loadedState(t)
	s.LastError = types.NewAppError(types.ErrCodeNotFoundLocation, "no match", nil)

	page, err := newTestPresenter(t).Present(s)
	require.NoError(t, err)
	assert.True(t, page.Ready)
	assert.Equal(t, "Erreur de chargement des données météo", page.ErrorMessage)
	assert.NotNil(t, page.Current)
}

func TestPresent_EmptyPayload(t *testing.T) {
	page, err := newTestPresenter(t).Present(State{
		Layer:   types.MapLayerPrecipitation,
		Payload: &types.ForecastPayload{LocationName: "Nowhere"},
		Days:    []types.DayGroup{},
	})
	require.NoError(t, err)
	assert.True(t, page.Ready)
	assert.Nil(t, page.Current)
	assert.Empty(t, page.Hourly)
}

func TestRoundHalfUp(t *testing.T) {
	want := map[float64]int{2.5: 3, 2.49: 2, -2.5: -2, -2.51: -3, 0: 0}
	for in, w := range want {
		assert.Equal(t, w, roundHalfUp(in), "roundHalfUp(%v)", in)
	}
}

func TestCapitalizeFirst(t *testing.T) {
	upper := cases.Upper(language.French)
	tests := map[string]string{
		"ciel dégagé":  "Ciel dégagé",
		"éclaircies":   "Éclaircies",
		"Nuageux":      "Nuageux",
		"":             "",
		"légère pluie": "Légère pluie",
	}
	for in, want := range tests {
		assert.Equal(t, want, capitalizeFirst(upper, in), "input %q", in)
	}
}
