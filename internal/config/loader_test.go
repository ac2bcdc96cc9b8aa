package config

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSecretProvider is a configurable mock for testing SSM resolution.
type testSecretProvider struct {
	values     map[string]string
	err        error
	calledWith []string
	callCount  int
}

func (p *testSecretProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	p.callCount++
	p.calledWith = append(p.calledWith, keys...)
	if p.err != nil {
		return nil, p.err
	}
	result := make(map[string]string)
	for _, k := range keys {
		if v, ok := p.values[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

// clearEnv blanks every variable the Config struct reads so that values from
// the developer's shell cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "IS_TEST_MODE", "PORT",
		"OPENWEATHER_API_KEY", "OPENWEATHER_API_KEY_SSM_PARAM", "OPENWEATHER_COUNTRY", "OPENWEATHER_LANG",
		"DASHBOARD_DEFAULT_CITY", "DASHBOARD_TIMEZONE", "DASHBOARD_TILE_ZOOM",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// testDeps returns loader deps backed by the real environment but with
// dotenv loading disabled.
func testDeps(t *testing.T) loaderDeps {
	t.Helper()
	deps := defaultDeps()
	deps.dotenv = func() error { return nil }
	deps.setEnv = func(k, v string) error {
		t.Setenv(k, v)
		return nil
	}
	return deps
}

func TestLoadConfig_LocalDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadConfigWithDeps(nil, testDeps(t))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://api.openweathermap.org", cfg.OpenWeather.APIURL)
	assert.Equal(t, "https://tile.openweathermap.org", cfg.OpenWeather.TileURL)
	assert.Equal(t, "fr", cfg.OpenWeather.CountryCode)
	assert.Equal(t, "fr", cfg.OpenWeather.Language)
	assert.Equal(t, "metric", cfg.OpenWeather.Units)
	assert.Equal(t, 10*time.Second, cfg.OpenWeather.Timeout)
	assert.Equal(t, "Lyon", cfg.Dashboard.DefaultCity)
	assert.InDelta(t, 45.7578137, cfg.Dashboard.DefaultLat, 1e-9)
	assert.InDelta(t, 4.8320114, cfg.Dashboard.DefaultLon, 1e-9)
	assert.Equal(t, 8, cfg.Dashboard.TileZoom)
	assert.Equal(t, 128, cfg.Dashboard.TileOriginX)
	assert.Equal(t, 97, cfg.Dashboard.TileOriginY)
	assert.Equal(t, "dev", cfg.Build.Version)

	// Local without a key boots on stub clients.
	assert.True(t, cfg.UsesStubs())

	loc, err := cfg.Dashboard.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestLoadConfig_LocalWithKeyUsesRealClients(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENWEATHER_API_KEY", "abc123")

	cfg, err := loadConfigWithDeps(nil, testDeps(t))
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.OpenWeather.APIKey.Unmask())
	assert.False(t, cfg.UsesStubs())
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad environment", "APP_ENV", "qa"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad timezone", "DASHBOARD_TIMEZONE", "Mars/Olympus"},
		{"bad country", "OPENWEATHER_COUNTRY", "fra"},
		{"bad zoom", "DASHBOARD_TILE_ZOOM", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := loadConfigWithDeps(nil, testDeps(t))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, ErrValidation, cfgErr.Type)
		})
	}
}

func TestLoadConfig_ParsingFailure(t *testing.T) {
	clearEnv(t)
	t.Setenv("DASHBOARD_TILE_ZOOM", "eight")

	_, err := loadConfigWithDeps(nil, testDeps(t))

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrParsing, cfgErr.Type)
}

func TestLoadConfig_ProdRequiresAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := loadConfigWithDeps(nil, testDeps(t))

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrMissingSecret, cfgErr.Type)
}

func TestLoadConfig_ProdResolvesKeyFromSSM(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	os.Unsetenv("OPENWEATHER_API_KEY")
	t.Setenv("OPENWEATHER_API_KEY_SSM_PARAM", "/prod/sunforecast/openweather/key")

	provider := &testSecretProvider{
		values: map[string]string{"/prod/sunforecast/openweather/key": "from-ssm"},
	}

	cfg, err := loadConfigWithDeps(provider, testDeps(t))
	require.NoError(t, err)

	assert.Equal(t, 1, provider.callCount)
	assert.Equal(t, []string{"/prod/sunforecast/openweather/key"}, provider.calledWith)
	assert.Equal(t, "from-ssm", cfg.OpenWeather.APIKey.Unmask())
}

func TestLoadConfig_EnvOverridesSSM(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "staging")
	t.Setenv("OPENWEATHER_API_KEY", "from-env")
	t.Setenv("OPENWEATHER_API_KEY_SSM_PARAM", "/staging/sunforecast/openweather/key")

	provider := &testSecretProvider{values: map[string]string{}}

	cfg, err := loadConfigWithDeps(provider, testDeps(t))
	require.NoError(t, err)

	assert.Zero(t, provider.callCount, "SSM must not be queried when the target is already set")
	assert.Equal(t, "from-env", cfg.OpenWeather.APIKey.Unmask())
}

func TestResolveSSMParams_Errors(t *testing.T) {
	environ := func() []string {
		return []string{"OPENWEATHER_API_KEY_SSM_PARAM=/dev/key", "PATH=/usr/bin"}
	}
	lookup := func(string) (string, bool) { return "", false }

	t.Run("nil provider", func(t *testing.T) {
		err := resolveSSMParams(nil, loaderDeps{lookupEnv: lookup, environ: environ})
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, ErrSSMResolution, cfgErr.Type)
		assert.Contains(t, cfgErr.Message, "OPENWEATHER_API_KEY")
	})

	t.Run("provider failure", func(t *testing.T) {
		boom := errors.New("throttled")
		err := resolveSSMParams(&testSecretProvider{err: boom}, loaderDeps{lookupEnv: lookup, environ: environ})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("missing parameter", func(t *testing.T) {
		err := resolveSSMParams(&testSecretProvider{values: map[string]string{}}, loaderDeps{
			lookupEnv: lookup,
			environ:   environ,
			setEnv:    func(string, string) error { return nil },
		})
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Contains(t, cfgErr.Message, "SSM parameters not found for: OPENWEATHER_API_KEY")
	})
}

func TestConfigError_Format(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Type: ErrParsing, Message: "bad value", Err: inner}

	assert.Equal(t, "[PARSING_FAILED] bad value: boom", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "[SSM_FAILURE] x", (&ConfigError{Type: ErrSSMResolution, Message: "x"}).Error())
}
