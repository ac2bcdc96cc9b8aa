package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunforecast/internal/types"
)

type searchCommand struct {
	City string `json:"city" validate:"city"`
}

type layerCommand struct {
	Layer string `json:"layer" validate:"required,maplayer"`
}

type forecastQuery struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

type dayCommand struct {
	Day *int `json:"day" validate:"required,min=0,max=4"`
}

func TestValidator_ValidateStruct(t *testing.T) {
	v := NewValidator(discardLogger())
	three, six := 3, 6

	tests := []struct {
		name     string
		input    any
		wantCode types.ErrorCode
		field    string
	}{
		{name: "city ok", input: searchCommand{City: "Paris"}},
		{name: "city blank", input: searchCommand{City: "   "}, wantCode: types.ErrCodeValidationInvalidCity, field: "city"},
		{name: "city too long", input: searchCommand{City: strings.Repeat("é", types.MaxCityLength+1)}, wantCode: types.ErrCodeValidationInvalidCity, field: "city"},
		{name: "layer ok", input: layerCommand{Layer: "wind"}},
		{name: "layer alias", input: layerCommand{Layer: "temp"}},
		{name: "layer unknown", input: layerCommand{Layer: "clouds"}, wantCode: types.ErrCodeValidationInvalidLayer, field: "layer"},
		{name: "layer missing", input: layerCommand{}, wantCode: types.ErrCodeValidationMissingField, field: "layer"},
		{name: "coords ok", input: forecastQuery{Lat: 45.75, Lon: 4.83}},
		{name: "lat out of range", input: forecastQuery{Lat: 91}, wantCode: types.ErrCodeValidationInvalidLat, field: "lat"},
		{name: "lon out of range", input: forecastQuery{Lon: -181}, wantCode: types.ErrCodeValidationInvalidLon, field: "lon"},
		{name: "day ok", input: dayCommand{Day: &three}},
		{name: "day out of range", input: dayCommand{Day: &six}, wantCode: types.ErrCodeValidationInvalidDay, field: "day"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestValidator_NonStructInput(t *testing.T) {
	v := NewValidator(discardLogger())
	err := v.ValidateStruct("not a struct")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalUnexpected, appErr.Code)
}
