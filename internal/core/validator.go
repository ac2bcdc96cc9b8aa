package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"sunforecast/internal/types"
)

// Validator wraps go-playground/validator with the dashboard's custom tags
// and maps failures onto types.AppError.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator registers:
//   - maplayer: the string parses as a types.MapLayer ("temp" allowed)
//   - city: non-blank after trimming and at most types.MaxCityLength runes
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so clients see the field they sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("maplayer", func(fl validator.FieldLevel) bool {
		_, err := types.ParseMapLayer(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("city", func(fl validator.FieldLevel) bool {
		city := strings.TrimSpace(fl.Field().String())
		return city != "" && len([]rune(city)) <= types.MaxCityLength
	})

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct checks s and returns the first violation as an AppError.
// The error code follows the failing tag.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		v.logger.Error("validator misuse", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation could not run", err)
	}

	fe := verrs[0]
	return types.NewAppErrorWithDetails(
		codeForTag(fe.Tag(), fe.Field()),
		"invalid value for "+fe.Field(),
		err,
		map[string]any{"field": fe.Field(), "rule": fe.Tag()},
	)
}

func codeForTag(tag, field string) types.ErrorCode {
	switch {
	case tag == "maplayer":
		return types.ErrCodeValidationInvalidLayer
	case tag == "city":
		return types.ErrCodeValidationInvalidCity
	case tag == "required":
		return types.ErrCodeValidationMissingField
	case field == "lat":
		return types.ErrCodeValidationInvalidLat
	case field == "lon":
		return types.ErrCodeValidationInvalidLon
	case field == "day":
		return types.ErrCodeValidationInvalidDay
	default:
		return types.ErrCodeValidationInvalidForm
	}
}
