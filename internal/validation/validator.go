// Package validation wires go-playground/validator into echo so request
// bodies are checked at the boundary, before any service is called.
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workout-tracker/internal/model"
)

// Validator implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the custom tags used by request DTOs:
//
//	bodypart     – one of model.BodyParts (case-insensitive)
//	exercisename – model.ValidExerciseName
//	accountemail – model.ValidEmail after normalization
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("bodypart", func(fl validator.FieldLevel) bool {
		_, err := model.ParseBodyPart(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("exercisename", func(fl validator.FieldLevel) bool {
		return model.ValidExerciseName(fl.Field().String())
	})
	_ = v.RegisterValidation("accountemail", func(fl validator.FieldLevel) bool {
		return model.ValidEmail(model.NormalizeEmail(fl.Field().String()))
	})
	return &Validator{v: v}
}

// Validate runs struct validation and flattens the result into a single
// error wrapping model.ErrValidation.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", model.ErrValidation, strings.Join(msgs, "; "))
}

var _ echo.Validator = (*Validator)(nil)
