package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/workout-tracker/internal/model"
)

type exerciseReq struct {
	BodyPart     string `validate:"required,bodypart"`
	ExerciseName string `validate:"required,exercisename"`
}

type signUpReq struct {
	Email    string `validate:"required,accountemail"`
	Password string `validate:"required,min=8"`
}

type batchReq struct {
	Items []exerciseReq `validate:"required,min=1,dive"`
}

func TestValidatorCustomTags(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(exerciseReq{BodyPart: "legs", ExerciseName: "squat"}))
	assert.ErrorIs(t, v.Validate(exerciseReq{BodyPart: "NECK", ExerciseName: "squat"}), model.ErrValidation)
	assert.ErrorIs(t, v.Validate(exerciseReq{BodyPart: "LEGS", ExerciseName: "squat "}), model.ErrValidation)

	assert.NoError(t, v.Validate(signUpReq{Email: " Lifter@Example.com ", Password: "secret123"}))
	assert.ErrorIs(t, v.Validate(signUpReq{Email: "lifter@", Password: "secret123"}), model.ErrValidation)
}

func TestValidatorDive(t *testing.T) {
	v := New()
	assert.ErrorIs(t, v.Validate(batchReq{}), model.ErrValidation)

	err := v.Validate(batchReq{Items: []exerciseReq{{BodyPart: "LEGS", ExerciseName: "squat"}, {BodyPart: "LEGS", ExerciseName: "x"}}})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "Items[1].ExerciseName")
}
