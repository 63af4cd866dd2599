// Package handler holds the echo handlers.  Handlers bind and validate the
// request, call one service method under a per-request timeout and map
// service errors to HTTP statuses in respondError.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/workout-tracker/internal/middleware"
	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/service"
)

const defaultTimeout = 5 * time.Second

// base carries what every handler needs.
type base struct {
	timeout time.Duration
	log     *zap.Logger
}

func newBase(timeout time.Duration, log *zap.Logger) base {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return base{timeout: timeout, log: log}
}

func (b base) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), b.timeout)
}

// respondError writes the JSON error body for err.  Unknown errors are
// logged and reported as 500 without details.
func (b base) respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		b.log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err))
		return c.JSON(status, echo.Map{"error": http.StatusText(status)})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// bind decodes the body into req and runs the registered validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid body", model.ErrValidation)
	}
	if err := c.Validate(req); err != nil {
		if errors.Is(err, model.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	return nil
}

// currentUser returns the id stored by middleware.JWTAuth.
func currentUser(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, fmt.Errorf("%w: missing user", service.ErrUnauthorized)
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", model.ErrValidation, name)
	}
	return id, nil
}

type exerciseKeyReq struct {
	BodyPart     string `json:"bodyPart" validate:"required,bodypart"`
	ExerciseName string `json:"exerciseName" validate:"required,exercisename"`
}

func (r exerciseKeyReq) key() (model.ExerciseKey, error) {
	return model.NewExerciseKey(r.BodyPart, r.ExerciseName)
}

type idsReq struct {
	IDs []uint64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}
