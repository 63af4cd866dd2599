package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/workout-tracker/internal/model"
)

// MaxWeightTracker is the part of service.MaxWeightService used here.
type MaxWeightTracker interface {
	Renewal(ctx context.Context) ([]model.MaxWeight, error)
	List(ctx context.Context) ([]model.MaxWeight, error)
}

type MaxWeightHandler struct {
	base
	svc MaxWeightTracker
}

func NewMaxWeightHandler(svc MaxWeightTracker, timeout time.Duration, log *zap.Logger) *MaxWeightHandler {
	return &MaxWeightHandler{base: newBase(timeout, log), svc: svc}
}

// Renew handles POST /max-weight-exercise: the table is rebuilt from the
// workout logs and the new rows are returned.
func (h *MaxWeightHandler) Renew(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.Renewal(ctx)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// List handles GET /max-weight-exercise.
func (h *MaxWeightHandler) List(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.List(ctx)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
