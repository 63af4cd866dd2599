package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/service"
)

// WorkoutLogger is the part of service.WorkoutLogService used here.
type WorkoutLogger interface {
	BulkInsert(ctx context.Context, userID uint64, entries []model.WorkoutEntry) ([]model.WorkoutLog, error)
	BulkUpdate(ctx context.Context, userID uint64, patches []model.WorkoutLogPatch) ([]model.WorkoutLog, error)
	SoftDelete(ctx context.Context, userID uint64, ids []uint64) error
	FindByDay(ctx context.Context, userID uint64, date time.Time) ([]model.WorkoutLog, error)
	Aggregate(ctx context.Context, userID uint64, year int) (service.WeightHistory, error)
}

type WorkoutLogHandler struct {
	base
	svc WorkoutLogger
}

func NewWorkoutLogHandler(svc WorkoutLogger, timeout time.Duration, log *zap.Logger) *WorkoutLogHandler {
	return &WorkoutLogHandler{base: newBase(timeout, log), svc: svc}
}

type logEntryReq struct {
	exerciseKeyReq
	SetCount    int     `json:"setCount" validate:"required,min=1"`
	Weight      float64 `json:"weight" validate:"gte=0,lte=99999.99"`
	RepeatCount int     `json:"repeatCount" validate:"required,min=1"`
}

type insertLogsReq struct {
	Logs []logEntryReq `json:"logs" validate:"required,min=1,dive"`
}

type logPatchReq struct {
	ID          uint64  `json:"id" validate:"required"`
	SetCount    int     `json:"setCount" validate:"required,min=1"`
	Weight      float64 `json:"weight" validate:"gte=0,lte=99999.99"`
	RepeatCount int     `json:"repeatCount" validate:"required,min=1"`
}

type updateLogsReq struct {
	Logs []logPatchReq `json:"logs" validate:"required,min=1,dive"`
}

// Insert handles POST /workout-logs.
func (h *WorkoutLogHandler) Insert(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req insertLogsReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	entries := make([]model.WorkoutEntry, 0, len(req.Logs))
	for _, l := range req.Logs {
		e, err := model.NewWorkoutEntry(l.BodyPart, l.ExerciseName, l.SetCount, l.Weight, l.RepeatCount)
		if err != nil {
			return h.respondError(c, err)
		}
		entries = append(entries, e)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.BulkInsert(ctx, uid, entries)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// ListByDay handles GET /workout-logs?date=YYYY-MM-DD.
func (h *WorkoutLogHandler) ListByDay(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	day, err := time.ParseInLocation(time.DateOnly, c.QueryParam("date"), time.UTC)
	if err != nil {
		return h.respondError(c, fmt.Errorf("%w: date must be YYYY-MM-DD", model.ErrValidation))
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.FindByDay(ctx, uid, day)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Update handles PATCH /workout-logs.
func (h *WorkoutLogHandler) Update(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req updateLogsReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	patches := make([]model.WorkoutLogPatch, 0, len(req.Logs))
	for _, l := range req.Logs {
		p, err := model.NewWorkoutLogPatch(l.ID, l.SetCount, l.Weight, l.RepeatCount)
		if err != nil {
			return h.respondError(c, err)
		}
		patches = append(patches, p)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.BulkUpdate(ctx, uid, patches)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Delete handles DELETE /workout-logs.
func (h *WorkoutLogHandler) Delete(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req idsReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.svc.SoftDelete(ctx, uid, req.IDs); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// History handles GET /workout-logs/user?year=.  Without year the whole
// history is grouped.
func (h *WorkoutLogHandler) History(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	year := 0
	if raw := c.QueryParam("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil || year < 1 {
			return h.respondError(c, fmt.Errorf("%w: year must be a positive integer", model.ErrValidation))
		}
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.Aggregate(ctx, uid, year)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
