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
)

// ExerciseCatalog is the part of service.ExerciseService used here.
type ExerciseCatalog interface {
	Create(ctx context.Context, keys []model.ExerciseKey) ([]model.Exercise, error)
	List(ctx context.Context, bodyPart model.BodyPart) ([]model.Exercise, error)
	ListAll(ctx context.Context, includeDeleted bool) ([]model.Exercise, error)
	Delete(ctx context.Context, keys []model.ExerciseKey) error
	Rename(ctx context.Context, bodyPart, oldName, newName string) (*model.Exercise, error)
}

type ExerciseHandler struct {
	base
	svc ExerciseCatalog
}

func NewExerciseHandler(svc ExerciseCatalog, timeout time.Duration, log *zap.Logger) *ExerciseHandler {
	return &ExerciseHandler{base: newBase(timeout, log), svc: svc}
}

type exercisesReq struct {
	Exercises []exerciseKeyReq `json:"exercises" validate:"required,min=1,dive"`
}

func (r exercisesReq) keys() ([]model.ExerciseKey, error) {
	keys := make([]model.ExerciseKey, 0, len(r.Exercises))
	for _, e := range r.Exercises {
		k, err := e.key()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

type renameExerciseReq struct {
	BodyPart string `json:"bodyPart" validate:"required,bodypart"`
	OldName  string `json:"oldName" validate:"required,exercisename"`
	NewName  string `json:"newName" validate:"required,exercisename"`
}

// Create handles POST /exercises.
func (h *ExerciseHandler) Create(c echo.Context) error {
	var req exercisesReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	keys, err := req.keys()
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.Create(ctx, keys)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// List handles GET /exercises?bodyPart=.
func (h *ExerciseHandler) List(c echo.Context) error {
	bp, err := model.ParseBodyPart(c.QueryParam("bodyPart"))
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.List(ctx, bp)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListAll handles GET /exercises/all?includeDeleted=.
func (h *ExerciseHandler) ListAll(c echo.Context) error {
	includeDeleted := false
	if raw := c.QueryParam("includeDeleted"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return h.respondError(c, fmt.Errorf("%w: includeDeleted must be a boolean", model.ErrValidation))
		}
		includeDeleted = v
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.ListAll(ctx, includeDeleted)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Delete handles DELETE /exercises.
func (h *ExerciseHandler) Delete(c echo.Context) error {
	var req exercisesReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	keys, err := req.keys()
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.svc.Delete(ctx, keys); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Rename handles PATCH /exercises/update.
func (h *ExerciseHandler) Rename(c echo.Context) error {
	var req renameExerciseReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.Rename(ctx, req.BodyPart, req.OldName, req.NewName)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
