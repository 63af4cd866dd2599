package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/service"
)

// RoutineBuilder is the part of service.RoutineService used here.
type RoutineBuilder interface {
	Create(ctx context.Context, ownerID uint64, name string, slots []model.RoutineSlot) (*model.Routine, error)
	Update(ctx context.Context, ownerID, routineID uint64, slots []model.RoutineSlot) (*service.UpdateResult, error)
	Delete(ctx context.Context, ownerID uint64, ids []uint64) error
	List(ctx context.Context, ownerID uint64) ([]model.Routine, error)
	Get(ctx context.Context, ownerID, routineID uint64) (*model.Routine, error)
}

type RoutineHandler struct {
	base
	svc RoutineBuilder
}

func NewRoutineHandler(svc RoutineBuilder, timeout time.Duration, log *zap.Logger) *RoutineHandler {
	return &RoutineHandler{base: newBase(timeout, log), svc: svc}
}

type slotReq struct {
	Order int `json:"order" validate:"required,min=1"`
	exerciseKeyReq
}

type createRoutineReq struct {
	Name      string    `json:"name" validate:"required,max=50"`
	Exercises []slotReq `json:"exercises" validate:"required,min=1,dive"`
}

type updateRoutineReq struct {
	ID        uint64    `json:"id" validate:"required"`
	Exercises []slotReq `json:"exercises" validate:"required,min=1,dive"`
}

func toSlots(in []slotReq) ([]model.RoutineSlot, error) {
	out := make([]model.RoutineSlot, 0, len(in))
	for _, s := range in {
		slot, err := model.NewRoutineSlot(s.Order, s.BodyPart, s.ExerciseName)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, nil
}

// Create handles POST /routines.
func (h *RoutineHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req createRoutineReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	slots, err := toSlots(req.Exercises)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	rt, err := h.svc.Create(ctx, uid, req.Name, slots)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, rt)
}

// List handles GET /routines.
func (h *RoutineHandler) List(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	out, err := h.svc.List(ctx, uid)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /routines/:id.
func (h *RoutineHandler) Get(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	rt, err := h.svc.Get(ctx, uid, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, rt)
}

// Update handles PATCH /routines.  The body reports whether the slots
// were replaced or left untouched.
func (h *RoutineHandler) Update(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req updateRoutineReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	slots, err := toSlots(req.Exercises)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.svc.Update(ctx, uid, req.ID, slots)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /routines.
func (h *RoutineHandler) Delete(c echo.Context) error {
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

	if err := h.svc.Delete(ctx, uid, req.IDs); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
