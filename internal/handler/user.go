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

// Accounts is the part of service.UserService used here.
type Accounts interface {
	SignUp(ctx context.Context, email, password, nickName string) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*service.Session, error)
	Refresh(ctx context.Context, raw string) (*service.Session, error)
	SignOut(ctx context.Context, raw string) error
	Profile(ctx context.Context, userID uint64) (*model.User, error)
	Rename(ctx context.Context, userID uint64, nickName string) (*model.User, error)
	Delete(ctx context.Context, userID uint64) error
}

// UserHandler serves sign-up, sign-in, token rotation and the profile of
// the authenticated user.
type UserHandler struct {
	base
	svc Accounts
}

func NewUserHandler(svc Accounts, timeout time.Duration, log *zap.Logger) *UserHandler {
	return &UserHandler{base: newBase(timeout, log), svc: svc}
}

// ----- DTOs -----

type signUpReq struct {
	Email    string `json:"email" validate:"required,accountemail"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	NickName string `json:"nickName" validate:"required"`
}
type signInReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
type renameUserReq struct {
	NickName string `json:"nickName" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    *model.User `json:"user"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

func sessionResp(s *service.Session) authResp {
	return authResp{
		User:    s.User,
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp},
	}
}

// SignUp handles POST /users.  The response never carries the password
// hash.
func (h *UserHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.svc.SignUp(ctx, req.Email, req.Password, req.NickName)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// SignIn handles POST /users/sign-in.
func (h *UserHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	s, err := h.svc.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Refresh handles POST /users/refresh: the presented token is revoked and
// a new pair returned.
func (h *UserHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	s, err := h.svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// SignOut handles POST /users/sign-out.
func (h *UserHandler) SignOut(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.svc.SignOut(ctx, req.RefreshToken); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Profile handles GET /users.
func (h *UserHandler) Profile(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.svc.Profile(ctx, uid)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Rename handles PATCH /users.
func (h *UserHandler) Rename(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req renameUserReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.svc.Rename(ctx, uid, req.NickName)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Delete handles DELETE /users: the account is soft-deleted and every
// refresh token revoked.
func (h *UserHandler) Delete(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.svc.Delete(ctx, uid); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
