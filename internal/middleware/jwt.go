package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/repository"
	"github.com/iliyamo/workout-tracker/internal/utils"
)

// Reason codes carried in the `code` field of 401 responses.
const (
	CodeNoToken        = "NO_TOKEN"
	CodeExpiredToken   = "EXPIRED_TOKEN"
	CodeMalformedToken = "MALFORMED_TOKEN"
	CodeUserNotFound   = "USER_NOT_FOUND"
)

// UserLookup resolves the subject of an access token to a live account.
// *repository.UserRepo satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// JWTAuth validates the Bearer access token, then checks that its subject
// is still a live user.  On success the user id is stored in the context
// under ContextUserID.
func JWTAuth(secret string, users UserLookup, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if !strings.HasPrefix(auth, "Bearer ") || raw == "" {
				return unauthorized(c, CodeNoToken, "missing bearer token")
			}

			uid, err := utils.ParseAccessToken(secret, raw)
			switch {
			case errors.Is(err, utils.ErrTokenExpired):
				return unauthorized(c, CodeExpiredToken, "token expired")
			case err != nil:
				return unauthorized(c, CodeMalformedToken, "invalid token")
			}

			u, err := users.GetByID(c.Request().Context(), uid)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return unauthorized(c, CodeUserNotFound, "user no longer exists")
				}
				log.Error("auth user lookup failed", zap.Uint64("user_id", uid), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			c.Set(ContextUserID, u.ID)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, code, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": code})
}
