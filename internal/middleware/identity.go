package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// ContextUserID is the context key JWTAuth stores the caller's id under.
const ContextUserID = "user_id"

// UserID returns the authenticated user id stored by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ContextUserID).(uint64)
	return id, ok && id != 0
}

// userKey renders the caller for cache and rate-limit keys: the decimal
// user id, or "guest" for unauthenticated requests.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
