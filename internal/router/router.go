// Package router registers the HTTP routes on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workout-tracker/internal/handler"
)

// Deps bundles the handlers and the middleware chains the routes need.
// Auth must be middleware.JWTAuth; the other middleware may be
// pass-through when Redis is not configured.
type Deps struct {
	DB         handler.Pinger
	Users      *handler.UserHandler
	Exercises  *handler.ExerciseHandler
	Routines   *handler.RoutineHandler
	WorkoutLog *handler.WorkoutLogHandler
	MaxWeight  *handler.MaxWeightHandler

	Auth        echo.MiddlewareFunc
	RateLimit   echo.MiddlewareFunc
	Cache       echo.MiddlewareFunc
	Invalidator echo.MiddlewareFunc
}

// Register mounts every route of the API.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d.DB)
	RegisterUsers(e, d)
	RegisterExercises(e, d)
	RegisterTraining(e, d)
}

// RegisterRoutes registers routes that need neither a session nor rate
// limiting.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterUsers registers the account routes.  Sign-up, sign-in, refresh
// and sign-out work without an access token; the profile routes act on the
// authenticated user.
func RegisterUsers(e *echo.Echo, d Deps) {
	public := e.Group("/users", d.RateLimit)
	public.POST("", d.Users.SignUp)
	public.POST("/sign-in", d.Users.SignIn)
	public.POST("/refresh", d.Users.Refresh)
	public.POST("/sign-out", d.Users.SignOut)

	// The limiter runs after JWTAuth so its key can include the user.
	me := e.Group("/users", d.Auth, d.RateLimit)
	me.GET("", d.Users.Profile)
	me.PATCH("", d.Users.Rename)
	me.DELETE("", d.Users.Delete)
}
