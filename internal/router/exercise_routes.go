package router

import "github.com/labstack/echo/v4"

// RegisterExercises registers the shared catalog.  Reads are public and
// served through the response cache; writes need a session and purge the
// cache once they succeed.
func RegisterExercises(e *echo.Echo, d Deps) {
	h := d.Exercises

	read := e.Group("/exercises", d.RateLimit, d.Cache)
	read.GET("", h.List)
	read.GET("/all", h.ListAll)

	write := e.Group("/exercises", d.Auth, d.RateLimit, d.Invalidator)
	write.POST("", h.Create)
	write.DELETE("", h.Delete)
	write.PATCH("/update", h.Rename)
}
