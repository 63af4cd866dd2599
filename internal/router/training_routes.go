package router

import "github.com/labstack/echo/v4"

// RegisterTraining registers routines, workout logs and the max-weight
// table.  Every route requires a valid access token.  Writes that resolve
// exercises may add catalog rows, so they purge the catalog cache too.
func RegisterTraining(e *echo.Echo, d Deps) {
	g := e.Group("", d.Auth, d.RateLimit)

	// ---- Routines ----
	g.POST("/routines", d.Routines.Create, d.Invalidator)
	g.GET("/routines", d.Routines.List)
	g.GET("/routines/:id", d.Routines.Get)
	g.PATCH("/routines", d.Routines.Update, d.Invalidator)
	g.DELETE("/routines", d.Routines.Delete)

	// ---- Workout logs ----
	g.POST("/workout-logs", d.WorkoutLog.Insert, d.Invalidator)
	g.GET("/workout-logs", d.WorkoutLog.ListByDay)
	g.PATCH("/workout-logs", d.WorkoutLog.Update)
	g.DELETE("/workout-logs", d.WorkoutLog.Delete)
	g.GET("/workout-logs/user", d.WorkoutLog.History)

	// ---- Max weight ----
	g.POST("/max-weight-exercise", d.MaxWeight.Renew)
	g.GET("/max-weight-exercise", d.MaxWeight.List)
}
