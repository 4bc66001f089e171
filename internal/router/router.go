package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timesheet/backend/internal/handler"
	"timesheet/backend/internal/middleware"
	"timesheet/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	timesheetHandler *handler.TimesheetHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	cors := middleware.NewCORS(corsOrigins)
	engine.Use(middleware.AccessLog(), gin.Recovery(), cors.Handler())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.Auth(authService), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.Auth(authService))

	protected.GET("/rates", timesheetHandler.GetRates)
	protected.PATCH("/rates", timesheetHandler.UpdateRates)

	days := protected.Group("/days/:date")
	days.GET("", timesheetHandler.GetDay)
	days.PUT("", timesheetHandler.ReplaceDay)
	days.DELETE("", timesheetHandler.ClearDay)
	days.POST("/intervals", timesheetHandler.AddInterval)
	days.PATCH("/intervals/:id", timesheetHandler.UpdateInterval)
	days.DELETE("/intervals/:id", timesheetHandler.RemoveInterval)
	days.PUT("/allowance", timesheetHandler.SetAllowance)
	days.PUT("/night-stay", timesheetHandler.SetNightStay)
	days.PUT("/vacation", timesheetHandler.SetVacation)

	months := protected.Group("/months/:year/:month")
	months.GET("", timesheetHandler.GetMonth)
	months.POST("/refresh", timesheetHandler.RefreshMonth)
	months.GET("/export.csv", timesheetHandler.ExportMonthCSV)

	protected.GET("/years/:year/vacations", timesheetHandler.GetYearVacations)
	protected.POST("/sync", timesheetHandler.Sync)

	// Calendar apps subscribe with the token in the URL.
	api.GET("/years/:year/vacations.ics", middleware.FeedAuth(authService), timesheetHandler.ExportVacationsICS)

	cors.AllowRoutes(engine.Routes())
	return engine
}
