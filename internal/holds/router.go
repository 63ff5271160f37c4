package holds

import (
	"tripstock/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupHoldRoutes(rg *gin.RouterGroup, controller *Controller) {
	// AVAILABILITY QUOTES

	capacities := rg.Group("/capacities")
	capacities.Use(middleware.JWTAuth(), middleware.Tenant())
	{
		capacities.GET("/:id/availability", controller.CheckAvailability) // GET /api/v1/capacities/:id/availability?seats=N
	}

	// HOLD LIFECYCLE

	holds := rg.Group("/holds")
	holds.Use(middleware.JWTAuth(), middleware.Tenant())
	{
		holds.POST("", controller.AcquireHold)             // POST /api/v1/holds
		holds.GET("/:id", controller.GetHold)              // GET /api/v1/holds/:id
		holds.POST("/:id/confirm", controller.ConfirmHold) // POST /api/v1/holds/:id/confirm
		holds.DELETE("/:id", controller.ReleaseHold)       // DELETE /api/v1/holds/:id
	}
}
