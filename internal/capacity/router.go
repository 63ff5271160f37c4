package capacity

import (
	"tripstock/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCapacityRoutes(rg *gin.RouterGroup, controller *Controller) {
	// CATALOGUE READS

	capacities := rg.Group("/capacities")
	capacities.Use(middleware.JWTAuth(), middleware.Tenant())
	{
		capacities.GET("", controller.ListCapacities)  // GET /api/v1/capacities?from=&to=
		capacities.GET("/:id", controller.GetCapacity) // GET /api/v1/capacities/:id
	}

	// ADMIN CAPACITY OPERATIONS

	admin := rg.Group("/admin/capacities")
	admin.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleStaff), middleware.Tenant())
	{
		admin.POST("", controller.CreateCapacity)            // POST /api/v1/admin/capacities
		admin.PATCH("/:id", controller.UpdateCapacity)       // PATCH /api/v1/admin/capacities/:id
		admin.POST("/:id/cancel", controller.CancelCapacity) // POST /api/v1/admin/capacities/:id/cancel
		admin.POST("/:id/open", controller.OpenSale)         // POST /api/v1/admin/capacities/:id/open
	}
}
