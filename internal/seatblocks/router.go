package seatblocks

import (
	"tripstock/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSeatBlockRoutes(rg *gin.RouterGroup, controller *Controller) {
	// SEAT BLOCKS (ADMIN/STAFF)

	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleStaff), middleware.Tenant())
	{
		admin.POST("/capacities/:id/blocks", controller.CreateBlock) // POST /api/v1/admin/capacities/:id/blocks
		admin.GET("/capacities/:id/blocks", controller.ListBlocks)   // GET /api/v1/admin/capacities/:id/blocks
		admin.DELETE("/blocks/:id", controller.ReleaseBlock)         // DELETE /api/v1/admin/blocks/:id
	}
}
