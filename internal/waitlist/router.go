package waitlist

import (
	"tripstock/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupWaitlistRoutes configures all waitlist-related routes following the same pattern as other modules
func SetupWaitlistRoutes(rg *gin.RouterGroup, controller *Controller) {
	// Authenticated caller operations
	authenticated := rg.Group("")
	authenticated.Use(middleware.JWTAuth(), middleware.Tenant())
	{
		authenticated.POST("/capacities/:id/waitlist", controller.JoinWaitlist) // JOIN waitlist
		authenticated.GET("/waitlist/:id", controller.GetEntry)                 // GET entry with position
		authenticated.DELETE("/waitlist/:id", controller.LeaveWaitlist)         // LEAVE waitlist
	}

	// Admin waitlist routes
	adminWaitlist := rg.Group("/admin/capacities")
	adminWaitlist.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleStaff), middleware.Tenant())
	{
		adminWaitlist.GET("/:id/waitlist", controller.ListEntries)      // List entries
		adminWaitlist.POST("/:id/waitlist/promote", controller.Promote) // Manual promotion pass
	}
}
