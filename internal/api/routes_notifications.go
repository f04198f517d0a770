package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nexushq/nexus/internal/handlers"
	"github.com/nexushq/nexus/internal/middleware"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/summary", handler.Summary)
		group.PATCH("/mark-all-read", handler.MarkAllRead)
		group.PATCH("/:id/read", handler.MarkRead)
		group.DELETE("", handler.DeleteAll)
		group.DELETE("/:id", handler.Delete)

		group.GET("/preferences", handler.GetPreferences)
		group.PUT("/preferences", handler.UpdatePreferences)

		admin := group.Group("", middleware.RequireAdmin())
		admin.POST("/test", handler.Test)
		admin.GET("/stats", handler.Stats)
		admin.POST("/broadcast", handler.Broadcast)
	}
}
