package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API under /api/v1 and the websocket at /ws
func RegisterRoutes(router *gin.Engine, data *DataHandler, admin *AdminHandler, ws *WSHandler, adminAuth gin.HandlerFunc) {
	api := router.Group("/api/v1")
	{
		// Device routes (authenticated per reading)
		api.POST("/data", data.Ingest)
		api.GET("/data", data.List)

		api.POST("/admin/login", admin.Login)

		protected := api.Group("/admin")
		protected.Use(adminAuth)
		{
			protected.POST("/logout", admin.Logout)
			protected.GET("/devices", admin.ListDevices)
			protected.POST("/devices", admin.ProvisionDevice)
			protected.PATCH("/devices/:uid", admin.UpdateDevice)
			protected.POST("/devices/:uid/refresh", admin.RefreshDevice)
			protected.POST("/devices/:uid/export", admin.ExportDevice)
		}
	}

	if ws != nil {
		router.GET("/ws", ws.HandleWebSocket)
	}
}
