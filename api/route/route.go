package route

import (
	"wikiedit-go-server/api/controller"
	"wikiedit-go-server/api/middleware"

	"github.com/gin-gonic/gin"
)

// Dependencies 路由依赖注入结构
type Dependencies struct {
	EditController    *controller.EditController
	PageController    *controller.PageController
	WSHandler         *controller.WSHandler
	WebhookController *controller.WebhookController
}

// Setup 配置所有路由
func Setup(router *gin.Engine, deps *Dependencies) {
	// --- 公开路由 ---

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "wikiedit-go-server",
		})
	})

	// Clerk Webhook（使用签名验证，不使用 JWT）
	router.POST("/webhook/clerk", deps.WebhookController.HandleClerkWebhook)

	// --- WebSocket 路由 ---
	// WebSocket 自行在 Handler 中验证 Token
	router.GET("/ws", deps.WSHandler.HandleWS)

	// --- API 路由（需要 Clerk JWT 认证）---
	api := router.Group("/api")
	api.Use(middleware.ClerkAuth())
	{
		// 可视化编辑动作
		api.GET("/visualeditor", deps.EditController.LoadPage)
		api.POST("/visualeditoredit", deps.EditController.Edit)
		api.GET("/tokens", deps.EditController.Token)

		// 页面 CRUD
		api.GET("/pages/:title", deps.PageController.GetPage)
		api.POST("/pages", deps.PageController.CreatePage)
		api.DELETE("/pages/:title", deps.PageController.DeletePage)
	}
}
