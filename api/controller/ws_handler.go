package controller

import (
	"errors"
	"log"
	"net/http"
	"strings"

	domainErrors "wikiedit-go-server/domain/errors"
	"wikiedit-go-server/internal/ws"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler WebSocket 连接处理器（CollabPad 协同编辑入口）
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler 构造函数
func NewWSHandler(hub *ws.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 配置 CORS
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 开发环境允许所有
				if origin == "" || strings.HasPrefix(origin, "http://localhost") {
					return true
				}
				// 生产环境检查白名单
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				log.Printf("[WS] ⚠️ 拒绝来自 %s 的连接", origin)
				return false
			},
		},
	}
}

// HandleWS 处理 WebSocket 升级请求
// GET /ws?page=Special:CollabPad/xxx
// ⚠️ 需要在 URL 查询参数或 Sec-WebSocket-Protocol 中携带 JWT Token
func (h *WSHandler) HandleWS(c *gin.Context) {
	title := c.Query("page")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page 不能为空"})
		return
	}

	// 1. 验证 JWT Token（从 URL 参数获取，因为 WebSocket 不支持自定义 Header）
	token := c.Query("token")
	if token == "" {
		// 也尝试从 Sec-WebSocket-Protocol 获取（某些客户端实现）
		token = c.GetHeader("Sec-WebSocket-Protocol")
	}

	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少认证 token"})
		return
	}

	// 2. 验证 Clerk JWT
	claims, err := jwt.Verify(c.Request.Context(), &jwt.VerifyParams{
		Token: token,
	})
	if err != nil {
		log.Printf("[WS] ❌ Token 验证失败: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token 无效", "details": err.Error()})
		return
	}

	// 3. 获取或创建房间（会验证协同文档存在性）
	room, err := h.hub.GetOrCreateRoom(title)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrDocNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "协同文档不存在"})
		case errors.Is(err, domainErrors.ErrRoomClosing):
			c.JSON(http.StatusConflict, gin.H{"error": "房间正在关闭，请稍后重试"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	// 4. 升级为 WebSocket 连接
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] ❌ 升级 WebSocket 失败: %v", err)
		return
	}

	// 5. 创建客户端并注册到房间
	userInfo := ws.UserInfo{
		UserID:   claims.Subject,
		UserName: claims.Subject,
		Color:    generateUserColor(claims.Subject),
	}

	client := ws.NewClient(h.hub, conn, title, userInfo)
	room.Register(client)

	log.Printf("[WS] ✅ 用户 [%s] 连接到页面 [%s]", userInfo.UserID, title)

	// 6. 启动读写协程
	go client.WritePump()
	go client.ReadPump()
}

// generateUserColor 根据用户 ID 生成协作光标颜色
func generateUserColor(userID string) string {
	// 使用用户 ID 的哈希值生成一致的颜色
	colors := []string{
		"#FF6B6B", // 红色
		"#4ECDC4", // 青色
		"#45B7D1", // 蓝色
		"#96CEB4", // 绿色
		"#FFEAA7", // 黄色
		"#DDA0DD", // 梅红
		"#98D8C8", // 薄荷
		"#F7DC6F", // 金色
	}

	// 简单哈希
	hash := 0
	for _, c := range userID {
		hash = hash*31 + int(c)
	}
	if hash < 0 {
		hash = -hash
	}

	return colors[hash%len(colors)]
}
