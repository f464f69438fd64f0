package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wikiedit-go-server/api/controller"
	"wikiedit-go-server/api/route"
	"wikiedit-go-server/bootstrap"
	"wikiedit-go-server/internal/csrf"
	"wikiedit-go-server/internal/parsoid"
	"wikiedit-go-server/internal/ws"
	"wikiedit-go-server/repository"
	"wikiedit-go-server/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("[Server] WikiEdit Go Server 启动中...")

	// 加载环境变量
	env := bootstrap.LoadEnv()

	// 初始化 Clerk
	bootstrap.InitClerk()

	// 连接数据库
	db := bootstrap.NewDatabase(env.DatabaseURL)

	// 依赖注入 - Repository 层
	pageRepo := repository.NewPageRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	stashRepo := repository.NewStashRepository(db)
	collabDocRepo := repository.NewCollabDocRepository(db)
	userRepo := repository.NewUserRepository(db)

	// WebSocket Hub
	hub := ws.NewHub(collabDocRepo.(ws.DocService))

	// Parsoid 客户端：分发装饰器包住直连后端
	// 工厂每次调用都重新求值，后端切换靠 ETag 里的标签保持会话连续
	converter := parsoid.NewDispatchClient(func() parsoid.Client {
		return parsoid.NewDirectClient(env.ParsoidURL, nil)
	})

	// CSRF token 签发器
	csrfIssuer := csrf.NewIssuer(env.CSRFSecret, csrf.DefaultTTL)

	// 依赖注入 - UseCase 层
	editUseCase := usecase.NewEditUseCase(pageRepo, revisionRepo, stashRepo, converter, env.ContentLanguage)
	pageUseCase := usecase.NewPageUseCase(pageRepo, revisionRepo, collabDocRepo, hub)

	// 依赖注入 - Controller 层
	editController := controller.NewEditController(editUseCase, csrfIssuer)
	pageController := controller.NewPageController(pageUseCase)
	wsHandler := controller.NewWSHandler(hub, env.AllowedOrigins)
	webhookController := controller.NewWebhookController(userRepo, env.WebhookSecret)

	// 启动 Hub 事件循环
	go hub.Run()

	// 定期清理过期的序列化暂存
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := stashRepo.Purge(); err != nil {
				log.Printf("[Stash] ❌ 清理失败: %v", err)
			} else if n > 0 {
				log.Printf("[Stash] 🧹 已清理 %d 条过期暂存", n)
			}
		}
	}()

	// 配置 Gin 路由
	router := gin.Default()

	// CORS 配置
	allowOrigins := append([]string{"http://localhost:3000", "http://localhost:5173"}, env.AllowedOrigins...)
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 设置路由
	route.Setup(router, &route.Dependencies{
		EditController:    editController,
		PageController:    pageController,
		WSHandler:         wsHandler,
		WebhookController: webhookController,
	})

	// 启动 HTTP 服务
	srv := &http.Server{
		Addr:    ":" + env.Port,
		Handler: router,
	}

	go func() {
		log.Printf("[Server] 服务已启动: http://localhost:%s", env.Port)
		log.Printf("[Server] API 端点:")
		log.Printf("   GET  /health                  - 健康检查")
		log.Printf("   GET  /api/visualeditor        - 加载页面 HTML")
		log.Printf("   POST /api/visualeditoredit    - save / serialize / diff")
		log.Printf("   GET  /api/tokens              - 获取 CSRF token")
		log.Printf("   GET  /api/pages/:title        - 获取页面")
		log.Printf("   POST /api/pages               - 创建页面")
		log.Printf("   DELETE /api/pages/:title      - 删除页面")
		log.Printf("   GET  /ws?page=xxx&token=xxx   - WebSocket 连接")
		log.Printf("   POST /webhook/clerk           - Clerk Webhook")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] 服务启动失败: %v", err)
		}
	}()

	// 优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] 收到停机信号，正在优雅关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[Server] 服务强制关闭: %v", err)
	}

	log.Println("[Server] 服务已安全停止")
}
