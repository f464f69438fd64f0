package bootstrap

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env 环境变量配置结构
type Env struct {
	DatabaseURL     string // PostgreSQL 连接字符串
	ClerkSecretKey  string // Clerk API 密钥
	WebhookSecret   string // Clerk Webhook 签名密钥
	Port            string // 服务端口
	ParsoidURL      string // Parsoid REST 服务地址
	ContentLanguage string // 站点内容语言（CollabPad 页面的回退语言）
	CSRFSecret      string // CSRF token 签名密钥
	AllowedOrigins  []string
}

// LoadEnv 加载环境变量
// 开发环境从 .env 文件加载，生产环境从系统环境变量读取
func LoadEnv() *Env {
	// 尝试加载 .env 文件（生产环境可能没有）
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env 文件未找到，将使用系统环境变量")
	}

	env := &Env{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ClerkSecretKey:  os.Getenv("CLERK_SECRET_KEY"),
		WebhookSecret:   os.Getenv("CLERK_WEBHOOK_SECRET"),
		Port:            os.Getenv("PORT"),
		ParsoidURL:      os.Getenv("PARSOID_URL"),
		ContentLanguage: os.Getenv("CONTENT_LANGUAGE"),
		CSRFSecret:      os.Getenv("CSRF_SECRET"),
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		env.AllowedOrigins = strings.Split(origins, ",")
	}

	// 默认值
	if env.Port == "" {
		env.Port = "8080"
	}
	if env.ContentLanguage == "" {
		env.ContentLanguage = "en"
	}

	// 必需变量检查
	if env.DatabaseURL == "" {
		log.Fatal("❌ 缺少必需环境变量: DATABASE_URL")
	}
	if env.ParsoidURL == "" {
		log.Fatal("❌ 缺少必需环境变量: PARSOID_URL")
	}
	if env.CSRFSecret == "" {
		log.Fatal("❌ 缺少必需环境变量: CSRF_SECRET")
	}

	log.Printf("✅ 环境变量加载完成, 端口: %s", env.Port)
	return env
}
