package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"wikiedit-go-server/internal/saveclient"

	"github.com/joho/godotenv"
)

// vesave: 命令行保存工具
// 读取本地 HTML 文件，走完整的保存协议（消毒 → 压缩 → 提交）
func main() {
	// 命令行参数
	server := flag.String("server", "", "服务地址（例如: http://localhost:8080）；留空读 VESAVE_SERVER")
	page := flag.String("page", "", "页面标题（必填）")
	file := flag.String("file", "", "要提交的 HTML 文件路径（必填）")
	paction := flag.String("paction", "save", "动作: save / serialize / diff")
	summary := flag.String("summary", "", "编辑摘要")
	oldid := flag.Uint("oldid", 0, "基准版本 ID（0 表示最新版本）")
	etag := flag.String("etag", "", "load 时拿到的 ETag，原样回传")
	cachekey := flag.String("cachekey", "", "之前 serialize 拿到的 cachekey（可选）")
	flag.Parse()

	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ 未找到 .env 文件，使用系统环境变量")
	}

	if *server == "" {
		*server = os.Getenv("VESAVE_SERVER")
	}
	authToken := os.Getenv("VESAVE_AUTH_TOKEN")

	if *server == "" {
		log.Fatal("❌ 缺少服务地址：-server 或 VESAVE_SERVER")
	}
	if *page == "" || *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	// 读取并准备 HTML
	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("❌ 读取文件失败: %v", err)
	}

	fmt.Println("🚀 准备提交...")
	prepared, err := saveclient.PrepareHTML(string(raw))
	if err != nil {
		log.Fatalf("❌ HTML 预处理失败: %v", err)
	}
	log.Printf("✅ 预处理完成: %d → %d 字节", len(raw), len(prepared))

	client := saveclient.NewClient(*server, "Bearer "+authToken)
	client.OnStaleCacheKey = func(key string) {
		log.Printf("⚠️ cachekey %s 已失效，将重传全文", key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	params := saveclient.SaveParams{
		Page:     *page,
		HTML:     prepared,
		CacheKey: *cachekey,
		OldID:    *oldid,
		ETag:     *etag,
		Summary:  *summary,
	}

	var result *saveclient.EditResult
	switch *paction {
	case "save":
		result, err = client.Save(ctx, params)
	case "serialize":
		result, err = client.Serialize(ctx, params)
	case "diff":
		result, err = client.Diff(ctx, params)
	default:
		log.Fatalf("❌ 未知 paction: %s", *paction)
	}
	if err != nil {
		log.Fatalf("❌ 提交失败: %v", err)
	}

	// 输出结果
	switch *paction {
	case "save":
		log.Printf("🎉 保存成功，新版本 ID: %d", result.NewRevID)
	case "serialize":
		log.Printf("🎉 序列化成功，cachekey: %s", result.CacheKey)
		if result.Content != nil {
			fmt.Println(*result.Content)
		}
	case "diff":
		if result.Diff != nil && *result.Diff != "" {
			fmt.Println(*result.Diff)
		} else {
			log.Println("ℹ️ 与基准版本无差异")
		}
	}
}
