package main

import (
	"log"

	"github.com/heart5/happyjoplin-go/internal/api"
	"github.com/heart5/happyjoplin-go/internal/config"
)

// Preview server: read-only HTTP access to the latest generated reports
// and chart artifacts.
func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化路由
	router := api.SetupRouter(cfg)

	// 启动服务器
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
