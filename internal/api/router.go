package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/heart5/happyjoplin-go/internal/config"
	"github.com/heart5/happyjoplin-go/internal/handler"
	"github.com/heart5/happyjoplin-go/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.RateLimit(120, time.Minute))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Location report preview is running",
		})
	})

	reports := handler.NewReportHandler(cfg.OutputDir)

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		api.GET("/reports", reports.ListReports)
		api.GET("/reports/:scope", reports.GetReport)
		api.GET("/artifacts/:name", reports.GetArtifact)
	}

	return r
}
