package router

import (
	"time"

	"budgetbot/api"
	"budgetbot/config"
	_ "budgetbot/docs"
	"budgetbot/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps 路由需要的业务组件
type Deps struct {
	Dispatcher api.Dispatcher
	Expenses   api.ExpenseSource
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 路由组（供聊天网关使用）
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(), middleware.ScopePermission())
	{
		eventHandler := api.NewEventHandler(deps.Dispatcher)
		v1.POST("/events", middleware.EventRateLimit(cfg.RateLimit.EventsPerMinute, time.Minute), eventHandler.Handle)

		// 导出相关
		exportHandler := api.NewExportHandler(deps.Expenses)
		export := v1.Group("/export")
		{
			export.GET("/excel", exportHandler.ExportExcel)
			export.GET("/csv", exportHandler.ExportCSV)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
