package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/3Eeeecho/go-sharelink/docs"
	"github.com/3Eeeecho/go-sharelink/internal/config"
	"github.com/3Eeeecho/go-sharelink/internal/handlers"
	"github.com/3Eeeecho/go-sharelink/internal/middlewares"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

// Handlers 路由需要的全部 handler
type Handlers struct {
	Download *handlers.DownloadHandler
	Share    *handlers.ShareHandler
	File     *handlers.FileHandler
}

func InitRouter(h Handlers, cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	router := gin.New()
	router.Use(middlewares.AccessLog(), middlewares.Recovery())
	router.Use(middlewares.ContextTimeout(cfg.Server.RequestTimeout))

	// Health Check 路由
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 匿名下载入口，只有令牌桶削峰，真正的限流在授权流程里
	burst := middlewares.NewBurstLimiter(cfg.Share.Burst.FillInterval, cfg.Share.Burst.Capacity)
	public := router.Group("/")
	public.Use(middlewares.RateLimiter(burst))
	{
		public.POST("/download-file", h.Download.Download)
		public.GET("/share/:token", h.Download.Preview)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middlewares.AuthMiddleware(&cfg.JWT))
	{
		fileGroup := v1.Group("/files")
		{
			fileGroup.POST("", h.File.UploadFile)
			fileGroup.DELETE("/:file_id", h.File.DeleteFile)
			fileGroup.POST("/:file_id/share-links", h.Share.CreateShare)
		}

		shareGroup := v1.Group("/share-links")
		{
			shareGroup.GET("", h.Share.ListShares)
			shareGroup.DELETE("/:link_id", h.Share.RevokeShare)
			shareGroup.POST("/:link_id/regenerate", h.Share.RegenerateToken)
			shareGroup.GET("/:link_id/downloads", h.Share.ListDownloads)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		xerr.Error(c, http.StatusNotFound, xerr.NotFoundCode, "Route not found")
	})

	return router
}
