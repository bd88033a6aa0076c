package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/rond-timeline/internal/handler"
	"github.com/jengzang/rond-timeline/internal/middleware"
)

// Options 路由依赖
type Options struct {
	Logger    *zap.Logger
	Metrics   *middleware.Metrics
	Timeline  *handler.TimelineHandler
	JWTSecret string // empty disables auth
	RateLimit int    // requests per minute per client, 0 disables
}

// SetupRouter 设置路由
func SetupRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", handler.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// API 路由组
	v1 := r.Group("/api/v1")
	if opts.RateLimit > 0 {
		v1.Use(middleware.RateLimit(middleware.NewRateLimiter(opts.RateLimit, time.Minute)))
	}
	if opts.JWTSecret != "" {
		v1.Use(middleware.JWTAuth(opts.JWTSecret))
	}
	{
		v1.GET("/timeline", opts.Timeline.GetTimeline)
	}

	return r
}
