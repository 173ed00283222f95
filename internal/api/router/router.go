package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maintenance-tracker/config"
	"maintenance-tracker/internal/api/handler"
	"maintenance-tracker/internal/api/middleware"
	"maintenance-tracker/internal/observability"
	"maintenance-tracker/pkg/jwt"
	"maintenance-tracker/pkg/redis"
)

// HealthCheck 存储健康检查，返回 nil 表示可用
type HealthCheck func(ctx context.Context) error

// 导入接口的限流：每个用户每分钟 20 次
const (
	importRateLimit  = 20
	importRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, health HealthCheck, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Prometheus ──
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(observability.Handler()))
	}

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb))
	{
		// 活动模块
		activities := v1.Group("/activities")
		{
			activities.GET("", h.Activity.ListActivities)
			activities.POST("", h.Activity.CreateActivity)
			activities.POST("/recurrence/preview", h.Activity.PreviewRecurrence)
			activities.GET("/:id", h.Activity.GetActivity)
			activities.PUT("/:id", h.Activity.UpdateActivity)
			activities.DELETE("/:id", middleware.RoleAuth("admin"), h.Activity.DeleteActivity)
			activities.PATCH("/:id/status", h.Activity.UpdateStatus)
			activities.PUT("/:id/schedule", h.Activity.Reschedule)
			activities.POST("/:id/comments", h.Activity.AddComment)
		}

		// 表格导入模块
		imports := v1.Group("/imports")
		imports.Use(middleware.RateLimit(rdb, importRateLimit, importRateWindow))
		{
			imports.POST("/preview", h.Import.PreviewImport)
			imports.POST("", middleware.RoleAuth("admin"), h.Import.CreateImport)
			imports.GET("", h.Import.ListImports)
			imports.GET("/:id", h.Import.GetImport)
			imports.PUT("/:id", middleware.RoleAuth("admin"), h.Import.Reimport)
			imports.DELETE("/:id", middleware.RoleAuth("admin"), h.Import.DeleteImport)
		}

		// 报表模块
		reports := v1.Group("/reports")
		{
			reports.GET("/manpower", h.Report.ManPower)
			reports.GET("/manpower/export", h.Report.ExportManPower)
			reports.GET("/calendar.ics", h.Report.ExportCalendar)
		}

		// 审计日志
		v1.GET("/audit-logs", middleware.RoleAuth("admin"), h.Audit.ListAuditLogs)
	}

	return r
}
