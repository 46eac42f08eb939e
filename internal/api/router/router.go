package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/diegnghtmr/vale/config"
	"github.com/diegnghtmr/vale/internal/api/handler"
	"github.com/diegnghtmr/vale/internal/api/middleware"
	"github.com/diegnghtmr/vale/internal/model"
	"github.com/diegnghtmr/vale/pkg/jwt"
	"github.com/diegnghtmr/vale/pkg/metrics"
	"github.com/diegnghtmr/vale/pkg/redis"
)

// importPath 课程导入路由，按文件上限放宽请求体限制
const importPath = "/api/v1/courses/import"

// multipartOverhead multipart 边界与表单头的余量
const multipartOverhead = 64 << 10

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时关闭黑名单检查，限流退回进程内令牌桶
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	var (
		blacklist middleware.TokenChecker
		limiter   middleware.RateLimiter = middleware.NewLocalLimiter()
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit, map[string]int64{
		importPath: cfg.Import.MaxFileSize + multipartOverhead,
	}))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证，按 IP 限流）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(limiter, cfg.RateLimit.Limit, cfg.RateLimit.Window))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			authorized.GET("/users", middleware.RoleAuth(model.RoleAdmin), h.User.ListUsers)

			// 课程模块
			courses := authorized.Group("/courses")
			{
				courses.GET("", h.Course.List)
				courses.POST("", h.Course.Create)
				courses.POST("/conflicts/check", h.Course.CheckConflict)
				courses.POST("/import", h.Import.Import)
				courses.GET("/:id", h.Course.GetByID)
				courses.PUT("/:id", h.Course.Update)
				courses.DELETE("/:id", h.Course.Delete)
				courses.PATCH("/:id/calendar", h.Course.ToggleCalendar)
				courses.PATCH("/:id/completed", h.Course.ToggleCompleted)
			}

			// 日历模块
			calendar := authorized.Group("/calendar")
			{
				calendar.GET("", h.Calendar.Week)
				calendar.GET("/export", h.Export.ExportSchedule)
			}
		}
	}

	return r
}
