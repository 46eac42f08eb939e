package service

import (
	"go.uber.org/zap"

	"github.com/diegnghtmr/vale/config"
	"github.com/diegnghtmr/vale/internal/repository"
	"github.com/diegnghtmr/vale/pkg/jwt"
	"github.com/diegnghtmr/vale/pkg/metrics"
	"github.com/diegnghtmr/vale/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	User     UserService
	Course   CourseService
	Calendar CalendarService
	Import   ImportService
	Export   ExportService
}

// NewService 创建 Service 聚合
// rdb 可为 nil：Token 黑名单与日历缓存随之停用
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	// 避免把 nil 指针装进非 nil 接口
	var blacklist TokenBlacklist
	var cache CalendarCache
	if rdb != nil {
		blacklist = rdb
		cache = rdb
	}

	calendarSvc := NewCalendarService(cfg, repo, cache, m, logger)
	return &Service{
		Auth:     NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:     NewUserService(repo, logger),
		Course:   NewCourseService(repo, calendarSvc, m, logger),
		Calendar: calendarSvc,
		Import:   NewImportService(cfg, repo, calendarSvc, m, logger),
		Export:   NewExportService(cfg, calendarSvc, logger),
	}
}
