package handler

import "github.com/diegnghtmr/vale/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	User     *UserHandler
	Course   *CourseHandler
	Calendar *CalendarHandler
	Import   *ImportHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		User:     NewUserHandler(svc.User),
		Course:   NewCourseHandler(svc.Course),
		Calendar: NewCalendarHandler(svc.Calendar),
		Import:   NewImportHandler(svc.Import),
		Export:   NewExportHandler(svc.Export),
	}
}
