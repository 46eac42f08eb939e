package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/internal/service"
	"github.com/diegnghtmr/vale/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportSchedule 导出日历课程
// GET /api/v1/calendar/export?format=ics|csv|xlsx|pdf&date=2025-03-12
func (h *ExportHandler) ExportSchedule(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	file, err := h.exportSvc.ExportSchedule(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(file.Filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportEmpty):
		response.NotFound(c, 14001, "日历中暂无课程")
	case errors.Is(err, service.ErrExportFormat):
		response.BadRequest(c, 14002, "不支持的导出格式")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 10001, err.Error())
	default:
		response.InternalError(c)
	}
}
