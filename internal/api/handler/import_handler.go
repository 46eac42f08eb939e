package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/internal/service"
	"github.com/diegnghtmr/vale/pkg/response"
)

// ImportHandler 课程导入 HTTP 处理器
type ImportHandler struct {
	importSvc service.ImportService
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService) *ImportHandler {
	return &ImportHandler{importSvc: importSvc}
}

// Import 上传文件导入课程（multipart 字段 file），替换当前全部课程
// POST /api/v1/courses/import
func (h *ImportHandler) Import(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			response.TooLarge(c, 10005, "上传文件过大")
			return
		}
		response.BadRequest(c, 10001, "缺少上传文件 file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "无法读取上传文件")
		return
	}
	defer f.Close()

	result, err := h.importSvc.Import(c.Request.Context(), userID, fh.Filename, f)
	if err != nil {
		h.handleImportError(c, result, err)
		return
	}

	response.OK(c, result)
}

// handleImportError 统一处理导入业务错误
func (h *ImportHandler) handleImportError(c *gin.Context, result *dto.ImportResponse, err error) {
	switch {
	case errors.Is(err, service.ErrImportFormat):
		response.BadRequest(c, 13001, err.Error())
	case errors.Is(err, service.ErrImportTooLarge):
		response.TooLarge(c, 13002, err.Error())
	case errors.Is(err, service.ErrImportTooMany):
		response.BadRequest(c, 13003, err.Error())
	case errors.Is(err, service.ErrImportMalformed):
		response.BadRequest(c, 13004, err.Error())
	case errors.Is(err, service.ErrImportMissingColumns):
		response.BadRequest(c, 13005, err.Error())
	case errors.Is(err, service.ErrImportNoValidCourses):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, 13006, err.Error(), result)
	case errors.Is(err, service.ErrUserNotFound):
		response.Unauthorized(c, 10002, "未认证")
	default:
		response.InternalError(c)
	}
}
