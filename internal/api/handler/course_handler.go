package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/internal/service"
	pkgerrors "github.com/diegnghtmr/vale/pkg/errors"
	"github.com/diegnghtmr/vale/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// Create 创建课程
// POST /api/v1/courses
func (h *CourseHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	course, err := h.courseSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, course)
}

// List 课程列表
// GET /api/v1/courses
func (h *CourseHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CourseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	courses, total, err := h.courseSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OKPage(c, courses, total, req.GetPage(), req.GetPageSize())
}

// GetByID 课程详情
// GET /api/v1/courses/:id
func (h *CourseHandler) GetByID(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// Update 更新课程
// PUT /api/v1/courses/:id
func (h *CourseHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	course, err := h.courseSvc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// Delete 删除课程
// DELETE /api/v1/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// CheckConflict 编辑中的冲突预检
// POST /api/v1/courses/conflicts/check
func (h *CourseHandler) CheckConflict(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.courseSvc.CheckConflict(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, result)
}

// ToggleCalendar 加入/移出日历
// PATCH /api/v1/courses/:id/calendar
func (h *CourseHandler) ToggleCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ToggleCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	course, err := h.courseSvc.SetInCalendar(c.Request.Context(), userID, c.Param("id"), *req.InCalendar)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// ToggleCompleted 标记科目完成/未完成
// PATCH /api/v1/courses/:id/completed
func (h *CourseHandler) ToggleCompleted(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ToggleCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.courseSvc.SetCompleted(c.Request.Context(), userID, c.Param("id"), *req.Completed)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, result)
}

// handleCourseError 统一处理课程模块业务错误
func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	var ce *service.ConflictError
	switch {
	case errors.As(err, &ce):
		response.Conflict(c, 12004, ce.Error(), ce.Details())
	case errors.Is(err, service.ErrCourseNotFound), errors.Is(err, pkgerrors.ErrOwnership):
		response.NotFound(c, 12001, "课程不存在")
	case errors.Is(err, service.ErrCourseInvalidSlot):
		response.BadRequest(c, 12002, err.Error())
	case errors.Is(err, service.ErrCourseSelfConflict):
		response.BadRequest(c, 12003, err.Error())
	case errors.Is(err, service.ErrCourseConflict):
		response.Error(c, http.StatusConflict, 12004, "课程与日历中的课程时间冲突")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, 12005, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrUserNotFound):
		response.Unauthorized(c, 10002, "未认证")
	default:
		response.InternalError(c)
	}
}
