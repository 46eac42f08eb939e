package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/internal/service"
	"github.com/diegnghtmr/vale/pkg/response"
)

// CalendarHandler 周日历 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// Week 周视图
// GET /api/v1/calendar?date=2025-03-12
func (h *CalendarHandler) Week(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	week, err := h.calendarSvc.Week(c.Request.Context(), userID, req.Date)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDate) {
			response.BadRequest(c, 10001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, week)
}
