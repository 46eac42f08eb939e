package dto

import "time"

// CalendarRequest 日历视图参数；date 为所在周内任一天，缺省为今天
type CalendarRequest struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// CalendarEvent 一次周内课程事件
type CalendarEvent struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Classroom   string    `json:"classroom,omitempty"`
	Day         string    `json:"day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// CalendarResponse 周日历
type CalendarResponse struct {
	WeekStart    string          `json:"week_start"`
	WeekEnd      string          `json:"week_end"`
	Timezone     string          `json:"timezone"`
	Events       []CalendarEvent `json:"events"`
	TotalCredits int             `json:"total_credits"`
	CourseCount  int             `json:"course_count"`
}

// ExportRequest 导出参数
type ExportRequest struct {
	Format string `form:"format" binding:"omitempty,oneof=ics csv xlsx pdf"`
	Date   string `form:"date"   binding:"omitempty,datetime=2006-01-02"`
}
