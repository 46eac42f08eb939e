package dto

// ── 课程模块 DTO ──

// SlotInput 时段输入；start_time < end_time 由 Service 校验
type SlotInput struct {
	Day       string `json:"day"        binding:"required,weekday"`
	StartTime string `json:"start_time" binding:"required,start_clock"`
	EndTime   string `json:"end_time"   binding:"required,clock"`
}

// CreateCourseRequest 创建课程请求
type CreateCourseRequest struct {
	Name      string      `json:"name"      binding:"required,max=200"`
	Credits   int         `json:"credits"   binding:"min=0,max=20"`
	Semester  int         `json:"semester"  binding:"required,min=1,max=12"`
	Shift     string      `json:"shift"     binding:"required,shift"`
	Group     string      `json:"group"     binding:"required,max=50"`
	Classroom string      `json:"classroom" binding:"omitempty,max=100"`
	Details   string      `json:"details"   binding:"omitempty,max=2000"`
	Schedule  []SlotInput `json:"schedule"  binding:"required,min=1,dive"`
}

// UpdateCourseRequest 更新课程请求（全量）
// version 为 0 时不校验客户端版本，仍以数据库版本做乐观锁
type UpdateCourseRequest struct {
	CreateCourseRequest
	Version int `json:"version" binding:"omitempty,min=1"`
}

// CourseListRequest 课程列表查询参数
type CourseListRequest struct {
	PaginationRequest
	Semester   *int   `form:"semester"    binding:"omitempty,min=1,max=12"`
	Shift      string `form:"shift"       binding:"omitempty,shift"`
	Name       string `form:"name"        binding:"omitempty,max=200"`
	Credits    *int   `form:"credits"     binding:"omitempty,min=0,max=20"`
	InCalendar *bool  `form:"in_calendar"`
	Completed  *bool  `form:"completed"`
}

// ConflictCheckRequest 冲突预检请求
// course_id 为编辑中的课程 ID，检测时排除该课程自身
type ConflictCheckRequest struct {
	CourseID string      `json:"course_id" binding:"omitempty,uuid"`
	Schedule []SlotInput `json:"schedule"  binding:"required,min=1,dive"`
}

// ToggleCalendarRequest 加入/移出日历
type ToggleCalendarRequest struct {
	InCalendar *bool `json:"in_calendar" binding:"required"`
}

// ToggleCompletedRequest 标记完成/未完成
type ToggleCompletedRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// ── 课程模块响应 ──

// SlotResponse 时段
type SlotResponse struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// CourseResponse 课程详情
type CourseResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	SubjectID    string         `json:"subject_id"`
	Credits      int            `json:"credits"`
	Semester     int            `json:"semester"`
	Shift        string         `json:"shift"`
	Group        string         `json:"group"`
	Classroom    string         `json:"classroom,omitempty"`
	Details      string         `json:"details,omitempty"`
	Schedule     []SlotResponse `json:"schedule"`
	IsInCalendar bool           `json:"is_in_calendar"`
	IsCompleted  bool           `json:"is_completed"`
	Version      int            `json:"version"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

// ConflictResponse 冲突详情
type ConflictResponse struct {
	CourseID        string       `json:"course_id"`
	CourseName      string       `json:"course_name"`
	NewSlot         SlotResponse `json:"new_slot"`
	ConflictingSlot SlotResponse `json:"conflicting_slot"`
	Message         string       `json:"message"`
}

// ConflictCheckResponse 冲突预检结果；无冲突时 conflict 为 null
type ConflictCheckResponse struct {
	HasConflict bool              `json:"has_conflict"`
	Conflict    *ConflictResponse `json:"conflict"`
}

// CompletionResponse 完成状态切换结果
type CompletionResponse struct {
	SubjectID string `json:"subject_id"`
	Completed bool   `json:"completed"`
	Affected  int64  `json:"affected"`
}
