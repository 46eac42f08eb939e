package dto

// ── 文件导入 DTO ──

// ImportSlot 导入文件中的时段（沿用前端导出的驼峰字段）
type ImportSlot struct {
	Day       string `json:"day"       binding:"required,weekday"`
	StartTime string `json:"startTime" binding:"required,start_clock"`
	EndTime   string `json:"endTime"   binding:"required,clock"`
}

// ImportCourse 导入文件中的课程
type ImportCourse struct {
	Name      string       `json:"name"      binding:"required,max=200"`
	Credits   int          `json:"credits"   binding:"min=0,max=20"`
	Semester  int          `json:"semester"  binding:"required,min=1,max=12"`
	Shift     string       `json:"timeSlot"  binding:"required,shift"`
	Group     string       `json:"group"     binding:"required,max=50"`
	Classroom string       `json:"classroom" binding:"omitempty,max=100"`
	Details   string       `json:"details"   binding:"omitempty,max=2000"`
	Schedule  []ImportSlot `json:"schedule"  binding:"required,min=1,dive"`
}

// ImportRowError 单条记录的校验错误
type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportResponse 导入结果
type ImportResponse struct {
	Format   string           `json:"format"`
	Total    int              `json:"total"`
	Imported int              `json:"imported"`
	Errors   []ImportRowError `json:"errors"`
}
