package model

// 上课时段类型
const (
	ShiftDay   = "day"
	ShiftNight = "night"
)

// Course 课程表，对应 courses
type Course struct {
	CourseID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	UserID       string `gorm:"type:uuid;not null"                             json:"user_id"`
	Name         string `gorm:"type:varchar(200);not null"                     json:"name"`
	SubjectID    string `gorm:"type:varchar(200);not null"                     json:"subject_id"`
	Credits      int    `gorm:"type:smallint;not null"                         json:"credits"`
	Semester     int    `gorm:"type:smallint;not null"                         json:"semester"`
	Shift        string `gorm:"type:varchar(10);not null"                      json:"shift"` // day | night
	GroupName    string `gorm:"type:varchar(50);not null"                      json:"group"`
	Classroom    string `gorm:"type:varchar(100);not null;default:''"          json:"classroom"`
	Details      string `gorm:"type:text;not null;default:''"                  json:"details"`
	IsInCalendar bool   `gorm:"not null;default:false"                         json:"is_in_calendar"`
	IsCompleted  bool   `gorm:"not null;default:false"                         json:"is_completed"`
	VersionedModel

	// 关联
	Slots []CourseSlot `gorm:"foreignKey:CourseID;references:CourseID" json:"schedule"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// CourseSlot 课程时段表，对应 course_slots
// 时间以 "HH:MM" 文本存储，结束时间允许 "24:00"
type CourseSlot struct {
	SlotID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"-"`
	CourseID  string `gorm:"type:uuid;not null"                             json:"-"`
	Position  int    `gorm:"type:smallint;not null"                         json:"-"`
	Day       string `gorm:"type:varchar(10);not null"                      json:"day"`
	StartTime string `gorm:"type:varchar(5);not null"                       json:"start_time"`
	EndTime   string `gorm:"type:varchar(5);not null"                       json:"end_time"`
}

// TableName 指定表名
func (CourseSlot) TableName() string { return "course_slots" }
