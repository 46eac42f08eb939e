package service

import (
	"fmt"
	"time"

	"github.com/diegnghtmr/vale/internal/conflict"
	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/internal/model"
)

// ── dto / model ↔ 冲突检测视图 ──

// parseSlots 解析并校验时段输入：格式、星期、开始早于结束
func parseSlots(inputs []dto.SlotInput) ([]conflict.TimeSlot, error) {
	slots := make([]conflict.TimeSlot, 0, len(inputs))
	for i, in := range inputs {
		ts, err := parseSlot(in.Day, in.StartTime, in.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 个时段: %v", ErrCourseInvalidSlot, i+1, err)
		}
		slots = append(slots, ts)
	}
	return slots, nil
}

func parseSlot(day, start, end string) (conflict.TimeSlot, error) {
	d, err := conflict.ParseDay(day)
	if err != nil {
		return conflict.TimeSlot{}, err
	}
	s, err := conflict.ParseClock(start)
	if err != nil {
		return conflict.TimeSlot{}, err
	}
	e, err := conflict.ParseClock(end)
	if err != nil {
		return conflict.TimeSlot{}, err
	}
	ts := conflict.TimeSlot{Day: d, Start: s, End: e}
	if !ts.Valid() {
		return conflict.TimeSlot{}, fmt.Errorf("开始时间 %s 必须早于结束时间 %s", start, end)
	}
	return ts, nil
}

// toConflictCourse 将存储的课程转换为冲突检测视图
// 存储数据由数据库约束保证合法；解析失败视为数据损坏
func toConflictCourse(c *model.Course) (conflict.Course, error) {
	slots := make([]conflict.TimeSlot, 0, len(c.Slots))
	for _, s := range c.Slots {
		day := conflict.Day(s.Day)
		start, err := conflict.ParseClock(s.StartTime)
		if err != nil {
			return conflict.Course{}, fmt.Errorf("课程 %s 时段数据损坏: %w", c.CourseID, err)
		}
		end, err := conflict.ParseClock(s.EndTime)
		if err != nil {
			return conflict.Course{}, fmt.Errorf("课程 %s 时段数据损坏: %w", c.CourseID, err)
		}
		slots = append(slots, conflict.TimeSlot{Day: day, Start: start, End: end})
	}
	return conflict.Course{
		ID:         c.CourseID,
		Name:       c.Name,
		Schedule:   slots,
		InCalendar: c.IsInCalendar,
	}, nil
}

func toConflictCourses(courses []model.Course) ([]conflict.Course, error) {
	out := make([]conflict.Course, 0, len(courses))
	for i := range courses {
		cc, err := toConflictCourse(&courses[i])
		if err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, nil
}

func toModelSlots(slots []conflict.TimeSlot) []model.CourseSlot {
	out := make([]model.CourseSlot, len(slots))
	for i, s := range slots {
		out[i] = model.CourseSlot{
			Position:  i,
			Day:       string(s.Day),
			StartTime: s.Start.String(),
			EndTime:   s.End.String(),
		}
	}
	return out
}

func toSlotResponse(s conflict.TimeSlot) dto.SlotResponse {
	return dto.SlotResponse{
		Day:       string(s.Day),
		StartTime: s.Start.String(),
		EndTime:   s.End.String(),
	}
}

func toCourseResponse(c *model.Course) dto.CourseResponse {
	schedule := make([]dto.SlotResponse, 0, len(c.Slots))
	for _, s := range c.Slots {
		schedule = append(schedule, dto.SlotResponse{
			Day:       s.Day,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
		})
	}
	return dto.CourseResponse{
		ID:           c.CourseID,
		Name:         c.Name,
		SubjectID:    c.SubjectID,
		Credits:      c.Credits,
		Semester:     c.Semester,
		Shift:        c.Shift,
		Group:        c.GroupName,
		Classroom:    c.Classroom,
		Details:      c.Details,
		Schedule:     schedule,
		IsInCalendar: c.IsInCalendar,
		IsCompleted:  c.IsCompleted,
		Version:      c.Version,
		CreatedAt:    formatTime(c.CreatedAt),
		UpdatedAt:    formatTime(c.UpdatedAt),
	}
}

// toConflictResponse nil 表示无冲突
func toConflictResponse(c *conflict.Conflict) *dto.ConflictResponse {
	if c == nil {
		return nil
	}
	return &dto.ConflictResponse{
		CourseID:        c.Course.ID,
		CourseName:      c.Course.Name,
		NewSlot:         toSlotResponse(c.NewSlot),
		ConflictingSlot: toSlotResponse(c.ConflictingSlot),
		Message:         describeConflict(c),
	}
}

func describeConflict(c *conflict.Conflict) string {
	return fmt.Sprintf("与课程「%s」时间冲突：%s %s-%s",
		c.Course.Name, c.ConflictingSlot.Day, c.ConflictingSlot.Start, c.ConflictingSlot.End)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
