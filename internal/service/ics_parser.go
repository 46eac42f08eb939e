package service

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/diegnghtmr/vale/internal/conflict"
	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/internal/model"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将 iCalendar (RFC 5545) 内容解析为待导入课程。
//
//   - DTSTART/DTEND 确定星期与时间；RRULE 只表示每周重复，不展开
//   - SUMMARY 若符合导出格式 "<名称> - S<学期> G<分组> (<学分> cr)" 则还原各字段，
//     否则整段作为名称，学期 1、分组 "1"、学分 0
//   - 同一课程（名称+学期+分组）的事件合并为一门课，重复时段去重
//   - 开始时间不早于 18:00 的课程视为夜间课程
// ─────────────────────────────────────────────────────────────

var summaryPattern = regexp.MustCompile(`^(.+) - S(\d+) G(.+) \((\d+) cr\)$`)

const nightStart = conflict.Clock(18 * 60)

// parsedCourseEvent ICS 解析中间结构
type parsedCourseEvent struct {
	Name      string
	Semester  int
	Group     string
	Credits   int
	Classroom string
	Slot      conflict.TimeSlot
}

// ParseICS 解析 ICS 内容并转为导入课程；无法识别的事件记入 rowErrors
func ParseICS(reader io.Reader, loc *time.Location) ([]dto.ImportCourse, []dto.ImportRowError, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	// 阶段 1: 解析所有 VEVENT
	var events []parsedCourseEvent
	var rowErrors []dto.ImportRowError
	for i, comp := range cal.Events() {
		evt, err := parseVEvent(comp, loc)
		if err != nil {
			rowErrors = append(rowErrors, dto.ImportRowError{Row: i + 1, Message: err.Error()})
			continue
		}
		events = append(events, evt)
	}

	// 阶段 2: 合并同课程事件
	return mergeEvents(events), rowErrors, nil
}

// parseVEvent 解析单个 VEVENT 组件
func parseVEvent(evt *ics.VEvent, loc *time.Location) (parsedCourseEvent, error) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return parsedCourseEvent{}, fmt.Errorf("事件缺少 SUMMARY")
	}
	parsed := parseSummary(strings.TrimSpace(summary.Value))

	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return parsedCourseEvent{}, err
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		return parsedCourseEvent{}, err
	}

	slot, err := slotFromRange(dtStart, dtEnd)
	if err != nil {
		return parsedCourseEvent{}, fmt.Errorf("%s: %w", parsed.Name, err)
	}
	parsed.Slot = slot

	if location := evt.GetProperty(ics.ComponentPropertyLocation); location != nil {
		parsed.Classroom = strings.TrimSpace(location.Value)
	}
	return parsed, nil
}

func parseSummary(summary string) parsedCourseEvent {
	m := summaryPattern.FindStringSubmatch(summary)
	if m == nil {
		return parsedCourseEvent{Name: summary, Semester: 1, Group: "1"}
	}
	semester, _ := strconv.Atoi(m[2])
	credits, _ := strconv.Atoi(m[4])
	return parsedCourseEvent{
		Name:     strings.TrimSpace(m[1]),
		Semester: semester,
		Group:    strings.TrimSpace(m[3]),
		Credits:  credits,
	}
}

// slotFromRange 事件须在同一天内结束，恰好结束于次日 00:00 记为 24:00
func slotFromRange(start, end time.Time) (conflict.TimeSlot, error) {
	day := weekdayToDay(start.Weekday())
	if !conflict.CurrentDaySet.Contains(day) {
		return conflict.TimeSlot{}, fmt.Errorf("不支持的上课日 %s", start.Weekday())
	}

	startClock := conflict.Clock(start.Hour()*60 + start.Minute())
	var endClock conflict.Clock
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	switch {
	case sy == ey && sm == em && sd == ed:
		endClock = conflict.Clock(end.Hour()*60 + end.Minute())
	case end.Equal(time.Date(sy, sm, sd+1, 0, 0, 0, 0, start.Location())):
		endClock = conflict.EndOfDay
	default:
		return conflict.TimeSlot{}, fmt.Errorf("事件跨天")
	}

	slot := conflict.TimeSlot{Day: day, Start: startClock, End: endClock}
	if !slot.Valid() {
		return conflict.TimeSlot{}, fmt.Errorf("开始时间 %s 必须早于结束时间 %s", startClock, endClock)
	}
	return slot, nil
}

// mergeEvents 合并相同课程的时段，保持首次出现顺序
func mergeEvents(events []parsedCourseEvent) []dto.ImportCourse {
	type key struct {
		Name     string
		Semester int
		Group    string
	}
	merged := make(map[key]*dto.ImportCourse)
	seenSlot := make(map[key]map[conflict.TimeSlot]bool)
	order := []key{}

	for _, e := range events {
		k := key{Name: e.Name, Semester: e.Semester, Group: e.Group}
		course, ok := merged[k]
		if !ok {
			shift := model.ShiftDay
			if !e.Slot.Start.Before(nightStart) {
				shift = model.ShiftNight
			}
			course = &dto.ImportCourse{
				Name:      e.Name,
				Credits:   e.Credits,
				Semester:  e.Semester,
				Shift:     shift,
				Group:     e.Group,
				Classroom: e.Classroom,
			}
			merged[k] = course
			seenSlot[k] = make(map[conflict.TimeSlot]bool)
			order = append(order, k)
		}
		if seenSlot[k][e.Slot] {
			continue
		}
		seenSlot[k][e.Slot] = true
		course.Schedule = append(course.Schedule, dto.ImportSlot{
			Day:       string(e.Slot.Day),
			StartTime: e.Slot.Start.String(),
			EndTime:   e.Slot.End.String(),
		})
	}

	result := make([]dto.ImportCourse, 0, len(merged))
	for _, k := range order {
		result = append(result, *merged[k])
	}
	return result
}

// ── 辅助函数 ──

func weekdayToDay(wd time.Weekday) conflict.Day {
	return conflict.Day(strings.ToLower(wd.String()))
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性并转换到 loc
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("事件缺少 %s", propName)
	}
	val := prop.Value

	layouts := []string{
		"20060102T150405Z",
		"20060102T150405",
	}

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range layouts {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
