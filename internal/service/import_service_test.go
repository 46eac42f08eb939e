package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/diegnghtmr/vale/config"
	"github.com/diegnghtmr/vale/internal/model"
	"github.com/diegnghtmr/vale/internal/repository"
)

// ── 测试辅助 ──

func setupTestImportService(mutate func(cfg *config.Config)) (ImportService, *mockCourseRepo, *mockCache) {
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	courseRepo := newMockCourseRepo()
	repo := &repository.Repository{User: newMockUserRepo(), Course: courseRepo}
	cache := newMockCache()
	logger := zap.NewNop()
	calendar := NewCalendarService(cfg, repo, cache, nil, logger)
	return NewImportService(cfg, repo, calendar, nil, logger), courseRepo, cache
}

const importJSON = `[
  {"name": " Cálculo ", "credits": 4, "semester": 1, "timeSlot": "day", "group": "1",
   "classroom": "B-204", "schedule": [{"day": "monday", "startTime": "08:00", "endTime": "10:00"}]},
  {"name": "Física", "credits": 25, "semester": 1, "timeSlot": "day", "group": "1",
   "schedule": [{"day": "tuesday", "startTime": "08:00", "endTime": "10:00"}]},
  {"name": "Química", "credits": 3, "semester": 2, "timeSlot": "night", "group": "2",
   "schedule": [{"day": "friday", "startTime": "18:00", "endTime": "20:00"},
                {"day": "friday", "startTime": "19:00", "endTime": "21:00"}]}
]`

// ── JSON ──

func TestImportService_JSON_PartialImport(t *testing.T) {
	svc, courseRepo, cache := setupTestImportService(nil)
	courseRepo.put(&model.Course{CourseID: "old", UserID: testUserID, Name: "Vieja", IsInCalendar: true})

	result, err := svc.Import(context.Background(), testUserID, "cursos.JSON", strings.NewReader(importJSON))
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	if result.Format != ImportFormatJSON || result.Total != 3 || result.Imported != 1 {
		t.Errorf("统计错误: %+v", result)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("期望 2 条错误，实际: %+v", result.Errors)
	}
	if result.Errors[0].Row != 2 || result.Errors[0].Field != "credits" {
		t.Errorf("期望第 2 条 credits 错误，实际: %+v", result.Errors[0])
	}
	if result.Errors[1].Row != 3 || result.Errors[1].Message != ErrCourseSelfConflict.Error() {
		t.Errorf("期望第 3 条自身冲突，实际: %+v", result.Errors[1])
	}

	if _, ok := courseRepo.courses["old"]; ok {
		t.Error("导入应替换原有课程")
	}
	if len(courseRepo.courses) != 1 {
		t.Fatalf("期望仅存 1 门课程，实际 %d", len(courseRepo.courses))
	}
	for _, c := range courseRepo.courses {
		if c.Name != "Cálculo" || c.SubjectID != "calculo" || c.IsInCalendar {
			t.Errorf("导入课程字段错误: %+v", c)
		}
	}
	if cache.counters[calendarVersionKey(testUserID)] != 1 {
		t.Error("导入后应使日历缓存失效")
	}
}

func TestImportService_JSON_WrappedObject(t *testing.T) {
	svc, _, _ := setupTestImportService(nil)

	body := `{"courses": [{"name": "Álgebra", "credits": 3, "semester": 1, "timeSlot": "day", "group": "A",
	  "schedule": [{"day": "saturday", "startTime": "07:00", "endTime": "24:00"}]}]}`
	result, err := svc.Import(context.Background(), testUserID, "data.json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	if result.Imported != 1 || len(result.Errors) != 0 {
		t.Errorf("期望导入 1 门课程，实际: %+v", result)
	}
}

func TestImportService_JSON_Malformed(t *testing.T) {
	svc, courseRepo, _ := setupTestImportService(nil)

	_, err := svc.Import(context.Background(), testUserID, "data.json", strings.NewReader(`[{"name": `))
	if !errors.Is(err, ErrImportMalformed) {
		t.Errorf("期望 ErrImportMalformed，实际: %v", err)
	}
	if courseRepo.replaceCalls != 0 {
		t.Error("解析失败时不应写入")
	}
}

func TestImportService_NoValidCourses(t *testing.T) {
	svc, courseRepo, _ := setupTestImportService(nil)
	courseRepo.put(&model.Course{CourseID: "keep", UserID: testUserID, Name: "Conservar"})

	body := `[{"name": "", "credits": 3, "semester": 1, "timeSlot": "day", "group": "1", "schedule": []}]`
	result, err := svc.Import(context.Background(), testUserID, "data.json", strings.NewReader(body))
	if !errors.Is(err, ErrImportNoValidCourses) {
		t.Fatalf("期望 ErrImportNoValidCourses，实际: %v", err)
	}
	if result == nil || len(result.Errors) == 0 {
		t.Error("应返回逐条错误")
	}
	if _, ok := courseRepo.courses["keep"]; !ok {
		t.Error("无合法课程时不应清空原有课程")
	}
}

// ── 限制 ──

func TestImportService_Limits(t *testing.T) {
	t.Run("文件过大", func(t *testing.T) {
		svc, _, _ := setupTestImportService(func(cfg *config.Config) { cfg.Import.MaxFileSize = 16 })
		_, err := svc.Import(context.Background(), testUserID, "data.json", strings.NewReader(importJSON))
		if !errors.Is(err, ErrImportTooLarge) {
			t.Errorf("期望 ErrImportTooLarge，实际: %v", err)
		}
	})

	t.Run("课程过多", func(t *testing.T) {
		svc, _, _ := setupTestImportService(func(cfg *config.Config) { cfg.Import.MaxCourses = 2 })
		_, err := svc.Import(context.Background(), testUserID, "data.json", strings.NewReader(importJSON))
		if !errors.Is(err, ErrImportTooMany) {
			t.Errorf("期望 ErrImportTooMany，实际: %v", err)
		}
	})

	t.Run("不支持的格式", func(t *testing.T) {
		svc, _, _ := setupTestImportService(nil)
		_, err := svc.Import(context.Background(), testUserID, "data.xlsx", strings.NewReader("x"))
		if !errors.Is(err, ErrImportFormat) {
			t.Errorf("期望 ErrImportFormat，实际: %v", err)
		}
	})
}

// ── CSV ──

func TestImportService_CSV_GroupsRowsIntoCourses(t *testing.T) {
	svc, courseRepo, _ := setupTestImportService(nil)

	body := strings.Join([]string{
		"name,credits,semester,timeSlot,group,day,startTime,endTime,classroom",
		"Cálculo,4,1,DAY,1,Monday,08:00,10:00,B-204",
		"Cálculo,4,1,day,1,wednesday,08:00,10:00,B-204",
		"Cálculo,4,1,day,2,thursday,08:00,10:00,",
		"Física,x,1,day,1,monday,10:00,12:00,",
		"Química,3,1,day,1,monday,10:00",
		`"Inglés, nivel 1",2,1,night,1,tuesday,18:00,20:00,C-1`,
	}, "\n")

	result, err := svc.Import(context.Background(), testUserID, "horario.csv", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	if result.Imported != 3 {
		t.Errorf("期望导入 3 门课程（两个分组 + 英语），实际: %+v", result)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("期望 2 条行错误，实际: %+v", result.Errors)
	}
	if result.Errors[0].Row != 5 || result.Errors[0].Field != "credits" {
		t.Errorf("期望第 5 行 credits 错误，实际: %+v", result.Errors[0])
	}
	if result.Errors[1].Row != 6 {
		t.Errorf("期望第 6 行列数错误，实际: %+v", result.Errors[1])
	}

	var group1 *model.Course
	for _, c := range courseRepo.courses {
		if c.Name == "Cálculo" && c.GroupName == "1" {
			group1 = c
		}
	}
	if group1 == nil || len(group1.Slots) != 2 || group1.Slots[0].Day != "monday" {
		t.Errorf("同名同组行应合并为一门课程: %+v", group1)
	}
}

func TestImportService_CSV_MissingColumns(t *testing.T) {
	svc, _, _ := setupTestImportService(nil)

	_, err := svc.Import(context.Background(), testUserID, "h.csv", strings.NewReader("name,credits\nA,1\n"))
	if !errors.Is(err, ErrImportMissingColumns) {
		t.Fatalf("期望 ErrImportMissingColumns，实际: %v", err)
	}
	if !strings.Contains(err.Error(), "timeSlot") {
		t.Errorf("错误信息应列出缺失列: %v", err)
	}
}

// ── ICS ──

const importICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//ES
BEGIN:VEVENT
UID:evt-1
DTSTAMP:20261001T000000Z
DTSTART:20261012T130000Z
DTEND:20261012T150000Z
SUMMARY:Cálculo - S1 G3 (4 cr)
LOCATION:B-204
RRULE:FREQ=WEEKLY;COUNT=16
END:VEVENT
BEGIN:VEVENT
UID:evt-2
DTSTAMP:20261001T000000Z
DTSTART:20261019T130000Z
DTEND:20261019T150000Z
SUMMARY:Cálculo - S1 G3 (4 cr)
END:VEVENT
BEGIN:VEVENT
UID:evt-3
DTSTAMP:20261001T000000Z
DTSTART;TZID=America/Bogota:20261013T190000
DTEND;TZID=America/Bogota:20261013T210000
SUMMARY:Inglés
END:VEVENT
BEGIN:VEVENT
UID:evt-4
DTSTAMP:20261001T000000Z
DTSTART:20261018T140000Z
DTEND:20261018T160000Z
SUMMARY:Taller dominical
END:VEVENT
END:VCALENDAR
`

func TestParseICS(t *testing.T) {
	loc, _ := time.LoadLocation("America/Bogota")
	courses, rowErrors, err := ParseICS(strings.NewReader(strings.ReplaceAll(importICS, "\n", "\r\n")), loc)
	if err != nil {
		t.Fatalf("ParseICS 应成功: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("期望 2 门课程，实际 %d: %+v", len(courses), courses)
	}

	calc := courses[0]
	if calc.Name != "Cálculo" || calc.Semester != 1 || calc.Group != "3" || calc.Credits != 4 {
		t.Errorf("SUMMARY 应还原字段: %+v", calc)
	}
	if calc.Classroom != "B-204" || calc.Shift != model.ShiftDay {
		t.Errorf("教室或时段类型错误: %+v", calc)
	}
	if len(calc.Schedule) != 1 {
		t.Errorf("不同周的相同时段应去重，实际 %+v", calc.Schedule)
	} else if s := calc.Schedule[0]; s.Day != "monday" || s.StartTime != "08:00" || s.EndTime != "10:00" {
		t.Errorf("时段应转换到本地时区: %+v", s)
	}

	english := courses[1]
	if english.Name != "Inglés" || english.Semester != 1 || english.Group != "1" || english.Credits != 0 {
		t.Errorf("无法识别的 SUMMARY 应使用默认值: %+v", english)
	}
	if english.Shift != model.ShiftNight {
		t.Errorf("18:00 之后开始应为夜间课程，实际 %s", english.Shift)
	}

	if len(rowErrors) != 1 || rowErrors[0].Row != 4 {
		t.Errorf("周日事件应报告为第 4 条错误，实际: %+v", rowErrors)
	}
}

func TestImportService_ICS(t *testing.T) {
	svc, courseRepo, _ := setupTestImportService(nil)

	result, err := svc.Import(context.Background(), testUserID, "calendario.ics", strings.NewReader(strings.ReplaceAll(importICS, "\n", "\r\n")))
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	if result.Format != ImportFormatICS || result.Imported != 2 || len(result.Errors) != 1 {
		t.Errorf("ICS 导入结果错误: %+v", result)
	}
	if len(courseRepo.courses) != 2 {
		t.Errorf("期望写入 2 门课程，实际 %d", len(courseRepo.courses))
	}
}

func TestSlotFromRange_EndOfDay(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 10, 16, 22, 0, 0, 0, loc)

	s, err := slotFromRange(start, time.Date(2026, 10, 17, 0, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("结束于次日 00:00 应记为 24:00: %v", err)
	}
	if s.End.String() != "24:00" || s.Day != "friday" {
		t.Errorf("实际: %+v", s)
	}

	if _, err := slotFromRange(start, time.Date(2026, 10, 17, 1, 0, 0, 0, loc)); err == nil {
		t.Error("跨天事件应报错")
	}
}
