package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/diegnghtmr/vale/config"
	"github.com/diegnghtmr/vale/internal/conflict"
	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/internal/model"
	"github.com/diegnghtmr/vale/internal/repository"
	"github.com/diegnghtmr/vale/pkg/metrics"
	"github.com/diegnghtmr/vale/pkg/validator"
)

// ── 导入模块业务错误 ──

var (
	ErrImportFormat         = errors.New("不支持的文件类型，仅支持 .json / .csv / .ics")
	ErrImportTooLarge       = errors.New("文件超过大小上限")
	ErrImportTooMany        = errors.New("课程数量超过上限")
	ErrImportMalformed      = errors.New("文件内容无法解析")
	ErrImportMissingColumns = errors.New("CSV 缺少必需列")
	ErrImportNoValidCourses = errors.New("文件中没有可导入的课程")
)

// 导入格式
const (
	ImportFormatJSON = "json"
	ImportFormatCSV  = "csv"
	ImportFormatICS  = "ics"
)

// csvRequiredColumns CSV 每行一个时段
var csvRequiredColumns = []string{"name", "credits", "semester", "timeSlot", "group", "day", "startTime", "endTime"}

// ImportService 课程文件导入接口
//
// 合法课程在一个事务内整体替换用户现有课程，导入后均不在日历中；
// 不合法的记录逐条报告，不导入。
type ImportService interface {
	Import(ctx context.Context, userID, filename string, r io.Reader) (*dto.ImportResponse, error)
}

type importService struct {
	repo        *repository.Repository
	calendar    CalendarService
	validate    *govalidator.Validate
	loc         *time.Location
	maxFileSize int64
	maxCourses  int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(
	cfg *config.Config,
	repo *repository.Repository,
	calendar CalendarService,
	m *metrics.Metrics,
	logger *zap.Logger,
) ImportService {
	return &importService{
		repo:        repo,
		calendar:    calendar,
		validate:    validator.New(),
		loc:         cfg.Calendar.Location(),
		maxFileSize: cfg.Import.MaxFileSize,
		maxCourses:  cfg.Import.MaxCourses,
		metrics:     m,
		logger:      logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Import 解析、校验并替换课程
// ═══════════════════════════════════════════════════════════

func (s *importService) Import(ctx context.Context, userID, filename string, r io.Reader) (*dto.ImportResponse, error) {
	// 1. 判定格式并读取内容
	format, err := importFormat(filename)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, ErrImportTooLarge
	}

	// 2. 解析为待导入课程
	var (
		items     []importItem
		rowErrors []dto.ImportRowError
	)
	switch format {
	case ImportFormatJSON:
		items, err = parseJSONCourses(data)
	case ImportFormatCSV:
		items, rowErrors, err = parseCSVCourses(data)
	case ImportFormatICS:
		var courses []dto.ImportCourse
		courses, rowErrors, err = ParseICS(bytes.NewReader(data), s.loc)
		for i, c := range courses {
			items = append(items, importItem{row: i + 1, course: c})
		}
	}
	if err != nil {
		return nil, err
	}
	if len(items) > s.maxCourses {
		return nil, ErrImportTooMany
	}

	// 3. 逐条校验
	courses := make([]model.Course, 0, len(items))
	for _, item := range items {
		course, errs := s.toCourse(userID, item)
		if len(errs) > 0 {
			rowErrors = append(rowErrors, errs...)
			continue
		}
		courses = append(courses, *course)
	}
	if len(courses) == 0 {
		return &dto.ImportResponse{Format: format, Total: len(items), Errors: rowErrors}, ErrImportNoValidCourses
	}

	// 4. 整体替换
	err = s.repo.Course.WithUserLock(ctx, userID, func(tx repository.CourseRepository) error {
		return tx.ReplaceAll(ctx, userID, courses)
	})
	if err != nil {
		s.logger.Error("导入课程失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.calendar.Invalidate(ctx, userID)
	s.metrics.AddImportedCourses(len(courses))
	s.logger.Info("课程导入完成",
		zap.String("user_id", userID),
		zap.String("format", format),
		zap.Int("imported", len(courses)),
		zap.Int("errors", len(rowErrors)))

	if rowErrors == nil {
		rowErrors = []dto.ImportRowError{}
	}
	return &dto.ImportResponse{
		Format:   format,
		Total:    len(items),
		Imported: len(courses),
		Errors:   rowErrors,
	}, nil
}

// importItem 待校验课程及其在文件中的位置
type importItem struct {
	row    int
	course dto.ImportCourse
}

// toCourse 字段校验、时段解析与自身冲突检测
func (s *importService) toCourse(userID string, item importItem) (*model.Course, []dto.ImportRowError) {
	in := item.course
	in.Name = strings.TrimSpace(in.Name)
	in.Group = strings.TrimSpace(in.Group)
	in.Classroom = strings.TrimSpace(in.Classroom)
	in.Details = strings.TrimSpace(in.Details)

	if err := s.validate.Struct(&in); err != nil {
		fields := validator.Describe(err)
		if fields == nil {
			return nil, []dto.ImportRowError{{Row: item.row, Message: err.Error()}}
		}
		errs := make([]dto.ImportRowError, 0, len(fields))
		for _, f := range fields {
			errs = append(errs, dto.ImportRowError{Row: item.row, Field: f.Field, Message: f.Message})
		}
		return nil, errs
	}

	slots := make([]conflict.TimeSlot, 0, len(in.Schedule))
	for i, sl := range in.Schedule {
		ts, err := parseSlot(sl.Day, sl.StartTime, sl.EndTime)
		if err != nil {
			return nil, []dto.ImportRowError{{
				Row:     item.row,
				Field:   fmt.Sprintf("schedule[%d]", i),
				Message: err.Error(),
			}}
		}
		slots = append(slots, ts)
	}
	self := conflict.CheckSelfConflict(slots)
	s.metrics.ObserveConflictCheck(metrics.KindSelf, self)
	if self {
		return nil, []dto.ImportRowError{{Row: item.row, Field: "schedule", Message: ErrCourseSelfConflict.Error()}}
	}

	course := &model.Course{
		UserID:    userID,
		Name:      in.Name,
		SubjectID: SubjectID(in.Name),
		Credits:   in.Credits,
		Semester:  in.Semester,
		Shift:     in.Shift,
		GroupName: in.Group,
		Classroom: in.Classroom,
		Details:   in.Details,
		Slots:     toModelSlots(slots),
	}
	course.CreatedBy = &userID
	course.UpdatedBy = &userID
	return course, nil
}

// ── 格式解析 ──

func importFormat(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return ImportFormatJSON, nil
	case ".csv":
		return ImportFormatCSV, nil
	case ".ics":
		return ImportFormatICS, nil
	}
	return "", ErrImportFormat
}

// parseJSONCourses 接受课程数组或 {"courses": [...]}
func parseJSONCourses(data []byte) ([]importItem, error) {
	var courses []dto.ImportCourse
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Courses []dto.ImportCourse `json:"courses"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImportMalformed, err)
		}
		courses = wrapper.Courses
	} else if err := json.Unmarshal(trimmed, &courses); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportMalformed, err)
	}

	items := make([]importItem, len(courses))
	for i, c := range courses {
		items[i] = importItem{row: i + 1, course: c}
	}
	return items, nil
}

// parseCSVCourses 每行一个时段，按 名称+学期+分组 合并为课程
// 行号按文件行计，表头为第 1 行
func parseCSVCourses(data []byte) ([]importItem, []dto.ImportRowError, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrImportMalformed, err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("%w: 至少需要表头和一行数据", ErrImportMalformed)
	}

	// 1. 表头
	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		index[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, col := range csvRequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrImportMissingColumns, strings.Join(missing, ", "))
	}

	// 2. 数据行
	type courseKey struct {
		name     string
		semester int
		group    string
	}
	grouped := make(map[courseKey]int)
	var items []importItem
	var rowErrors []dto.ImportRowError

	for i, rec := range records[1:] {
		row := i + 2
		if len(rec) != len(records[0]) {
			rowErrors = append(rowErrors, dto.ImportRowError{
				Row:     row,
				Message: fmt.Sprintf("列数为 %d，应为 %d", len(rec), len(records[0])),
			})
			continue
		}
		get := func(col string) string {
			if j, ok := index[col]; ok {
				return strings.TrimSpace(rec[j])
			}
			return ""
		}

		credits, err := strconv.Atoi(get("credits"))
		if err != nil {
			rowErrors = append(rowErrors, dto.ImportRowError{Row: row, Field: "credits", Message: "学分必须为整数"})
			continue
		}
		semester, err := strconv.Atoi(get("semester"))
		if err != nil {
			rowErrors = append(rowErrors, dto.ImportRowError{Row: row, Field: "semester", Message: "学期必须为整数"})
			continue
		}

		slot := dto.ImportSlot{
			Day:       strings.ToLower(get("day")),
			StartTime: get("startTime"),
			EndTime:   get("endTime"),
		}
		key := courseKey{name: get("name"), semester: semester, group: get("group")}
		if pos, ok := grouped[key]; ok {
			items[pos].course.Schedule = append(items[pos].course.Schedule, slot)
			continue
		}

		grouped[key] = len(items)
		items = append(items, importItem{
			row: row,
			course: dto.ImportCourse{
				Name:      key.name,
				Credits:   credits,
				Semester:  semester,
				Shift:     strings.ToLower(get("timeSlot")),
				Group:     key.group,
				Classroom: get("classroom"),
				Details:   get("details"),
				Schedule:  []dto.ImportSlot{slot},
			},
		})
	}
	return items, rowErrors, nil
}
