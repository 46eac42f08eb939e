package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diegnghtmr/vale/config"
	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/pkg/export"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmpty        = errors.New("日历中暂无课程")
	ErrExportFormat       = errors.New("不支持的导出格式")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// 导出格式
const (
	FormatICS  = "ics"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// ExportFile 导出结果，由 Handler 设置响应头后写出
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// csvHeaders 与日历导出的列保持一致
var csvHeaders = []string{"Subject", "Start Date", "Start Time", "End Date", "End Time", "Description"}

// ExportService 导出业务接口
//
// 导出内容为日历中课程在 date 所在周的事件；ICS 以周重复规则展开为整个学期。
type ExportService interface {
	ExportSchedule(ctx context.Context, userID string, req *dto.ExportRequest) (*ExportFile, error)
}

type exportService struct {
	calendar    CalendarService
	weeks       int
	productID   string
	exportedNow func() time.Time
	logger      *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.Config, calendar CalendarService, logger *zap.Logger) ExportService {
	return &exportService{
		calendar:    calendar,
		weeks:       cfg.Calendar.ExportWeeks,
		productID:   cfg.Calendar.ProductID,
		exportedNow: time.Now,
		logger:      logger,
	}
}

func (s *exportService) ExportSchedule(ctx context.Context, userID string, req *dto.ExportRequest) (*ExportFile, error) {
	format := req.Format
	if format == "" {
		format = FormatICS
	}

	// 1. 取周视图
	week, err := s.calendar.Week(ctx, userID, req.Date)
	if err != nil {
		return nil, err
	}
	if len(week.Events) == 0 {
		return nil, ErrExportEmpty
	}

	// 2. 按格式渲染
	var file *ExportFile
	switch format {
	case FormatICS:
		file = &ExportFile{
			Filename:    "horario.ics",
			ContentType: "text/calendar; charset=utf-8",
			Content:     []byte(s.renderICS(week.Events)),
		}
	case FormatCSV:
		content, err := export.RenderCSV(eventsDataset(week))
		if err != nil {
			return nil, s.generateFailed(format, err)
		}
		file = &ExportFile{Filename: "horario.csv", ContentType: "text/csv; charset=utf-8", Content: content}
	case FormatXLSX:
		content, err := export.RenderXLSX(eventsDataset(week), "Horario")
		if err != nil {
			return nil, s.generateFailed(format, err)
		}
		file = &ExportFile{
			Filename:    "horario.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}
	case FormatPDF:
		content, err := export.RenderPDF(eventsDataset(week))
		if err != nil {
			return nil, s.generateFailed(format, err)
		}
		file = &ExportFile{Filename: "horario.pdf", ContentType: "application/pdf", Content: content}
	default:
		return nil, ErrExportFormat
	}

	s.logger.Info("日历已导出",
		zap.String("user_id", userID),
		zap.String("format", format),
		zap.Int("events", len(week.Events)))
	return file, nil
}

// renderICS 每个事件以 RRULE 每周重复，时间统一写为 UTC
func (s *exportService) renderICS(events []dto.CalendarEvent) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(s.productID)

	stamp := s.exportedNow().UTC()
	for _, e := range events {
		evt := cal.AddEvent(uuid.NewString())
		evt.SetDtStampTime(stamp)
		evt.SetStartAt(e.Start.UTC())
		evt.SetEndAt(e.End.UTC())
		evt.SetSummary(e.Title)
		evt.SetDescription(e.Description)
		if e.Classroom != "" {
			evt.SetLocation(e.Classroom)
		}
		evt.SetProperty(ics.ComponentPropertyRrule, "FREQ=WEEKLY;COUNT="+strconv.Itoa(s.weeks))
	}
	return cal.Serialize()
}

func (s *exportService) generateFailed(format string, err error) error {
	s.logger.Error("生成导出文件失败", zap.String("format", format), zap.Error(err))
	return ErrExportGenerateFail
}

// eventsDataset 周事件转为表格；时间按日历时区输出
func eventsDataset(week *dto.CalendarResponse) export.Dataset {
	loc, err := time.LoadLocation(week.Timezone)
	if err != nil {
		loc = time.UTC
	}

	rows := make([]map[string]string, 0, len(week.Events))
	for _, e := range week.Events {
		start, end := e.Start.In(loc), e.End.In(loc)
		rows = append(rows, map[string]string{
			"Subject":     e.Title,
			"Start Date":  start.Format(dateLayout),
			"Start Time":  start.Format("15:04"),
			"End Date":    end.Format(dateLayout),
			"End Time":    end.Format("15:04"),
			"Description": e.Description,
		})
	}
	return export.Dataset{
		Title:   "Horario " + week.WeekStart + " / " + week.WeekEnd,
		Headers: csvHeaders,
		Rows:    rows,
	}
}
