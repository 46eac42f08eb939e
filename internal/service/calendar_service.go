package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/diegnghtmr/vale/config"
	"github.com/diegnghtmr/vale/internal/conflict"
	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/internal/model"
	"github.com/diegnghtmr/vale/internal/repository"
	"github.com/diegnghtmr/vale/pkg/metrics"
)

var ErrInvalidDate = errors.New("日期格式无效，应为 YYYY-MM-DD")

const (
	calendarCacheTTL = time.Hour
	dateLayout       = "2006-01-02"
)

// CalendarCache 日历视图缓存（由 pkg/redis.Client 实现）
type CalendarCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

// CalendarService 周日历业务接口
type CalendarService interface {
	// Week 返回 date 所在周的课程事件；date 为空时取今天
	Week(ctx context.Context, userID, date string) (*dto.CalendarResponse, error)
	// Invalidate 使该用户的日历缓存失效
	Invalidate(ctx context.Context, userID string)
}

type calendarService struct {
	repo    *repository.Repository
	cache   CalendarCache
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewCalendarService 创建 CalendarService 实例；cache 为 nil 时不缓存
func NewCalendarService(
	cfg *config.Config,
	repo *repository.Repository,
	cache CalendarCache,
	m *metrics.Metrics,
	logger *zap.Logger,
) CalendarService {
	return &calendarService{
		repo:    repo,
		cache:   cache,
		loc:     cfg.Calendar.Location(),
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *calendarService) Week(ctx context.Context, userID, date string) (*dto.CalendarResponse, error) {
	// 1. 计算周一锚点
	day := s.now().In(s.loc)
	if date != "" {
		parsed, err := time.ParseInLocation(dateLayout, date, s.loc)
		if err != nil {
			return nil, ErrInvalidDate
		}
		day = parsed
	}
	monday := WeekMonday(day)

	// 2. 读缓存
	key := s.cacheKey(ctx, userID, monday)
	if key != "" {
		var cached dto.CalendarResponse
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("读取日历缓存失败", zap.String("key", key), zap.Error(err))
		}
		s.metrics.ObserveCacheLookup(hit)
		if hit {
			return &cached, nil
		}
	}

	// 3. 查询日历课程并展开为事件
	courses, err := s.repo.Course.ListInCalendar(ctx, userID)
	if err != nil {
		s.logger.Error("查询日历课程失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp, err := buildWeek(courses, monday)
	if err != nil {
		return nil, err
	}

	// 4. 回写缓存
	if key != "" {
		if err := s.cache.SetJSON(ctx, key, resp, calendarCacheTTL); err != nil {
			s.logger.Warn("写入日历缓存失败", zap.String("key", key), zap.Error(err))
		}
	}
	return resp, nil
}

func (s *calendarService) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, calendarVersionKey(userID)); err != nil {
		s.logger.Warn("日历缓存失效失败", zap.String("user_id", userID), zap.Error(err))
	}
}

// cacheKey 返回空字符串表示跳过缓存
func (s *calendarService) cacheKey(ctx context.Context, userID string, monday time.Time) string {
	if s.cache == nil {
		return ""
	}
	ver, err := s.cache.GetInt(ctx, calendarVersionKey(userID))
	if err != nil {
		s.logger.Warn("读取日历缓存版本失败", zap.String("user_id", userID), zap.Error(err))
		return ""
	}
	return fmt.Sprintf("calendar:%s:v%d:%s", userID, ver, monday.Format(dateLayout))
}

func calendarVersionKey(userID string) string {
	return "calendar:ver:" + userID
}

// WeekMonday 返回 t 所在周的周一 00:00（t 的时区）
// 周日锚定到下一个周一
func WeekMonday(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-int(t.Weekday())+1, 0, 0, 0, 0, t.Location())
}

// SlotTimes 将时段落到具体周：monday 为该周周一 00:00
func SlotTimes(monday time.Time, slot conflict.TimeSlot) (time.Time, time.Time) {
	y, m, d := monday.Date()
	d += slot.Day.Offset()
	start := time.Date(y, m, d, slot.Start.Hour(), slot.Start.Minute(), 0, 0, monday.Location())
	end := time.Date(y, m, d, slot.End.Hour(), slot.End.Minute(), 0, 0, monday.Location())
	return start, end
}

// EventTitle 日历事件标题
func EventTitle(c *model.Course) string {
	return fmt.Sprintf("%s - S%d G%s (%d cr)", c.Name, c.Semester, c.GroupName, c.Credits)
}

func buildWeek(courses []model.Course, monday time.Time) (*dto.CalendarResponse, error) {
	resp := &dto.CalendarResponse{
		WeekStart:   monday.Format(dateLayout),
		WeekEnd:     monday.AddDate(0, 0, 6).Format(dateLayout),
		Timezone:    monday.Location().String(),
		Events:      make([]dto.CalendarEvent, 0),
		CourseCount: len(courses),
	}

	for i := range courses {
		c := &courses[i]
		resp.TotalCredits += c.Credits

		cc, err := toConflictCourse(c)
		if err != nil {
			return nil, err
		}
		for j, slot := range cc.Schedule {
			if slot.Day.Offset() < 0 {
				continue
			}
			start, end := SlotTimes(monday, slot)
			resp.Events = append(resp.Events, dto.CalendarEvent{
				ID:          fmt.Sprintf("%s-%d", c.CourseID, j),
				CourseID:    c.CourseID,
				Title:       EventTitle(c),
				Description: fmt.Sprintf("%s - %s", slot.Start, slot.End),
				Classroom:   c.Classroom,
				Day:         string(slot.Day),
				Start:       start,
				End:         end,
			})
		}
	}

	sort.SliceStable(resp.Events, func(i, j int) bool {
		return resp.Events[i].Start.Before(resp.Events[j].Start)
	})
	return resp, nil
}
