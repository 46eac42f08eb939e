package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diegnghtmr/vale/internal/conflict"
	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/internal/model"
	"github.com/diegnghtmr/vale/internal/repository"
	pkgerrors "github.com/diegnghtmr/vale/pkg/errors"
	"github.com/diegnghtmr/vale/pkg/metrics"
)

var (
	ErrCourseNotFound     = errors.New("课程不存在")
	ErrCourseInvalidSlot  = errors.New("课程时段不合法")
	ErrCourseSelfConflict = errors.New("课程自身时段存在重叠")
	ErrCourseConflict     = errors.New("课程与日历中的课程时间冲突")
)

// ConflictError 携带首个冲突详情，errors.Is(err, ErrCourseConflict) 为 true
type ConflictError struct {
	Conflict *conflict.Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCourseConflict.Error(), describeConflict(e.Conflict))
}

func (e *ConflictError) Unwrap() error { return ErrCourseConflict }

// Details 冲突详情（响应 details 字段）
func (e *ConflictError) Details() *dto.ConflictResponse {
	return toConflictResponse(e.Conflict)
}

// CourseService 课程业务接口
type CourseService interface {
	Create(ctx context.Context, userID string, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	GetByID(ctx context.Context, userID, courseID string) (*dto.CourseResponse, error)
	List(ctx context.Context, userID string, req *dto.CourseListRequest) ([]dto.CourseResponse, int64, error)
	Update(ctx context.Context, userID, courseID string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	Delete(ctx context.Context, userID, courseID string) error
	// CheckConflict 编辑中的冲突预检，冲突以数据形式返回，不拒绝请求
	CheckConflict(ctx context.Context, userID string, req *dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error)
	// SetInCalendar 加入日历前检测冲突，移出日历不检测
	SetInCalendar(ctx context.Context, userID, courseID string, inCalendar bool) (*dto.CourseResponse, error)
	// SetCompleted 按科目切换完成状态，同科目的所有分组一起更新
	SetCompleted(ctx context.Context, userID, courseID string, completed bool) (*dto.CompletionResponse, error)
}

type courseService struct {
	repo     *repository.Repository
	calendar CalendarService
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(
	repo *repository.Repository,
	calendar CalendarService,
	m *metrics.Metrics,
	logger *zap.Logger,
) CourseService {
	return &courseService{
		repo:     repo,
		calendar: calendar,
		metrics:  m,
		logger:   logger,
	}
}

func (s *courseService) Create(ctx context.Context, userID string, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	// 1. 解析时段并做自身冲突检测
	slots, err := s.validateSchedule(req.Schedule)
	if err != nil {
		return nil, err
	}

	course := &model.Course{
		UserID:    userID,
		Name:      req.Name,
		SubjectID: SubjectID(req.Name),
		Credits:   req.Credits,
		Semester:  req.Semester,
		Shift:     req.Shift,
		GroupName: req.Group,
		Classroom: req.Classroom,
		Details:   req.Details,
		Slots:     toModelSlots(slots),
	}
	course.CreatedBy = &userID
	course.UpdatedBy = &userID

	// 2. 锁定用户后检测与日历课程的冲突，并写入
	err = s.repo.Course.WithUserLock(ctx, userID, func(tx repository.CourseRepository) error {
		if err := s.checkAgainstCalendar(ctx, tx, userID, conflict.Course{Name: req.Name, Schedule: slots}, ""); err != nil {
			return err
		}
		return tx.Create(ctx, course)
	})
	if err != nil {
		return nil, s.wrapWriteError("创建课程失败", err)
	}

	s.logger.Info("课程已创建",
		zap.String("user_id", userID),
		zap.String("course_id", course.CourseID),
		zap.Int("slots", len(course.Slots)))

	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *courseService) GetByID(ctx context.Context, userID, courseID string) (*dto.CourseResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}
	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *courseService) List(ctx context.Context, userID string, req *dto.CourseListRequest) ([]dto.CourseResponse, int64, error) {
	filter := repository.CourseFilter{
		Semester:   req.Semester,
		Shift:      req.Shift,
		Name:       req.Name,
		Credits:    req.Credits,
		InCalendar: req.InCalendar,
		Completed:  req.Completed,
	}
	courses, total, err := s.repo.Course.List(ctx, userID, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		list = append(list, toCourseResponse(&courses[i]))
	}
	return list, total, nil
}

func (s *courseService) Update(ctx context.Context, userID, courseID string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	slots, err := s.validateSchedule(req.Schedule)
	if err != nil {
		return nil, err
	}

	var course *model.Course
	err = s.repo.Course.WithUserLock(ctx, userID, func(tx repository.CourseRepository) error {
		// 1. 查询现有课程
		existing, err := tx.GetByID(ctx, userID, courseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return err
		}
		if req.Version != 0 && req.Version != existing.Version {
			return pkgerrors.ErrOptimisticLock
		}

		// 2. 排除自身后检测冲突
		candidate := conflict.Course{ID: courseID, Name: req.Name, Schedule: slots}
		if err := s.checkAgainstCalendar(ctx, tx, userID, candidate, courseID); err != nil {
			return err
		}

		// 3. 全量更新
		existing.Name = req.Name
		existing.SubjectID = SubjectID(req.Name)
		existing.Credits = req.Credits
		existing.Semester = req.Semester
		existing.Shift = req.Shift
		existing.GroupName = req.Group
		existing.Classroom = req.Classroom
		existing.Details = req.Details
		existing.Slots = toModelSlots(slots)
		existing.UpdatedBy = &userID
		if err := tx.Update(ctx, existing); err != nil {
			return err
		}
		course = existing
		return nil
	})
	if err != nil {
		return nil, s.wrapWriteError("更新课程失败", err)
	}

	if course.IsInCalendar {
		s.calendar.Invalidate(ctx, userID)
	}

	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *courseService) Delete(ctx context.Context, userID, courseID string) error {
	if err := s.repo.Course.Delete(ctx, userID, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		s.logger.Error("删除课程失败", zap.String("course_id", courseID), zap.Error(err))
		return err
	}
	s.calendar.Invalidate(ctx, userID)
	return nil
}

func (s *courseService) CheckConflict(ctx context.Context, userID string, req *dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	slots, err := parseSlots(req.Schedule)
	if err != nil {
		return nil, err
	}

	committed, err := s.committedCourses(ctx, s.repo.Course, userID)
	if err != nil {
		return nil, err
	}

	found := conflict.CheckCrossConflict(committed, conflict.Course{ID: req.CourseID, Schedule: slots}, req.CourseID)
	s.metrics.ObserveConflictCheck(metrics.KindCross, found != nil)

	return &dto.ConflictCheckResponse{
		HasConflict: found != nil,
		Conflict:    toConflictResponse(found),
	}, nil
}

func (s *courseService) SetInCalendar(ctx context.Context, userID, courseID string, inCalendar bool) (*dto.CourseResponse, error) {
	var course *model.Course
	err := s.repo.Course.WithUserLock(ctx, userID, func(tx repository.CourseRepository) error {
		existing, err := tx.GetByID(ctx, userID, courseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return err
		}
		course = existing
		if existing.IsInCalendar == inCalendar {
			return nil
		}

		if inCalendar {
			candidate, err := toConflictCourse(existing)
			if err != nil {
				return err
			}
			if err := s.checkAgainstCalendar(ctx, tx, userID, candidate, courseID); err != nil {
				return err
			}
		}
		return tx.SetInCalendar(ctx, existing, inCalendar)
	})
	if err != nil {
		return nil, s.wrapWriteError("切换日历状态失败", err)
	}

	s.calendar.Invalidate(ctx, userID)
	s.logger.Info("日历状态已切换",
		zap.String("course_id", courseID),
		zap.Bool("in_calendar", course.IsInCalendar))

	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *courseService) SetCompleted(ctx context.Context, userID, courseID string, completed bool) (*dto.CompletionResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	affected, err := s.repo.Course.SetCompletedBySubject(ctx, userID, course.SubjectID, completed)
	if err != nil {
		s.logger.Error("更新完成状态失败", zap.String("subject_id", course.SubjectID), zap.Error(err))
		return nil, err
	}

	s.calendar.Invalidate(ctx, userID)
	return &dto.CompletionResponse{
		SubjectID: course.SubjectID,
		Completed: completed,
		Affected:  affected,
	}, nil
}

// ── 内部方法 ──

// validateSchedule 提交前校验：时段合法且无自身重叠
func (s *courseService) validateSchedule(inputs []dto.SlotInput) ([]conflict.TimeSlot, error) {
	slots, err := parseSlots(inputs)
	if err != nil {
		return nil, err
	}
	self := conflict.CheckSelfConflict(slots)
	s.metrics.ObserveConflictCheck(metrics.KindSelf, self)
	if self {
		return nil, ErrCourseSelfConflict
	}
	return slots, nil
}

func (s *courseService) committedCourses(ctx context.Context, repo repository.CourseRepository, userID string) ([]conflict.Course, error) {
	courses, err := repo.ListInCalendar(ctx, userID)
	if err != nil {
		s.logger.Error("查询日历课程失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toConflictCourses(courses)
}

// checkAgainstCalendar 与日历中课程做交叉检测，冲突时返回 *ConflictError
func (s *courseService) checkAgainstCalendar(ctx context.Context, repo repository.CourseRepository, userID string, candidate conflict.Course, excludeID string) error {
	committed, err := s.committedCourses(ctx, repo, userID)
	if err != nil {
		return err
	}
	found := conflict.CheckCrossConflict(committed, candidate, excludeID)
	s.metrics.ObserveConflictCheck(metrics.KindCross, found != nil)
	if found != nil {
		return &ConflictError{Conflict: found}
	}
	return nil
}

// wrapWriteError 业务错误原样返回，其余记录日志
func (s *courseService) wrapWriteError(msg string, err error) error {
	switch {
	case errors.Is(err, ErrCourseNotFound),
		errors.Is(err, ErrCourseConflict),
		errors.Is(err, pkgerrors.ErrOptimisticLock):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 用户行不存在（WithUserLock）
		return ErrUserNotFound
	}
	s.logger.Error(msg, zap.Error(err))
	return err
}
