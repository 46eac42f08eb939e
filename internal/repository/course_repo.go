package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diegnghtmr/vale/internal/model"
	pkgerrors "github.com/diegnghtmr/vale/pkg/errors"
)

// CourseFilter 课程列表筛选条件，零值字段不参与过滤
type CourseFilter struct {
	Semester   *int
	Shift      string
	Name       string // 名称子串，大小写不敏感
	Credits    *int
	InCalendar *bool
	Completed  *bool
}

// CourseRepository 课程数据访问接口
//
// 所有查询均按 userID 限定归属，查询不到他人课程。
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, userID, courseID string) (*model.Course, error)
	List(ctx context.Context, userID string, filter CourseFilter, offset, limit int) ([]model.Course, int64, error)
	// ListInCalendar 已入日历的课程（冲突检测的比较对象）
	ListInCalendar(ctx context.Context, userID string) ([]model.Course, error)
	// Update 乐观锁更新课程字段并全量替换时段
	Update(ctx context.Context, course *model.Course) error
	// SetInCalendar 乐观锁切换日历标记
	SetInCalendar(ctx context.Context, course *model.Course, inCalendar bool) error
	// SetCompletedBySubject 按 subject_id 批量设置完成状态；完成时同时移出日历
	SetCompletedBySubject(ctx context.Context, userID, subjectID string, completed bool) (int64, error)
	Delete(ctx context.Context, userID, courseID string) error
	// ReplaceAll 在事务中全量替换用户课程：先硬删除旧数据，再批量插入新数据
	ReplaceAll(ctx context.Context, userID string, courses []model.Course) error
	// WithUserLock 在事务中锁定用户行，串行化同一用户的日历变更
	WithUserLock(ctx context.Context, userID string, fn func(tx CourseRepository) error) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func orderedSlots(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	for i := range course.Slots {
		course.Slots[i].Position = i
	}
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, userID, courseID string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Preload("Slots", orderedSlots).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context, userID string, filter CourseFilter, offset, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Course{}).Where("user_id = ?", userID)

	if filter.Semester != nil {
		db = db.Where("semester = ?", *filter.Semester)
	}
	if filter.Shift != "" {
		db = db.Where("shift = ?", filter.Shift)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		db = db.Where("name ILIKE ?", "%"+escapeLike(name)+"%")
	}
	if filter.Credits != nil {
		db = db.Where("credits = ?", *filter.Credits)
	}
	if filter.InCalendar != nil {
		db = db.Where("is_in_calendar = ?", *filter.InCalendar)
	}
	if filter.Completed != nil {
		db = db.Where("is_completed = ?", *filter.Completed)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Slots", orderedSlots).
		Offset(offset).Limit(limit).
		Order("semester ASC, name ASC").
		Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *courseRepo) ListInCalendar(ctx context.Context, userID string) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Preload("Slots", orderedSlots).
		Where("user_id = ? AND is_in_calendar = ?", userID, true).
		Order("created_at ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		oldVersion := course.Version
		result := tx.Model(&model.Course{}).
			Where("course_id = ? AND user_id = ? AND version = ?", course.CourseID, course.UserID, oldVersion).
			Updates(map[string]interface{}{
				"name":           course.Name,
				"subject_id":     course.SubjectID,
				"credits":        course.Credits,
				"semester":       course.Semester,
				"shift":          course.Shift,
				"group_name":     course.GroupName,
				"classroom":      course.Classroom,
				"details":        course.Details,
				"is_in_calendar": course.IsInCalendar,
				"is_completed":   course.IsCompleted,
				"updated_by":     course.UpdatedBy,
				"version":        oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}

		// 时段全量替换（硬删除，无需审计）
		if err := tx.Where("course_id = ?", course.CourseID).Delete(&model.CourseSlot{}).Error; err != nil {
			return err
		}
		for i := range course.Slots {
			course.Slots[i].SlotID = ""
			course.Slots[i].CourseID = course.CourseID
			course.Slots[i].Position = i
		}
		if len(course.Slots) > 0 {
			if err := tx.Create(&course.Slots).Error; err != nil {
				return err
			}
		}

		course.Version = oldVersion + 1
		return nil
	})
}

func (r *courseRepo) SetInCalendar(ctx context.Context, course *model.Course, inCalendar bool) error {
	oldVersion := course.Version
	result := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("course_id = ? AND user_id = ? AND version = ?", course.CourseID, course.UserID, oldVersion).
		Updates(map[string]interface{}{
			"is_in_calendar": inCalendar,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	course.IsInCalendar = inCalendar
	course.Version = oldVersion + 1
	return nil
}

func (r *courseRepo) SetCompletedBySubject(ctx context.Context, userID, subjectID string, completed bool) (int64, error) {
	updates := map[string]interface{}{
		"is_completed": completed,
		"version":      gorm.Expr("version + 1"),
	}
	if completed {
		updates["is_in_calendar"] = false
	}
	result := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *courseRepo) Delete(ctx context.Context, userID, courseID string) error {
	result := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Delete(&model.Course{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepo) ReplaceAll(ctx context.Context, userID string, courses []model.Course) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 时段随 courses 外键级联删除
		if err := tx.Unscoped().Where("user_id = ?", userID).
			Delete(&model.Course{}).Error; err != nil {
			return err
		}
		for i := range courses {
			courses[i].UserID = userID
			for j := range courses[i].Slots {
				courses[i].Slots[j].Position = j
			}
		}
		if len(courses) > 0 {
			if err := tx.CreateInBatches(&courses, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *courseRepo) WithUserLock(ctx context.Context, userID string, fn func(tx CourseRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("user_id").
			Where("user_id = ?", userID).
			First(&user).Error; err != nil {
			return err
		}
		return fn(&courseRepo{db: tx})
	})
}

// escapeLike 转义 LIKE 通配符
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
