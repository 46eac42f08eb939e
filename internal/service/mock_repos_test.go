package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/diegnghtmr/vale/config"
	"github.com/diegnghtmr/vale/internal/model"
	"github.com/diegnghtmr/vale/internal/repository"
	pkgerrors "github.com/diegnghtmr/vale/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%03d", m.seq)
	}
	user.CreatedAt = time.Now()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock CourseRepository ──

// mockCourseRepo 以插入顺序保存课程，读取时返回副本
type mockCourseRepo struct {
	courses map[string]*model.Course
	order   []string
	seq     int

	lockCalls    int
	replaceCalls int
	listErr      error
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func cloneCourse(c *model.Course) *model.Course {
	cp := *c
	cp.Slots = append([]model.CourseSlot(nil), c.Slots...)
	return &cp
}

// put 测试中直接写入课程
func (m *mockCourseRepo) put(c *model.Course) {
	if c.Version == 0 {
		c.Version = 1
	}
	if _, ok := m.courses[c.CourseID]; !ok {
		m.order = append(m.order, c.CourseID)
	}
	m.courses[c.CourseID] = cloneCourse(c)
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	if course.CourseID == "" {
		m.seq++
		course.CourseID = fmt.Sprintf("course-%03d", m.seq)
	}
	for i := range course.Slots {
		course.Slots[i].CourseID = course.CourseID
		course.Slots[i].Position = i
	}
	course.Version = 1
	course.CreatedAt = time.Now()
	course.UpdatedAt = course.CreatedAt
	m.put(course)
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, userID, courseID string) (*model.Course, error) {
	c, ok := m.courses[courseID]
	if !ok || c.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneCourse(c), nil
}

func (m *mockCourseRepo) List(_ context.Context, userID string, filter repository.CourseFilter, offset, limit int) ([]model.Course, int64, error) {
	var all []model.Course
	for _, id := range m.order {
		c := m.courses[id]
		if c.UserID != userID {
			continue
		}
		if filter.Semester != nil && c.Semester != *filter.Semester {
			continue
		}
		if filter.InCalendar != nil && c.IsInCalendar != *filter.InCalendar {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Name)) {
			continue
		}
		all = append(all, *cloneCourse(c))
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockCourseRepo) ListInCalendar(_ context.Context, userID string) ([]model.Course, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.Course
	for _, id := range m.order {
		c := m.courses[id]
		if c.UserID == userID && c.IsInCalendar {
			result = append(result, *cloneCourse(c))
		}
	}
	return result, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	stored, ok := m.courses[course.CourseID]
	if !ok || stored.Version != course.Version {
		return pkgerrors.ErrOptimisticLock
	}
	course.Version++
	m.courses[course.CourseID] = cloneCourse(course)
	return nil
}

func (m *mockCourseRepo) SetInCalendar(_ context.Context, course *model.Course, inCalendar bool) error {
	stored, ok := m.courses[course.CourseID]
	if !ok || stored.Version != course.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.IsInCalendar = inCalendar
	stored.Version++
	course.IsInCalendar = inCalendar
	course.Version = stored.Version
	return nil
}

func (m *mockCourseRepo) SetCompletedBySubject(_ context.Context, userID, subjectID string, completed bool) (int64, error) {
	var n int64
	for _, c := range m.courses {
		if c.UserID == userID && c.SubjectID == subjectID {
			c.IsCompleted = completed
			if completed {
				c.IsInCalendar = false
			}
			c.Version++
			n++
		}
	}
	return n, nil
}

func (m *mockCourseRepo) Delete(_ context.Context, userID, courseID string) error {
	c, ok := m.courses[courseID]
	if !ok || c.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(m.courses, courseID)
	for i, id := range m.order {
		if id == courseID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockCourseRepo) ReplaceAll(ctx context.Context, userID string, courses []model.Course) error {
	m.replaceCalls++
	for _, id := range append([]string(nil), m.order...) {
		if m.courses[id].UserID == userID {
			_ = m.Delete(ctx, userID, id)
		}
	}
	for i := range courses {
		courses[i].UserID = userID
		if err := m.Create(ctx, &courses[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockCourseRepo) WithUserLock(_ context.Context, _ string, fn func(tx repository.CourseRepository) error) error {
	m.lockCalls++
	return fn(m)
}

// ── Mock Redis 能力 ──

type mockCache struct {
	data     map[string][]byte
	counters map[string]int64
	gets     int
	hits     int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte), counters: make(map[string]int64)}
}

func (m *mockCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	m.gets++
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	m.hits++
	return true, json.Unmarshal(raw, dest)
}

func (m *mockCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *mockCache) Incr(_ context.Context, key string) (int64, error) {
	m.counters[key]++
	return m.counters[key], nil
}

func (m *mockCache) GetInt(_ context.Context, key string) (int64, error) {
	return m.counters[key], nil
}

type mockBlacklist struct {
	revoked map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}

// ── 测试辅助 ──

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-0123456789",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Calendar: config.CalendarConfig{
			Timezone:    "America/Bogota",
			ExportWeeks: 16,
			ProductID:   "-//vale//test//ES",
		},
		Import: config.ImportConfig{MaxFileSize: 1 << 20, MaxCourses: 50},
	}
}

func slot(day, start, end string) model.CourseSlot {
	return model.CourseSlot{Day: day, StartTime: start, EndTime: end}
}
