package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	pkgerrors "github.com/diegnghtmr/vale/pkg/errors"

	"github.com/diegnghtmr/vale/internal/model"
)

func newCourseRepoMock(t *testing.T) (CourseRepository, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewCourseRepo(db), mock, func() { sqlDB.Close() }
}

var courseColumns = []string{
	"course_id", "user_id", "name", "subject_id", "credits", "semester", "shift", "group_name",
	"classroom", "details", "is_in_calendar", "is_completed", "created_at", "updated_at", "version",
}

func TestCourseRepoGetByID_PreloadsSlotsInOrder(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "courses" WHERE \(course_id = \$1 AND user_id = \$2\)`).
		WillReturnRows(sqlmock.NewRows(courseColumns).
			AddRow("c-1", "u-1", "Cálculo", "calculo", 4, 1, "day", "01", "", "", true, false, now, now, 3))
	mock.ExpectQuery(`SELECT \* FROM "course_slots" WHERE "course_slots"."course_id" = \$1 ORDER BY position ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id", "course_id", "position", "day", "start_time", "end_time"}).
			AddRow("s-1", "c-1", 0, "monday", "07:00", "09:00").
			AddRow("s-2", "c-1", 1, "wednesday", "22:00", "24:00"))

	course, err := repo.GetByID(context.Background(), "u-1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Cálculo", course.Name)
	assert.Equal(t, 3, course.Version)
	assert.True(t, course.IsInCalendar)
	require.Len(t, course.Slots, 2)
	assert.Equal(t, "monday", course.Slots[0].Day)
	assert.Equal(t, "24:00", course.Slots[1].EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepoGetByID_NotFound(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "courses" WHERE`).
		WillReturnRows(sqlmock.NewRows(courseColumns))

	_, err := repo.GetByID(context.Background(), "u-1", "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepoListInCalendar_Empty(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "courses" WHERE \(user_id = \$1 AND is_in_calendar = \$2\)`).
		WithArgs("u-1", true).
		WillReturnRows(sqlmock.NewRows(courseColumns))

	courses, err := repo.ListInCalendar(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepoSetInCalendar_OptimisticLock(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "courses" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	course := &model.Course{CourseID: "c-1", UserID: "u-1"}
	course.Version = 2

	err := repo.SetInCalendar(context.Background(), course, true)
	assert.ErrorIs(t, err, pkgerrors.ErrOptimisticLock)
	assert.False(t, course.IsInCalendar)
	assert.Equal(t, 2, course.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepoSetInCalendar_BumpsVersion(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "courses" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	course := &model.Course{CourseID: "c-1", UserID: "u-1"}
	course.Version = 2

	require.NoError(t, repo.SetInCalendar(context.Background(), course, true))
	assert.True(t, course.IsInCalendar)
	assert.Equal(t, 3, course.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepoDelete_NotFound(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "courses" SET "deleted_at"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "u-1", "c-404")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_a\\b`, escapeLike(`100%_a\b`))
}
