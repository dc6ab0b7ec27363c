package repository_test

import (
	"testing"
	"time"

	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveMergesConcurrentFirstWrites(t *testing.T) {
	db := testutil.DB(t)
	teacher := testutil.CreateUser(t, db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, db, model.Student, "student@test.com")
	lesson := testutil.CreateLesson(t, db, testutil.CreateCourse(t, db, teacher, nil), 1)
	repo := repository.NewProgressRepository(db)

	fresh := func() *model.LessonProgress {
		return &model.LessonProgress{StudentID: student.ID, LessonID: lesson.ID, CourseID: lesson.CourseID}
	}

	// 两个请求都没有读到记录，各自按首次写入处理
	first := fresh()
	first.LastPosition = 10
	require.NoError(t, repo.Save(first))

	now := time.Now()
	second := fresh()
	second.LastPosition = 20
	second.Completed = true
	second.CompletedAt = &now
	require.NoError(t, repo.Save(second))

	stored, err := repo.FindByStudentAndLesson(student.ID, lesson.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, 20, stored.LastPosition)
	assert.Equal(t, stored.ID, second.ID)
	assert.True(t, second.Completed)

	// 之后未完成的首次写入不会撤销完成状态
	third := fresh()
	third.LastPosition = 5
	require.NoError(t, repo.Save(third))
	assert.True(t, third.Completed, "saved struct reflects the stored row")
	require.NotNil(t, third.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(*third.CompletedAt))
	assert.Equal(t, 5, third.LastPosition)

	var rows int64
	require.NoError(t, db.Model(&model.LessonProgress{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestSaveExistingRowKeepsCompletion(t *testing.T) {
	db := testutil.DB(t)
	teacher := testutil.CreateUser(t, db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, db, model.Student, "student@test.com")
	lesson := testutil.CreateLesson(t, db, testutil.CreateCourse(t, db, teacher, nil), 1)
	repo := repository.NewProgressRepository(db)

	completedAt := time.Now().Add(-time.Hour)
	progress := &model.LessonProgress{
		StudentID: student.ID, LessonID: lesson.ID, CourseID: lesson.CourseID,
		Completed: true, CompletedAt: &completedAt,
	}
	require.NoError(t, repo.Save(progress))

	// 过期的读取：内存中仍是未完成
	stale := *progress
	stale.Completed = false
	stale.CompletedAt = nil
	stale.LastPosition = 99
	require.NoError(t, repo.Save(&stale))
	assert.True(t, stale.Completed)
	assert.Equal(t, 99, stale.LastPosition)

	later := time.Now()
	again := stale
	again.CompletedAt = &later
	require.NoError(t, repo.Save(&again))
	require.NotNil(t, again.CompletedAt)
	assert.True(t, completedAt.Equal(*again.CompletedAt), "completedAt is written once")
}
