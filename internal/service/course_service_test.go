package service

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCourseSlugs(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	category := testutil.CreateCategory(t, env.db)
	p := env.policy(t, teacher)

	first, err := env.course.Create(p, CourseInput{Title: "Intro to Go", CategoryID: category.ID, IsFree: true})
	require.NoError(t, err)
	assert.Equal(t, "intro-to-go", first.Slug)

	second, err := env.course.Create(p, CourseInput{Title: "Intro  to_Go", CategoryID: category.ID, IsFree: true})
	require.NoError(t, err)
	assert.Equal(t, "intro-to-go-"+itoa(second.ID), second.Slug)

	arabic, err := env.course.Create(p, CourseInput{Title: "مقدمة في البرمجة", CategoryID: category.ID, IsFree: true})
	require.NoError(t, err)
	assert.Equal(t, "مقدمة-في-البرمجة", arabic.Slug)

	symbols, err := env.course.Create(p, CourseInput{Title: "!!! ???", CategoryID: category.ID, IsFree: true})
	require.NoError(t, err)
	assert.Equal(t, "course-"+itoa(symbols.ID), symbols.Slug)

	detail, err := env.course.GetBySlug(access.Anonymous(), "intro-to-go")
	require.NoError(t, err)
	assert.Equal(t, first.ID, detail.ID)
	assert.False(t, detail.HasAccess)
}

func TestCreateCourseValidation(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	category := testutil.CreateCategory(t, env.db)

	_, err := env.course.Create(env.policy(t, student), CourseInput{Title: "Mine", CategoryID: category.ID})
	requireStatus(t, http.StatusForbidden, err)
	_, err = env.course.Create(env.policy(t, teacher), CourseInput{Title: "Mine", CategoryID: 999})
	requireStatus(t, http.StatusBadRequest, err)
	_, err = env.course.Create(env.policy(t, teacher), CourseInput{Title: "Mine", CategoryID: category.ID, Price: testutil.Price(-1)})
	requireStatus(t, http.StatusBadRequest, err)

	free, err := env.course.Create(env.policy(t, teacher), CourseInput{
		Title: "Free anyway", CategoryID: category.ID, IsFree: true, Price: testutil.Price(100),
	})
	require.NoError(t, err)
	assert.Nil(t, free.Price, "free courses carry no price")
}

func TestUpdateCourseKeepsSlug(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	other := testutil.CreateUser(t, env.db, model.Teacher, "other@test.com")
	admin := testutil.CreateUser(t, env.db, model.SuperAdmin, "admin@test.com")
	category := testutil.CreateCategory(t, env.db)

	course, err := env.course.Create(env.policy(t, teacher), CourseInput{Title: "Original", CategoryID: category.ID, IsFree: true})
	require.NoError(t, err)

	in := CourseInput{Title: "Renamed", CategoryID: category.ID, Price: testutil.Price(300)}
	_, err = env.course.Update(env.policy(t, other), course.ID, in)
	requireStatus(t, http.StatusForbidden, err)

	updated, err := env.course.Update(env.policy(t, admin), course.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	detail, err := env.course.Get(access.Anonymous(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", detail.Slug)
	assert.True(t, detail.RequiresPayment())
}

func TestCourseListingStats(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, nil)
	testutil.CreateLesson(t, env.db, course, 1)
	testutil.CreateLesson(t, env.db, course, 2)
	testutil.Enroll(t, env.db, student, course, model.EnrollmentFree)

	_, err := env.review.CreateReview(env.policy(t, student), course.ID, 4, "Clear explanations")
	require.NoError(t, err)
	_, err = env.review.CreateReview(env.policy(t, student), course.ID, 5, "Again")
	requireStatus(t, http.StatusConflict, err)

	list, total, err := env.course.List(repository.CourseFilter{TeacherID: teacher.ID}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].LessonCount)
	assert.Equal(t, int64(1), list[0].EnrollmentCount)
	assert.Equal(t, int64(1), list[0].ReviewCount)
	assert.InDelta(t, 4.0, list[0].AverageRating, 0.001)
}

func TestDeleteCategoryWithCoursesConflicts(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, nil)

	err := env.course.DeleteCategory(course.CategoryID)
	requireStatus(t, http.StatusConflict, err)

	empty, err := env.course.CreateCategory(CategoryInput{NameEn: "Design", NameAr: "تصميم"})
	require.NoError(t, err)
	assert.Equal(t, "design", empty.Slug)
	_, err = env.course.CreateCategory(CategoryInput{NameEn: "Design"})
	requireStatus(t, http.StatusConflict, err)
	require.NoError(t, env.course.DeleteCategory(empty.ID))
}

func TestUploadThumbnail(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, nil)

	url, err := env.course.UploadThumbnail(context.Background(), env.policy(t, teacher), course.ID, bytes.NewReader(pngImage))
	require.NoError(t, err)
	assert.Contains(t, url, "https://cdn.test/thumbnails/"+itoa(course.ID)+"/")
	assert.Contains(t, url, ".png")

	detail, err := env.course.Get(access.Anonymous(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, url, detail.ThumbnailURL)

	_, err = env.course.UploadThumbnail(context.Background(), env.policy(t, teacher), course.ID, bytes.NewReader([]byte("GIF? no")))
	requireStatus(t, http.StatusBadRequest, err)
}

func TestMyCoursesUsesOwnedSet(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	other := testutil.CreateUser(t, env.db, model.Teacher, "other@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	c1 := testutil.CreateCourse(t, env.db, teacher, nil)
	c2 := testutil.CreateCourse(t, env.db, teacher, testutil.Price(10))
	testutil.CreateCourse(t, env.db, other, nil)

	mine, err := env.course.MyCourses(env.policy(t, teacher))
	require.NoError(t, err)
	ids := make([]uint, 0, len(mine))
	for _, c := range mine {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []uint{c1.ID, c2.ID}, ids)

	// 范围只来自策略中的课程集合
	scoped, err := env.course.MyCourses(access.New(teacher.ID, model.Teacher, []uint{c2.ID}, nil))
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, c2.ID, scoped[0].ID)

	empty, err := env.course.MyCourses(access.New(teacher.ID, model.Teacher, nil, nil))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = env.course.MyCourses(env.policy(t, student))
	requireStatus(t, http.StatusForbidden, err)
}
