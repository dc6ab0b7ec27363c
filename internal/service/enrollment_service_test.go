package service

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"manhaj_backend/internal/model"
	"manhaj_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollFreeCourseGrantsAccessImmediately(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, nil)
	lesson := testutil.CreateLesson(t, env.db, course, 1)

	p := env.policy(t, student)
	result, err := env.enrollment.Enroll(p, course.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.EnrollmentFree), result.Status)
	assert.Empty(t, result.WhatsAppLink)
	assert.True(t, p.IsEnrolled(course.ID), "policy is updated in place")

	view, err := env.lesson.Get(env.policy(t, student), lesson.ID)
	require.NoError(t, err)
	require.NotNil(t, view.VideoURL)
	assert.Equal(t, lesson.VideoURL, *view.VideoURL)

	notes := env.notificationsFor(t, teacher.ID, model.NotifyNewEnrollment)
	require.Len(t, notes, 1)
	assert.Equal(t, "/dashboard/teacher", mustResolve(t, &notes[0], model.Teacher))
}

func TestEnrollPaidCourseStaysPendingUntilConfirmed(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateUser(t, env.db, model.SuperAdmin, "admin@test.com")
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, testutil.Price(50000))
	lesson := testutil.CreateLesson(t, env.db, course, 1)

	result, err := env.enrollment.Enroll(env.policy(t, student), course.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.EnrollmentPending), result.Status)
	assert.True(t, strings.HasPrefix(result.WhatsAppLink, "https://wa.me/966501234567?text="), result.WhatsAppLink)

	view, err := env.lesson.Get(env.policy(t, student), lesson.ID)
	require.NoError(t, err)
	assert.Nil(t, view.VideoURL)
	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "videoUrl")

	requests := env.notificationsFor(t, admin.ID, model.NotifyEnrollmentRequest)
	require.Len(t, requests, 1)
	assert.Empty(t, env.notificationsFor(t, teacher.ID, model.NotifyNewEnrollment), "teacher is told only after confirmation")

	confirmed, err := env.enrollment.UpdateStatus(env.policy(t, admin), result.Enrollment.ID, model.EnrollmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, admin.ID, *confirmed.ConfirmedBy)

	view, err = env.lesson.Get(env.policy(t, student), lesson.ID)
	require.NoError(t, err)
	raw, err = json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"videoUrl":"`+lesson.VideoURL+`"`)

	studentNotes := env.notificationsFor(t, student.ID, model.NotifyEnrollmentConfirmed)
	require.Len(t, studentNotes, 1)
	assert.Equal(t, "/courses/"+itoa(course.ID), mustResolve(t, &studentNotes[0], model.Student))
	assert.Len(t, env.notificationsFor(t, teacher.ID, model.NotifyNewEnrollment), 1)
}

func TestEnrollTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, testutil.Price(100))

	_, err := env.enrollment.Enroll(env.policy(t, student), course.ID)
	require.NoError(t, err)

	_, err = env.enrollment.Enroll(env.policy(t, student), course.ID)
	requireStatus(t, http.StatusConflict, err)

	var count int64
	require.NoError(t, env.db.Model(&model.Enrollment{}).Where("student_id = ?", student.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnrollOnlyStudents(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	other := testutil.CreateUser(t, env.db, model.Teacher, "other@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, nil)

	_, err := env.enrollment.Enroll(env.policy(t, other), course.ID)
	requireStatus(t, http.StatusForbidden, err)

	_, err = env.enrollment.Enroll(env.policy(t, testutil.CreateUser(t, env.db, model.Student, "s@test.com")), 9999)
	requireStatus(t, http.StatusNotFound, err)
}

func TestConfirmRejectsInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateUser(t, env.db, model.SuperAdmin, "admin@test.com")
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	free := testutil.Enroll(t, env.db, student, testutil.CreateCourse(t, env.db, teacher, nil), model.EnrollmentFree)
	pending := testutil.Enroll(t, env.db, student, testutil.CreateCourse(t, env.db, teacher, testutil.Price(10)), model.EnrollmentPending)

	_, err := env.enrollment.Confirm(env.policy(t, admin), free.ID)
	requireStatus(t, http.StatusBadRequest, err)

	_, err = env.enrollment.UpdateStatus(env.policy(t, admin), pending.ID, model.EnrollmentFree)
	requireStatus(t, http.StatusBadRequest, err)

	_, err = env.enrollment.Confirm(env.policy(t, teacher), pending.ID)
	requireStatus(t, http.StatusForbidden, err)

	_, err = env.enrollment.Confirm(env.policy(t, admin), pending.ID)
	require.NoError(t, err)
	_, err = env.enrollment.Confirm(env.policy(t, admin), pending.ID)
	requireStatus(t, http.StatusBadRequest, err)
}

func TestMyEnrollmentsReportsProgress(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, nil)
	first := testutil.CreateLesson(t, env.db, course, 1)
	testutil.CreateLesson(t, env.db, course, 2)
	testutil.CreateLesson(t, env.db, course, 3)
	testutil.Enroll(t, env.db, student, course, model.EnrollmentFree)

	done := true
	_, err := env.progress.Update(env.policy(t, student), first.ID, ProgressInput{Completed: &done})
	require.NoError(t, err)

	list, err := env.enrollment.MyEnrollments(env.policy(t, student))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(3), list[0].TotalLessons)
	assert.Equal(t, int64(1), list[0].CompletedLessons)
	assert.Equal(t, 33, list[0].Progress)

	students, err := env.enrollment.CourseStudents(env.policy(t, teacher), course.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 33, students[0].Progress)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		completed, total int64
		want             int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 8, 13},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.completed, tt.total), "%d/%d", tt.completed, tt.total)
	}
}

func TestWhatsAppLink(t *testing.T) {
	course := &model.Course{Title: "Go 101", Price: testutil.Price(250)}
	course.ID = 7

	assert.Empty(t, WhatsAppLink("", course))
	link := WhatsAppLink("+966-50 123", course)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/96650123?text="))
	assert.Contains(t, link, "Go+101")
}
