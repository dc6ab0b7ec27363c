package service

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"manhaj_backend/internal/model"
	"manhaj_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngUploads(n int) []Upload {
	files := make([]Upload, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, Upload{Name: "answer.png", Reader: bytes.NewReader(pngImage)})
	}
	return files
}

func TestCreateQuizNotifiesEveryEnrolledStudent(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, nil)
	lesson := testutil.CreateLesson(t, env.db, course, 1)

	students := make([]*model.User, 0, 3)
	for _, email := range []string{"a@test.com", "b@test.com", "c@test.com"} {
		s := testutil.CreateUser(t, env.db, model.Student, email)
		testutil.Enroll(t, env.db, s, course, model.EnrollmentFree)
		students = append(students, s)
	}
	outsider := testutil.CreateUser(t, env.db, model.Student, "outsider@test.com")

	quiz, err := env.quiz.Create(env.policy(t, teacher), lesson.ID, QuizInput{Title: "Week 1"})
	require.NoError(t, err)
	assert.True(t, quiz.IsActive)

	var total int64
	require.NoError(t, env.db.Model(&model.Notification{}).Where("type = ?", model.NotifyNewContent).Count(&total).Error)
	assert.Equal(t, int64(3), total)

	for _, s := range students {
		notes := env.notificationsFor(t, s.ID, model.NotifyNewContent)
		require.Len(t, notes, 1)
		assert.Equal(t, "/courses/"+itoa(course.ID), mustResolve(t, &notes[0], model.Student))
	}
	assert.Empty(t, env.notificationsFor(t, outsider.ID, model.NotifyNewContent))
}

func TestCreateQuizRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	other := testutil.CreateUser(t, env.db, model.Teacher, "other@test.com")
	lesson := testutil.CreateLesson(t, env.db, testutil.CreateCourse(t, env.db, teacher, nil), 1)

	_, err := env.quiz.Create(env.policy(t, other), lesson.ID, QuizInput{Title: "Week 1"})
	requireStatus(t, http.StatusForbidden, err)

	_, err = env.quiz.Create(env.policy(t, teacher), lesson.ID, QuizInput{Title: "  "})
	requireStatus(t, http.StatusBadRequest, err)
}

func TestSubmitQuizOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, nil)
	quiz := testutil.CreateQuiz(t, env.db, testutil.CreateLesson(t, env.db, course, 1))
	testutil.Enroll(t, env.db, student, course, model.EnrollmentFree)

	submission, err := env.quiz.Submit(context.Background(), env.policy(t, student), quiz.ID, pngUploads(2))
	require.NoError(t, err)
	require.Len(t, submission.Images, 2)
	require.NotNil(t, submission.Images[0].URL)
	assert.Contains(t, *submission.Images[0].URL, "https://cdn.test/submissions/")
	assert.Equal(t, 2, env.storage.count())

	_, err = env.quiz.Submit(context.Background(), env.policy(t, student), quiz.ID, pngUploads(1))
	requireStatus(t, http.StatusConflict, err)

	var count int64
	require.NoError(t, env.db.Model(&model.QuizSubmission{}).Where("quiz_id = ?", quiz.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 2, env.storage.count(), "rejected submission stores nothing")

	notes := env.notificationsFor(t, teacher.ID, model.NotifyQuizSubmission)
	require.Len(t, notes, 1)
	assert.Equal(t, "/dashboard/teacher?quiz="+itoa(quiz.ID), mustResolve(t, &notes[0], model.Teacher))
}

func TestSubmitQuizValidation(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	pending := testutil.CreateUser(t, env.db, model.Student, "pending@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, testutil.Price(20))
	quiz := testutil.CreateQuiz(t, env.db, testutil.CreateLesson(t, env.db, course, 1))
	testutil.Enroll(t, env.db, student, course, model.EnrollmentConfirmed)
	testutil.Enroll(t, env.db, pending, course, model.EnrollmentPending)

	_, err := env.quiz.Submit(context.Background(), env.policy(t, student), quiz.ID, pngUploads(6))
	requireStatus(t, http.StatusBadRequest, err)

	_, err = env.quiz.Submit(context.Background(), env.policy(t, pending), quiz.ID, pngUploads(1))
	requireStatus(t, http.StatusForbidden, err)

	_, err = env.quiz.Submit(context.Background(), env.policy(t, student), quiz.ID,
		[]Upload{{Name: "notes.txt", Reader: bytes.NewReader([]byte("plain text answer"))}})
	requireStatus(t, http.StatusBadRequest, err)

	_, err = env.quiz.SetActive(env.policy(t, teacher), quiz.ID, false)
	require.NoError(t, err)
	_, err = env.quiz.Submit(context.Background(), env.policy(t, student), quiz.ID, nil)
	requireStatus(t, http.StatusBadRequest, err)

	assert.Equal(t, 0, env.storage.count())
}

func TestGradeSubmission(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	other := testutil.CreateUser(t, env.db, model.Teacher, "other@test.com")
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, nil)
	quiz := testutil.CreateQuiz(t, env.db, testutil.CreateLesson(t, env.db, course, 1))
	testutil.Enroll(t, env.db, student, course, model.EnrollmentFree)

	submission, err := env.quiz.Submit(context.Background(), env.policy(t, student), quiz.ID, nil)
	require.NoError(t, err)

	ungraded, err := env.quiz.Ungraded(env.policy(t, teacher))
	require.NoError(t, err)
	require.Len(t, ungraded, 1)
	foreign, err := env.quiz.Ungraded(env.policy(t, other))
	require.NoError(t, err)
	assert.Empty(t, foreign)
	_, err = env.quiz.Ungraded(env.policy(t, student))
	requireStatus(t, http.StatusForbidden, err)

	_, err = env.quiz.Grade(env.policy(t, teacher), submission.ID, GradeInput{Score: 101})
	requireStatus(t, http.StatusBadRequest, err)
	_, err = env.quiz.Grade(env.policy(t, other), submission.ID, GradeInput{Score: 80})
	requireStatus(t, http.StatusForbidden, err)

	feedback := "Good work"
	graded, err := env.quiz.Grade(env.policy(t, teacher), submission.ID, GradeInput{Score: 85, Feedback: &feedback})
	require.NoError(t, err)
	require.NotNil(t, graded.Score)
	assert.Equal(t, 85.0, *graded.Score)

	mine, err := env.quiz.MySubmission(env.policy(t, student), quiz.ID)
	require.NoError(t, err)
	require.NotNil(t, mine.Feedback)
	assert.Equal(t, feedback, *mine.Feedback)
	assert.NotNil(t, mine.GradedAt)

	notes := env.notificationsFor(t, student.ID, model.NotifyGradeReceived)
	require.Len(t, notes, 1)
	assert.Equal(t, "/dashboard/student", mustResolve(t, &notes[0], model.Student))

	ungraded, err = env.quiz.Ungraded(env.policy(t, teacher))
	require.NoError(t, err)
	assert.Empty(t, ungraded)
}
