package service

import (
	"net/http"
	"testing"

	"manhaj_backend/internal/config"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviews(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	alice := testutil.CreateUser(t, env.db, model.Student, "alice@test.com")
	bob := testutil.CreateUser(t, env.db, model.Student, "bob@test.com")
	carol := testutil.CreateUser(t, env.db, model.Student, "carol@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, testutil.Price(100))
	testutil.Enroll(t, env.db, alice, course, model.EnrollmentConfirmed)
	testutil.Enroll(t, env.db, bob, course, model.EnrollmentConfirmed)
	testutil.Enroll(t, env.db, carol, course, model.EnrollmentPending)

	_, err := env.review.CreateReview(env.policy(t, alice), course.ID, 6, "")
	requireStatus(t, http.StatusBadRequest, err)
	_, err = env.review.CreateReview(env.policy(t, carol), course.ID, 5, "pending")
	requireStatus(t, http.StatusForbidden, err)
	_, err = env.review.CreateReview(env.policy(t, teacher), course.ID, 5, "self")
	requireStatus(t, http.StatusForbidden, err)

	_, err = env.review.CreateReview(env.policy(t, alice), course.ID, 5, "  Excellent  ")
	require.NoError(t, err)
	_, err = env.review.CreateReview(env.policy(t, bob), course.ID, 4, "")
	require.NoError(t, err)

	list, err := env.review.ListReviews(course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.InDelta(t, 4.5, list.AverageRating, 0.001)

	_, err = env.review.ListReviews(999)
	requireStatus(t, http.StatusNotFound, err)
}

func TestAnnouncementNotifiesEnrolledStudents(t *testing.T) {
	env := newTestEnv(t)
	teacher := testutil.CreateUser(t, env.db, model.Teacher, "teacher@test.com")
	other := testutil.CreateUser(t, env.db, model.Teacher, "other@test.com")
	admin := testutil.CreateUser(t, env.db, model.SuperAdmin, "admin@test.com")
	confirmed := testutil.CreateUser(t, env.db, model.Student, "confirmed@test.com")
	pending := testutil.CreateUser(t, env.db, model.Student, "pending@test.com")
	course := testutil.CreateCourse(t, env.db, teacher, testutil.Price(100))
	testutil.Enroll(t, env.db, confirmed, course, model.EnrollmentConfirmed)
	testutil.Enroll(t, env.db, pending, course, model.EnrollmentPending)

	_, err := env.review.CreateAnnouncement(env.policy(t, other), course.ID, "Hi", "Body")
	requireStatus(t, http.StatusForbidden, err)
	_, err = env.review.CreateAnnouncement(env.policy(t, admin), course.ID, "Hi", "Body")
	requireStatus(t, http.StatusForbidden, err)
	_, err = env.review.CreateAnnouncement(env.policy(t, teacher), course.ID, " ", "Body")
	requireStatus(t, http.StatusBadRequest, err)

	announcement, err := env.review.CreateAnnouncement(env.policy(t, teacher), course.ID, "Live session", "Friday 8pm")
	require.NoError(t, err)

	got := env.notificationsFor(t, confirmed.ID, model.NotifyNewContent)
	require.Len(t, got, 1)
	assert.Equal(t, "Live session", got[0].Title)
	assert.Equal(t, "/courses/"+itoa(course.ID), mustResolve(t, &got[0], model.Student))
	assert.Empty(t, env.notificationsFor(t, pending.ID, model.NotifyNewContent))

	list, err := env.review.ListAnnouncements(env.policy(t, confirmed), course.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, announcement.ID, list[0].ID)

	_, err = env.review.ListAnnouncements(env.policy(t, pending), course.ID)
	requireStatus(t, http.StatusForbidden, err)
}

func TestSettingsOverrideDefaults(t *testing.T) {
	env := newTestEnv(t)

	all, err := env.settings.All()
	require.NoError(t, err)
	assert.Equal(t, "+966 50 123 4567", all[model.SettingWhatsAppNumber])
	assert.Equal(t, "Manhaj", all[model.SettingSiteNameEn])

	updated, err := env.settings.Update(map[string]string{model.SettingWhatsAppNumber: " 971500000000 "})
	require.NoError(t, err)
	assert.Equal(t, "971500000000", updated[model.SettingWhatsAppNumber])

	_, err = env.settings.Update(map[string]string{"theme": "dark"})
	requireStatus(t, http.StatusBadRequest, err)
	_, err = env.settings.Update(nil)
	requireStatus(t, http.StatusBadRequest, err)

	// 热加载只影响数据库中没有覆盖的项
	env.settings.SetDefaults(config.PlatformConfig{WhatsAppNumber: "000", SiteNameEn: "Manhaj 2"})
	all, err = env.settings.All()
	require.NoError(t, err)
	assert.Equal(t, "971500000000", all[model.SettingWhatsAppNumber])
	assert.Equal(t, "Manhaj 2", all[model.SettingSiteNameEn])

	// 清空数据库中的值后回退到默认值
	_, err = env.settings.Update(map[string]string{model.SettingWhatsAppNumber: ""})
	require.NoError(t, err)
	number, err := env.settings.Get(model.SettingWhatsAppNumber)
	require.NoError(t, err)
	assert.Equal(t, "000", number)
}
