package service

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"manhaj_backend/internal/model"
	"manhaj_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resetTokenPattern = regexp.MustCompile(`reset-password\?token=([0-9a-f]{64})`)

func registerStudent(t *testing.T, env *testEnv, email string) *model.User {
	t.Helper()
	result, err := env.auth.Register(RegisterInput{Email: email, Password: "password123", FullName: "Student"})
	require.NoError(t, err)
	return result.User
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.auth.Register(RegisterInput{Email: " Sara@Example.com ", Password: "password123", FullName: "Sara"})
	require.NoError(t, err)
	assert.Equal(t, "sara@example.com", result.User.Email)
	assert.Equal(t, model.Student, result.User.Role)
	assert.NotEmpty(t, result.Token)

	claims, err := util.ParseJWT(result.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)

	_, err = env.auth.Register(RegisterInput{Email: "sara@example.com", Password: "password123", FullName: "Again"})
	requireStatus(t, http.StatusConflict, err)

	logged, err := env.auth.Login("SARA@example.com", "password123")
	require.NoError(t, err)
	assert.NotNil(t, logged.User.LastLogin)

	_, wrongPassword := env.auth.Login("sara@example.com", "nope")
	_, unknownEmail := env.auth.Login("nobody@example.com", "password123")
	requireStatus(t, http.StatusUnauthorized, wrongPassword)
	requireStatus(t, http.StatusUnauthorized, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	user := registerStudent(t, env, "reset@test.com")

	require.NoError(t, env.auth.RequestPasswordReset(context.Background(), "reset@test.com"))
	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, user.Email, env.mailer.sent[0].ToEmail)

	match := resetTokenPattern.FindStringSubmatch(env.mailer.sent[0].TextContent)
	require.Len(t, match, 2, env.mailer.sent[0].TextContent)
	token := match[1]
	assert.Contains(t, env.mailer.sent[0].TextContent, "https://manhaj.test/reset-password?token=")

	var stored model.PasswordResetToken
	require.NoError(t, env.db.Where("user_id = ?", user.ID).First(&stored).Error)
	assert.NotEqual(t, token, stored.TokenHash, "only the hash is stored")

	require.NoError(t, env.auth.ResetPassword(token, "newpassword1"))
	_, err := env.auth.Login("reset@test.com", "newpassword1")
	require.NoError(t, err)

	err = env.auth.ResetPassword(token, "another-one")
	requireStatus(t, http.StatusBadRequest, err)
}

func TestPasswordResetTokenExpires(t *testing.T) {
	env := newTestEnv(t)
	user := registerStudent(t, env, "late@test.com")

	token, err := util.GenerateToken()
	require.NoError(t, err)
	require.NoError(t, env.db.Create(&model.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: util.HashToken(token),
		ExpiresAt: time.Now().Add(-time.Minute),
	}).Error)

	err = env.auth.ResetPassword(token, "newpassword1")
	requireStatus(t, http.StatusBadRequest, err)

	err = env.auth.ResetPassword("", "newpassword1")
	requireStatus(t, http.StatusBadRequest, err)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.auth.RequestPasswordReset(context.Background(), "ghost@test.com"))
	assert.Empty(t, env.mailer.sent)
}

func TestCreateTeacherAndChangePassword(t *testing.T) {
	env := newTestEnv(t)

	teacher, password, err := env.auth.CreateTeacher("Teacher@Test.com", "Ustadh Ali", nil)
	require.NoError(t, err)
	assert.Equal(t, model.Teacher, teacher.Role)
	assert.Len(t, password, util.TeacherPasswordLength)

	_, err = env.auth.Login("teacher@test.com", password)
	require.NoError(t, err)

	_, _, err = env.auth.CreateTeacher("teacher@test.com", "Duplicate", nil)
	requireStatus(t, http.StatusConflict, err)

	err = env.auth.ChangePassword(teacher.ID, "wrong", "newpassword1")
	requireStatus(t, http.StatusBadRequest, err)
	require.NoError(t, env.auth.ChangePassword(teacher.ID, password, "newpassword1"))
	_, err = env.auth.Login("teacher@test.com", "newpassword1")
	require.NoError(t, err)
}
