package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"manhaj_backend/internal/model"
	"manhaj_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func uintPtr(v uint) *uint { return &v }

func TestResolveLink(t *testing.T) {
	tests := []struct {
		name    string
		n       model.Notification
		role    model.UserRole
		want    string
		wantErr bool
	}{
		{
			name: "question",
			n:    model.Notification{Type: model.NotifyNewQuestion, Metadata: datatypes.JSON(`{"courseId":3,"lessonId":9,"commentId":1}`)},
			role: model.Teacher,
			want: "/courses/3/lessons/9",
		},
		{
			name:    "question with null metadata",
			n:       model.Notification{Type: model.NotifyNewQuestion, Metadata: datatypes.JSON("null")},
			role:    model.Teacher,
			want:    "/",
			wantErr: true,
		},
		{
			name:    "reply with empty string metadata",
			n:       model.Notification{Type: model.NotifyReply, Metadata: datatypes.JSON(`""`)},
			role:    model.Student,
			want:    "/",
			wantErr: true,
		},
		{
			name:    "reply with missing metadata",
			n:       model.Notification{Type: model.NotifyReply},
			role:    model.Student,
			want:    "/",
			wantErr: true,
		},
		{
			name:    "reply with malformed metadata",
			n:       model.Notification{Type: model.NotifyReply, Metadata: datatypes.JSON(`{"courseId":`)},
			role:    model.Student,
			want:    "/",
			wantErr: true,
		},
		{
			name: "reply missing lesson",
			n:    model.Notification{Type: model.NotifyReply, Metadata: datatypes.JSON(`{"courseId":3}`)},
			role: model.Student,
			want: "/",
		},
		{
			name: "quiz submission",
			n:    model.Notification{Type: model.NotifyQuizSubmission, Metadata: datatypes.JSON(`{"quizId":5}`)},
			role: model.Teacher,
			want: "/dashboard/teacher?quiz=5",
		},
		{
			name:    "quiz submission with malformed metadata",
			n:       model.Notification{Type: model.NotifyQuizSubmission, Metadata: datatypes.JSON(`[1,2`)},
			role:    model.Teacher,
			want:    "/dashboard/teacher",
			wantErr: true,
		},
		{
			name: "grade",
			n:    model.Notification{Type: model.NotifyGradeReceived},
			role: model.Student,
			want: "/dashboard/student",
		},
		{
			name: "new content",
			n:    model.Notification{Type: model.NotifyNewContent, RelatedID: uintPtr(7)},
			role: model.Student,
			want: "/courses/7",
		},
		{
			name: "enrollment confirmed without course",
			n:    model.Notification{Type: model.NotifyEnrollmentConfirmed},
			role: model.Student,
			want: "/",
		},
		{
			name: "enrollment request for superadmin",
			n:    model.Notification{Type: model.NotifyEnrollmentRequest},
			role: model.SuperAdmin,
			want: "/dashboard/admin",
		},
		{
			name: "new enrollment for teacher",
			n:    model.Notification{Type: model.NotifyNewEnrollment},
			role: model.Teacher,
			want: "/dashboard/teacher",
		},
		{
			name: "unknown type",
			n:    model.Notification{Type: "legacy_type"},
			role: model.Student,
			want: "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveLink(&tt.n, tt.role)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotifyDeduplicatesRecipients(t *testing.T) {
	env := newTestEnv(t)
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")

	err := env.notification.Notify(env.db, []uint{student.ID, 0, student.ID}, "Hello", "World",
		model.NewContentPayload{CourseID: 1})
	require.NoError(t, err)
	assert.Len(t, env.notificationsFor(t, student.ID, model.NotifyNewContent), 1)

	require.NoError(t, env.notification.Notify(env.db, nil, "Nobody", "", model.GradePayload{}))
}

func TestMarkReadIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	require.NoError(t, env.notification.Notify(env.db, []uint{student.ID}, "Graded", "85/100",
		model.GradePayload{QuizID: 1, SubmissionID: 2, Score: 85}))

	count, err := env.notification.UnreadCount(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	n := env.notificationsFor(t, student.ID, model.NotifyGradeReceived)[0]
	require.NoError(t, env.notification.MarkRead(ctx, student.ID, n.ID))
	first := env.notificationsFor(t, student.ID, model.NotifyGradeReceived)[0]
	require.True(t, first.Read)
	require.NotNil(t, first.ReadAt)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, env.notification.MarkRead(ctx, student.ID, n.ID))
	second := env.notificationsFor(t, student.ID, model.NotifyGradeReceived)[0]
	assert.True(t, second.Read)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt), "readAt is set only once")

	count, err = env.notification.UnreadCount(ctx, student.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOpenNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, model.Student, "alice@test.com")
	bob := testutil.CreateUser(t, env.db, model.Student, "bob@test.com")
	require.NoError(t, env.notification.Notify(env.db, []uint{alice.ID}, "New lesson", "",
		model.NewContentPayload{CourseID: 4}))
	n := env.notificationsFor(t, alice.ID, model.NotifyNewContent)[0]

	_, err := env.notification.Open(ctx, bob.ID, bob.Role, n.ID)
	requireStatus(t, http.StatusNotFound, err)
	err = env.notification.MarkRead(ctx, bob.ID, n.ID)
	requireStatus(t, http.StatusNotFound, err)

	path, err := env.notification.Open(ctx, alice.ID, alice.Role, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "/courses/4", path)
	assert.True(t, env.notificationsFor(t, alice.ID, model.NotifyNewContent)[0].Read)
}

func TestListNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, env.db, model.Student, "student@test.com")
	for i := uint(1); i <= 3; i++ {
		require.NoError(t, env.notification.Notify(env.db, []uint{student.ID}, "Course update", "",
			model.NewContentPayload{CourseID: i}))
	}
	// 旧数据：metadata 损坏的通知仍然可以列出
	require.NoError(t, env.db.Create(&model.Notification{
		UserID: student.ID, Type: model.NotifyReply, Title: "Legacy", Metadata: datatypes.JSON(`{broken`),
	}).Error)

	items, total, err := env.notification.List(student.ID, student.Role, false, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, items, 4)
	assert.Equal(t, "Legacy", items[0].Title)
	assert.Equal(t, "/", items[0].Path)
	assert.Equal(t, "/courses/3", items[1].Path)

	updated, err := env.notification.MarkAllRead(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), updated)

	items, total, err = env.notification.List(student.ID, student.Role, true, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestNotifyDefersCacheInvalidationUntilCommit(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, model.Student, "alice@test.com")
	bob := testutil.CreateUser(t, env.db, model.Student, "bob@test.com")
	rollback := errors.New("rollback")

	err := env.notification.InTx(env.db, func(tx *gorm.DB) error {
		require.NoError(t, env.notification.Notify(tx, []uint{alice.ID, bob.ID, alice.ID}, "New lesson", "",
			model.NewContentPayload{CourseID: 1}))

		v, ok := tx.Get(pendingInvalidationKey)
		require.True(t, ok)
		pending := v.(*pendingInvalidation)
		assert.Equal(t, []string{unreadCacheKey(alice.ID), unreadCacheKey(bob.ID)}, pending.keys)
		return rollback
	})
	assert.ErrorIs(t, err, rollback)
	assert.Empty(t, env.notificationsFor(t, alice.ID, model.NotifyNewContent))

	// 提交后通知可见
	require.NoError(t, env.notification.InTx(env.db, func(tx *gorm.DB) error {
		return env.notification.Notify(tx, []uint{alice.ID}, "New lesson", "", model.NewContentPayload{CourseID: 1})
	}))
	count, err := env.notification.UnreadCount(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
