package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func TestInitialEnrollmentStatus(t *testing.T) {
	tests := []struct {
		name   string
		course Course
		want   EnrollmentStatus
	}{
		{"free flag", Course{IsFree: true}, EnrollmentFree},
		{"free flag ignores price", Course{IsFree: true, Price: price(50000)}, EnrollmentFree},
		{"nil price", Course{IsFree: false}, EnrollmentFree},
		{"zero price", Course{IsFree: false, Price: price(0)}, EnrollmentFree},
		{"paid", Course{IsFree: false, Price: price(50000)}, EnrollmentPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InitialEnrollmentStatus(&tt.course))
		})
	}
}

func TestEffectivePriceIgnoredWhenFree(t *testing.T) {
	c := Course{IsFree: true, Price: price(99)}
	assert.Zero(t, c.EffectivePrice())

	c.IsFree = false
	assert.Equal(t, 99.0, c.EffectivePrice())
}

func TestEnrollmentStatusGrantsAccess(t *testing.T) {
	assert.True(t, EnrollmentFree.GrantsAccess())
	assert.True(t, EnrollmentConfirmed.GrantsAccess())
	assert.False(t, EnrollmentPending.GrantsAccess())
}

func TestQuizAcceptsSubmissions(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Quiz{IsActive: true}).AcceptsSubmissions(now))
	assert.True(t, (&Quiz{IsActive: true, Deadline: &future}).AcceptsSubmissions(now))
	assert.False(t, (&Quiz{IsActive: true, Deadline: &past}).AcceptsSubmissions(now))
	assert.False(t, (&Quiz{IsActive: false}).AcceptsSubmissions(now))
}

func TestNewNotificationEncodesPayload(t *testing.T) {
	n, err := NewNotification(7, "New question", "", QuestionPayload{CourseID: 3, LessonID: 9, CommentID: 11})
	require.NoError(t, err)

	assert.Equal(t, uint(7), n.UserID)
	assert.Equal(t, NotifyNewQuestion, n.Type)
	require.NotNil(t, n.RelatedID)
	assert.Equal(t, uint(11), *n.RelatedID)
	assert.JSONEq(t, `{"courseId":3,"lessonId":9,"commentId":11}`, string(n.Metadata))
}

func TestDecodePayloadDispatchesOnType(t *testing.T) {
	p, err := DecodePayload(NotifyQuizSubmission, []byte(`{"quizId":42}`))
	require.NoError(t, err)
	sub, ok := p.(QuizSubmissionPayload)
	require.True(t, ok)
	assert.Equal(t, uint(42), sub.QuizID)

	p, err = DecodePayload(NotifyReply, []byte(`{"courseId":1,"lessonId":2,"extra":"ignored"}`))
	require.NoError(t, err)
	assert.Equal(t, ReplyPayload{CourseID: 1, LessonID: 2}, p)
}

func TestDecodePayloadRejectsBadMetadata(t *testing.T) {
	for _, raw := range []string{"", "null", `""`, "{not json", `"{\"courseId\":1}"`, `[1,2]`} {
		_, err := DecodePayload(NotifyNewQuestion, []byte(raw))
		assert.Error(t, err, "metadata %q", raw)
	}

	_, err := DecodePayload(NotificationType("mystery"), []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownNotificationType)
}
