package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/config"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/testutil"
	"manhaj_backend/internal/util"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// memStorage 内存存储，failKeys 中的对象删除时返回错误
type memStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failKeys map[string]bool
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, failKeys: map[string]bool{}}
}

func (m *memStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failKeys[key] {
		return errors.New("storage unavailable")
	}
	delete(m.objects, key)
	return nil
}

func (m *memStorage) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type captureMailer struct {
	sent []EmailMessage
}

func (m *captureMailer) Send(ctx context.Context, msg EmailMessage) error {
	m.sent = append(m.sent, msg)
	return nil
}

type testEnv struct {
	db      *gorm.DB
	storage *memStorage
	mailer  *captureMailer
	loader  *access.Loader

	repos struct {
		enrollment   *repository.EnrollmentRepository
		notification *repository.NotificationRepository
		submission   *repository.SubmissionRepository
	}

	auth         *AuthService
	settings     *SettingService
	notification *NotificationService
	course       *CourseService
	lesson       *LessonService
	progress     *ProgressService
	enrollment   *EnrollmentService
	quiz         *QuizService
	comment      *CommentService
	review       *ReviewService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	env := &testEnv{
		db:      db,
		storage: newMemStorage(),
		mailer:  &captureMailer{},
		loader:  access.NewLoader(courseRepo, enrollmentRepo),
	}
	env.repos.enrollment = enrollmentRepo
	env.repos.notification = notificationRepo
	env.repos.submission = submissionRepo

	cfg := &config.Config{
		JWT:  config.JWTConfig{Secret: "test-secret"},
		Mail: config.MailConfig{FrontendURL: "https://manhaj.test/"},
	}
	storage := NewStorageService(env.storage, 5<<20)

	env.auth = NewAuthService(db, userRepo, repository.NewPasswordResetRepository(db), env.mailer, cfg)
	env.auth.HashCost = bcrypt.MinCost
	env.settings = NewSettingService(repository.NewSettingRepository(db), config.PlatformConfig{
		WhatsAppNumber: "+966 50 123 4567",
		SiteNameEn:     "Manhaj",
	})
	env.notification = NewNotificationService(notificationRepo, NewCache(nil))
	env.course = NewCourseService(db, courseRepo, repository.NewCategoryRepository(db), storage)
	env.lesson = NewLessonService(db, courseRepo, lessonRepo)
	env.progress = NewProgressService(db, courseRepo, lessonRepo, progressRepo)
	env.enrollment = NewEnrollmentService(db, courseRepo, enrollmentRepo, progressRepo, userRepo, env.settings, env.notification)
	env.quiz = NewQuizService(db, lessonRepo, repository.NewQuizRepository(db), submissionRepo, enrollmentRepo, storage, env.notification)
	env.comment = NewCommentService(db, lessonRepo, repository.NewCommentRepository(db), env.notification)
	env.review = NewReviewService(db, courseRepo, repository.NewReviewRepository(db),
		repository.NewAnnouncementRepository(db), enrollmentRepo, env.notification)
	return env
}

// policy 与请求中间件一样从数据库重新计算
func (e *testEnv) policy(t *testing.T, u *model.User) *access.Policy {
	t.Helper()
	p, err := e.loader.Load(u.ID, u.Role)
	require.NoError(t, err)
	return p
}

func (e *testEnv) notificationsFor(t *testing.T, userID uint, typ model.NotificationType) []model.Notification {
	t.Helper()
	var list []model.Notification
	require.NoError(t, e.db.Where("user_id = ? AND type = ?", userID, typ).Order("id").Find(&list).Error)
	return list
}

func requireStatus(t *testing.T, want int, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, util.StatusFor(err), "unexpected error: %v", err)
}

func mustResolve(t *testing.T, n *model.Notification, role model.UserRole) string {
	t.Helper()
	path, err := ResolveLink(n, role)
	require.NoError(t, err)
	return path
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
