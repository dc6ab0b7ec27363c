package service

import (
	"context"
	"fmt"
	"time"

	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"
	"manhaj_backend/pkg/logger"
	"manhaj_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const unreadCacheTTL = 30 * time.Second

type NotificationService struct {
	Repo  *repository.NotificationRepository
	Cache *Cache
}

func NewNotificationService(repo *repository.NotificationRepository, cache *Cache) *NotificationService {
	return &NotificationService{Repo: repo, Cache: cache}
}

func unreadCacheKey(userID uint) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}

const pendingInvalidationKey = "manhaj:notification_cache_keys"

// pendingInvalidation 事务内写入通知的接收者缓存键，提交后才失效
type pendingInvalidation struct {
	keys []string
}

// InTx 在事务中执行 fn；fn 内 Notify 产生的未读数缓存失效推迟到提交之后，
// 避免并发读取在提交前把旧的计数重新写回缓存
func (s *NotificationService) InTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	pending := &pendingInvalidation{}
	err := db.Transaction(func(tx *gorm.DB) error {
		return fn(tx.Set(pendingInvalidationKey, pending))
	})
	if err != nil {
		return err
	}
	s.Cache.Delete(context.Background(), pending.keys...)
	return nil
}

// Notify 在调用方的事务中为每个接收者写入一条通知，重复的接收者只写一次。
// 事务应通过 InTx 开启，否则缓存会立即失效
func (s *NotificationService) Notify(tx *gorm.DB, recipients []uint, title, message string, payload model.NotificationPayload) error {
	seen := make(map[uint]struct{}, len(recipients))
	batch := make([]*model.Notification, 0, len(recipients))
	keys := make([]string, 0, len(recipients))
	for _, id := range recipients {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		n, err := model.NewNotification(id, title, message, payload)
		if err != nil {
			return err
		}
		batch = append(batch, n)
		keys = append(keys, unreadCacheKey(id))
	}
	if len(batch) == 0 {
		return nil
	}

	if err := s.Repo.WithTx(tx).CreateBatch(batch); err != nil {
		return err
	}
	monitoring.NotificationsCreated.WithLabelValues(string(payload.NotificationType())).Add(float64(len(batch)))
	if v, ok := tx.Get(pendingInvalidationKey); ok {
		if pending, ok := v.(*pendingInvalidation); ok {
			pending.keys = append(pending.keys, keys...)
			return nil
		}
	}
	s.Cache.Delete(context.Background(), keys...)
	return nil
}

// NotificationView 列表项，附带解析好的跳转路径
type NotificationView struct {
	model.Notification
	Path string `json:"path"`
}

func (s *NotificationService) List(userID uint, role model.UserRole, unreadOnly bool, page, limit int) ([]NotificationView, int64, error) {
	items, total, err := s.Repo.ListByUser(userID, unreadOnly, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}

	views := make([]NotificationView, 0, len(items))
	for i := range items {
		views = append(views, NotificationView{
			Notification: items[i],
			Path:         s.resolve(&items[i], role),
		})
	}
	return views, total, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	key := unreadCacheKey(userID)
	if s.Cache.GetJSON(ctx, key, &count) {
		return count, nil
	}

	count, err := s.Repo.CountUnread(userID)
	if err != nil {
		return 0, err
	}
	s.Cache.SetJSON(ctx, key, count, unreadCacheTTL)
	return count, nil
}

// Open 标记已读并返回跳转路径；非接收者得到 NotFound
func (s *NotificationService) Open(ctx context.Context, userID uint, role model.UserRole, id uint) (string, error) {
	n, err := s.Repo.FindForUser(id, userID)
	if err != nil {
		return "", util.Normalize(err)
	}
	if !n.Read {
		if err := s.Repo.MarkRead(id, userID, time.Now()); err != nil {
			return "", err
		}
		s.Cache.Delete(ctx, unreadCacheKey(userID))
	}
	return s.resolve(n, role), nil
}

// MarkRead 幂等
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	n, err := s.Repo.FindForUser(id, userID)
	if err != nil {
		return util.Normalize(err)
	}
	if n.Read {
		return nil
	}
	if err := s.Repo.MarkRead(id, userID, time.Now()); err != nil {
		return err
	}
	s.Cache.Delete(ctx, unreadCacheKey(userID))
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	updated, err := s.Repo.MarkAllRead(userID, time.Now())
	if err != nil {
		return 0, err
	}
	s.Cache.Delete(ctx, unreadCacheKey(userID))
	return updated, nil
}

func (s *NotificationService) resolve(n *model.Notification, role model.UserRole) string {
	path, err := ResolveLink(n, role)
	if err != nil {
		logger.Log.Warn("notification metadata could not be decoded",
			zap.Uint("notificationId", n.ID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
	}
	return path
}

// ResolveLink 计算通知的跳转路径。总是返回可用的路径；
// metadata 缺失或损坏时返回该类型的回退路径，同时返回解析错误供调用方记录
func ResolveLink(n *model.Notification, viewerRole model.UserRole) (string, error) {
	switch n.Type {
	case model.NotifyNewQuestion, model.NotifyReply:
		payload, err := model.DecodePayload(n.Type, n.Metadata)
		if err != nil {
			return "/", err
		}
		var courseID, lessonID uint
		switch p := payload.(type) {
		case model.QuestionPayload:
			courseID, lessonID = p.CourseID, p.LessonID
		case model.ReplyPayload:
			courseID, lessonID = p.CourseID, p.LessonID
		}
		if courseID == 0 || lessonID == 0 {
			return "/", nil
		}
		return fmt.Sprintf("/courses/%d/lessons/%d", courseID, lessonID), nil

	case model.NotifyQuizSubmission:
		payload, err := model.DecodePayload(n.Type, n.Metadata)
		if err != nil {
			return "/dashboard/teacher", err
		}
		if p, ok := payload.(model.QuizSubmissionPayload); ok && p.QuizID != 0 {
			return fmt.Sprintf("/dashboard/teacher?quiz=%d", p.QuizID), nil
		}
		return "/dashboard/teacher", nil

	case model.NotifyGradeReceived:
		return "/dashboard/student", nil

	case model.NotifyNewContent, model.NotifyEnrollmentConfirmed:
		if n.RelatedID == nil || *n.RelatedID == 0 {
			return "/", nil
		}
		return fmt.Sprintf("/courses/%d", *n.RelatedID), nil

	case model.NotifyNewEnrollment, model.NotifyEnrollmentRequest:
		if viewerRole == model.SuperAdmin {
			return "/dashboard/admin", nil
		}
		return "/dashboard/teacher", nil
	}
	return "/", nil
}
