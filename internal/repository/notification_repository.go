package repository

import (
	"manhaj_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: tx}
}

// CreateBatch 每个接收者一行
func (r *NotificationRepository) CreateBatch(notifications []*model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.DB.CreateInBatches(notifications, 200).Error
}

// FindForUser 只返回属于该用户的通知，否则 ErrRecordNotFound
func (r *NotificationRepository) FindForUser(id, userID uint) (*model.Notification, error) {
	var notification model.Notification
	err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&notification).Error
	return &notification, err
}

func (r *NotificationRepository) ListByUser(userID uint, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	var total int64

	query := r.DB.Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("`read` = ?", false)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&notifications).Error
	return notifications, total, err
}

func (r *NotificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead 已读的通知保持原样
func (r *NotificationRepository) MarkRead(id, userID uint, at time.Time) error {
	return r.DB.Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND `read` = ?", id, userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": at}).Error
}

func (r *NotificationRepository) MarkAllRead(userID uint, at time.Time) (int64, error) {
	res := r.DB.Model(&model.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": at})
	return res.RowsAffected, res.Error
}
