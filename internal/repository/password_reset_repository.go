package repository

import (
	"manhaj_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type PasswordResetRepository struct {
	DB *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) *PasswordResetRepository {
	return &PasswordResetRepository{DB: db}
}

func (r *PasswordResetRepository) WithTx(tx *gorm.DB) *PasswordResetRepository {
	return &PasswordResetRepository{DB: tx}
}

func (r *PasswordResetRepository) Create(token *model.PasswordResetToken) error {
	return r.DB.Create(token).Error
}

// Redeem 原子地标记令牌已使用；令牌不存在、已用或已过期时返回 ErrRecordNotFound
func (r *PasswordResetRepository) Redeem(tokenHash string, now time.Time) (*model.PasswordResetToken, error) {
	var token model.PasswordResetToken
	if err := r.DB.Where("token_hash = ?", tokenHash).First(&token).Error; err != nil {
		return nil, err
	}

	res := r.DB.Model(&model.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ?", token.ID, now).
		Update("used_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	token.UsedAt = &now
	return &token, nil
}

// DeleteExpired 清理过期令牌
func (r *PasswordResetRepository) DeleteExpired(before time.Time) (int64, error) {
	res := r.DB.Where("expires_at < ?", before).Delete(&model.PasswordResetToken{})
	return res.RowsAffected, res.Error
}
