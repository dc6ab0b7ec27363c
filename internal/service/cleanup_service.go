package service

import (
	"context"
	"time"

	"manhaj_backend/internal/repository"
	"manhaj_backend/pkg/logger"
	"manhaj_backend/pkg/monitoring"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepBatchSize = 200

// ObjectDeleter 删除存储对象
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// CleanupService 定期删除超过保留期的测验提交图片
type CleanupService struct {
	SubmissionRepo *repository.SubmissionRepository
	Storage        ObjectDeleter
	Retention      time.Duration
}

func NewCleanupService(submissionRepo *repository.SubmissionRepository, storage ObjectDeleter, retentionDays int) *CleanupService {
	return &CleanupService{
		SubmissionRepo: submissionRepo,
		Storage:        storage,
		Retention:      time.Duration(retentionDays) * 24 * time.Hour,
	}
}

type SweepResult struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// SweepSubmissionImages 删除存储对象并置空引用；单张失败只记录日志，继续处理其余图片
func (s *CleanupService) SweepSubmissionImages(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult
	cutoff := now.Add(-s.Retention)

	var cursor uint
	for {
		images, err := s.SubmissionRepo.ExpiredImages(cutoff, cursor, sweepBatchSize)
		if err != nil {
			return result, err
		}
		if len(images) == 0 {
			return result, nil
		}

		for _, img := range images {
			cursor = img.ID
			if err := ctx.Err(); err != nil {
				return result, err
			}

			if err := s.Storage.Delete(ctx, *img.StorageKey); err != nil {
				result.Failed++
				monitoring.SubmissionImagesSwept.WithLabelValues("failed").Inc()
				logger.Log.Warn("delete submission image failed",
					zap.Uint("imageId", img.ID),
					zap.String("key", *img.StorageKey),
					zap.Error(err),
				)
				continue
			}
			if err := s.SubmissionRepo.ClearImage(img.ID); err != nil {
				result.Failed++
				monitoring.SubmissionImagesSwept.WithLabelValues("failed").Inc()
				logger.Log.Warn("clear submission image reference failed", zap.Uint("imageId", img.ID), zap.Error(err))
				continue
			}
			result.Deleted++
			monitoring.SubmissionImagesSwept.WithLabelValues("deleted").Inc()
		}

		if len(images) < sweepBatchSize {
			return result, nil
		}
	}
}

// Schedule 注册定时清理任务，返回的 cron 需要调用方 Start/Stop
func (s *CleanupService) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		result, err := s.SweepSubmissionImages(context.Background(), start)
		if err != nil {
			logger.Log.Error("submission image sweep aborted", zap.Error(err))
			return
		}
		logger.Log.Info("submission image sweep finished",
			zap.Int("deleted", result.Deleted),
			zap.Int("failed", result.Failed),
			zap.Duration("took", time.Since(start)),
		)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
