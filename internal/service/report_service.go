package service

import (
	"context"
	"time"

	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
)

const statsCacheKey = "admin:stats"

type ReportService struct {
	Repo     *repository.ReportRepository
	Cache    *Cache
	CacheTTL time.Duration
}

func NewReportService(repo *repository.ReportRepository, cache *Cache) *ReportService {
	return &ReportService{Repo: repo, Cache: cache, CacheTTL: time.Minute}
}

type PlatformStats struct {
	UsersByRole         map[string]int64 `json:"usersByRole"`
	Courses             int64            `json:"courses"`
	Lessons             int64            `json:"lessons"`
	Quizzes             int64            `json:"quizzes"`
	EnrollmentsByStatus map[string]int64 `json:"enrollmentsByStatus"`
	PendingSubmissions  int64            `json:"pendingSubmissions"`
	GeneratedAt         time.Time        `json:"generatedAt"`
}

// Stats 平台总览，配置了 Redis 时缓存一分钟
func (s *ReportService) Stats(ctx context.Context) (*PlatformStats, error) {
	var cached PlatformStats
	if s.Cache.GetJSON(ctx, statsCacheKey, &cached) {
		return &cached, nil
	}

	stats := &PlatformStats{GeneratedAt: time.Now()}
	var err error
	if stats.UsersByRole, err = s.Repo.UsersByRole(); err != nil {
		return nil, err
	}
	if stats.EnrollmentsByStatus, err = s.Repo.EnrollmentsByStatus(); err != nil {
		return nil, err
	}
	if stats.Courses, err = s.Repo.Count(&model.Course{}); err != nil {
		return nil, err
	}
	if stats.Lessons, err = s.Repo.Count(&model.Lesson{}); err != nil {
		return nil, err
	}
	if stats.Quizzes, err = s.Repo.Count(&model.Quiz{}); err != nil {
		return nil, err
	}
	if stats.PendingSubmissions, err = s.Repo.CountUngradedSubmissions(); err != nil {
		return nil, err
	}

	s.Cache.SetJSON(ctx, statsCacheKey, stats, s.CacheTTL)
	return stats, nil
}

func (s *ReportService) Teachers() ([]repository.TeacherReportRow, error) {
	return s.Repo.TeacherReport()
}

func (s *ReportService) Courses() ([]repository.CourseReportRow, error) {
	return s.Repo.CourseReport()
}
