package service

import (
	"strings"
	"sync"

	"manhaj_backend/internal/config"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"
)

// SettingService 平台设置。数据库中的非空值优先，否则使用配置文件中的默认值
type SettingService struct {
	Repo *repository.SettingRepository

	mu       sync.RWMutex
	defaults config.PlatformConfig
}

func NewSettingService(repo *repository.SettingRepository, defaults config.PlatformConfig) *SettingService {
	return &SettingService{Repo: repo, defaults: defaults}
}

// SetDefaults 配置热加载时调用
func (s *SettingService) SetDefaults(p config.PlatformConfig) {
	s.mu.Lock()
	s.defaults = p
	s.mu.Unlock()
}

func (s *SettingService) defaultValues() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]string{
		model.SettingWhatsAppNumber: s.defaults.WhatsAppNumber,
		model.SettingSiteNameEn:     s.defaults.SiteNameEn,
		model.SettingSiteNameAr:     s.defaults.SiteNameAr,
		model.SettingSupportEmail:   s.defaults.SupportEmail,
	}
}

func (s *SettingService) All() (map[string]string, error) {
	stored, err := s.Repo.All()
	if err != nil {
		return nil, err
	}
	result := s.defaultValues()
	for _, key := range model.KnownSettings {
		if v := stored[key]; v != "" {
			result[key] = v
		}
	}
	return result, nil
}

func (s *SettingService) Get(key string) (string, error) {
	all, err := s.All()
	if err != nil {
		return "", err
	}
	return all[key], nil
}

// Update 只接受已知的设置项
func (s *SettingService) Update(values map[string]string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, util.NewValidationError("no settings provided")
	}
	known := make(map[string]struct{}, len(model.KnownSettings))
	for _, k := range model.KnownSettings {
		known[k] = struct{}{}
	}
	clean := make(map[string]string, len(values))
	for k, v := range values {
		if _, ok := known[k]; !ok {
			return nil, util.NewValidationError("unknown setting: " + k)
		}
		clean[k] = strings.TrimSpace(v)
	}

	if err := s.Repo.Upsert(clean); err != nil {
		return nil, err
	}
	return s.All()
}
