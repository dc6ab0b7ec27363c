package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"manhaj_backend/internal/config"
	"manhaj_backend/internal/util"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageProvider 定义通用存储接口
type StorageProvider interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// LocalStorageProvider 本地存储实现，文件由 /uploads 静态路由提供
type LocalStorageProvider struct {
	Root    string
	BaseURL string
}

func (p *LocalStorageProvider) Put(ctx context.Context, key string, data []byte, contentType string) error {
	dst := filepath.Join(p.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func (p *LocalStorageProvider) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(p.Root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (p *LocalStorageProvider) PublicURL(key string) string {
	return strings.TrimRight(p.BaseURL, "/") + "/uploads/" + key
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (p *MinioStorageProvider) Delete(ctx context.Context, key string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) PublicURL(key string) string {
	if p.Config.PublicBaseURL != "" {
		return strings.TrimRight(p.Config.PublicBaseURL, "/") + "/" + key
	}
	scheme := "http"
	if p.Config.MinioUseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, p.Config.MinioEndpoint, p.Config.MinioBucket, key)
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Config *config.StorageConfig
	Bucket *oss.Bucket
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Bucket: bucket}, nil
}

func (p *OSSStorageProvider) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return p.Bucket.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType), oss.WithContext(ctx))
}

func (p *OSSStorageProvider) Delete(ctx context.Context, key string) error {
	return p.Bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (p *OSSStorageProvider) PublicURL(key string) string {
	if p.Config.PublicBaseURL != "" {
		return strings.TrimRight(p.Config.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.%s/%s", p.Config.OSSBucket, p.Config.OSSEndpoint, key)
}

// NewStorageProvider 按配置构造存储实现，启动时调用一次
func NewStorageProvider(cfg *config.StorageConfig) (StorageProvider, error) {
	switch cfg.Type {
	case util.StorageMinio:
		return NewMinioStorageProvider(cfg)
	case util.StorageOSS:
		return NewOSSStorageProvider(cfg)
	case util.StorageLocal, "":
		return &LocalStorageProvider{Root: cfg.LocalPath, BaseURL: cfg.PublicBaseURL}, nil
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}

// StoredObject 已写入存储的对象
type StoredObject struct {
	Key string
	URL string
}

// StorageService 校验上传内容并写入存储
type StorageService struct {
	Provider StorageProvider
	MaxBytes int64
}

func NewStorageService(provider StorageProvider, maxBytes int64) *StorageService {
	return &StorageService{Provider: provider, MaxBytes: maxBytes}
}

// UploadImage 按内容嗅探图片类型，超过大小上限或不是图片时返回校验错误
func (s *StorageService) UploadImage(ctx context.Context, folder string, reader io.Reader) (*StoredObject, error) {
	file, err := util.ValidateUpload(reader, s.MaxBytes, util.AllowedImageTypes)
	if err != nil {
		return nil, err
	}

	key := path.Join(folder, uuid.NewString()+file.Extension)
	if err := s.Provider.Put(ctx, key, file.Data, file.ContentType); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}
	return &StoredObject{Key: key, URL: s.Provider.PublicURL(key)}, nil
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	return s.Provider.Delete(ctx, key)
}

func (s *StorageService) PublicURL(key string) string {
	return s.Provider.PublicURL(key)
}
