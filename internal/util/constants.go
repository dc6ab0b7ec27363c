package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MaxSubmissionImages = 5
)

var (
	AllowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
