package util

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ValidatedFile 已通过内容校验的上传文件
type ValidatedFile struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ValidateUpload 读取文件内容并按真实内容检测 MIME 类型，忽略客户端声明的类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/"
func ValidateUpload(reader io.Reader, maxBytes int64, allowedTypes []string) (*ValidatedFile, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, NewValidationError(fmt.Sprintf("file exceeds the %d MB limit", maxBytes>>20))
	}
	if len(data) == 0 {
		return nil, NewValidationError("file is empty")
	}

	mimeType := http.DetectContentType(data)
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return &ValidatedFile{Data: data, ContentType: mimeType, Extension: extensionFor(mimeType)}, nil
		}
	}

	return nil, NewValidationError("invalid file type: " + mimeType)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}

