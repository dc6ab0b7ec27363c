package util

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// 错误类别，处理器通过 errors.Is 映射到 HTTP 状态码
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
)

// AppError 携带可以直接展示给用户的消息
type AppError struct {
	Kind    error
	Message string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

func NewUnauthorizedError(message string) error {
	return &AppError{Kind: ErrUnauthorized, Message: message}
}

func NewValidationError(message string) error {
	return &AppError{Kind: ErrValidation, Message: message}
}

func NewConflictError(message string) error {
	return &AppError{Kind: ErrConflict, Message: message}
}

func NewNotFoundError(message string) error {
	return &AppError{Kind: ErrNotFound, Message: message}
}

func NewForbiddenError(message string) error {
	return &AppError{Kind: ErrForbidden, Message: message}
}

// Normalize 把 gorm 的错误翻译成业务错误类别
func Normalize(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NewNotFoundError("Resource not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return NewConflictError("Resource already exists")
	}
	return err
}

// StatusFor 返回错误对应的 HTTP 状态码，未知错误为 500
func StatusFor(err error) int {
	err = Normalize(err)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
