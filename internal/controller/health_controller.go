package controller

import (
	"context"
	"net/http"
	"time"

	"manhaj_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const healthPingTimeout = 2 * time.Second

type HealthController struct {
	DB          *gorm.DB
	Redis       *redis.Client
	StorageType string
	StartedAt   time.Time
}

// NewHealthController redis 为 nil 表示未启用缓存
func NewHealthController(db *gorm.DB, rdb *redis.Client, storageType string) *HealthController {
	return &HealthController{DB: db, Redis: rdb, StorageType: storageType, StartedAt: time.Now()}
}

// @Summary 健康检查
// @Description 数据库不可用时返回 503；Redis 只是缓存，不可用时状态为 degraded
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthPingTimeout)
	defer cancel()

	sqlDB, err := c.DB.DB()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	status := "ok"
	cache := "disabled"
	if c.Redis != nil {
		cache = "up"
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			cache = "down"
			status = "degraded"
		}
	}

	util.Success(ctx, gin.H{
		"status":        status,
		"uptimeSeconds": int64(time.Since(c.StartedAt).Seconds()),
		"components": gin.H{
			"database": "up",
			"cache":    cache,
			"storage":  c.StorageType,
		},
	})
}
