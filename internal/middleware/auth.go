package middleware

import (
	"manhaj_backend/internal/access"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/util"
	"manhaj_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PolicyLoader 根据已验证的身份计算访问策略
type PolicyLoader interface {
	Load(userID uint, role model.UserRole) (*access.Policy, error)
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func attachPolicy(c *gin.Context, loader PolicyLoader, claims *util.Claims) bool {
	policy, err := loader.Load(claims.UserID, claims.Role)
	if err != nil {
		util.LogInternalError(c, err)
		c.Abort()
		return false
	}
	c.Set("user", claims)
	access.SetPolicy(c, policy)
	logger.AddFields(c, zap.Uint("user_id", claims.UserID), zap.String("role", string(claims.Role)))
	return true
}

// AuthMiddleware 要求有效的 JWT，并为请求计算访问策略
func AuthMiddleware(secret string, loader PolicyLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, secret)
		if err != nil {
			logger.FromContext(c).Debug("JWT rejected", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if !attachPolicy(c, loader, claims) {
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware 公开接口使用：令牌缺失或无效时按匿名用户处理
func OptionalAuthMiddleware(secret string, loader PolicyLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := util.ParseJWT(tokenString, secret)
		if err != nil {
			logger.FromContext(c).Debug("JWT ignored on public route", zap.Error(err))
			c.Next()
			return
		}

		if !attachPolicy(c, loader, claims) {
			return
		}
		c.Next()
	}
}

// RoleMiddleware 角色白名单。超级管理员不会被隐式放行，需要显式列出
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		util.Forbidden(c)
		c.Abort()
	}
}
