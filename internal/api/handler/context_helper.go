package handler

import (
	"github.com/gin-gonic/gin"

	"maintenance-tracker/internal/service"
	"maintenance-tracker/pkg/response"
)

// 由 JWTAuth 中间件注入的上下文键
const (
	ctxUsername = "username"
	ctxName     = "name"
	ctxRole     = "role"
)

// MustGetCaller 从 Gin 上下文中提取当前调用者。
// 如果 JWT 中间件未正确注入 username，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	username := c.GetString(ctxUsername)
	if username == "" {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}
	return service.Caller{
		Username: username,
		Name:     c.GetString(ctxName),
		Role:     c.GetString(ctxRole),
	}, true
}
