package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diegnghtmr/vale/pkg/jwt"
	"github.com/diegnghtmr/vale/pkg/response"
	"github.com/diegnghtmr/vale/pkg/validator"
)

// 上下文键，由 JWTAuth 中间件写入
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextClaims = "claims"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextRole)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetClaims 提取当前 Access Token 的声明（登出时加入黑名单）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ContextClaims)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// badRequest 参数校验失败，附带字段级错误
func badRequest(c *gin.Context, err error) {
	if isBodyTooLarge(err) {
		response.TooLarge(c, 10005, "请求体过大")
		return
	}
	if details := validator.Describe(err); len(details) > 0 {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", details)
		return
	}
	response.BadRequest(c, 10001, "参数校验失败")
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
