package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diegnghtmr/vale/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes: 默认上限；overrides 按路由模板（c.FullPath()）覆盖，如文件上传接口
func BodyLimit(maxBytes int64, overrides map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if n, ok := overrides[c.FullPath()]; ok {
			limit = n
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()

		if c.IsAborted() || c.Writer.Written() {
			return
		}
		for _, err := range c.Errors {
			if IsBodyTooLarge(err.Err) {
				response.TooLarge(c, 10005, "请求体过大")
				return
			}
		}
	}
}

// IsBodyTooLarge 判断错误是否由请求体超限引起
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
