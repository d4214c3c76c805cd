package middleware

import (
	"net/http"
	"strconv"

	"smart-kitchen/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// UserIDKey 使用者識別在 gin context 中的鍵名
const UserIDKey = "user_id"

// Identity 使用者識別中間件。呼叫端以 X-User-ID 標頭表明身分，
// 所有資料操作以此識別分隔，缺漏或非法時拒絕請求。
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing X-User-ID header",
				"code":  common.ErrCodeUnauthorized,
			})
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid X-User-ID header",
				"code":  common.ErrCodeUnauthorized,
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID 自 context 取出已驗證的使用者識別
func UserID(c *gin.Context) int64 {
	return c.GetInt64(UserIDKey)
}
