package handlers

import (
	"errors"
	"net/http"

	"smart-kitchen/internal/core/inventory"
	"smart-kitchen/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 使用者可讀的錯誤訊息，依錯誤代碼對應
var userMessages = map[string]string{
	common.ErrCodeDataUnavailable:   "資料存取暫時無法使用，請稍後再試",
	common.ErrCodeModelUnreachable:  "無法連線 AI 服務，請稍後再試",
	common.ErrCodeModelRateLimited:  "AI 服務請求過於頻繁，請稍後再試",
	common.ErrCodeModelTimeout:      "AI 服務回應逾時，請稍後再試",
	common.ErrCodeModelRefused:      "AI 服務無法處理此請求",
	common.ErrCodeMalformedResponse: "AI 服務回應格式異常，請重試",
	common.ErrCodeSchemaViolation:   "AI 服務回應內容不完整，請重試",
}

// RespondError 將服務層錯誤轉為 HTTP 回應。
// CustomError 直接使用其狀態碼與訊息，管線哨兵錯誤依分類對應，
// 細節不外洩給呼叫端。
func RespondError(c *gin.Context, err error) {
	var custom *common.CustomError
	if errors.As(err, &custom) {
		c.JSON(custom.Status, common.ErrorResponse{
			Code:    custom.Code,
			Message: custom.Message,
		})
		return
	}

	if errors.Is(err, inventory.ErrNotFound) {
		c.JSON(http.StatusNotFound, common.ErrorResponse{
			Code:    common.ErrCodeNotFound,
			Message: "資源不存在",
		})
		return
	}

	status, code := common.HTTPStatusFor(err)
	message, ok := userMessages[code]
	if !ok {
		message = "服務器內部錯誤"
	}
	if status >= 500 {
		common.LogError("請求處理失敗",
			zap.String("code", code),
			zap.Error(err),
		)
	}
	c.JSON(status, common.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// BadRequest 回應參數錯誤
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, common.ErrorResponse{
		Code:    common.ErrCodeInvalidRequest,
		Message: message,
	})
}
