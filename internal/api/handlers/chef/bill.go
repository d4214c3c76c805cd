package chef

import (
	"net/http"

	"smart-kitchen/internal/api/handlers"
	"smart-kitchen/internal/api/middleware"
	chefcore "smart-kitchen/internal/core/chef"
	"smart-kitchen/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// BillHandler 帳單擷取與食物分析處理器
type BillHandler struct {
	service *chefcore.Service
}

// NewBillHandler 創建帳單處理器
func NewBillHandler(service *chefcore.Service) *BillHandler {
	return &BillHandler{service: service}
}

// ImageRequest 帶單張圖片的請求
type ImageRequest struct {
	Image string `json:"image" binding:"required"`
}

// Extract 從帳單圖片擷取品項，結果回傳給使用者確認後再入庫
func (h *BillHandler) Extract(c *gin.Context) {
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "image 為必填欄位")
		return
	}

	result, err := h.service.ExtractBill(c.Request.Context(), middleware.UserID(c), req.Image)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ConfirmRequest 確認入庫請求
type ConfirmRequest struct {
	Items []common.BillLineItem `json:"items" binding:"required"`
}

// Confirm 將使用者確認後的品項整批入庫，全有或全無
func (h *BillHandler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Items) == 0 {
		handlers.BadRequest(c, "items 不可為空")
		return
	}

	ids, err := h.service.SaveBillItems(c.Request.Context(), middleware.UserID(c), req.Items)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ids": ids, "count": len(ids)})
}

// AnalyzeFood 分析食物照片，回傳 Markdown 內容
func (h *BillHandler) AnalyzeFood(c *gin.Context) {
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "image 為必填欄位")
		return
	}

	analysis, err := h.service.AnalyzeFood(c.Request.Context(), req.Image)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}
