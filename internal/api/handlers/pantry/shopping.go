package pantry

import (
	"net/http"

	"smart-kitchen/internal/api/handlers"
	"smart-kitchen/internal/api/middleware"
	"smart-kitchen/internal/core/inventory"

	"github.com/gin-gonic/gin"
)

// ShoppingHandler 購物清單處理器
type ShoppingHandler struct {
	store inventory.Store
}

// NewShoppingHandler 創建購物清單處理器
func NewShoppingHandler(store inventory.Store) *ShoppingHandler {
	return &ShoppingHandler{store: store}
}

// List 列出購物清單
func (h *ShoppingHandler) List(c *gin.Context) {
	entries, err := h.store.ListShoppingList(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shopping_list": entries})
}

// Add 將既有食材加入購物清單，重複加入時數量遞增
func (h *ShoppingHandler) Add(c *gin.Context) {
	var req struct {
		GroceryID int64 `json:"grocery_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "grocery_id 為必填欄位")
		return
	}

	entry, err := h.store.AddToShoppingList(c.Request.Context(), middleware.UserID(c), req.GroceryID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Remove 自購物清單移除項目
func (h *ShoppingHandler) Remove(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.RemoveFromShoppingList(c.Request.Context(), middleware.UserID(c), id); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
