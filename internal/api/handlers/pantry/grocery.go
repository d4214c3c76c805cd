package pantry

import (
	"net/http"
	"strconv"
	"time"

	"smart-kitchen/internal/api/handlers"
	"smart-kitchen/internal/api/middleware"
	"smart-kitchen/internal/core/inventory"
	"smart-kitchen/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// GroceryHandler 庫存食材處理器
type GroceryHandler struct {
	store inventory.Store
}

// NewGroceryHandler 創建庫存食材處理器
func NewGroceryHandler(store inventory.Store) *GroceryHandler {
	return &GroceryHandler{store: store}
}

// GroceryRequest 新增或更新食材的請求
type GroceryRequest struct {
	Name           string  `json:"name" binding:"required"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	Category       string  `json:"category"`
	ManufacturedOn string  `json:"manufactured_on"`
	ExpiresOn      string  `json:"expires_on" binding:"required"`
}

// GroceryResponse 回應的食材，附剩餘天數與到期狀態
type GroceryResponse struct {
	common.InventoryItem
	DaysLeft int                 `json:"days_left"`
	Status   common.ExpiryStatus `json:"status"`
}

func toResponse(item common.InventoryItem, today time.Time) GroceryResponse {
	return GroceryResponse{
		InventoryItem: item,
		DaysLeft:      common.DaysUntil(item.ExpiresOn, today),
		Status:        item.Status(today),
	}
}

func (r *GroceryRequest) toItem(userID int64) (common.InventoryItem, string) {
	expiresOn, err := time.Parse(common.DateLayout, r.ExpiresOn)
	if err != nil {
		return common.InventoryItem{}, "expires_on 必須為 YYYY-MM-DD 格式"
	}

	item := common.InventoryItem{
		UserID:    userID,
		Name:      r.Name,
		Quantity:  r.Quantity,
		Unit:      r.Unit,
		Category:  r.Category,
		ExpiresOn: expiresOn,
	}
	if r.ManufacturedOn != "" {
		manufacturedOn, err := time.Parse(common.DateLayout, r.ManufacturedOn)
		if err != nil {
			return common.InventoryItem{}, "manufactured_on 必須為 YYYY-MM-DD 格式"
		}
		item.ManufacturedOn = &manufacturedOn
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if item.Unit == "" {
		item.Unit = "unit"
	}
	if item.Category == "" {
		item.Category = "Others"
	}
	return item, ""
}

// List 列出使用者的庫存，可用 search 查詢名稱或分類
func (h *GroceryHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	items, err := h.store.ListGroceries(c.Request.Context(), userID, c.Query("search"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	today := time.Now()
	responses := make([]GroceryResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toResponse(item, today))
	}
	c.JSON(http.StatusOK, gin.H{"groceries": responses})
}

// Create 新增食材
func (h *GroceryHandler) Create(c *gin.Context) {
	var req GroceryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "name 與 expires_on 為必填欄位")
		return
	}
	item, msg := req.toItem(middleware.UserID(c))
	if msg != "" {
		handlers.BadRequest(c, msg)
		return
	}

	id, err := h.store.AddGrocery(c.Request.Context(), item)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	item.ID = id
	c.JSON(http.StatusCreated, toResponse(item, time.Now()))
}

// Get 取得單筆食材
func (h *GroceryHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	item, err := h.store.GetGrocery(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(item, time.Now()))
}

// Update 更新食材
func (h *GroceryHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req GroceryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "name 與 expires_on 為必填欄位")
		return
	}
	item, msg := req.toItem(middleware.UserID(c))
	if msg != "" {
		handlers.BadRequest(c, msg)
		return
	}
	item.ID = id

	if err := h.store.UpdateGrocery(c.Request.Context(), item); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(item, time.Now()))
}

// Delete 刪除食材
func (h *GroceryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteGrocery(c.Request.Context(), middleware.UserID(c), id); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Categories 回傳可用的食材分類
func (h *GroceryHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": common.GroceryCategories})
}

// pathID 解析路徑中的數字 id，非法時直接回應 400
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		handlers.BadRequest(c, "路徑參數 id 必須為正整數")
		return 0, false
	}
	return id, true
}
