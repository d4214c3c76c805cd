package chef

import (
	"net/http"
	"strconv"
	"strings"

	"smart-kitchen/internal/api/handlers"
	"smart-kitchen/internal/api/middleware"
	chefcore "smart-kitchen/internal/core/chef"
	"smart-kitchen/internal/core/inventory"
	"smart-kitchen/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// RecipeHandler 食譜生成與管理處理器
type RecipeHandler struct {
	service *chefcore.Service
	store   inventory.Store
}

// NewRecipeHandler 創建食譜處理器
func NewRecipeHandler(service *chefcore.Service, store inventory.Store) *RecipeHandler {
	return &RecipeHandler{service: service, store: store}
}

// GenerateRequest 食譜生成請求
type GenerateRequest struct {
	Preferences map[string]string `json:"preferences"`
	Count       int               `json:"count"`
}

// Generate 依庫存生成食譜建議
func (h *RecipeHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handlers.BadRequest(c, "請求格式錯誤")
			return
		}
	}

	result, err := h.service.GenerateRecipes(c.Request.Context(), middleware.UserID(c), req.Preferences, req.Count)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RefineRequest 食譜調整請求
type RefineRequest struct {
	Recipe      common.RecipeCandidate `json:"recipe" binding:"required"`
	Instruction string                 `json:"instruction" binding:"required"`
}

// Refine 依指示調整既有食譜
func (h *RecipeHandler) Refine(c *gin.Context) {
	var req RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "recipe 與 instruction 為必填欄位")
		return
	}

	refined, err := h.service.RefineRecipe(c.Request.Context(), req.Recipe, req.Instruction)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": refined})
}

// Save 儲存使用者選定的食譜
func (h *RecipeHandler) Save(c *gin.Context) {
	var req common.RecipeCandidate
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		handlers.BadRequest(c, "食譜內容不完整")
		return
	}

	id, err := h.service.SaveRecipe(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// List 列出已儲存的食譜
func (h *RecipeHandler) List(c *gin.Context) {
	recipes, err := h.store.ListRecipes(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// Get 取得單筆已儲存食譜
func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	recipe, err := h.store.GetRecipe(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// Delete 刪除已儲存食譜
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteRecipe(c.Request.Context(), middleware.UserID(c), id); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CookResponse 烹煮扣除結果
type CookResponse struct {
	Updated int      `json:"updated"`
	Deleted int      `json:"deleted"`
	Skipped []string `json:"skipped,omitempty"`
}

// CookRequest 烹煮請求，deductions 為空時依食材名稱自動配對
type CookRequest struct {
	Deductions []inventory.Deduction `json:"deductions"`
}

// DeductionPreview 回傳食譜食材與庫存的配對建議，不做任何扣除。
// 使用者確認後由 Cook 套用。
func (h *RecipeHandler) DeductionPreview(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)
	ctx := c.Request.Context()

	recipe, err := h.store.GetRecipe(ctx, userID, id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	groceries, err := h.store.ListGroceries(ctx, userID, "")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"candidates": inventory.MatchDeductionCandidates(recipe.Ingredients, groceries),
	})
}

// Cook 依食譜食材扣除庫存。請求可帶使用者確認過的扣除清單；
// 未提供時以名稱自動配對，完全相符優先，其次為子字串相符，
// 無相符或數量無法解讀的食材列入 skipped。
func (h *RecipeHandler) Cook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)
	ctx := c.Request.Context()

	var req CookRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handlers.BadRequest(c, "請求格式錯誤")
			return
		}
	}

	recipe, err := h.store.GetRecipe(ctx, userID, id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	deductions := req.Deductions
	var skipped []string
	if len(deductions) == 0 {
		groceries, err := h.store.ListGroceries(ctx, userID, "")
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		for _, cand := range inventory.MatchDeductionCandidates(recipe.Ingredients, groceries) {
			if cand.BestMatchID == nil {
				skipped = append(skipped, cand.IngredientName)
				continue
			}
			deductions = append(deductions, inventory.Deduction{
				GroceryID: *cand.BestMatchID,
				Quantity:  parseQuantity(cand.Quantity),
			})
		}
	}

	result, err := h.store.DeductGroceries(ctx, userID, deductions)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CookResponse{
		Updated: result.Updated,
		Deleted: result.Deleted,
		Skipped: skipped,
	})
}

// Warnings 回傳到期警示摘要
func (h *RecipeHandler) Warnings(c *gin.Context) {
	threshold := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			handlers.BadRequest(c, "days 必須為非負整數")
			return
		}
		threshold = parsed
	}

	warnings, err := h.service.ExpiryWarnings(c.Request.Context(), middleware.UserID(c), threshold)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warnings)
}

// parseQuantity 取食材數量字串的數字前綴，無法解讀時以 1 計
func parseQuantity(raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	end := 0
	for end < len(trimmed) && (trimmed[end] == '.' || (trimmed[end] >= '0' && trimmed[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 1
	}
	value, err := strconv.ParseFloat(trimmed[:end], 64)
	if err != nil || value <= 0 {
		return 1
	}
	return value
}

// pathID 解析路徑中的數字 id
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		handlers.BadRequest(c, "路徑參數 id 必須為正整數")
		return 0, false
	}
	return id, true
}
