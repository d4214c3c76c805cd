package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"smart-kitchen/internal/pkg/common"
)

// ErrNotFound 查無資料（區別於儲存層故障）
var ErrNotFound = errors.New("not found")

// Deduction 單筆庫存扣除
type Deduction struct {
	GroceryID int64   `json:"grocery_id"`
	Quantity  float64 `json:"deduct_qty"`
}

// DeductionResult 扣除結果統計
type DeductionResult struct {
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// DeductionCandidate 食譜食材與庫存的配對建議
type DeductionCandidate struct {
	IngredientName string `json:"ingredient_name"`
	Quantity       string `json:"quantity_needed"`
	BestMatchID    *int64 `json:"best_match_id"`
}

// Store 庫存、食譜與購物清單的持久化介面
// 所有操作皆以 userID 限定範圍；記憶體與 PostgreSQL 各有一份實作
type Store interface {
	// 庫存
	AddGrocery(ctx context.Context, item common.InventoryItem) (int64, error)
	GetGrocery(ctx context.Context, userID, id int64) (common.InventoryItem, error)
	UpdateGrocery(ctx context.Context, item common.InventoryItem) error
	DeleteGrocery(ctx context.Context, userID, id int64) error
	ListGroceries(ctx context.Context, userID int64, search string) ([]common.InventoryItem, error)
	// ListExpiringWithin 回傳 expires_on 落在 [today, today+days] 的食材，依到期日由近到遠排序
	ListExpiringWithin(ctx context.Context, userID int64, days int, today time.Time) ([]common.InventoryItem, error)
	// AddGroceryBatch 整批寫入帳單品項，全部成功或全部不寫入
	AddGroceryBatch(ctx context.Context, userID int64, items []common.BillLineItem, today time.Time) ([]int64, error)

	// 食譜
	SaveRecipe(ctx context.Context, userID int64, cand common.RecipeCandidate) (int64, error)
	GetRecipe(ctx context.Context, userID, id int64) (common.SavedRecipe, error)
	ListRecipes(ctx context.Context, userID int64) ([]common.SavedRecipe, error)
	DeleteRecipe(ctx context.Context, userID, id int64) error

	// 購物清單
	AddToShoppingList(ctx context.Context, userID, groceryID int64) (common.ShoppingListEntry, error)
	RemoveFromShoppingList(ctx context.Context, userID, entryID int64) error
	ListShoppingList(ctx context.Context, userID int64) ([]common.ShoppingListEntry, error)

	// 扣帳：依使用者確認的數量扣除庫存，扣到零即刪除該筆
	DeductGroceries(ctx context.Context, userID int64, deductions []Deduction) (DeductionResult, error)

	Close() error
}

// dateOnly 去除時分秒，僅保留日曆日。
// 到期視窗以日曆日為界，傳入 time.Now() 之類的非午夜時刻不得影響比較結果。
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MatchDeductionCandidates 將食譜食材與庫存做名稱配對
// 完全相同優先，其次為子字串包含；無配對時 BestMatchID 為 nil
func MatchDeductionCandidates(ingredients []common.RecipeIngredient, groceries []common.InventoryItem) []DeductionCandidate {
	candidates := make([]DeductionCandidate, 0, len(ingredients))
	for _, ing := range ingredients {
		ingName := strings.ToLower(strings.TrimSpace(ing.Name))

		var exact, partial *int64
		for i := range groceries {
			gName := strings.ToLower(groceries[i].Name)
			switch {
			case gName == ingName:
				if exact == nil {
					id := groceries[i].ID
					exact = &id
				}
			case strings.Contains(gName, ingName) || strings.Contains(ingName, gName):
				if partial == nil {
					id := groceries[i].ID
					partial = &id
				}
			}
		}

		best := exact
		if best == nil {
			best = partial
		}
		candidates = append(candidates, DeductionCandidate{
			IngredientName: ing.Name,
			Quantity:       ing.Quantity,
			BestMatchID:    best,
		})
	}
	return candidates
}

// billItemToGrocery 將帳單品項轉為庫存食材
// 帳單上的到期日可能缺漏，缺漏時以預設視窗估算
func billItemToGrocery(userID int64, item common.BillLineItem, today time.Time) common.InventoryItem {
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	unit := item.Unit
	if unit == "" {
		unit = "unit"
	}
	category := item.Category
	if category == "" {
		category = "Others"
	}
	expiresOn := today.AddDate(0, 0, common.ExpiringSoonWindowDays)
	if item.ExpiresOn != nil {
		expiresOn = *item.ExpiresOn
	}
	return common.InventoryItem{
		UserID:         userID,
		Name:           item.Name,
		Quantity:       quantity,
		Unit:           unit,
		Category:       category,
		ManufacturedOn: item.ManufacturedOn,
		ExpiresOn:      expiresOn,
	}
}
