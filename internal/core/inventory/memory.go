package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"smart-kitchen/internal/pkg/common"
)

// MemoryStore 記憶體儲存實作，開發與測試環境使用
type MemoryStore struct {
	mu        sync.RWMutex
	groceries map[int64]common.InventoryItem
	recipes   map[int64]common.SavedRecipe
	shopList  map[int64]common.ShoppingListEntry
	nextID    int64
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groceries: make(map[int64]common.InventoryItem),
		recipes:   make(map[int64]common.SavedRecipe),
		shopList:  make(map[int64]common.ShoppingListEntry),
	}
}

func (s *MemoryStore) allocID() int64 {
	s.nextID++
	return s.nextID
}

// AddGrocery 新增庫存食材
func (s *MemoryStore) AddGrocery(_ context.Context, item common.InventoryItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = s.allocID()
	s.groceries[item.ID] = item
	return item.ID, nil
}

// GetGrocery 取得單筆食材
func (s *MemoryStore) GetGrocery(_ context.Context, userID, id int64) (common.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.groceries[id]
	if !ok || item.UserID != userID {
		return common.InventoryItem{}, fmt.Errorf("grocery %d: %w", id, ErrNotFound)
	}
	return item, nil
}

// UpdateGrocery 更新食材
func (s *MemoryStore) UpdateGrocery(_ context.Context, item common.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.groceries[item.ID]
	if !ok || existing.UserID != item.UserID {
		return fmt.Errorf("grocery %d: %w", item.ID, ErrNotFound)
	}
	s.groceries[item.ID] = item
	return nil
}

// DeleteGrocery 刪除食材並一併移除購物清單內的引用
func (s *MemoryStore) DeleteGrocery(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.groceries[id]
	if !ok || item.UserID != userID {
		return fmt.Errorf("grocery %d: %w", id, ErrNotFound)
	}
	delete(s.groceries, id)
	for entryID, entry := range s.shopList {
		if entry.GroceryID == id {
			delete(s.shopList, entryID)
		}
	}
	return nil
}

// ListGroceries 列出使用者的食材，可依名稱或分類搜尋，依到期日排序
func (s *MemoryStore) ListGroceries(_ context.Context, userID int64, search string) ([]common.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	var items []common.InventoryItem
	for _, item := range s.groceries {
		if item.UserID != userID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(item.Name), needle) &&
			!strings.Contains(strings.ToLower(item.Category), needle) {
			continue
		}
		items = append(items, item)
	}
	sortByExpiry(items)
	return items, nil
}

// ListExpiringWithin 回傳到期日落在視窗內的食材，由近到遠排序
func (s *MemoryStore) ListExpiringWithin(_ context.Context, userID int64, days int, today time.Time) ([]common.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []common.InventoryItem
	for _, item := range s.groceries {
		if item.UserID != userID {
			continue
		}
		d := common.DaysUntil(item.ExpiresOn, today)
		if d >= 0 && d <= days {
			items = append(items, item)
		}
	}
	sortByExpiry(items)
	return items, nil
}

// AddGroceryBatch 整批寫入帳單品項，任一品項無效則整批拒絕
func (s *MemoryStore) AddGroceryBatch(_ context.Context, userID int64, items []common.BillLineItem, today time.Time) ([]int64, error) {
	// 先驗證再提交，確保不留下半寫入批次
	converted := make([]common.InventoryItem, 0, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("batch item %d has empty name", i)
		}
		converted = append(converted, billItemToGrocery(userID, item, today))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(converted))
	for _, item := range converted {
		item.ID = s.allocID()
		s.groceries[item.ID] = item
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// SaveRecipe 儲存食譜（重複儲存相同內容是允許的）
func (s *MemoryStore) SaveRecipe(_ context.Context, userID int64, cand common.RecipeCandidate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocID()
	s.recipes[id] = common.SavedRecipe{
		ID:              id,
		UserID:          userID,
		CreatedAt:       time.Now(),
		RecipeCandidate: cand,
	}
	return id, nil
}

// GetRecipe 取得單筆已儲存食譜
func (s *MemoryStore) GetRecipe(_ context.Context, userID, id int64) (common.SavedRecipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipe, ok := s.recipes[id]
	if !ok || recipe.UserID != userID {
		return common.SavedRecipe{}, fmt.Errorf("recipe %d: %w", id, ErrNotFound)
	}
	return recipe, nil
}

// ListRecipes 列出使用者的已儲存食譜，新的在前
func (s *MemoryStore) ListRecipes(_ context.Context, userID int64) ([]common.SavedRecipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recipes []common.SavedRecipe
	for _, r := range s.recipes {
		if r.UserID == userID {
			recipes = append(recipes, r)
		}
	}
	sort.Slice(recipes, func(i, j int) bool {
		return recipes[i].ID > recipes[j].ID
	})
	return recipes, nil
}

// DeleteRecipe 刪除已儲存食譜
func (s *MemoryStore) DeleteRecipe(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipe, ok := s.recipes[id]
	if !ok || recipe.UserID != userID {
		return fmt.Errorf("recipe %d: %w", id, ErrNotFound)
	}
	delete(s.recipes, id)
	return nil
}

// AddToShoppingList 加入購物清單，重複加入時數量遞增
func (s *MemoryStore) AddToShoppingList(_ context.Context, userID, groceryID int64) (common.ShoppingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grocery, ok := s.groceries[groceryID]
	if !ok || grocery.UserID != userID {
		return common.ShoppingListEntry{}, fmt.Errorf("grocery %d: %w", groceryID, ErrNotFound)
	}

	for id, entry := range s.shopList {
		if entry.UserID == userID && entry.GroceryID == groceryID {
			entry.Quantity++
			s.shopList[id] = entry
			return entry, nil
		}
	}

	entry := common.ShoppingListEntry{
		ID:        s.allocID(),
		UserID:    userID,
		GroceryID: groceryID,
		Name:      grocery.Name,
		Quantity:  1,
	}
	s.shopList[entry.ID] = entry
	return entry, nil
}

// RemoveFromShoppingList 自購物清單移除
func (s *MemoryStore) RemoveFromShoppingList(_ context.Context, userID, entryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.shopList[entryID]
	if !ok || entry.UserID != userID {
		return fmt.Errorf("shopping list entry %d: %w", entryID, ErrNotFound)
	}
	delete(s.shopList, entryID)
	return nil
}

// ListShoppingList 列出購物清單，依名稱排序
func (s *MemoryStore) ListShoppingList(_ context.Context, userID int64) ([]common.ShoppingListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []common.ShoppingListEntry
	for _, entry := range s.shopList {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// DeductGroceries 扣除庫存，扣到零即刪除該筆
func (s *MemoryStore) DeductGroceries(_ context.Context, userID int64, deductions []Deduction) (DeductionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result DeductionResult
	for _, d := range deductions {
		if d.GroceryID == 0 || d.Quantity <= 0 {
			continue
		}
		item, ok := s.groceries[d.GroceryID]
		if !ok || item.UserID != userID {
			continue
		}
		if item.Quantity <= d.Quantity {
			delete(s.groceries, d.GroceryID)
			result.Deleted++
		} else {
			item.Quantity -= d.Quantity
			s.groceries[d.GroceryID] = item
			result.Updated++
		}
	}
	return result, nil
}

// Close 關閉儲存（記憶體實作無資源需釋放）
func (s *MemoryStore) Close() error {
	return nil
}

func sortByExpiry(items []common.InventoryItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].ExpiresOn.Equal(items[j].ExpiresOn) {
			return items[i].ID < items[j].ID
		}
		return items[i].ExpiresOn.Before(items[j].ExpiresOn)
	})
}
