package common

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 日期欄位統一使用 ISO 格式
const DateLayout = "2006-01-02"

// ExpiryStatus 到期狀態
type ExpiryStatus string

const (
	StatusExpired      ExpiryStatus = "expired"
	StatusExpiringSoon ExpiryStatus = "expiring_soon"
	StatusFresh        ExpiryStatus = "fresh"
)

// ExpiringSoonWindowDays 預設的「即將到期」天數視窗
const ExpiringSoonWindowDays = 7

// ClassifyExpiry 依剩餘天數判斷到期狀態
// 對任意日期組合皆回傳三種狀態之一，首頁警示與食譜管線共用此函式
func ClassifyExpiry(expiresOn, today time.Time) ExpiryStatus {
	days := DaysUntil(expiresOn, today)
	switch {
	case days < 0:
		return StatusExpired
	case days <= ExpiringSoonWindowDays:
		return StatusExpiringSoon
	default:
		return StatusFresh
	}
}

// DaysUntil 計算 expiresOn 距 today 的整數天數（忽略時分秒）
func DaysUntil(expiresOn, today time.Time) int {
	e := time.Date(expiresOn.Year(), expiresOn.Month(), expiresOn.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(t).Hours() / 24)
}

// InventoryItem 庫存食材
type InventoryItem struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	Name           string     `json:"name"`
	Quantity       float64    `json:"quantity"`
	Unit           string     `json:"unit"`
	Category       string     `json:"category"`
	ManufacturedOn *time.Time `json:"manufactured_on,omitempty"` // 可為空
	ExpiresOn      time.Time  `json:"expires_on"`
}

// Status 回傳此食材相對於 today 的到期狀態
func (it InventoryItem) Status(today time.Time) ExpiryStatus {
	return ClassifyExpiry(it.ExpiresOn, today)
}

// GroceryCategories 食材分類（沿用既有資料表的分類清單）
var GroceryCategories = []string{
	"Vegetables",
	"Fruits",
	"Dairy",
	"Meat",
	"Grains",
	"Spices",
	"Condiments & Seasonings",
	"Beverages",
	"Snacks",
	"Others",
}

// Difficulty 食譜難度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty 正規化並驗證難度值，未知值回傳 false 而非套用預設
func ParseDifficulty(raw string) (Difficulty, bool) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(raw))) {
	case DifficultyEasy:
		return DifficultyEasy, true
	case DifficultyMedium:
		return DifficultyMedium, true
	case DifficultyHard:
		return DifficultyHard, true
	default:
		return "", false
	}
}

// RecipeIngredient 食譜內的單一食材
type RecipeIngredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// Macros 營養素（數值型，驗證時由模型輸出強制轉型）
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// RecipeCandidate 通過驗證、尚未儲存的模型食譜
type RecipeCandidate struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Ingredients  []RecipeIngredient `json:"ingredients"`
	Steps        []string           `json:"steps"`
	PrepTime     string             `json:"prep_time"`
	Difficulty   Difficulty         `json:"difficulty"`
	Macros       Macros             `json:"macros"`
	UsesExpiring bool               `json:"uses_expiring"`
}

// SavedRecipe 已儲存的食譜，僅能由使用者明確觸發建立
type SavedRecipe struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	RecipeCandidate
}

// BillLineItem 帳單辨識出的單一品項
type BillLineItem struct {
	Name           string     `json:"name"`
	Quantity       float64    `json:"quantity"`
	Unit           string     `json:"unit"`
	Category       string     `json:"category"`
	ManufacturedOn *time.Time `json:"manufactured_on,omitempty"`
	ExpiresOn      *time.Time `json:"expires_on,omitempty"`
}

// ShoppingListEntry 購物清單項目
type ShoppingListEntry struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	GroceryID int64  `json:"grocery_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// ExpiryWarnings 首頁到期警示摘要
type ExpiryWarnings struct {
	Expired           []InventoryItem `json:"expired"`
	ExpiringSoon      []InventoryItem `json:"expiring_soon"`
	ExpiredCount      int             `json:"expired_count"`
	ExpiringSoonCount int             `json:"expiring_soon_count"`
}

// FormatInventoryItem 將食材格式化為 prompt 內的單行描述
func FormatInventoryItem(it InventoryItem, today time.Time) string {
	days := DaysUntil(it.ExpiresOn, today)
	switch {
	case days < 0:
		return fmt.Sprintf("- %s (%g %s, expired %d day(s) ago)", it.Name, it.Quantity, it.Unit, -days)
	case days == 0:
		return fmt.Sprintf("- %s (%g %s, expires today)", it.Name, it.Quantity, it.Unit)
	default:
		return fmt.Sprintf("- %s (%g %s, expires in %d day(s))", it.Name, it.Quantity, it.Unit, days)
	}
}
