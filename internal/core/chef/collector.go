package chef

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart-kitchen/internal/core/inventory"
	"smart-kitchen/internal/pkg/common"
)

// storeUnavailable 確保儲存層錯誤帶有 DataUnavailable 分類
func storeUnavailable(err error) error {
	if errors.Is(err, common.ErrDataUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrDataUnavailable, err)
}

// ContextItem 加入天數資訊的庫存項目，供提示詞建構使用
type ContextItem struct {
	common.InventoryItem
	DaysLeft int
}

// GenerationRequest 一次生成請求的完整上下文，為短暫物件，不落地
type GenerationRequest struct {
	UserID      int64
	Expiring    []ContextItem // 即期食材，依到期日由近至遠
	Others      []ContextItem // 其餘庫存，依到期日由近至遠
	Preferences map[string]string
	Today       time.Time
}

// Collector 收集使用者庫存與偏好，組成生成請求的上下文
type Collector struct {
	store inventory.Store
}

// NewCollector 創建收集器
func NewCollector(store inventory.Store) *Collector {
	return &Collector{store: store}
}

// ExpiringWithin 回傳到期日落在 [today, today+threshold] 的食材，
// 依到期日由近至遠排序。threshold <= 0 時使用預設七天視窗。
func (c *Collector) ExpiringWithin(ctx context.Context, userID int64, threshold int, today time.Time) ([]common.InventoryItem, error) {
	if threshold <= 0 {
		threshold = common.ExpiringSoonWindowDays
	}
	items, err := c.store.ListExpiringWithin(ctx, userID, threshold, today)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return items, nil
}

// Collect 收集完整庫存並切分為即期與一般兩組
func (c *Collector) Collect(ctx context.Context, userID int64, preferences map[string]string, today time.Time) (*GenerationRequest, error) {
	items, err := c.store.ListGroceries(ctx, userID, "")
	if err != nil {
		return nil, storeUnavailable(err)
	}

	req := &GenerationRequest{
		UserID:      userID,
		Preferences: preferences,
		Today:       today,
	}
	for _, item := range items {
		ctxItem := ContextItem{
			InventoryItem: item,
			DaysLeft:      common.DaysUntil(item.ExpiresOn, today),
		}
		if ctxItem.DaysLeft < 0 {
			// 過期食材不進入生成上下文
			continue
		}
		if ctxItem.DaysLeft <= common.ExpiringSoonWindowDays {
			req.Expiring = append(req.Expiring, ctxItem)
		} else {
			req.Others = append(req.Others, ctxItem)
		}
	}
	return req, nil
}
