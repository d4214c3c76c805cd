package inventory

import (
	"context"
	"testing"
	"time"

	"smart-kitchen/internal/pkg/common"
)

func TestDateOnly(t *testing.T) {
	afternoon := time.Date(2026, 8, 31, 14, 30, 45, 123, time.FixedZone("CST", 8*3600))
	got := dateOnly(afternoon)
	want := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("dateOnly = %v, want %v", got, want)
	}
	// 視窗下界截斷後，當日到期的 DATE 值不低於下界
	expiresToday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if expiresToday.Before(got) {
		t.Error("today-expiring date must not fall below the truncated lower bound")
	}
	// 上界同樣以日曆日推算
	if upper := got.AddDate(0, 0, 7); !upper.Equal(time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("upper bound = %v", upper)
	}
}

func TestListExpiringWithinIncludesTodayAtNonMidnight(t *testing.T) {
	store := NewMemoryStore()
	// 下午時刻呼叫，當日到期的食材仍須落在視窗內
	now := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	for _, item := range []common.InventoryItem{
		{UserID: 1, Name: "Tofu", Quantity: 1, ExpiresOn: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)},
		{UserID: 1, Name: "Milk", Quantity: 1, ExpiresOn: time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)},
		{UserID: 1, Name: "Old", Quantity: 1, ExpiresOn: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)},
	} {
		if _, err := store.AddGrocery(context.Background(), item); err != nil {
			t.Fatalf("AddGrocery: %v", err)
		}
	}

	items, err := store.ListExpiringWithin(context.Background(), 1, 7, now)
	if err != nil {
		t.Fatalf("ListExpiringWithin: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2 (Tofu, Milk)", len(items))
	}
	if items[0].Name != "Tofu" {
		t.Errorf("first item = %q, want Tofu (expires today)", items[0].Name)
	}
}
