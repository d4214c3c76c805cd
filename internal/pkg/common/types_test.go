package common

import (
	"testing"
	"time"
)

func TestClassifyExpiryBoundaries(t *testing.T) {
	today := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		offset int
		want   ExpiryStatus
	}{
		{"yesterday is expired", -1, StatusExpired},
		{"today is expiring soon", 0, StatusExpiringSoon},
		{"window edge is expiring soon", 7, StatusExpiringSoon},
		{"past window is fresh", 8, StatusFresh},
		{"far future is fresh", 90, StatusFresh},
		{"long expired", -30, StatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyExpiry(today.AddDate(0, 0, tt.offset), today)
			if got != tt.want {
				t.Errorf("ClassifyExpiry(today%+d) = %q, want %q", tt.offset, got, tt.want)
			}
		})
	}
}

func TestClassifyExpiryIgnoresTimeOfDay(t *testing.T) {
	// 分類以日曆日為準，下午呼叫不得把當日到期判為過期
	afternoon := time.Date(2026, 8, 31, 17, 45, 0, 0, time.UTC)
	expiresToday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if got := ClassifyExpiry(expiresToday, afternoon); got != StatusExpiringSoon {
		t.Errorf("ClassifyExpiry(today at 17:45) = %q, want expiring_soon", got)
	}
}

func TestDaysUntil(t *testing.T) {
	today := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	if d := DaysUntil(time.Date(2026, 9, 5, 23, 0, 0, 0, time.UTC), today); d != 5 {
		t.Errorf("DaysUntil = %d, want 5", d)
	}
	if d := DaysUntil(time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), today); d != -1 {
		t.Errorf("DaysUntil = %d, want -1", d)
	}
}
