package chef

import (
	"strings"
	"testing"
	"time"

	"smart-kitchen/internal/pkg/common"
)

func sampleRequest(today time.Time) *GenerationRequest {
	milk := common.InventoryItem{Name: "Milk", Quantity: 1, Unit: "L", ExpiresOn: today.AddDate(0, 0, 2)}
	eggs := common.InventoryItem{Name: "Eggs", Quantity: 6, Unit: "pcs", ExpiresOn: today.AddDate(0, 0, 5)}
	rice := common.InventoryItem{Name: "Rice", Quantity: 2, Unit: "kg", ExpiresOn: today.AddDate(0, 0, 90)}
	return &GenerationRequest{
		UserID: 42,
		Expiring: []ContextItem{
			{InventoryItem: milk, DaysLeft: 2},
			{InventoryItem: eggs, DaysLeft: 5},
		},
		Others:      []ContextItem{{InventoryItem: rice, DaysLeft: 90}},
		Preferences: map[string]string{"diet": "vegetarian", "cuisine": "italian"},
		Today:       today,
	}
}

func TestBuildRecipePromptDeterministic(t *testing.T) {
	today := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	b := NewPromptBuilder()

	first := b.BuildRecipePrompt(sampleRequest(today), 3)
	for i := 0; i < 20; i++ {
		if got := b.BuildRecipePrompt(sampleRequest(today), 3); got != first {
			t.Fatal("prompt is not deterministic across identical requests")
		}
	}
}

func TestBuildRecipePromptContent(t *testing.T) {
	today := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	prompt := NewPromptBuilder().BuildRecipePrompt(sampleRequest(today), 3)

	for _, want := range []string{"Milk", "Eggs", "Rice", "PRIORITY", "diet: vegetarian", "cuisine: italian", "difficulty", "easy | medium | hard", "JSON array"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	// 即期段落需在一般段落之前
	if strings.Index(prompt, "Milk") > strings.Index(prompt, "Rice") {
		t.Error("expiring ingredients should appear before other ingredients")
	}
	// 偏好以鍵名排序，輸出可重現
	if strings.Index(prompt, "cuisine:") > strings.Index(prompt, "diet:") {
		t.Error("preferences should be sorted by key")
	}
}

func TestBuildBillPrompt(t *testing.T) {
	prompt := NewPromptBuilder().BuildBillPrompt("2026-08-31")
	for _, want := range []string{"2026-08-31", "expires_on", "Dairy", "JSON array"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("bill prompt missing %q", want)
		}
	}
}

func TestWithCorrection(t *testing.T) {
	b := NewPromptBuilder()
	base := b.BuildBillPrompt("2026-08-31")
	corrected := b.WithCorrection(base)
	if !strings.HasPrefix(corrected, base) {
		t.Error("corrective prompt should extend the original prompt")
	}
	if !strings.Contains(corrected, "valid JSON") {
		t.Error("corrective prompt should demand valid JSON")
	}
}
