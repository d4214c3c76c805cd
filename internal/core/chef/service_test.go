package chef

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"smart-kitchen/internal/core/ai/gemini"
	aiservice "smart-kitchen/internal/core/ai/service"
	"smart-kitchen/internal/core/image"
	"smart-kitchen/internal/core/inventory"
	"smart-kitchen/internal/infrastructure/config"
	"smart-kitchen/internal/pkg/common"
)

// mockInvoker 依序回傳預先準備的回應或錯誤
type mockInvoker struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (m *mockInvoker) Generate(ctx context.Context, prompt string, images []gemini.ImageInput) (string, error) {
	i := m.calls
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return "", errors.New("unexpected call")
}

func testService(t *testing.T, invoker *mockInvoker) (*Service, inventory.Store) {
	t.Helper()
	cfg := &config.Config{}
	store := inventory.NewMemoryStore()
	ai := aiservice.NewService(cfg, invoker, nil)
	return NewService(ai, image.NewService(10<<20), store), store
}

func seedPantry(t *testing.T, store inventory.Store, userID int64) {
	t.Helper()
	today := time.Now()
	for _, item := range []common.InventoryItem{
		{UserID: userID, Name: "Milk", Quantity: 1, Unit: "L", Category: "Dairy", ExpiresOn: today.AddDate(0, 0, 2)},
		{UserID: userID, Name: "Eggs", Quantity: 6, Unit: "pcs", Category: "Dairy", ExpiresOn: today.AddDate(0, 0, 5)},
	} {
		if _, err := store.AddGrocery(context.Background(), item); err != nil {
			t.Fatalf("AddGrocery: %v", err)
		}
	}
}

func TestGenerateRecipesEndToEnd(t *testing.T) {
	invoker := &mockInvoker{responses: []string{validRecipeJSON}}
	svc, store := testService(t, invoker)
	seedPantry(t, store, 42)

	result, err := svc.GenerateRecipes(context.Background(), 42, map[string]string{"diet": "vegetarian"}, 3)
	if err != nil {
		t.Fatalf("GenerateRecipes: %v", err)
	}
	if len(result.Candidates) != 1 || result.Dropped != 0 {
		t.Fatalf("candidates = %d dropped = %d", len(result.Candidates), result.Dropped)
	}

	// 提示詞需包含兩項食材且 Milk（較早到期）在前，偏好也需進入提示詞
	prompt := invoker.prompts[0]
	milkIdx := strings.Index(prompt, "Milk")
	eggsIdx := strings.Index(prompt, "Eggs")
	if milkIdx < 0 || eggsIdx < 0 || milkIdx > eggsIdx {
		t.Errorf("prompt should list Milk before Eggs")
	}
	if strings.Index(prompt, "diet: vegetarian") < 0 {
		t.Errorf("prompt missing preference")
	}

	// 儲存選定食譜後，使用者 42 恰有一筆紀錄
	id, err := svc.SaveRecipe(context.Background(), 42, result.Candidates[0])
	if err != nil {
		t.Fatalf("SaveRecipe: %v", err)
	}
	if id == 0 {
		t.Error("expected non-empty record id")
	}
	saved, err := store.ListRecipes(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListRecipes: %v", err)
	}
	if len(saved) != 1 {
		t.Errorf("saved recipes = %d, want 1", len(saved))
	}
}

func TestGenerateRecipesEmptyPantry(t *testing.T) {
	invoker := &mockInvoker{}
	svc, _ := testService(t, invoker)

	_, err := svc.GenerateRecipes(context.Background(), 7, nil, 3)
	if !errors.Is(err, ErrEmptyPantry) {
		t.Errorf("error = %v, want ErrEmptyPantry", err)
	}
	if invoker.calls != 0 {
		t.Errorf("model should not be called with empty pantry")
	}
}

func TestGenerateRecipesCorrectiveRetry(t *testing.T) {
	// 第一次回傳非 JSON，第二次（修正提示詞）回傳合法 JSON
	invoker := &mockInvoker{responses: []string{"Sure! Here are your recipes:", validRecipeJSON}}
	svc, store := testService(t, invoker)
	seedPantry(t, store, 1)

	result, err := svc.GenerateRecipes(context.Background(), 1, nil, 3)
	if err != nil {
		t.Fatalf("GenerateRecipes: %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Errorf("candidates = %d, want 1", len(result.Candidates))
	}
	if invoker.calls != 2 {
		t.Fatalf("calls = %d, want 2", invoker.calls)
	}
	if strings.Index(invoker.prompts[1], "valid JSON") < 0 {
		t.Error("second attempt should carry the corrective instruction")
	}
}

func TestGenerateRecipesMalformedTwice(t *testing.T) {
	// 修正重試僅一次，仍失敗時回報 MalformedResponse
	invoker := &mockInvoker{responses: []string{"not json", "still not json"}}
	svc, store := testService(t, invoker)
	seedPantry(t, store, 1)

	_, err := svc.GenerateRecipes(context.Background(), 1, nil, 3)
	if !errors.Is(err, common.ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
	if invoker.calls != 2 {
		t.Errorf("calls = %d, want exactly 2", invoker.calls)
	}
}

func TestGenerateRecipesTransportRetry(t *testing.T) {
	invoker := &mockInvoker{
		errs:      []error{common.ErrModelUnreachable, nil},
		responses: []string{"", validRecipeJSON},
	}
	svc, store := testService(t, invoker)
	seedPantry(t, store, 1)

	if _, err := svc.GenerateRecipes(context.Background(), 1, nil, 3); err != nil {
		t.Fatalf("GenerateRecipes after transport retry: %v", err)
	}
	if invoker.calls != 2 {
		t.Errorf("calls = %d, want 2", invoker.calls)
	}
}

func TestGenerateRecipesNoRetryOnRefusal(t *testing.T) {
	for _, sentinel := range []error{common.ErrModelRefused, common.ErrRateLimited} {
		invoker := &mockInvoker{errs: []error{sentinel}}
		svc, store := testService(t, invoker)
		seedPantry(t, store, 1)

		_, err := svc.GenerateRecipes(context.Background(), 1, nil, 3)
		if !errors.Is(err, sentinel) {
			t.Errorf("error = %v, want %v", err, sentinel)
		}
		if invoker.calls != 1 {
			t.Errorf("calls = %d, want 1 (no retry on %v)", invoker.calls, sentinel)
		}
	}
}

func TestSaveBillItemsAllOrNothing(t *testing.T) {
	invoker := &mockInvoker{}
	svc, store := testService(t, invoker)

	items := []common.BillLineItem{
		{Name: "Milk", Quantity: 1},
		{Name: "", Quantity: 2}, // 無效品項使整批失敗
	}
	if _, err := svc.SaveBillItems(context.Background(), 9, items); err == nil {
		t.Fatal("expected batch rejection")
	}
	groceries, err := store.ListGroceries(context.Background(), 9, "")
	if err != nil {
		t.Fatalf("ListGroceries: %v", err)
	}
	if len(groceries) != 0 {
		t.Errorf("no items should persist after failed batch, got %d", len(groceries))
	}
}

func TestExpiryWarnings(t *testing.T) {
	invoker := &mockInvoker{}
	svc, store := testService(t, invoker)
	today := time.Now()
	for _, item := range []common.InventoryItem{
		{UserID: 5, Name: "Yogurt", Quantity: 1, ExpiresOn: today.AddDate(0, 0, -1)},
		{UserID: 5, Name: "Milk", Quantity: 1, ExpiresOn: today.AddDate(0, 0, 3)},
		{UserID: 5, Name: "Rice", Quantity: 1, ExpiresOn: today.AddDate(0, 0, 60)},
	} {
		if _, err := store.AddGrocery(context.Background(), item); err != nil {
			t.Fatalf("AddGrocery: %v", err)
		}
	}

	warnings, err := svc.ExpiryWarnings(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("ExpiryWarnings: %v", err)
	}
	if len(warnings.Expired) != 1 || warnings.Expired[0].Name != "Yogurt" {
		t.Errorf("expired = %+v", warnings.Expired)
	}
	if len(warnings.ExpiringSoon) != 1 || warnings.ExpiringSoon[0].Name != "Milk" {
		t.Errorf("expiring soon = %+v", warnings.ExpiringSoon)
	}
}

