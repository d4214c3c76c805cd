package chef

import (
	"errors"
	"reflect"
	"testing"

	"smart-kitchen/internal/pkg/common"
)

const validRecipeJSON = `[
  {
    "name": "Veggie Omelette",
    "description": "Quick omelette with expiring milk and eggs.",
    "ingredients": [{"name": "Eggs", "quantity": "3"}, {"name": "Milk", "quantity": "50ml"}],
    "steps": ["Whisk eggs with milk.", "Cook in a pan."],
    "prep_time": "10 minutes",
    "difficulty": "easy",
    "macros": {"calories": 320, "protein": 21, "carbs": 4, "fat": 24},
    "uses_expiring": true
  }
]`

func TestParseRecipeCandidatesValid(t *testing.T) {
	v := NewValidator()
	candidates, dropped, err := v.ParseRecipeCandidates(validRecipeJSON)
	if err != nil {
		t.Fatalf("ParseRecipeCandidates: %v", err)
	}
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if len(candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Name != "Veggie Omelette" {
		t.Errorf("name = %q", c.Name)
	}
	if c.Difficulty != common.DifficultyEasy {
		t.Errorf("difficulty = %q, want easy", c.Difficulty)
	}
	if c.Macros.Calories != 320 {
		t.Errorf("calories = %v, want 320", c.Macros.Calories)
	}
	if !c.UsesExpiring {
		t.Error("uses_expiring = false, want true")
	}
}

func TestParseRecipeCandidatesRoundTrip(t *testing.T) {
	// 合法候選序列化後再驗證，內容須完全一致
	original := common.RecipeCandidate{
		Name:        "Fried Rice",
		Description: "Uses leftover rice and expiring eggs.",
		Ingredients: []common.RecipeIngredient{
			{Name: "Rice", Quantity: "2 cups"},
			{Name: "Eggs", Quantity: "3"},
		},
		Steps:        []string{"Scramble the eggs.", "Stir-fry with rice."},
		PrepTime:     "20 minutes",
		Difficulty:   common.DifficultyMedium,
		Macros:       common.Macros{Calories: 520, Protein: 18, Carbs: 74, Fat: 16},
		UsesExpiring: true,
	}

	raw, err := common.ToJSON([]common.RecipeCandidate{original})
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	candidates, dropped, err := NewValidator().ParseRecipeCandidates(raw)
	if err != nil {
		t.Fatalf("ParseRecipeCandidates: %v", err)
	}
	if dropped != 0 || len(candidates) != 1 {
		t.Fatalf("candidates = %d dropped = %d", len(candidates), dropped)
	}
	if !reflect.DeepEqual(candidates[0], original) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", candidates[0], original)
	}
}

func TestParseRecipeCandidatesCodeFence(t *testing.T) {
	v := NewValidator()
	fenced := "```json\n" + validRecipeJSON + "\n```"
	candidates, _, err := v.ParseRecipeCandidates(fenced)
	if err != nil {
		t.Fatalf("ParseRecipeCandidates with fence: %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("len(candidates) = %d, want 1", len(candidates))
	}
}

func TestParseRecipeCandidatesMalformed(t *testing.T) {
	v := NewValidator()
	for _, raw := range []string{"{", "not json at all", `{"name": "truncated`} {
		_, _, err := v.ParseRecipeCandidates(raw)
		if !errors.Is(err, common.ErrMalformedResponse) {
			t.Errorf("ParseRecipeCandidates(%q) = %v, want ErrMalformedResponse", raw, err)
		}
	}
}

func TestParseRecipeCandidatesWrongShape(t *testing.T) {
	// 合法 JSON 但頂層不是陣列：結構違規，不可歸為格式錯誤
	v := NewValidator()
	_, _, err := v.ParseRecipeCandidates(`{"recipes": ` + validRecipeJSON + `}`)
	var sv *common.SchemaViolationError
	if !errors.As(err, &sv) {
		t.Fatalf("error = %v, want SchemaViolationError", err)
	}
	if sv.Field != "$" {
		t.Errorf("violating field = %q, want $", sv.Field)
	}
	if errors.Is(err, common.ErrMalformedResponse) {
		t.Error("top-level object must not be classified as malformed")
	}
}

func TestParseRecipeCandidatesPartialAcceptance(t *testing.T) {
	// 三筆中第二筆 difficulty 非列舉值，應丟棄該筆並保留其餘兩筆
	raw := `[
	  {"name": "A", "ingredients": [{"name": "x", "quantity": "1"}], "steps": ["s"], "prep_time": "5 min", "difficulty": "easy",
	   "macros": {"calories": 1, "protein": 1, "carbs": 1, "fat": 1}},
	  {"name": "B", "ingredients": [{"name": "x", "quantity": "1"}], "steps": ["s"], "prep_time": "5 min", "difficulty": "extreme",
	   "macros": {"calories": 1, "protein": 1, "carbs": 1, "fat": 1}},
	  {"name": "C", "ingredients": [{"name": "x", "quantity": "1"}], "steps": ["s"], "prep_time": "5 min", "difficulty": "HARD",
	   "macros": {"calories": 1, "protein": 1, "carbs": 1, "fat": 1}}
	]`
	v := NewValidator()
	candidates, dropped, err := v.ParseRecipeCandidates(raw)
	if err != nil {
		t.Fatalf("ParseRecipeCandidates: %v", err)
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}
	if candidates[0].Name != "A" || candidates[1].Name != "C" {
		t.Errorf("survivors = %q, %q, want A and C", candidates[0].Name, candidates[1].Name)
	}
	// 大小寫差異可接受，列舉值以小寫比對
	if candidates[1].Difficulty != common.DifficultyHard {
		t.Errorf("difficulty = %q, want hard", candidates[1].Difficulty)
	}
}

func TestParseRecipeCandidatesEmptyPrepTime(t *testing.T) {
	// prep_time 為必填欄位，空字串與缺漏皆應丟棄該筆
	raw := `[{"name": "A", "ingredients": [{"name": "x", "quantity": "1"}], "steps": ["s"],
	         "prep_time": "", "difficulty": "easy",
	         "macros": {"calories": 1, "protein": 1, "carbs": 1, "fat": 1}}]`
	v := NewValidator()
	_, dropped, err := v.ParseRecipeCandidates(raw)
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	var sv *common.SchemaViolationError
	if !errors.As(err, &sv) {
		t.Fatalf("error = %v, want SchemaViolationError", err)
	}
	if sv.Field != "$[0].prep_time" {
		t.Errorf("violating field = %q, want $[0].prep_time", sv.Field)
	}
}

func TestParseRecipeCandidatesAllInvalid(t *testing.T) {
	raw := `[{"name": "", "ingredients": [], "steps": [], "prep_time": "", "difficulty": "easy",
	         "macros": {"calories": 1, "protein": 1, "carbs": 1, "fat": 1}}]`
	v := NewValidator()
	_, dropped, err := v.ParseRecipeCandidates(raw)
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	var sv *common.SchemaViolationError
	if !errors.As(err, &sv) {
		t.Fatalf("error = %v, want SchemaViolationError", err)
	}
	if sv.Field != "$[0].name" {
		t.Errorf("violating field = %q, want $[0].name", sv.Field)
	}
}

func TestParseRecipeCandidatesMacroCoercion(t *testing.T) {
	// 模型偶爾以 "20g" 回傳營養素，取數字部分
	raw := `[{"name": "A", "ingredients": [{"name": "x", "quantity": 2}], "steps": ["s"], "prep_time": "15 min", "difficulty": "medium",
	         "macros": {"calories": "250", "protein": "20g", "carbs": 30, "fat": "10.5 g"}}]`
	v := NewValidator()
	candidates, _, err := v.ParseRecipeCandidates(raw)
	if err != nil {
		t.Fatalf("ParseRecipeCandidates: %v", err)
	}
	m := candidates[0].Macros
	if m.Calories != 250 || m.Protein != 20 || m.Carbs != 30 || m.Fat != 10.5 {
		t.Errorf("macros = %+v", m)
	}
	if candidates[0].Ingredients[0].Quantity != "2" {
		t.Errorf("quantity = %q, want \"2\"", candidates[0].Ingredients[0].Quantity)
	}
}

func TestParseBillItems(t *testing.T) {
	raw := `[
	  {"name": "Milk", "quantity": 2, "unit": "L", "category": "Dairy",
	   "manufactured_on": "2026-08-28", "expires_on": "2026-09-05"},
	  {"name": "Bread", "quantity": "1", "unit": "loaf", "category": "Grains",
	   "manufactured_on": null, "expires_on": null}
	]`
	v := NewValidator()
	items, dropped, err := v.ParseBillItems(raw)
	if err != nil {
		t.Fatalf("ParseBillItems: %v", err)
	}
	if dropped != 0 || len(items) != 2 {
		t.Fatalf("items = %d dropped = %d", len(items), dropped)
	}
	if items[0].ExpiresOn == nil || items[0].ExpiresOn.Format(common.DateLayout) != "2026-09-05" {
		t.Errorf("expires_on = %v", items[0].ExpiresOn)
	}
	if items[1].ManufacturedOn != nil || items[1].ExpiresOn != nil {
		t.Errorf("null dates should stay nil: %+v", items[1])
	}
	if items[1].Quantity != 1 {
		t.Errorf("quantity = %v, want 1", items[1].Quantity)
	}
}

func TestParseBillItemsBadDate(t *testing.T) {
	raw := `[{"name": "Milk", "quantity": 1, "unit": "L", "category": "Dairy", "expires_on": "soon"}]`
	v := NewValidator()
	_, _, err := v.ParseBillItems(raw)
	var sv *common.SchemaViolationError
	if !errors.As(err, &sv) {
		t.Fatalf("error = %v, want SchemaViolationError", err)
	}
	if sv.Field != "$[0].expires_on" {
		t.Errorf("violating field = %q", sv.Field)
	}
}

func TestParseBillItemsEmptyArray(t *testing.T) {
	v := NewValidator()
	_, _, err := v.ParseBillItems("[]")
	if !common.IsSchemaViolation(err) {
		t.Errorf("error = %v, want schema violation", err)
	}
}
