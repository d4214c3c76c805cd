package chef

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"smart-kitchen/internal/pkg/common"

	"go.uber.org/zap"
)

// rawRecipe 模型輸出的寬鬆食譜結構，欄位型別於驗證時收斂
type rawRecipe struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Ingredients  []rawIngredient `json:"ingredients"`
	Steps        []string        `json:"steps"`
	PrepTime     string          `json:"prep_time"`
	Difficulty   string          `json:"difficulty"`
	Macros       rawMacros       `json:"macros"`
	UsesExpiring bool            `json:"uses_expiring"`
}

type rawIngredient struct {
	Name     string      `json:"name"`
	Quantity interface{} `json:"quantity"`
}

// rawMacros 營養素欄位，模型偶爾回傳 "20g" 之類的字串，保留原值後再轉型
type rawMacros struct {
	Calories interface{} `json:"calories"`
	Protein  interface{} `json:"protein"`
	Carbs    interface{} `json:"carbs"`
	Fat      interface{} `json:"fat"`
}

type rawBillItem struct {
	Name           string      `json:"name"`
	Quantity       interface{} `json:"quantity"`
	Unit           string      `json:"unit"`
	Category       string      `json:"category"`
	ManufacturedOn *string     `json:"manufactured_on"`
	ExpiresOn      *string     `json:"expires_on"`
}

// Validator 模型回應驗證器。JSON 解析失敗回報 MalformedResponse；
// 結構合法但逐筆驗證全數失敗時回報 SchemaViolation 並指出第一個違規欄位。
// 部分成功時丟棄無效條目並回報丟棄數量。
type Validator struct{}

// NewValidator 創建驗證器
func NewValidator() *Validator {
	return &Validator{}
}

// ParseRecipeCandidates 解析並驗證食譜陣列
func (v *Validator) ParseRecipeCandidates(raw string) ([]common.RecipeCandidate, int, error) {
	cleaned := common.StripCodeFence(raw)

	var entries []json.RawMessage
	if err := common.ParseJSON(cleaned, &entries); err != nil {
		// 合法 JSON 但頂層不是陣列屬結構違規，非格式錯誤
		if json.Valid([]byte(cleaned)) {
			return nil, 0, common.NewSchemaViolation("$", "expected a JSON array")
		}
		return nil, 0, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	if len(entries) == 0 {
		return nil, 0, common.NewSchemaViolation("$", "empty recipe array")
	}

	var candidates []common.RecipeCandidate
	var firstViolation error
	dropped := 0
	for i, entry := range entries {
		cand, err := validateRecipe(entry, i)
		if err != nil {
			if firstViolation == nil {
				firstViolation = err
			}
			dropped++
			common.LogWarn("丟棄無效的食譜條目",
				zap.Int("index", i),
				zap.String("reason", err.Error()),
			)
			continue
		}
		candidates = append(candidates, cand)
	}

	if len(candidates) == 0 {
		return nil, dropped, firstViolation
	}
	return candidates, dropped, nil
}

// ParseBillItems 解析並驗證帳單品項陣列
func (v *Validator) ParseBillItems(raw string) ([]common.BillLineItem, int, error) {
	cleaned := common.StripCodeFence(raw)

	var entries []json.RawMessage
	if err := common.ParseJSON(cleaned, &entries); err != nil {
		// 合法 JSON 但頂層不是陣列屬結構違規，非格式錯誤
		if json.Valid([]byte(cleaned)) {
			return nil, 0, common.NewSchemaViolation("$", "expected a JSON array")
		}
		return nil, 0, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	if len(entries) == 0 {
		return nil, 0, common.NewSchemaViolation("$", "no line items extracted")
	}

	var items []common.BillLineItem
	var firstViolation error
	dropped := 0
	for i, entry := range entries {
		item, err := validateBillItem(entry, i)
		if err != nil {
			if firstViolation == nil {
				firstViolation = err
			}
			dropped++
			common.LogWarn("丟棄無效的帳單品項",
				zap.Int("index", i),
				zap.String("reason", err.Error()),
			)
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, dropped, firstViolation
	}
	return items, dropped, nil
}

// validateRecipe 驗證單筆食譜，回傳第一個違規欄位
func validateRecipe(entry json.RawMessage, index int) (common.RecipeCandidate, error) {
	field := func(name string) string {
		return fmt.Sprintf("$[%d].%s", index, name)
	}

	var r rawRecipe
	if err := common.ParseJSONBytes(entry, &r); err != nil {
		return common.RecipeCandidate{}, common.NewSchemaViolation(fmt.Sprintf("$[%d]", index), "not an object")
	}

	if strings.TrimSpace(r.Name) == "" {
		return common.RecipeCandidate{}, common.NewSchemaViolation(field("name"), "required")
	}
	if len(r.Ingredients) == 0 {
		return common.RecipeCandidate{}, common.NewSchemaViolation(field("ingredients"), "required")
	}
	if len(r.Steps) == 0 {
		return common.RecipeCandidate{}, common.NewSchemaViolation(field("steps"), "required")
	}
	if strings.TrimSpace(r.PrepTime) == "" {
		return common.RecipeCandidate{}, common.NewSchemaViolation(field("prep_time"), "required")
	}

	// difficulty 僅接受列舉值，未知值直接拒絕而非套用預設
	difficulty, ok := common.ParseDifficulty(r.Difficulty)
	if !ok {
		return common.RecipeCandidate{}, common.NewSchemaViolation(field("difficulty"),
			fmt.Sprintf("unrecognized value %q", r.Difficulty))
	}

	ingredients := make([]common.RecipeIngredient, 0, len(r.Ingredients))
	for j, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return common.RecipeCandidate{}, common.NewSchemaViolation(
				fmt.Sprintf("$[%d].ingredients[%d].name", index, j), "required")
		}
		ingredients = append(ingredients, common.RecipeIngredient{
			Name:     ing.Name,
			Quantity: coerceString(ing.Quantity),
		})
	}

	macros := common.Macros{}
	for _, m := range []struct {
		name string
		raw  interface{}
		out  *float64
	}{
		{"macros.calories", r.Macros.Calories, &macros.Calories},
		{"macros.protein", r.Macros.Protein, &macros.Protein},
		{"macros.carbs", r.Macros.Carbs, &macros.Carbs},
		{"macros.fat", r.Macros.Fat, &macros.Fat},
	} {
		value, err := coerceNumber(m.raw)
		if err != nil {
			return common.RecipeCandidate{}, common.NewSchemaViolation(field(m.name), err.Error())
		}
		*m.out = value
	}

	return common.RecipeCandidate{
		Name:         r.Name,
		Description:  r.Description,
		Ingredients:  ingredients,
		Steps:        r.Steps,
		PrepTime:     r.PrepTime,
		Difficulty:   difficulty,
		Macros:       macros,
		UsesExpiring: r.UsesExpiring,
	}, nil
}

// validateBillItem 驗證單筆帳單品項
func validateBillItem(entry json.RawMessage, index int) (common.BillLineItem, error) {
	field := func(name string) string {
		return fmt.Sprintf("$[%d].%s", index, name)
	}

	var r rawBillItem
	if err := common.ParseJSONBytes(entry, &r); err != nil {
		return common.BillLineItem{}, common.NewSchemaViolation(fmt.Sprintf("$[%d]", index), "not an object")
	}

	if strings.TrimSpace(r.Name) == "" {
		return common.BillLineItem{}, common.NewSchemaViolation(field("name"), "required")
	}

	// 收據上數量常缺漏，未提供時以 1 計
	quantity := 1.0
	if r.Quantity != nil {
		var err error
		quantity, err = coerceNumber(r.Quantity)
		if err != nil {
			return common.BillLineItem{}, common.NewSchemaViolation(field("quantity"), err.Error())
		}
		if quantity < 0 {
			return common.BillLineItem{}, common.NewSchemaViolation(field("quantity"), "must not be negative")
		}
	}

	manufacturedOn, err := coerceDate(r.ManufacturedOn)
	if err != nil {
		return common.BillLineItem{}, common.NewSchemaViolation(field("manufactured_on"), err.Error())
	}
	expiresOn, err := coerceDate(r.ExpiresOn)
	if err != nil {
		return common.BillLineItem{}, common.NewSchemaViolation(field("expires_on"), err.Error())
	}

	return common.BillLineItem{
		Name:           r.Name,
		Quantity:       quantity,
		Unit:           r.Unit,
		Category:       r.Category,
		ManufacturedOn: manufacturedOn,
		ExpiresOn:      expiresOn,
	}, nil
}

// coerceNumber 轉換數值欄位，"20g" 之類帶單位的字串取其數字部分
func coerceNumber(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("required")
	case float64:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %v", v)
		}
		return f, nil
	case string:
		trimmed := strings.TrimSpace(v)
		end := 0
		for end < len(trimmed) && (trimmed[end] == '-' || trimmed[end] == '.' || (trimmed[end] >= '0' && trimmed[end] <= '9')) {
			end++
		}
		if end == 0 {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		f, err := strconv.ParseFloat(trimmed[:end], 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %v", raw)
	}
}

// coerceString 數量欄位可能是字串或數字，統一為字串
func coerceString(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// coerceDate 解析 ISO 日期，null 與空字串視為未提供
func coerceDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" || strings.EqualFold(s, "null") {
		return nil, nil
	}
	t, err := time.Parse(common.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return &t, nil
}
