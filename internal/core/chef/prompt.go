package chef

import (
	"fmt"
	"sort"
	"strings"

	"smart-kitchen/internal/pkg/common"
)

// recipeSchema 食譜輸出的 JSON 結構描述，difficulty 僅接受三個列舉值
const recipeSchema = `[
  {
    "name": "string",
    "description": "string",
    "ingredients": [{"name": "string", "quantity": "string"}],
    "steps": ["string"],
    "prep_time": "string",
    "difficulty": "easy | medium | hard",
    "macros": {"calories": number, "protein": number, "carbs": number, "fat": number},
    "uses_expiring": boolean
  }
]`

// billSchema 帳單擷取輸出的 JSON 結構描述，日期為 ISO 格式或 null
const billSchema = `[
  {
    "name": "string",
    "quantity": number,
    "unit": "string",
    "category": "string",
    "manufactured_on": "YYYY-MM-DD or null",
    "expires_on": "YYYY-MM-DD or null"
  }
]`

// correctiveSuffix 修正性重試時附加的指令
const correctiveSuffix = "\n\nIMPORTANT: Your previous reply was not valid JSON. " +
	"Return ONLY a valid JSON array matching the schema above. " +
	"No markdown, no code fences, no commentary."

// PromptBuilder 提示詞建構器。輸出為純函數：相同請求必得相同提示詞。
type PromptBuilder struct{}

// NewPromptBuilder 創建提示詞建構器
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildRecipePrompt 建構食譜生成提示詞，即期食材列於優先段落
func (b *PromptBuilder) BuildRecipePrompt(req *GenerationRequest, count int) string {
	if count <= 0 {
		count = 3
	}

	var sb strings.Builder
	sb.WriteString("You are a professional chef helping a household reduce food waste.\n\n")

	if len(req.Expiring) > 0 {
		sb.WriteString("PRIORITY ingredients (expiring soon, use these first):\n")
		for _, item := range req.Expiring {
			sb.WriteString(common.FormatInventoryItem(item.InventoryItem, req.Today))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if len(req.Others) > 0 {
		sb.WriteString("OTHER available ingredients:\n")
		for _, item := range req.Others {
			sb.WriteString(common.FormatInventoryItem(item.InventoryItem, req.Today))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	writePreferences(&sb, req.Preferences)

	fmt.Fprintf(&sb, "Suggest %d recipes that maximize use of the PRIORITY ingredients. ", count)
	sb.WriteString("Do not assume any ingredient that is not listed, except basic pantry staples (salt, pepper, oil, water).\n\n")
	sb.WriteString("Respond with ONLY a JSON array matching this schema:\n")
	sb.WriteString(recipeSchema)
	sb.WriteString("\nSet \"uses_expiring\" to true when the recipe uses at least one PRIORITY ingredient. No text outside the JSON array.")
	return sb.String()
}

// BuildBillPrompt 建構帳單/收據擷取提示詞
func (b *PromptBuilder) BuildBillPrompt(today string) string {
	var sb strings.Builder
	sb.WriteString("You are a grocery receipt analyzer. ")
	sb.WriteString("Extract every food line item from the attached receipt or bill image.\n\n")
	sb.WriteString("Allowed categories: ")
	sb.WriteString(strings.Join(common.GroceryCategories, ", "))
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Today's date is %s. ", today)
	sb.WriteString("Estimate expires_on from the product type when the receipt does not state it; use null when no reasonable estimate exists.\n\n")
	sb.WriteString("Respond with ONLY a JSON array matching this schema:\n")
	sb.WriteString(billSchema)
	sb.WriteString("\nSkip non-food items. No text outside the JSON array.")
	return sb.String()
}

// BuildFoodAnalysisPrompt 建構食物照片分析提示詞，輸出為 Markdown
func (b *PromptBuilder) BuildFoodAnalysisPrompt() string {
	var sb strings.Builder
	sb.WriteString("Identify the dish in the attached photo and analyze it.\n\n")
	sb.WriteString("Respond in Markdown with exactly these sections:\n")
	sb.WriteString("## Dish\nThe most likely name of the dish.\n\n")
	sb.WriteString("## Ingredients\nBulleted list of visible or typical ingredients.\n\n")
	sb.WriteString("## Nutrition (per serving, estimated)\nCalories, protein, carbs and fat.\n\n")
	sb.WriteString("## Preparation\nNumbered steps to prepare a similar dish at home.")
	return sb.String()
}

// BuildRefinePrompt 建構食譜調整提示詞，基於既有食譜與使用者指示
func (b *PromptBuilder) BuildRefinePrompt(recipeJSON, instruction string) string {
	var sb strings.Builder
	sb.WriteString("Here is an existing recipe as JSON:\n")
	sb.WriteString(recipeJSON)
	sb.WriteString("\n\nAdjust it according to this instruction: ")
	sb.WriteString(instruction)
	sb.WriteString("\n\nRespond with ONLY a JSON array containing the single adjusted recipe, matching this schema:\n")
	sb.WriteString(recipeSchema)
	sb.WriteString("\nNo text outside the JSON array.")
	return sb.String()
}

// WithCorrection 為修正性重試附加嚴格 JSON 指令
func (b *PromptBuilder) WithCorrection(prompt string) string {
	return prompt + correctiveSuffix
}

// writePreferences 以固定順序寫入使用者偏好，維持輸出可重現
func writePreferences(sb *strings.Builder, prefs map[string]string) {
	if len(prefs) == 0 {
		return
	}
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("Constraints from the user:\n")
	for _, k := range keys {
		fmt.Fprintf(sb, "- %s: %s\n", k, prefs[k])
	}
	sb.WriteString("\n")
}
