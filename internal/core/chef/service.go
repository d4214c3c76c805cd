package chef

import (
	"context"
	"errors"
	"net/http"
	"time"

	"smart-kitchen/internal/core/ai/gemini"
	aiservice "smart-kitchen/internal/core/ai/service"
	"smart-kitchen/internal/core/image"
	"smart-kitchen/internal/core/inventory"
	"smart-kitchen/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrEmptyPantry 庫存為空時無法生成食譜
var ErrEmptyPantry = common.NewError(common.ErrCodeInvalidRequest, "庫存中沒有食材", http.StatusBadRequest, nil)

// Service 食譜管線服務，串接收集、提示詞建構、模型呼叫與驗證。
// 每次請求為獨立的短生命週期流程，除儲存層外不共享狀態。
type Service struct {
	collector *Collector
	builder   *PromptBuilder
	validator *Validator
	ai        *aiservice.Service
	imageSvc  *image.Service
	store     inventory.Store
}

// GenerateResult 食譜生成結果，Dropped 為驗證時丟棄的無效條目數
type GenerateResult struct {
	Candidates []common.RecipeCandidate `json:"recipes"`
	Dropped    int                      `json:"dropped"`
}

// ExtractResult 帳單擷取結果
type ExtractResult struct {
	Items   []common.BillLineItem `json:"items"`
	Dropped int                   `json:"dropped"`
}

// NewService 創建食譜管線服務
func NewService(ai *aiservice.Service, imageSvc *image.Service, store inventory.Store) *Service {
	return &Service{
		collector: NewCollector(store),
		builder:   NewPromptBuilder(),
		validator: NewValidator(),
		ai:        ai,
		imageSvc:  imageSvc,
		store:     store,
	}
}

// GenerateRecipes 依目前庫存與偏好生成食譜建議
func (s *Service) GenerateRecipes(ctx context.Context, userID int64, preferences map[string]string, count int) (*GenerateResult, error) {
	today := time.Now()
	req, err := s.collector.Collect(ctx, userID, preferences, today)
	if err != nil {
		return nil, err
	}
	if len(req.Expiring) == 0 && len(req.Others) == 0 {
		return nil, ErrEmptyPantry
	}

	prompt := s.builder.BuildRecipePrompt(req, count)
	candidates, dropped, err := parseWithCorrection(ctx, s, prompt, nil, s.validator.ParseRecipeCandidates)
	if err != nil {
		return nil, err
	}

	common.LogInfo("食譜生成完成",
		zap.Int64("user_id", userID),
		zap.Int("recipe_count", len(candidates)),
		zap.Int("dropped", dropped),
		zap.Int("expiring_count", len(req.Expiring)),
	)
	return &GenerateResult{Candidates: candidates, Dropped: dropped}, nil
}

// ExtractBill 從帳單或收據圖片擷取品項清單，不直接入庫
func (s *Service) ExtractBill(ctx context.Context, userID int64, imageData string) (*ExtractResult, error) {
	processed, err := s.imageSvc.Process(imageData)
	if err != nil {
		return nil, common.NewError(common.ErrCodeInvalidRequest, "無法處理圖片", http.StatusBadRequest, err)
	}

	prompt := s.builder.BuildBillPrompt(time.Now().Format(common.DateLayout))
	images := []gemini.ImageInput{{MimeType: processed.MimeType, Base64: processed.Base64}}
	items, dropped, err := parseWithCorrection(ctx, s, prompt, images, s.validator.ParseBillItems)
	if err != nil {
		return nil, err
	}

	common.LogInfo("帳單擷取完成",
		zap.Int64("user_id", userID),
		zap.Int("item_count", len(items)),
		zap.Int("dropped", dropped),
	)
	return &ExtractResult{Items: items, Dropped: dropped}, nil
}

// SaveBillItems 將確認後的品項整批入庫，全有或全無
func (s *Service) SaveBillItems(ctx context.Context, userID int64, items []common.BillLineItem) ([]int64, error) {
	ids, err := s.store.AddGroceryBatch(ctx, userID, items, time.Now())
	if err != nil {
		if errors.Is(err, common.ErrDataUnavailable) {
			return nil, err
		}
		return nil, common.NewError(common.ErrCodeInvalidRequest, "無效的品項清單", http.StatusBadRequest, err)
	}
	return ids, nil
}

// AnalyzeFood 分析食物照片，回傳 Markdown 格式的分析內容
func (s *Service) AnalyzeFood(ctx context.Context, imageData string) (string, error) {
	processed, err := s.imageSvc.Process(imageData)
	if err != nil {
		return "", common.NewError(common.ErrCodeInvalidRequest, "無法處理圖片", http.StatusBadRequest, err)
	}

	prompt := s.builder.BuildFoodAnalysisPrompt()
	content, err := s.invoke(ctx, prompt, []gemini.ImageInput{{MimeType: processed.MimeType, Base64: processed.Base64}})
	if err != nil {
		return "", err
	}
	return content, nil
}

// RefineRecipe 依使用者指示調整既有食譜
func (s *Service) RefineRecipe(ctx context.Context, recipe common.RecipeCandidate, instruction string) (*common.RecipeCandidate, error) {
	recipeJSON, err := common.ToJSON(recipe)
	if err != nil {
		return nil, err
	}

	prompt := s.builder.BuildRefinePrompt(recipeJSON, instruction)
	candidates, _, err := parseWithCorrection(ctx, s, prompt, nil, s.validator.ParseRecipeCandidates)
	if err != nil {
		return nil, err
	}
	return &candidates[0], nil
}

// SaveRecipe 儲存使用者選定的食譜，重複儲存產生重複記錄屬預期行為
func (s *Service) SaveRecipe(ctx context.Context, userID int64, candidate common.RecipeCandidate) (int64, error) {
	id, err := s.store.SaveRecipe(ctx, userID, candidate)
	if err != nil {
		return 0, storeUnavailable(err)
	}
	common.LogInfo("食譜已儲存",
		zap.Int64("user_id", userID),
		zap.Int64("recipe_id", id),
	)
	return id, nil
}

// ExpiryWarnings 回傳即將到期與已過期的食材，供首頁警示使用
func (s *Service) ExpiryWarnings(ctx context.Context, userID int64, threshold int) (*common.ExpiryWarnings, error) {
	today := time.Now()
	items, err := s.store.ListGroceries(ctx, userID, "")
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if threshold <= 0 {
		threshold = common.ExpiringSoonWindowDays
	}

	warnings := &common.ExpiryWarnings{}
	for _, item := range items {
		days := common.DaysUntil(item.ExpiresOn, today)
		switch {
		case days < 0:
			warnings.Expired = append(warnings.Expired, item)
		case days <= threshold:
			warnings.ExpiringSoon = append(warnings.ExpiringSoon, item)
		}
	}
	warnings.ExpiredCount = len(warnings.Expired)
	warnings.ExpiringSoonCount = len(warnings.ExpiringSoon)
	return warnings, nil
}

// invoke 呼叫模型並套用傳輸層重試：連線失敗或逾時重試一次，
// 模型拒絕與頻率限制不重試
func (s *Service) invoke(ctx context.Context, prompt string, images []gemini.ImageInput) (string, error) {
	content, err := s.ai.Generate(ctx, prompt, images)
	if err == nil {
		return content, nil
	}
	if errors.Is(err, common.ErrModelUnreachable) || errors.Is(err, common.ErrModelTimeout) {
		common.LogWarn("模型呼叫失敗，重試一次", zap.Error(err))
		return s.ai.Generate(ctx, prompt, images)
	}
	return "", err
}

// parseWithCorrection 呼叫模型並驗證輸出，輸出非合法 JSON 時
// 以修正提示詞重試一次
func parseWithCorrection[T any](ctx context.Context, s *Service, prompt string, images []gemini.ImageInput, parse func(string) ([]T, int, error)) ([]T, int, error) {
	content, err := s.invoke(ctx, prompt, images)
	if err != nil {
		return nil, 0, err
	}

	results, dropped, err := parse(content)
	if err == nil {
		return results, dropped, nil
	}
	if !errors.Is(err, common.ErrMalformedResponse) {
		return nil, dropped, err
	}

	common.LogWarn("模型輸出非合法 JSON，發送修正提示詞重試")
	content, err = s.invoke(ctx, s.builder.WithCorrection(prompt), images)
	if err != nil {
		return nil, 0, err
	}
	return parse(content)
}
