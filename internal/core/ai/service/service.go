package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"smart-kitchen/internal/core/ai/cache"
	"smart-kitchen/internal/core/ai/gemini"
	"smart-kitchen/internal/infrastructure/config"
	"smart-kitchen/internal/pkg/common"

	"go.uber.org/zap"
)

// Invoker 模型呼叫介面
type Invoker interface {
	Generate(ctx context.Context, prompt string, images []gemini.ImageInput) (string, error)
}

// Service AI 服務，於模型呼叫外包一層快取與頻率控制
type Service struct {
	config      *config.Config
	invoker     Invoker
	cache       *cache.Manager
	mu          sync.Mutex
	lastRequest time.Time
}

// NewService 創建 AI 服務
func NewService(cfg *config.Config, invoker Invoker, cacheManager *cache.Manager) *Service {
	return &Service{
		config:  cfg,
		invoker: invoker,
		cache:   cacheManager,
	}
}

// Generate 產生模型回應，相同請求在 TTL 內由快取回應。
// 快取鍵以正規化後的提示詞與圖片內容計算，送往模型的提示詞維持原樣。
func (s *Service) Generate(ctx context.Context, prompt string, images []gemini.ImageInput) (string, error) {
	keyMaterial := cacheKeyMaterial(prompt, images)
	if val, err := s.cache.Get(ctx, keyMaterial); err == nil && val != "" {
		return val, nil
	}

	// 快取未命中才計入頻率，命中的重複請求不受限流影響
	if err := s.checkRequestRate(); err != nil {
		return "", err
	}

	content, err := s.invoker.Generate(ctx, prompt, images)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, keyMaterial, content); err != nil {
		common.LogWarn("快取寫入失敗", zap.Error(err))
	}
	return content, nil
}

// Stats 回傳快取統計，供健康檢查端點使用
func (s *Service) Stats() map[string]interface{} {
	return s.cache.Stats()
}

// checkRequestRate 限制對模型的最小請求間隔
func (s *Service) checkRequestRate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.RateLimit.Enabled || s.config.RateLimit.Requests <= 0 {
		return nil
	}
	minInterval := s.config.RateLimit.Window / time.Duration(s.config.RateLimit.Requests)
	now := time.Now()
	if now.Sub(s.lastRequest) < minInterval {
		return common.ErrRateLimited
	}
	s.lastRequest = now
	return nil
}

// cacheKeyMaterial 組合快取鍵素材，空白差異不影響命中
func cacheKeyMaterial(prompt string, images []gemini.ImageInput) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(strings.Fields(prompt), " "))
	for _, img := range images {
		sb.WriteString("|")
		sb.WriteString(img.MimeType)
		sb.WriteString(":")
		sb.WriteString(img.Base64)
	}
	return sb.String()
}
