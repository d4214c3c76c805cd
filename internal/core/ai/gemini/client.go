package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smart-kitchen/internal/infrastructure/config"
	"smart-kitchen/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const baseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client Gemini API 客戶端
type Client struct {
	http   *resty.Client
	config *config.GeminiConfig
}

// InlineData 內嵌的圖片資料
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// Part 請求內容的單一片段，文字或圖片擇一
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// Content 一則訊息內容
type Content struct {
	Parts []Part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

// GenerationConfig 生成參數
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// Request generateContent 請求結構
type Request struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Candidate 回應候選
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// UsageMetadata 使用量統計
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Response generateContent 回應結構
type Response struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ImageInput 附加到請求的圖片
type ImageInput struct {
	MimeType string
	Base64   string
}

// NewClient 創建新的 Gemini 客戶端
func NewClient(cfg *config.GeminiConfig) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: http, config: cfg}
}

// Generate 呼叫 generateContent 並回傳模型輸出的純文字。
// 錯誤一律對應到型別化的失敗分類，呼叫端依分類決定重試策略。
// 提示詞與回應內容不寫入日誌。
func (c *Client) Generate(ctx context.Context, prompt string, images []ImageInput) (string, error) {
	parts := make([]Part, 0, len(images)+1)
	parts = append(parts, Part{Text: prompt})
	for _, img := range images {
		parts = append(parts, Part{InlineData: &InlineData{
			MimeType: img.MimeType,
			Data:     img.Base64,
		}})
	}

	req := &Request{
		Contents: []Content{{Parts: parts}},
		GenerationConfig: &GenerationConfig{
			Temperature:     c.config.Temperature,
			TopP:            c.config.TopP,
			MaxOutputTokens: c.config.MaxOutputTokens,
		},
	}

	common.LogInfo("發送 Gemini 請求",
		zap.String("model", c.config.Model),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("image_count", len(images)),
	)

	start := time.Now()
	var result Response
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.config.APIKey).
		SetBody(req).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/models/%s:generateContent", c.config.Model))
	if err != nil {
		return "", c.transportError(err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", c.statusError(resp.StatusCode(), apiErr)
	}

	text, err := extractText(&result)
	if err != nil {
		common.LogError("Gemini 回應無可用內容",
			zap.String("model", c.config.Model),
			zap.Error(err),
		)
		return "", err
	}

	common.LogInfo("Gemini 請求完成",
		zap.String("model", c.config.Model),
		zap.Int("content_length", len(text)),
		zap.Int("total_tokens", result.UsageMetadata.TotalTokenCount),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

// transportError 區分逾時與連線失敗
func (c *Client) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		common.LogError("Gemini 請求逾時",
			zap.String("model", c.config.Model),
			zap.Duration("timeout", c.config.Timeout),
		)
		return fmt.Errorf("%w: %v", common.ErrModelTimeout, err)
	}
	common.LogError("Gemini 連線失敗",
		zap.String("model", c.config.Model),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %v", common.ErrModelUnreachable, err)
}

// statusError 將 HTTP 狀態碼對應到失敗分類
func (c *Client) statusError(status int, apiErr apiError) error {
	common.LogError("Gemini 回應錯誤狀態",
		zap.Int("status_code", status),
		zap.String("model", c.config.Model),
		zap.String("api_status", apiErr.Error.Status),
	)
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", common.ErrRateLimited, apiErr.Error.Message)
	case status >= 500:
		return fmt.Errorf("%w: status %d", common.ErrModelUnreachable, status)
	default:
		return fmt.Errorf("%w: status %d: %s", common.ErrModelRefused, status, apiErr.Error.Message)
	}
}

// extractText 取出第一個候選的文字內容，拒答與截斷視為模型拒絕
func extractText(resp *Response) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", common.ErrModelRefused)
	}
	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT", "BLOCKLIST":
		return "", fmt.Errorf("%w: finish reason %s", common.ErrModelRefused, cand.FinishReason)
	case "MAX_TOKENS":
		return "", fmt.Errorf("%w: output truncated at token limit", common.ErrModelRefused)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty content in response", common.ErrModelRefused)
	}
	return sb.String(), nil
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) {
		return timeout.Timeout()
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}
