package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 管線錯誤分類：所有階段失敗以哨兵錯誤包裝，呼叫端以 errors.Is 判斷重試策略
var (
	// ErrDataUnavailable 後端儲存無法使用（不在此層重試）
	ErrDataUnavailable = errors.New("data store unavailable")

	// ErrModelUnreachable 模型服務連線失敗（呼叫端可重試一次）
	ErrModelUnreachable = errors.New("model service unreachable")

	// ErrRateLimited 模型服務回報限流（不可立即重試）
	ErrRateLimited = errors.New("model service rate limited")

	// ErrModelTimeout 模型呼叫逾時（呼叫端可重試一次）
	ErrModelTimeout = errors.New("model call timed out")

	// ErrModelRefused 模型拒答或回傳空內容（不可重試）
	ErrModelRefused = errors.New("model refused to answer")

	// ErrMalformedResponse 模型輸出不是合法 JSON（呼叫端可用修正 prompt 重試一次）
	ErrMalformedResponse = errors.New("malformed model response")
)

// SchemaViolationError JSON 合法但不符合欄位契約，記錄第一個違規欄位
type SchemaViolationError struct {
	Field  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("schema violation at %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("schema violation at %s", e.Field)
}

// NewSchemaViolation 建立欄位違規錯誤
func NewSchemaViolation(field, reason string) error {
	return &SchemaViolationError{Field: field, Reason: reason}
}

// IsSchemaViolation 檢查是否為欄位違規錯誤
func IsSchemaViolation(err error) bool {
	var sv *SchemaViolationError
	return errors.As(err, &sv)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeUnauthorized     = "UNAUTHORIZED"       // 401
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"    // 408
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504

	// 業務錯誤
	ErrCodeDataUnavailable   = "DATA_UNAVAILABLE"
	ErrCodeModelUnreachable  = "MODEL_UNREACHABLE"
	ErrCodeModelRateLimited  = "MODEL_RATE_LIMITED"
	ErrCodeModelTimeout      = "MODEL_TIMEOUT"
	ErrCodeModelRefused      = "MODEL_REFUSED"
	ErrCodeMalformedResponse = "MALFORMED_RESPONSE"
	ErrCodeSchemaViolation   = "SCHEMA_VIOLATION"
)

// 預定義錯誤
var (
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)
	ErrInternalError   = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)

	ErrInvalidImageFormat = NewError("INVALID_IMAGE_FORMAT", "無效的圖片格式", http.StatusBadRequest, nil)
	ErrInvalidImageSize   = NewError("INVALID_IMAGE_SIZE", "圖片大小超出限制", http.StatusBadRequest, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheDisabled      = NewError("CACHE_DISABLED", "緩存已禁用", http.StatusServiceUnavailable, nil)
)

// HTTPStatusFor 將管線錯誤對應到 HTTP 狀態碼與錯誤代碼
func HTTPStatusFor(err error) (int, string) {
	var sv *SchemaViolationError
	switch {
	case errors.Is(err, ErrDataUnavailable):
		return http.StatusServiceUnavailable, ErrCodeDataUnavailable
	case errors.Is(err, ErrModelUnreachable):
		return http.StatusBadGateway, ErrCodeModelUnreachable
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, ErrCodeModelRateLimited
	case errors.Is(err, ErrModelTimeout):
		return http.StatusGatewayTimeout, ErrCodeModelTimeout
	case errors.Is(err, ErrModelRefused):
		return http.StatusBadGateway, ErrCodeModelRefused
	case errors.Is(err, ErrMalformedResponse):
		return http.StatusBadGateway, ErrCodeMalformedResponse
	case errors.As(err, &sv):
		return http.StatusBadGateway, ErrCodeSchemaViolation
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}
