package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	_ "golang.org/x/image/webp" // 支援 WebP
)

// Service 圖片處理服務
type Service struct {
	maxSizeBytes int64
	httpClient   *http.Client
}

// Processed 處理完成的圖片，統一為 JPEG
type Processed struct {
	MimeType string
	Base64   string
}

// NewService 創建新的圖片處理服務
func NewService(maxSizeBytes int64) *Service {
	return &Service{
		maxSizeBytes: maxSizeBytes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Process 處理圖片輸入，接受 data URI、純 base64 或 URL，
// 驗證格式與大小後統一轉為 JPEG
func (s *Service) Process(imageData string) (Processed, error) {
	raw, err := s.loadBytes(imageData)
	if err != nil {
		return Processed{}, err
	}

	if int64(len(raw)) > s.maxSizeBytes {
		return Processed{}, fmt.Errorf("image size exceeds maximum limit of %d bytes", s.maxSizeBytes)
	}

	// 解碼圖片
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Processed{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if !isSupportedFormat(format) {
		return Processed{}, fmt.Errorf("unsupported image format: %s", format)
	}

	// 統一轉換為 JPEG 格式
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return Processed{}, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	return Processed{
		MimeType: "image/jpeg",
		Base64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Validate 驗證圖片可被解碼且格式受支援
func (s *Service) Validate(imageData string) error {
	raw, err := s.loadBytes(imageData)
	if err != nil {
		return err
	}
	if int64(len(raw)) > s.maxSizeBytes {
		return fmt.Errorf("image size exceeds maximum limit of %d bytes", s.maxSizeBytes)
	}
	_, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if !isSupportedFormat(format) {
		return fmt.Errorf("unsupported image format: %s", format)
	}
	return nil
}

// loadBytes 取得原始圖片位元組
func (s *Service) loadBytes(imageData string) ([]byte, error) {
	if strings.HasPrefix(imageData, "http://") || strings.HasPrefix(imageData, "https://") {
		return s.download(imageData)
	}

	payload := imageData
	if strings.HasPrefix(imageData, "data:") {
		parts := strings.SplitN(imageData, ",", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[0], "data:image/") {
			return nil, fmt.Errorf("invalid image data format")
		}
		payload = parts[1]
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 data: %w", err)
	}
	return decoded, nil
}

// download 下載遠端圖片
func (s *Service) download(url string) ([]byte, error) {
	resp, err := s.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return body, nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	}
	return false
}
