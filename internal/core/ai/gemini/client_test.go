package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smart-kitchen/internal/infrastructure/config"
	"smart-kitchen/internal/pkg/common"
)

func testClient(serverURL string) *Client {
	cfg := &config.GeminiConfig{
		APIKey:          "test-key",
		Model:           "gemini-flash-latest",
		Temperature:     0.5,
		TopP:            0.9,
		MaxOutputTokens: 4096,
		Timeout:         2 * time.Second,
	}
	c := NewClient(cfg)
	c.http.SetBaseURL(serverURL)
	return c
}

func TestGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key query param")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "hello "}, {"text": "world"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"totalTokenCount": 12}
		}`))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).Generate(context.Background(), "say hello", nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
}

func TestGenerateStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, common.ErrRateLimited},
		{"server error", http.StatusInternalServerError, common.ErrModelUnreachable},
		{"bad gateway", http.StatusBadGateway, common.ErrModelUnreachable},
		{"bad request", http.StatusBadRequest, common.ErrModelRefused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": {"code": 0, "message": "nope", "status": "X"}}`))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).Generate(context.Background(), "p", nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenerateRefusals(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{"candidates": []}`},
		{"safety block", `{"candidates": [{"content": {"parts": []}, "finishReason": "SAFETY"}]}`},
		{"token limit", `{"candidates": [{"content": {"parts": [{"text": "partial"}]}, "finishReason": "MAX_TOKENS"}]}`},
		{"empty parts", `{"candidates": [{"content": {"parts": []}, "finishReason": "STOP"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).Generate(context.Background(), "p", nil)
			if !errors.Is(err, common.ErrModelRefused) {
				t.Errorf("error = %v, want ErrModelRefused", err)
			}
		})
	}
}

func TestGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 立即關閉讓連線失敗

	_, err := testClient(srv.URL).Generate(context.Background(), "p", nil)
	if !errors.Is(err, common.ErrModelUnreachable) {
		t.Errorf("error = %v, want ErrModelUnreachable", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).Generate(ctx, "p", nil)
	if !errors.Is(err, common.ErrModelTimeout) {
		t.Errorf("error = %v, want ErrModelTimeout", err)
	}
}
