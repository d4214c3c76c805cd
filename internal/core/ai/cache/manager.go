package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"smart-kitchen/internal/infrastructure/config"
	"smart-kitchen/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrCacheMiss 快取未命中
var ErrCacheMiss = errors.New("cache miss")

// Backend 快取後端，鍵為雜湊值，不含提示詞明文
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// Manager 快取管理器，以提示詞雜湊為鍵包裝後端
type Manager struct {
	config  *config.CacheConfig
	backend Backend
	stats   stats
	mu      sync.Mutex
}

type stats struct {
	hits   int64
	misses int64
	errors int64
}

// NewManager 創建新的快取管理器，依設定選擇後端
func NewManager(cfg *config.CacheConfig) (*Manager, error) {
	if !cfg.Enabled {
		common.LogInfo("快取已停用")
		return nil, nil
	}

	var backend Backend
	var err error
	switch cfg.Backend {
	case "redis":
		backend, err = newRedisBackend(cfg)
		if err != nil {
			return nil, err
		}
	default:
		backend = newMemoryBackend(cfg.MaxSize, cfg.CleanupInterval)
	}

	common.LogInfo("快取管理員已初始化",
		zap.String("backend", cfg.Backend),
		zap.Int("max_size", cfg.MaxSize),
		zap.Duration("ttl", cfg.TTL),
	)
	return &Manager{config: cfg, backend: backend}, nil
}

// Get 以提示詞查詢快取。nil Manager 視為快取停用。
func (m *Manager) Get(ctx context.Context, prompt string) (string, error) {
	if m == nil {
		return "", common.ErrCacheDisabled
	}

	key := cacheKey(prompt)
	value, err := m.backend.Get(ctx, key)
	if err != nil {
		m.mu.Lock()
		if errors.Is(err, ErrCacheMiss) {
			m.stats.misses++
		} else {
			m.stats.errors++
		}
		m.mu.Unlock()
		return "", err
	}

	m.mu.Lock()
	m.stats.hits++
	m.mu.Unlock()
	common.LogDebug("快取命中", zap.String("key", key[:12]))
	return value, nil
}

// Set 寫入快取
func (m *Manager) Set(ctx context.Context, prompt, value string) error {
	if m == nil {
		return nil
	}
	return m.backend.Set(ctx, cacheKey(prompt), value, m.config.TTL)
}

// Stats 回傳快取統計
func (m *Manager) Stats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{"enabled": false}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.stats.hits + m.stats.misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(m.stats.hits) / float64(total)
	}
	return map[string]interface{}{
		"enabled":   true,
		"backend":   m.config.Backend,
		"hits":      m.stats.hits,
		"misses":    m.stats.misses,
		"errors":    m.stats.errors,
		"hit_ratio": ratio,
	}
}

// Close 關閉快取管理器
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	common.LogInfo("快取管理員已關閉",
		zap.Int64("hits", m.stats.hits),
		zap.Int64("misses", m.stats.misses),
	)
	return m.backend.Close()
}

// cacheKey 以 SHA-256 雜湊提示詞，快取層不保存明文內容
func cacheKey(prompt string) string {
	hash := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("chef:%s", hex.EncodeToString(hash[:]))
}

// memoryBackend 進程內快取後端
type memoryBackend struct {
	mu      sync.RWMutex
	store   map[string]memoryEntry
	maxSize int
	done    chan struct{}
}

type memoryEntry struct {
	value      string
	expiresAt  time.Time
	lastAccess time.Time
}

func newMemoryBackend(maxSize int, cleanupInterval time.Duration) *memoryBackend {
	b := &memoryBackend{
		store:   make(map[string]memoryEntry),
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go b.startCleanup(cleanupInterval)
	return b
}

func (b *memoryBackend) Get(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.store[key]
	if !exists {
		return "", ErrCacheMiss
	}
	if time.Now().After(entry.expiresAt) {
		delete(b.store, key)
		return "", ErrCacheMiss
	}

	entry.lastAccess = time.Now()
	b.store[key] = entry
	return entry.value, nil
}

func (b *memoryBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.store) >= b.maxSize {
		b.cleanupLocked()
		if len(b.store) >= b.maxSize {
			b.evictLRULocked()
		}
		if len(b.store) >= b.maxSize {
			return common.ErrCacheFull
		}
	}

	now := time.Now()
	b.store[key] = memoryEntry{
		value:      value,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
	return nil
}

func (b *memoryBackend) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.mu.Lock()
			b.cleanupLocked()
			b.mu.Unlock()
		case <-b.done:
			return
		}
	}
}

func (b *memoryBackend) cleanupLocked() {
	now := time.Now()
	for key, entry := range b.store {
		if now.After(entry.expiresAt) {
			delete(b.store, key)
		}
	}
}

// evictLRULocked 淘汰最久未使用的條目
func (b *memoryBackend) evictLRULocked() {
	var oldestKey string
	var oldestAccess time.Time
	for key, entry := range b.store {
		if oldestKey == "" || entry.lastAccess.Before(oldestAccess) {
			oldestKey = key
			oldestAccess = entry.lastAccess
		}
	}
	if oldestKey != "" {
		delete(b.store, oldestKey)
	}
}

func (b *memoryBackend) Close() error {
	close(b.done)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store = make(map[string]memoryEntry)
	return nil
}
