package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/registry"
	"resume-match-go/internal/types"
)

// SegmentCache 分段结果缓存，键由文本内容和快照版本决定
type SegmentCache interface {
	Get(ctx context.Context, key string) (types.SectionMap, bool, error)
	Set(ctx context.Context, key string, sections types.SectionMap, ttl time.Duration) error
}

// CacheKey 计算分段缓存键。快照版本参与计算，注册表重载后旧结果自动失效。
func CacheKey(text string, hint *types.DocHint, version int64) string {
	h := sha256.New()
	h.Write([]byte(text))
	if hint.IsTabular() {
		h.Write([]byte{0, 't'})
		for _, table := range hint.Tables {
			for _, row := range table {
				for _, cell := range row {
					h.Write([]byte(cell))
					h.Write([]byte{0x1f})
				}
				h.Write([]byte{0x1e})
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil)) + ":" + strconv.FormatInt(version, 10)
}

// segment 先查缓存，未命中时通过 singleflight 合并相同文本的并发分段
func (a *Analyzer) segment(ctx context.Context, snap *registry.Snapshot, text string, hint *types.DocHint) types.SectionMap {
	seg := a.segmenterFor(snap)
	if a.comp.Cache == nil {
		return seg.Segment(ctx, text, hint)
	}

	key := CacheKey(text, hint, snap.Version())
	if cached, ok, err := a.comp.Cache.Get(ctx, key); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("读取分段缓存失败，直接分段")
	} else if ok {
		a.comp.Metrics.observeCache(true)
		return cached.Clone()
	}
	a.comp.Metrics.observeCache(false)

	v, _, _ := a.flight.Do(key, func() (any, error) {
		sections := seg.Segment(ctx, text, hint)
		if err := a.comp.Cache.Set(ctx, key, sections, a.set.CacheTTL); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("写入分段缓存失败")
		}
		return sections, nil
	})
	return v.(types.SectionMap).Clone()
}

type memoryEntry struct {
	sections  types.SectionMap
	expiresAt time.Time
}

// MemoryCache 进程内分段缓存，未配置 Redis 时使用
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get 读取缓存，过期条目会被顺带删除
func (c *MemoryCache) Get(_ context.Context, key string) (types.SectionMap, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return types.SectionMap{}, false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return types.SectionMap{}, false, nil
	}
	return e.sections.Clone(), true, nil
}

// Set ttl<=0 表示不过期
func (c *MemoryCache) Set(_ context.Context, key string, sections types.SectionMap, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{sections: sections.Clone()}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// Len 当前条目数（含未清理的过期条目）
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
