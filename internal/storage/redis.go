package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

// ErrNotFound is returned when a key is not found in Redis.
var ErrNotFound = redis.Nil

var redisTracer = otel.Tracer("resume-match-go/storage/redis")

// KeyValue 缓存所需的最小键值接口，*Redis 实现它，测试可替换为内存实现
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
}

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	// 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// AnalysisTTL 分析结果缓存的过期时间
func (r *Redis) AnalysisTTL() time.Duration {
	if r.config == nil {
		return constants.DefaultAnalysisTTL
	}
	return config.GetDuration(r.config.AnalysisTTL, constants.DefaultAnalysisTTL)
}

// Get 获取键的值，键不存在时返回 ErrNotFound
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.Get(ctx, key).Result()
}

// Set 设置键的值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.Set(ctx, key, value, expiration).Err()
}

// TryLock 实现 registry.Locker：SET NX 获取锁，释放时校验持有者
func (r *Redis) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := constants.KeyRegistryLockPrefix + name
	value, err := r.AcquireLock(ctx, key, ttl)
	if err != nil {
		return nil, false, err
	}
	if value == "" {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, err := r.ReleaseLock(ctx, key, value); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("释放Redis锁失败")
		}
	}
	return release, true, nil
}

// AcquireLock 尝试获取一个分布式锁，未获取到时返回空字符串
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	lockValue := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return lockValue, nil
}

var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// ReleaseLock 释放一个分布式锁，Lua脚本保证只删除自己持有的锁
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	released, err := releaseLockScript.Run(ctx, r.Client, []string{lockKey}, lockValue).Int64()
	if err != nil {
		return false, err
	}
	return released == 1, nil
}

// PublishRegistryVersion 注册表重载后递增全局版本号，其他实例据此判断是否需要重载
func (r *Redis) PublishRegistryVersion(ctx context.Context) (int64, error) {
	return r.Client.Incr(ctx, constants.KeyRegistryVersion).Result()
}

// RegistryVersion 读取全局注册表版本号，不存在时为 0
func (r *Redis) RegistryVersion(ctx context.Context) (int64, error) {
	v, err := r.Client.Get(ctx, constants.KeyRegistryVersion).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SegmentCache 基于 Redis 的分段结果缓存，实现 analyzer.SegmentCache
type SegmentCache struct {
	kv KeyValue
}

// NewSegmentCache 创建分段缓存
func NewSegmentCache(kv KeyValue) *SegmentCache {
	return &SegmentCache{kv: kv}
}

// Get 读取缓存；键不存在时 ok 为 false 且不返回错误
func (c *SegmentCache) Get(ctx context.Context, key string) (types.SectionMap, bool, error) {
	ctx, span := redisTracer.Start(ctx, "SegmentCache.Get", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.redis.key", tracing.SafeRedisKey(key))))
	defer span.End()

	raw, err := c.kv.Get(ctx, fmt.Sprintf(constants.KeySegmentCache, key))
	if errors.Is(err, ErrNotFound) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return types.SectionMap{}, false, nil
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return types.SectionMap{}, false, err
	}
	sections := types.NewSectionMap()
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return types.SectionMap{}, false, fmt.Errorf("分段缓存格式错误: %w", err)
	}
	normalizeSections(&sections)
	span.SetAttributes(attribute.Bool("cache.hit", true))
	span.SetStatus(codes.Ok, "")
	return sections, true, nil
}

// Set 写入缓存
func (c *SegmentCache) Set(ctx context.Context, key string, sections types.SectionMap, ttl time.Duration) error {
	data, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("序列化分段结果失败: %w", err)
	}
	return c.kv.Set(ctx, fmt.Sprintf(constants.KeySegmentCache, key), string(data), ttl)
}

// ResultCache 最近分析结果的缓存，重新选择岗位时优先从这里读取章节
type ResultCache struct {
	kv  KeyValue
	ttl time.Duration
}

// NewResultCache 创建结果缓存，ttl<=0 时使用默认值
func NewResultCache(kv KeyValue, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = constants.DefaultAnalysisTTL
	}
	return &ResultCache{kv: kv, ttl: ttl}
}

// Save 保存分析结果
func (c *ResultCache) Save(ctx context.Context, result *types.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化分析结果失败: %w", err)
	}
	return c.kv.Set(ctx, fmt.Sprintf(constants.KeyAnalysisResult, result.AnalysisID), string(data), c.ttl)
}

// Load 读取分析结果，不存在时返回 ErrNotFound
func (c *ResultCache) Load(ctx context.Context, analysisID string) (*types.AnalysisResult, error) {
	raw, err := c.kv.Get(ctx, fmt.Sprintf(constants.KeyAnalysisResult, analysisID))
	if err != nil {
		return nil, err
	}
	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("分析结果缓存格式错误: %w", err)
	}
	normalizeSections(&result.Sections)
	return &result, nil
}

// normalizeSections JSON 中的 null 列表还原为空列表
func normalizeSections(m *types.SectionMap) {
	for _, s := range types.AllSections {
		if m.Get(s) == nil {
			m.Set(s, []string{})
		}
	}
}
