package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"talent-bridge-go/internal/config"
	"talent-bridge-go/internal/constants"
	"talent-bridge-go/internal/tracing"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("talent-bridge-go/storage/redis")

// Redis操作前缀采样率配置
var redisKeySamplingRates = map[string]float64{
	"app:match:lock:":       0.5,  // 锁操作采样50%
	"app:job:requirements:": 0.25, // 岗位要求缓存采样25%
	"app:notify:":           0.5,  // 通知相关采样50%
}

// 随机数生成器
var (
	rnd      *rand.Rand
	rndMutex sync.Mutex
)

// 初始化随机数生成器
func init() {
	source := rand.NewSource(time.Now().UnixNano())
	rnd = rand.New(source)
}

// shouldSampleRedisOp 根据key前缀决定是否需要创建span
func shouldSampleRedisOp(key string) bool {
	// key为空一定不采样
	if key == "" {
		return false
	}

	// 遍历前缀采样率配置
	for prefix, rate := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			// 使用线程安全的随机数
			return randFloat() < rate
		}
	}

	// 默认采样率5%
	return randFloat() < 0.05
}

// 生成0-1之间的随机数
func randFloat() float64 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return rnd.Float64()
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

	// 使用扩展的配置选项
	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,     // 默认10
		MinIdleConns: cfg.MinIdleConns, // 默认2

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,  // 默认5秒
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,  // 默认3秒
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second, // 默认3秒

		// 重试设置
		MaxRetries:      cfg.MaxRetries,                                          // 默认3次
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond, // 默认8毫秒
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond, // 默认512毫秒

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute, // 默认60分钟
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute, // 默认30分钟
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	// Ping to check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
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

// Get 获取键的值
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	// 检查客户端是否已初始化
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span

	// 根据key前缀决定是否创建span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Get", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "GET"),
			attribute.String("db.redis.key", key),
			// 设置标志位，表示不要在子span中传播，避免与redisotel hook产生的span重复
			attribute.Bool("otel.propagate_to_child", false),
		)
	}

	// 执行Get操作
	val, err := r.Client.Get(ctx, key).Result()

	// 如果span被创建，则记录结果
	if span != nil {
		if err != nil {
			// 对于key不存在的情况，不应该算作错误
			if err == redis.Nil {
				span.SetStatus(codes.Ok, "key not found")
				span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			} else {
				tracing.RecordError(span, err, tracing.ErrorTypeRedis)
			}
			return "", err
		}

		span.SetAttributes(
			attribute.Bool("db.redis.key_exists", true),
			attribute.Int("db.redis.value_length", len(val)),
		)
		span.SetStatus(codes.Ok, "")
	}

	if err != nil {
		return "", err
	}
	return val, nil
}

// Set 设置键的值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	// 检查客户端是否已初始化
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span

	// 根据key前缀决定是否创建span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Set", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "SET"),
			attribute.String("db.redis.key", key),
			attribute.Int("db.redis.value_length", len(value)),
			// 设置标志位，表示不要在子span中传播，避免与redisotel hook产生的span重复
			attribute.Bool("otel.propagate_to_child", false),
		)

		if expiration > 0 {
			span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
		}
	}

	// 执行Set操作
	err := r.Client.Set(ctx, key, value, expiration).Err()

	// 如果span被创建，则记录结果
	if span != nil {
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
			return err
		}
		span.SetStatus(codes.Ok, "")
	}

	return err
}

// SetJobRequirements 将岗位的归一化要求集合存入Redis缓存。
// 存储为JSON数组，供同一岗位的后续匹配运行复用，避免重复解析。
func (r *Redis) SetJobRequirements(ctx context.Context, jobID string, requirements []string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	data, err := json.Marshal(requirements)
	if err != nil {
		return fmt.Errorf("序列化岗位要求失败: %w", err)
	}

	key := fmt.Sprintf(constants.KeyJobRequirements, jobID)
	return r.Set(ctx, key, string(data), constants.RequirementsCacheDuration)
}

// GetJobRequirements 从缓存获取岗位的归一化要求集合。
// key不存在时返回 ErrNotFound。
func (r *Redis) GetJobRequirements(ctx context.Context, jobID string) ([]string, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}

	key := fmt.Sprintf(constants.KeyJobRequirements, jobID)
	val, err := r.Get(ctx, key)
	if err != nil {
		return nil, err // 包括 redis.Nil 错误
	}

	var requirements []string
	if err := json.Unmarshal([]byte(val), &requirements); err != nil {
		return nil, fmt.Errorf("反序列化岗位要求缓存失败: %w", err)
	}
	return requirements, nil
}

// InvalidateJobRequirements 删除岗位要求缓存，岗位更新后调用
func (r *Redis) InvalidateJobRequirements(ctx context.Context, jobID string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	key := fmt.Sprintf(constants.KeyJobRequirements, jobID)
	return r.Client.Del(ctx, key).Err()
}

// AcquireLock 尝试获取一个分布式锁
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	// 生成一个随机值作为锁的持有者标识
	lockValue := NewUUID()
	// 尝试设置一个带过期时间的key，NX保证了原子性
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		// 成功获取锁
		return lockValue, nil
	}
	// 未能获取锁
	return "", nil
}

// ReleaseLock 释放一个分布式锁，使用Lua脚本保证原子性
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	// Lua脚本: 如果key存在且值匹配，则删除key
	script := `
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        else
            return 0
        end
    `
	res, err := r.Client.Eval(ctx, script, []string{lockKey}, lockValue).Result()
	if err != nil {
		return false, err
	}

	if released, ok := res.(int64); ok && released == 1 {
		return true, nil // 成功释放
	}

	return false, nil // 锁不存在或不属于当前持有者
}
