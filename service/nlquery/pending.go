/*
 * @module service/nlquery/pending
 * @description 待确认语句存储，按一次性令牌暂存需确认的变更SQL
 * @architecture 工具层 - 提供带TTL的短期键值存储能力
 * @documentReference ai_docs/nlquery_pipeline.md
 * @stateFlow 分类要求确认 -> 生成令牌暂存语句 -> 确认时取出并删除 -> 过期自动清理
 * @rules 令牌一次性使用；确认时执行的必须是暂存的原始语句，不允许重新推导；
 *        Redis不可用时回退到进程内存储
 * @dependencies github.com/go-redis/redis/v8, github.com/google/uuid
 * @refs service/nlquery/service.go, service/cleanup
 */

package nlquery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// DefaultPendingTTL 待确认语句的默认保留时长
const DefaultPendingTTL = 5 * time.Minute

// pendingKeyPrefix Redis中待确认语句的键前缀
const pendingKeyPrefix = "nlquery:pending:"

// PendingStatement 暂存的待确认语句
type PendingStatement struct {
	SQLQuery      string        `json:"sql_query"`
	OperationType OperationType `json:"operation_type"`
	OriginalQuery string        `json:"original_query"`
}

// PendingStore 待确认语句存储接口
type PendingStore interface {
	// Put 以新令牌暂存语句，返回令牌
	Put(ctx context.Context, stmt PendingStatement, ttl time.Duration) (string, error)
	// Take 按令牌取出语句并删除，不存在或已过期时返回false
	Take(ctx context.Context, token string) (PendingStatement, bool, error)
}

// NewPendingStore 创建待确认语句存储
// 配置了 REDIS_HOST 且连接成功时使用Redis（多实例部署下确认请求
// 可能落在另一实例），否则使用进程内存储
func NewPendingStore() PendingStore {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		slog.Info("未配置Redis，待确认语句使用进程内存储")
		return NewMemoryPendingStore()
	}

	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis连接失败，待确认语句回退到进程内存储", "error", err)
		return NewMemoryPendingStore()
	}

	slog.Info("待确认语句存储初始化成功", "backend", "redis", "host", host, "port", port)
	return &RedisPendingStore{client: client}
}

// RedisPendingStore 基于Redis的待确认语句存储，TTL由Redis键过期实现
type RedisPendingStore struct {
	client *redis.Client
}

// Put 暂存语句
func (s *RedisPendingStore) Put(ctx context.Context, stmt PendingStatement, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	payload, err := json.Marshal(stmt)
	if err != nil {
		return "", fmt.Errorf("序列化待确认语句失败: %w", err)
	}

	if err := s.client.Set(ctx, pendingKeyPrefix+token, payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("暂存待确认语句失败: %w", err)
	}
	return token, nil
}

// Take 取出并删除语句
// 使用GETDEL保证令牌一次性消费，避免并发确认重复执行
func (s *RedisPendingStore) Take(ctx context.Context, token string) (PendingStatement, bool, error) {
	payload, err := s.client.GetDel(ctx, pendingKeyPrefix+token).Result()
	if err == redis.Nil {
		return PendingStatement{}, false, nil
	}
	if err != nil {
		return PendingStatement{}, false, fmt.Errorf("读取待确认语句失败: %w", err)
	}

	var stmt PendingStatement
	if err := json.Unmarshal([]byte(payload), &stmt); err != nil {
		return PendingStatement{}, false, fmt.Errorf("解析待确认语句失败: %w", err)
	}
	return stmt, true, nil
}

// memoryEntry 进程内存储条目
type memoryEntry struct {
	stmt      PendingStatement
	expiresAt time.Time
}

// MemoryPendingStore 进程内的待确认语句存储
// 过期条目在读取时惰性剔除，并由清理服务周期性调用 Sweep 兜底
type MemoryPendingStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryPendingStore 创建进程内存储
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{entries: make(map[string]memoryEntry)}
}

// Put 暂存语句
func (s *MemoryPendingStore) Put(_ context.Context, stmt PendingStatement, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{stmt: stmt, expiresAt: time.Now().Add(ttl)}
	return token, nil
}

// Take 取出并删除语句
func (s *MemoryPendingStore) Take(_ context.Context, token string) (PendingStatement, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return PendingStatement{}, false, nil
	}
	delete(s.entries, token)

	if time.Now().After(entry.expiresAt) {
		return PendingStatement{}, false, nil
	}
	return entry.stmt, true, nil
}

// Sweep 剔除所有过期条目，返回剔除数量
func (s *MemoryPendingStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}
