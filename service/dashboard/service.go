/*
 * @module service/dashboard/service
 * @description 经营看板服务，聚合农户/地块/面积/任务等关键指标
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/requirements.md
 * @stateFlow 查缓存 -> 未命中则聚合查询 -> 写缓存 -> 返回
 * @rules 缓存为显式注入的TTL缓存对象，登记写入后失效；
 *        不使用进程级可变全局状态
 * @dependencies gorm.io/gorm
 * @refs service/models/farmer.go
 */

package dashboard

import (
	"sync"
	"time"

	"agridata-service/service/models"

	"gorm.io/gorm"
)

// DefaultCacheTTL 看板指标缓存时长
const DefaultCacheTTL = 60 * time.Second

// Overview 经营看板总览指标
type Overview struct {
	TotalFarmers  int64           `json:"total_farmers"`
	TotalFields   int64           `json:"total_fields"`
	TotalHectares float64         `json:"total_hectares"`
	TotalTasks    int64           `json:"total_tasks"`
	RecentFarmers []models.Farmer `json:"recent_farmers"`
	UpdatedAt     time.Time       `json:"updated_at"`
	FromCache     bool            `json:"from_cache"`
}

// MetricsCache 带TTL的看板指标缓存
// 显式注入使用，并发读写由读写锁保护
type MetricsCache struct {
	mu        sync.RWMutex
	overview  *Overview
	fetchedAt time.Time
	ttl       time.Duration
}

// NewMetricsCache 创建指标缓存
func NewMetricsCache(ttl time.Duration) *MetricsCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MetricsCache{ttl: ttl}
}

// Get 读取未过期的缓存值，过期或为空时返回nil
func (c *MetricsCache) Get() *Overview {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.overview == nil || time.Since(c.fetchedAt) > c.ttl {
		return nil
	}
	cached := *c.overview
	cached.FromCache = true
	return &cached
}

// Set 写入缓存
func (c *MetricsCache) Set(overview *Overview) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overview = overview
	c.fetchedAt = time.Now()
}

// Invalidate 主动失效缓存，登记写入后调用
func (c *MetricsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overview = nil
}

// Expired 检查缓存是否已过期，供清理服务巡检
func (c *MetricsCache) Expired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overview != nil && time.Since(c.fetchedAt) > c.ttl
}

// Service 经营看板服务
type Service struct {
	db    *gorm.DB
	cache *MetricsCache
}

// NewService 创建看板服务实例
func NewService(db *gorm.DB, cache *MetricsCache) *Service {
	return &Service{db: db, cache: cache}
}

// Cache 返回注入的指标缓存
func (s *Service) Cache() *MetricsCache {
	return s.cache
}

// GetOverview 获取看板总览指标，优先命中缓存
func (s *Service) GetOverview() (*Overview, error) {
	if cached := s.cache.Get(); cached != nil {
		return cached, nil
	}

	overview := &Overview{UpdatedAt: time.Now()}

	if err := s.db.Model(&models.Farmer{}).Count(&overview.TotalFarmers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Field{}).Count(&overview.TotalFields).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Task{}).Count(&overview.TotalTasks).Error; err != nil {
		return nil, err
	}

	var hectares float64
	if err := s.db.Model(&models.Field{}).
		Select("COALESCE(SUM(area_ha), 0)").
		Scan(&hectares).Error; err != nil {
		return nil, err
	}
	overview.TotalHectares = hectares

	if err := s.db.Order("created_at DESC").Limit(5).
		Find(&overview.RecentFarmers).Error; err != nil {
		return nil, err
	}

	s.cache.Set(overview)
	return overview, nil
}
