/*
 * @module service/cleanup/cleanup_service
 * @description 周期性维护服务，清理过期的待确认语句并巡检看板缓存
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/nlquery_pipeline.md
 * @stateFlow 定时触发 -> 剔除过期待确认语句 -> 失效过期缓存
 * @rules 仅进程内存储需要清理，Redis靠键过期自理；清理失败不影响服务
 * @dependencies github.com/robfig/cron/v3
 * @refs service/nlquery/pending.go, service/dashboard/service.go
 */

package cleanup

import (
	"log/slog"

	"agridata-service/service/dashboard"
	"agridata-service/service/nlquery"

	"github.com/robfig/cron/v3"
)

// Service 周期性维护服务
type Service struct {
	pending *nlquery.MemoryPendingStore
	cache   *dashboard.MetricsCache
	cron    *cron.Cron
	started bool
}

// NewService 创建维护服务实例
// pending 仅在使用进程内存储时非nil
func NewService(pending *nlquery.MemoryPendingStore, cache *dashboard.MetricsCache) *Service {
	return &Service{
		pending: pending,
		cache:   cache,
		cron:    cron.New(),
	}
}

// Start 启动定时任务，每分钟执行一次
func (s *Service) Start() error {
	if s.started {
		return nil
	}

	if _, err := s.cron.AddFunc("* * * * *", s.runOnce); err != nil {
		return err
	}

	s.cron.Start()
	s.started = true
	slog.Info("周期性维护服务已启动", "schedule", "every minute")
	return nil
}

// Stop 停止定时任务
func (s *Service) Stop() {
	if !s.started {
		return
	}
	s.cron.Stop()
	s.started = false
	slog.Info("周期性维护服务已停止")
}

// runOnce 执行一轮清理
func (s *Service) runOnce() {
	if s.pending != nil {
		if removed := s.pending.Sweep(); removed > 0 {
			slog.Info("清理过期待确认语句", "removed", removed)
		}
	}

	if s.cache != nil && s.cache.Expired() {
		s.cache.Invalidate()
		slog.Debug("看板指标缓存已过期并失效")
	}
}
