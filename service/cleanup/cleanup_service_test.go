/*
 * @module service/cleanup/cleanup_service_test
 * @description 周期性维护服务单元测试
 * @architecture 测试层 - 单元测试
 * @documentReference ai_docs/test_plan.md
 * @stateFlow 构造存储和缓存 -> 手动触发清理 -> 断言清理效果
 * @rules 直接调用runOnce验证清理逻辑，不依赖cron计时
 * @dependencies testing, testify
 * @refs cleanup_service.go
 */

package cleanup

import (
	"context"
	"testing"
	"time"

	"agridata-service/service/dashboard"
	"agridata-service/service/nlquery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnceSweepsExpiredPending(t *testing.T) {
	pending := nlquery.NewMemoryPendingStore()
	ctx := context.Background()

	_, err := pending.Put(ctx, nlquery.PendingStatement{SQLQuery: "DELETE FROM tasks"}, -time.Second)
	require.NoError(t, err)
	liveToken, err := pending.Put(ctx, nlquery.PendingStatement{SQLQuery: "UPDATE tasks SET status = 'done'"}, time.Minute)
	require.NoError(t, err)

	service := NewService(pending, nil)
	service.runOnce()

	_, ok, err := pending.Take(ctx, liveToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunOnceInvalidatesExpiredCache(t *testing.T) {
	cache := dashboard.NewMetricsCache(time.Millisecond)
	cache.Set(&dashboard.Overview{TotalFarmers: 1})
	time.Sleep(5 * time.Millisecond)
	require.True(t, cache.Expired())

	service := NewService(nil, cache)
	service.runOnce()

	assert.False(t, cache.Expired())
	assert.Nil(t, cache.Get())
}

func TestRunOnceKeepsFreshCache(t *testing.T) {
	cache := dashboard.NewMetricsCache(time.Minute)
	cache.Set(&dashboard.Overview{TotalFarmers: 1})

	service := NewService(nil, cache)
	service.runOnce()

	assert.NotNil(t, cache.Get())
}

func TestStartStopIdempotent(t *testing.T) {
	service := NewService(nil, nil)

	require.NoError(t, service.Start())
	require.NoError(t, service.Start())
	service.Stop()
	service.Stop()
}
