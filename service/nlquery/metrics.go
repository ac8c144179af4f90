package nlquery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 自然语言查询管线的Prometheus指标
var (
	pipelineRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agridata_nlquery_requests_total",
		Help: "自然语言查询请求总数，按最终状态统计",
	}, []string{"status"})

	executedStatements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agridata_nlquery_executed_statements_total",
		Help: "已执行SQL语句总数，按操作类型和结果统计",
	}, []string{"operation_type", "result"})

	translateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agridata_nlquery_translate_duration_seconds",
		Help:    "LLM翻译耗时分布",
		Buckets: prometheus.DefBuckets,
	})
)
