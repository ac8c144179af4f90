/*
 * @module service/audit/publisher
 * @description 变更审计发布器，将管线执行的变更语句异步发布到Kafka
 * @architecture 适配器模式 - 封装Kafka生产者，提供尽力而为的审计通道
 * @documentReference ai_docs/audit_trail.md
 * @stateFlow 变更提交成功 -> 构造审计事件 -> 异步发布 -> 失败仅记日志
 * @rules 审计是尽力而为的旁路，发布失败不影响查询请求；
 *        未配置 KAFKA_BROKERS 时整体禁用
 * @dependencies github.com/segmentio/kafka-go, github.com/google/uuid
 * @refs service/nlquery/service.go
 */

package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic 审计事件主题
const DefaultTopic = "agridata.query-audit"

// MutationEvent 变更审计事件
type MutationEvent struct {
	ID            string    `json:"id"`
	SQLQuery      string    `json:"sql_query"`
	OperationType string    `json:"operation_type"`
	AffectedRows  int64     `json:"affected_rows"`
	FarmerID      *int      `json:"farmer_id,omitempty"`
	ExecutedAt    time.Time `json:"executed_at"`
}

// Publisher 变更审计发布器
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher 创建审计发布器
// 未配置 KAFKA_BROKERS 时返回nil，调用方按禁用处理
func NewPublisher() *Publisher {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		slog.Info("未配置Kafka，变更审计已禁用")
		return nil
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}

	slog.Info("变更审计发布器初始化成功", "brokers", brokers, "topic", topic)
	return &Publisher{writer: writer}
}

// PublishMutation 发布一条变更审计事件
func (p *Publisher) PublishMutation(ctx context.Context, sqlQuery string, operationType string, affectedRows int64, farmerID *int) {
	event := MutationEvent{
		ID:            uuid.New().String(),
		SQLQuery:      sqlQuery,
		OperationType: operationType,
		AffectedRows:  affectedRows,
		FarmerID:      farmerID,
		ExecutedAt:    time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("审计事件序列化失败", "error", err)
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID),
		Value: payload,
	})
	if err != nil {
		slog.Warn("审计事件发布失败", "event_id", event.ID, "error", err)
	}
}

// Close 关闭底层Kafka生产者
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
