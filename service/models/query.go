/*
 * @module service/models/query
 * @description 查询相关模型定义，包括标准查询、自然语言查询请求与执行结果
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/model.md
 * @stateFlow 自然语言问题 -> SQL翻译 -> 分类 -> 确认/执行 -> 结果
 * @rules 执行结果为带标签的联合结构，成功与失败字段互斥
 * @dependencies gorm.io/gorm
 * @refs service/nlquery
 */

package models

import (
	"time"
)

// StandardQuery 标准查询模型，支持按农户保存和全局共享
type StandardQuery struct {
	ID                   int       `gorm:"primaryKey;autoIncrement" json:"id"`
	QueryName            string    `gorm:"size:255;not null" json:"query_name"`
	SQLQuery             string    `gorm:"column:sql_query;type:text;not null" json:"sql_query"`
	Description          string    `gorm:"type:text" json:"description"`
	NaturalLanguageQuery string    `gorm:"type:text" json:"natural_language_query"`
	FarmerID             *int      `gorm:"index" json:"farmer_id"`
	UsageCount           int       `gorm:"not null;default:0" json:"usage_count"`
	IsGlobal             bool      `gorm:"not null;default:false" json:"is_global"`
	CreatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (StandardQuery) TableName() string {
	return "standard_queries"
}

// NaturalQueryRequest 自然语言查询请求
type NaturalQueryRequest struct {
	Query    string `json:"query"`
	FarmerID *int   `json:"farmer_id,omitempty"`
}

// ConfirmRequest 确认执行请求，携带待执行语句的一次性令牌
type ConfirmRequest struct {
	ConfirmationToken string `json:"confirmation_token"`
}

// SaveStandardQueryRequest 保存标准查询请求
type SaveStandardQueryRequest struct {
	QueryName            string `json:"query_name"`
	SQLQuery             string `json:"sql_query"`
	NaturalLanguageQuery string `json:"natural_language_query"`
	FarmerID             *int   `json:"farmer_id,omitempty"`
}

// ExecutionResult SQL执行结果
// 读操作填充 RowCount/Data，写操作填充 AffectedRows/Message，失败填充 Error/ErrorKind
// RowCount 和 AffectedRows 不加 omitempty，零行命中时也要在响应中显式出现
type ExecutionResult struct {
	Status               string                   `json:"status"` // success/error
	OperationType        string                   `json:"operation_type,omitempty"`
	RowCount             int                      `json:"row_count"`
	Data                 []map[string]interface{} `json:"data,omitempty"` // 读操作恒为非nil切片，空结果靠row_count=0体现
	AffectedRows         int64                    `json:"affected_rows"`
	Message              string                   `json:"message,omitempty"`
	Error                string                   `json:"error,omitempty"`
	ErrorKind            string                   `json:"error_kind,omitempty"`
	RequiresConfirmation bool                     `json:"requires_confirmation,omitempty"`
}

// PipelineResult 自然语言查询管线结果
type PipelineResult struct {
	Status               string           `json:"status"` // success/pending_confirmation/llm_unavailable/not_executable/error
	OriginalQuery        string           `json:"original_query"`
	SQLQuery             string           `json:"sql_query,omitempty"`
	Explanation          string           `json:"explanation,omitempty"`
	OperationType        string           `json:"operation_type,omitempty"`
	RequiresConfirmation bool             `json:"requires_confirmation,omitempty"`
	ConfirmationToken    string           `json:"confirmation_token,omitempty"`
	ExecutionResult      *ExecutionResult `json:"execution_result,omitempty"`
	Fallback             string           `json:"fallback,omitempty"`
	Error                string           `json:"error,omitempty"`
}
