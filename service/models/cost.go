/*
 * @module service/models/cost
 * @description 成本核算模型定义，包括农户交互成本流水和服务费率
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/model.md
 * @stateFlow LLM/外部服务调用 -> 成本流水记录 -> 按农户汇总
 * @rules 费率按服务名唯一，成本金额保留六位小数
 * @dependencies gorm.io/gorm
 * @refs service/cost
 */

package models

import (
	"time"
)

// InteractionCost 农户交互成本流水
type InteractionCost struct {
	ID              int       `gorm:"primaryKey;autoIncrement" json:"id"`
	FarmerID        int       `gorm:"not null;index" json:"farmer_id"`
	InteractionType string    `gorm:"size:50;not null" json:"interaction_type"`
	CostAmount      float64   `gorm:"type:decimal(10,6);not null" json:"cost_amount"`
	TokensUsed      *int      `json:"tokens_used"`
	APIService      string    `gorm:"column:api_service;size:50;not null" json:"api_service"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName 指定表名
func (InteractionCost) TableName() string {
	return "farmer_interaction_costs"
}

// CostRate 服务费率
type CostRate struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	ServiceName string    `gorm:"size:50;uniqueIndex;not null" json:"service_name"`
	CostPerUnit float64   `gorm:"type:decimal(10,6);not null" json:"cost_per_unit"`
	UnitType    string    `gorm:"size:20;not null" json:"unit_type"` // token/message/api_call
	Currency    string    `gorm:"size:3;default:'USD'" json:"currency"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (CostRate) TableName() string {
	return "cost_rates"
}

// CostSummary 成本汇总
type CostSummary struct {
	FarmerID    *int    `json:"farmer_id,omitempty"`
	TotalCost   float64 `json:"total_cost"`
	TotalTokens int64   `json:"total_tokens"`
	Entries     int64   `json:"entries"`
	Currency    string  `json:"currency"`
}
