/*
 * @module service/models/farmer
 * @description 农业数据核心模型定义，包括农户、地块、农事任务、农机等
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/model.md
 * @stateFlow 农户注册 -> 地块登记 -> 农事任务记录
 * @rules 与既有farmer_crm数据库表结构保持一致，主键为自增整型
 * @dependencies gorm.io/gorm
 * @refs ai_docs/requirements.md
 */

package models

import (
	"time"
)

// Farmer 农户模型
type Farmer struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	FarmName    string    `gorm:"size:255;not null" json:"farm_name"`
	ManagerName string    `gorm:"size:255" json:"manager_name"`
	Email       string    `gorm:"size:255" json:"email"`
	Phone       string    `gorm:"size:50" json:"phone"`
	City        string    `gorm:"size:100" json:"city"`
	Country     string    `gorm:"size:100" json:"country"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Fields []Field `gorm:"foreignKey:FarmerID" json:"fields,omitempty"`
}

// TableName 指定表名
func (Farmer) TableName() string {
	return "farmers"
}

// Field 地块模型
type Field struct {
	ID        int       `gorm:"primaryKey;autoIncrement" json:"id"`
	FarmerID  int       `gorm:"not null;index" json:"farmer_id"`
	FieldName string    `gorm:"size:255;not null" json:"field_name"`
	AreaHa    float64   `gorm:"column:area_ha" json:"area_ha"`
	Country   string    `gorm:"size:100" json:"country"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (Field) TableName() string {
	return "fields"
}

// Task 农事任务模型
type Task struct {
	ID            int        `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskType      string     `gorm:"size:100;not null" json:"task_type"`
	Description   string     `gorm:"type:text" json:"description"`
	DatePerformed *time.Time `json:"date_performed"`
	Status        string     `gorm:"size:50;default:'pending'" json:"status"` // pending/completed/cancelled
	CreatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Fields []Field `gorm:"many2many:task_fields;" json:"fields,omitempty"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}

// TaskField 任务-地块关联表
type TaskField struct {
	TaskID  int `gorm:"primaryKey" json:"task_id"`
	FieldID int `gorm:"primaryKey" json:"field_id"`
}

// TableName 指定表名
func (TaskField) TableName() string {
	return "task_fields"
}

// Machinery 农机设备模型
type Machinery struct {
	ID            int       `gorm:"primaryKey;autoIncrement" json:"id"`
	FarmerID      int       `gorm:"not null;index" json:"farmer_id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	MachineryType string    `gorm:"size:100" json:"machinery_type"`
	Year          int       `json:"year"`
	Notes         string    `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (Machinery) TableName() string {
	return "machinery"
}
