/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建表结构并初始化基础数据
 * @architecture 数据访问层 - 迁移管理
 * @documentReference ai_docs/model.md
 * @stateFlow 应用启动时执行数据库迁移和基础数据初始化
 * @rules 确保数据库结构与模型定义保持一致；基础数据初始化幂等
 * @dependencies agridata-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"log"

	"agridata-service/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 农业档案相关表
	err := db.AutoMigrate(
		&models.Farmer{},
		&models.Field{},
		&models.Task{},
		&models.TaskField{},
		&models.Machinery{},
	)
	if err != nil {
		return err
	}

	// 查询与成本核算相关表
	err = db.AutoMigrate(
		&models.StandardQuery{},
		&models.InteractionCost{},
		&models.CostRate{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}

// InitializeData 初始化基础数据：默认全局标准查询与服务费率
// 多次执行幂等，已存在的记录不会重复插入
func InitializeData(db *gorm.DB) error {
	if err := seedStandardQueries(db); err != nil {
		return err
	}
	return seedCostRates(db)
}

// seedStandardQueries 内置全局标准查询
func seedStandardQueries(db *gorm.DB) error {
	defaults := []models.StandardQuery{
		{
			QueryName:   "农户总数",
			SQLQuery:    "SELECT COUNT(*) AS farmer_count FROM farmers",
			Description: "统计已注册农户数量",
			IsGlobal:    true,
		},
		{
			QueryName:   "地块总面积",
			SQLQuery:    "SELECT COALESCE(SUM(area_ha), 0) AS total_hectares FROM fields",
			Description: "统计全部地块面积（公顷）",
			IsGlobal:    true,
		},
		{
			QueryName:   "各国农户分布",
			SQLQuery:    "SELECT country, COUNT(*) AS farmer_count FROM farmers GROUP BY country ORDER BY farmer_count DESC",
			Description: "按国家统计农户数量",
			IsGlobal:    true,
		},
		{
			QueryName:   "未完成任务",
			SQLQuery:    "SELECT id, task_type, description, status FROM tasks WHERE status = 'pending' ORDER BY created_at",
			Description: "列出全部待处理的农事任务",
			IsGlobal:    true,
		},
	}

	for _, query := range defaults {
		var count int64
		if err := db.Model(&models.StandardQuery{}).
			Where("query_name = ? AND is_global = ?", query.QueryName, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&query).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// seedCostRates 内置默认服务费率
func seedCostRates(db *gorm.DB) error {
	defaults := []models.CostRate{
		{ServiceName: "openai_gpt4", CostPerUnit: 0.00002, UnitType: "token", Currency: "USD"},
		{ServiceName: "twilio_whatsapp_out", CostPerUnit: 0.0075, UnitType: "message", Currency: "USD"},
		{ServiceName: "twilio_whatsapp_in", CostPerUnit: 0.005, UnitType: "message", Currency: "USD"},
		{ServiceName: "openweather_api", CostPerUnit: 0.001, UnitType: "api_call", Currency: "USD"},
	}

	for _, rate := range defaults {
		var count int64
		if err := db.Model(&models.CostRate{}).
			Where("service_name = ?", rate.ServiceName).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&rate).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
