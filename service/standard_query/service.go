/*
 * @module service/standard_query/service
 * @description 标准查询服务，管理已保存SQL查询的保存、列表、执行和删除
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/standard_query.md
 * @stateFlow 保存(超限淘汰) -> 列表 -> 按ID执行并累计使用次数 -> 删除(全局保护)
 * @rules 每个农户最多保存10条，超限淘汰usage_count最低、created_at最早的一条；
 *        全局查询不允许通过删除接口删除；执行复用nlquery的结果整形
 * @dependencies gorm.io/gorm, agridata-service/service/nlquery
 * @refs service/models/query.go
 */

package standard_query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"agridata-service/service/models"
	"agridata-service/service/nlquery"

	"gorm.io/gorm"
)

// MaxQueriesPerFarmer 单个农户可保存的标准查询上限
const MaxQueriesPerFarmer = 10

// MaxQueryNameLength 查询名称最大长度
const MaxQueryNameLength = 255

var (
	// ErrNotFound 查询不存在
	ErrNotFound = errors.New("标准查询不存在")
	// ErrGlobalProtected 全局查询受保护，不允许删除
	ErrGlobalProtected = errors.New("全局标准查询不允许删除")
)

// Service 标准查询服务
type Service struct {
	db       *gorm.DB
	executor *nlquery.Executor
}

// NewService 创建标准查询服务实例
// executor 与自然语言查询管线共用，保证两条路径的结果整形一致
func NewService(db *gorm.DB, executor *nlquery.Executor) *Service {
	return &Service{db: db, executor: executor}
}

// Save 保存一条标准查询
// 农户已保存满10条时，先淘汰usage_count最低（并列时created_at最早）的一条
func (s *Service) Save(req *models.SaveStandardQueryRequest) (*models.StandardQuery, error) {
	if req.QueryName == "" || req.SQLQuery == "" {
		return nil, errors.New("查询名称和SQL语句不能为空")
	}
	if len(req.QueryName) > MaxQueryNameLength {
		return nil, fmt.Errorf("查询名称过长（最多%d字符）", MaxQueryNameLength)
	}

	query := &models.StandardQuery{
		QueryName:            req.QueryName,
		SQLQuery:             req.SQLQuery,
		NaturalLanguageQuery: req.NaturalLanguageQuery,
		FarmerID:             req.FarmerID,
		IsGlobal:             false,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if req.FarmerID != nil {
			var count int64
			if err := tx.Model(&models.StandardQuery{}).
				Where("farmer_id = ?", *req.FarmerID).
				Count(&count).Error; err != nil {
				return err
			}

			if count >= MaxQueriesPerFarmer {
				var evict models.StandardQuery
				if err := tx.Where("farmer_id = ?", *req.FarmerID).
					Order("usage_count ASC, created_at ASC").
					First(&evict).Error; err != nil {
					return err
				}
				if err := tx.Delete(&evict).Error; err != nil {
					return err
				}
				slog.Info("标准查询超限，淘汰最少使用的一条",
					"farmer_id", *req.FarmerID,
					"evicted_id", evict.ID,
					"evicted_name", evict.QueryName)
			}
		}

		return tx.Create(query).Error
	})
	if err != nil {
		return nil, fmt.Errorf("保存标准查询失败: %w", err)
	}

	return query, nil
}

// List 获取标准查询列表
// 指定农户时返回该农户的查询加全局查询（按使用次数降序，最多15条）；
// 未指定农户时返回所有非农户专属的查询，全局条目排前
func (s *Service) List(farmerID *int) ([]models.StandardQuery, error) {
	var queries []models.StandardQuery

	if farmerID != nil {
		err := s.db.Where("farmer_id = ? OR is_global = ?", *farmerID, true).
			Order("usage_count DESC, created_at DESC").
			Limit(15).
			Find(&queries).Error
		if err != nil {
			return nil, err
		}
		return queries, nil
	}

	err := s.db.Where("farmer_id IS NULL").
		Order("is_global DESC, usage_count DESC, created_at DESC").
		Find(&queries).Error
	if err != nil {
		return nil, err
	}
	return queries, nil
}

// RunResult 标准查询执行结果
type RunResult struct {
	QueryName string                   `json:"query_name"`
	SQLQuery  string                   `json:"sql_query"`
	RowCount  int                      `json:"row_count"`
	Data      []map[string]interface{} `json:"data"`
}

// Run 按ID执行标准查询并累计使用次数
// 使用次数更新失败仅记录日志，不阻断执行
func (s *Service) Run(ctx context.Context, id int) (*RunResult, error) {
	var query models.StandardQuery
	if err := s.db.First(&query, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.db.Model(&models.StandardQuery{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
		slog.Warn("更新标准查询使用次数失败", "id", id, "error", err)
	}

	operation, _ := nlquery.Classify(query.SQLQuery)
	result := s.executor.Execute(ctx, query.SQLQuery, operation)
	if result.Status != "success" {
		return nil, fmt.Errorf("查询执行失败: %s", result.Error)
	}

	return &RunResult{
		QueryName: query.QueryName,
		SQLQuery:  query.SQLQuery,
		RowCount:  result.RowCount,
		Data:      result.Data,
	}, nil
}

// Delete 按ID删除标准查询，全局查询受保护
func (s *Service) Delete(id int) error {
	result := s.db.Where("id = ? AND is_global = ?", id, false).
		Delete(&models.StandardQuery{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 区分"不存在"与"全局受保护"两种情况
		var count int64
		s.db.Model(&models.StandardQuery{}).Where("id = ?", id).Count(&count)
		if count > 0 {
			return ErrGlobalProtected
		}
		return ErrNotFound
	}
	return nil
}
