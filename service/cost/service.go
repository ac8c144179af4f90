/*
 * @module service/cost/service
 * @description 成本核算服务，记录农户交互成本并按服务费率计价
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/requirements.md
 * @stateFlow LLM调用 -> 按费率计价 -> 成本流水落库 -> 汇总查询
 * @rules 费率按服务名唯一；未配置费率的服务按零成本记录流水；
 *        成本记录失败只记日志，不影响主流程
 * @dependencies gorm.io/gorm, github.com/spf13/cast
 * @refs service/models/cost.go
 */

package cost

import (
	"errors"
	"log/slog"

	"agridata-service/service/models"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// Service 成本核算服务
type Service struct {
	db *gorm.DB
}

// NewService 创建成本核算服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Track 记录一笔农户交互成本
func (s *Service) Track(farmerID int, interactionType string, costAmount float64, tokensUsed *int, apiService string) error {
	entry := &models.InteractionCost{
		FarmerID:        farmerID,
		InteractionType: interactionType,
		CostAmount:      costAmount,
		TokensUsed:      tokensUsed,
		APIService:      apiService,
	}
	if err := s.db.Create(entry).Error; err != nil {
		slog.Error("成本记录失败", "farmer_id", farmerID, "api_service", apiService, "error", err)
		return err
	}
	return nil
}

// TrackTokens 按Token用量和服务费率计价并记录
// 服务未配置费率时按零成本记录
func (s *Service) TrackTokens(farmerID int, interactionType, apiService string, tokens int) error {
	var rate models.CostRate
	costAmount := 0.0
	if err := s.db.Where("service_name = ?", apiService).First(&rate).Error; err == nil {
		costAmount = rate.CostPerUnit * cast.ToFloat64(tokens)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.Track(farmerID, interactionType, costAmount, &tokens, apiService)
}

// ListRates 获取全部服务费率
func (s *Service) ListRates() ([]models.CostRate, error) {
	var rates []models.CostRate
	if err := s.db.Order("service_name").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

// UpdateRate 按服务名更新费率
func (s *Service) UpdateRate(serviceName string, costPerUnit float64) (*models.CostRate, error) {
	if costPerUnit < 0 {
		return nil, errors.New("费率不能为负数")
	}

	var rate models.CostRate
	if err := s.db.Where("service_name = ?", serviceName).First(&rate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("服务费率不存在")
		}
		return nil, err
	}

	if err := s.db.Model(&rate).Update("cost_per_unit", costPerUnit).Error; err != nil {
		return nil, err
	}
	rate.CostPerUnit = costPerUnit
	return &rate, nil
}

// Summary 成本汇总，farmerID为nil时汇总全部
func (s *Service) Summary(farmerID *int) (*models.CostSummary, error) {
	query := s.db.Model(&models.InteractionCost{})
	if farmerID != nil {
		query = query.Where("farmer_id = ?", *farmerID)
	}

	type aggregate struct {
		TotalCost   float64
		TotalTokens int64
		Entries     int64
	}
	var agg aggregate
	err := query.Select(
		"COALESCE(SUM(cost_amount), 0) AS total_cost, " +
			"COALESCE(SUM(tokens_used), 0) AS total_tokens, " +
			"COUNT(*) AS entries").
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	return &models.CostSummary{
		FarmerID:    farmerID,
		TotalCost:   agg.TotalCost,
		TotalTokens: agg.TotalTokens,
		Entries:     agg.Entries,
		Currency:    "USD",
	}, nil
}
