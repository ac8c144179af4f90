/*
 * @module service/nlquery/service
 * @description 自然语言查询管线编排器：翻译 -> 分类 -> 确认门 -> 执行 -> 结果整形
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/nlquery_pipeline.md
 * @stateFlow 校验问题 -> 取农户上下文 -> LLM翻译 -> 词法分类 ->
 *            需确认则暂存返回令牌 / 否则执行并附结果
 * @rules 空问题在任何网络调用前失败；上下文获取失败不致命；
 *        LLM不可用返回独立状态；所有异常在编排器边界收敛为结构化结果；
 *        失败不自动重试，单次失败对该请求即为终态
 * @dependencies gorm.io/gorm, github.com/prometheus/client_golang
 * @refs service/nlquery/classifier.go, executor.go, translator.go, pending.go
 */

package nlquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"agridata-service/service/models"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// 管线结果状态
const (
	StatusSuccess             = "success"
	StatusError               = "error"
	StatusPendingConfirmation = "pending_confirmation"
	StatusLLMUnavailable      = "llm_unavailable"
	StatusNotExecutable       = "not_executable"
)

// LLMUnavailableFallback LLM不可用时的用户提示
const LLMUnavailableFallback = "自然语言查询功能未配置，请使用标准查询或联系管理员配置LLM服务"

// AuditPublisher 变更审计发布接口，由audit包实现
type AuditPublisher interface {
	PublishMutation(ctx context.Context, sqlQuery string, operationType string, affectedRows int64, farmerID *int)
}

// CostTracker 交互成本登记接口，由cost包实现
type CostTracker interface {
	TrackTokens(farmerID int, interactionType, apiService string, tokens int) error
}

// LLM计价用的交互类型与服务名，对应cost_rates基础数据
const (
	costInteractionType = "natural_query"
	costAPIService      = "openai_gpt4"
)

// Service 自然语言查询管线服务
type Service struct {
	db         *gorm.DB
	translator Translator
	executor   *Executor
	pending    PendingStore
	audit      AuditPublisher
	costs      CostTracker
}

// NewService 创建管线服务实例
// audit 和 costs 可为nil，分别表示不发布变更审计事件和不登记交互成本
func NewService(db *gorm.DB, translator Translator, pending PendingStore, audit AuditPublisher, costs CostTracker) *Service {
	return &Service{
		db:         db,
		translator: translator,
		executor:   NewExecutor(db),
		pending:    pending,
		audit:      audit,
		costs:      costs,
	}
}

// Executor 返回底层执行器，供标准查询服务复用同一套结果整形
func (s *Service) Executor() *Executor {
	return s.executor
}

// Process 处理一次自然语言查询
// farmerID 可选，用于获取消歧用的农户上下文记录
func (s *Service) Process(ctx context.Context, question string, farmerID *int) (result *models.PipelineResult) {
	// 编排器边界：任何未预期的panic收敛为错误结果，不让请求崩溃
	defer func() {
		if r := recover(); r != nil {
			slog.Error("自然语言查询管线异常", "panic", r, "question", question)
			result = &models.PipelineResult{
				Status:        StatusError,
				OriginalQuery: question,
				Error:         fmt.Sprintf("内部错误: %v", r),
			}
			pipelineRequests.WithLabelValues(StatusError).Inc()
		}
	}()

	if question == "" {
		pipelineRequests.WithLabelValues(StatusError).Inc()
		return &models.PipelineResult{
			Status: StatusError,
			Error:  "问题不能为空",
		}
	}

	// 尽力获取农户上下文，失败不阻断管线
	farmerContext := s.fetchFarmerContext(ctx, farmerID)

	translation, err := s.translate(ctx, question, farmerContext)
	if err != nil {
		if errors.Is(err, ErrLLMUnavailable) {
			pipelineRequests.WithLabelValues(StatusLLMUnavailable).Inc()
			return &models.PipelineResult{
				Status:        StatusLLMUnavailable,
				OriginalQuery: question,
				Fallback:      LLMUnavailableFallback,
			}
		}
		pipelineRequests.WithLabelValues(StatusError).Inc()
		return &models.PipelineResult{
			Status:        StatusError,
			OriginalQuery: question,
			Error:         err.Error(),
		}
	}

	// 翻译成功即产生Token消耗，无论语句最终是否可执行都要计价
	s.trackTranslationCost(farmerID, translation.TokensUsed)

	// 翻译器未产出可执行语句时原样透传，不算错误
	if !translation.ReadyToExecute || translation.SQLQuery == "" {
		pipelineRequests.WithLabelValues(StatusNotExecutable).Inc()
		return &models.PipelineResult{
			Status:        StatusNotExecutable,
			OriginalQuery: question,
			SQLQuery:      translation.SQLQuery,
			Explanation:   translation.Explanation,
		}
	}

	operation, requiresConfirmation := Classify(translation.SQLQuery)

	if requiresConfirmation {
		token, err := s.pending.Put(ctx, PendingStatement{
			SQLQuery:      translation.SQLQuery,
			OperationType: operation,
			OriginalQuery: question,
		}, DefaultPendingTTL)
		if err != nil {
			pipelineRequests.WithLabelValues(StatusError).Inc()
			return &models.PipelineResult{
				Status:        StatusError,
				OriginalQuery: question,
				SQLQuery:      translation.SQLQuery,
				Error:         err.Error(),
			}
		}

		slog.Info("变更语句待确认",
			"operation_type", operation,
			"token", token)
		pipelineRequests.WithLabelValues(StatusPendingConfirmation).Inc()
		return &models.PipelineResult{
			Status:               StatusPendingConfirmation,
			OriginalQuery:        question,
			SQLQuery:             translation.SQLQuery,
			Explanation:          translation.Explanation,
			OperationType:        string(operation),
			RequiresConfirmation: true,
			ConfirmationToken:    token,
			ExecutionResult: &models.ExecutionResult{
				Status:               StatusError,
				OperationType:        string(operation),
				Error:                fmt.Sprintf("%s 语句缺少WHERE子句，需要确认后执行", operation),
				RequiresConfirmation: true,
			},
		}
	}

	execResult := s.execute(ctx, translation.SQLQuery, operation, farmerID)
	status := StatusSuccess
	if execResult.Status != StatusSuccess {
		status = StatusError
	}
	pipelineRequests.WithLabelValues(status).Inc()

	return &models.PipelineResult{
		Status:          status,
		OriginalQuery:   question,
		SQLQuery:        translation.SQLQuery,
		Explanation:     translation.Explanation,
		OperationType:   string(operation),
		ExecutionResult: &execResult,
	}
}

// Confirm 执行先前暂存的待确认语句
// 执行的是暂存的原始语句本身，令牌一次性消费
func (s *Service) Confirm(ctx context.Context, token string) *models.PipelineResult {
	if token == "" {
		return &models.PipelineResult{
			Status: StatusError,
			Error:  "确认令牌不能为空",
		}
	}

	stmt, ok, err := s.pending.Take(ctx, token)
	if err != nil {
		return &models.PipelineResult{
			Status: StatusError,
			Error:  err.Error(),
		}
	}
	if !ok {
		return &models.PipelineResult{
			Status: StatusError,
			Error:  "确认令牌无效或已过期，请重新提交查询",
		}
	}

	execResult := s.execute(ctx, stmt.SQLQuery, stmt.OperationType, nil)
	status := StatusSuccess
	if execResult.Status != StatusSuccess {
		status = StatusError
	}
	pipelineRequests.WithLabelValues(status).Inc()

	return &models.PipelineResult{
		Status:          status,
		OriginalQuery:   stmt.OriginalQuery,
		SQLQuery:        stmt.SQLQuery,
		OperationType:   string(stmt.OperationType),
		ExecutionResult: &execResult,
	}
}

// trackTranslationCost 登记一次LLM翻译的Token成本
// 成本登记是尽力而为的旁路，失败只记日志；无农户归属时跳过
func (s *Service) trackTranslationCost(farmerID *int, tokens int) {
	if s.costs == nil || farmerID == nil || tokens <= 0 {
		return
	}
	if err := s.costs.TrackTokens(*farmerID, costInteractionType, costAPIService, tokens); err != nil {
		slog.Warn("交互成本登记失败", "farmer_id", *farmerID, "tokens", tokens, "error", err)
	}
}

// translate 调用翻译器并记录耗时
func (s *Service) translate(ctx context.Context, question string, farmerContext map[string]interface{}) (*TranslationResult, error) {
	timer := prometheus.NewTimer(translateDuration)
	defer timer.ObserveDuration()
	return s.translator.Translate(ctx, question, farmerContext)
}

// execute 执行语句、记录指标并按需发布变更审计
func (s *Service) execute(ctx context.Context, sqlQuery string, operation OperationType, farmerID *int) models.ExecutionResult {
	result := s.executor.Execute(ctx, sqlQuery, operation)
	executedStatements.WithLabelValues(string(operation), result.Status).Inc()

	if result.Status == StatusSuccess && IsMutation(operation) && s.audit != nil {
		s.audit.PublishMutation(ctx, sqlQuery, string(operation), result.AffectedRows, farmerID)
	}
	return result
}

// fetchFarmerContext 尽力获取农户上下文记录，任何失败都返回nil
func (s *Service) fetchFarmerContext(ctx context.Context, farmerID *int) map[string]interface{} {
	if farmerID == nil {
		return nil
	}

	var farmer models.Farmer
	if err := s.db.WithContext(ctx).First(&farmer, *farmerID).Error; err != nil {
		slog.Warn("获取农户上下文失败，继续无上下文翻译", "farmer_id", *farmerID, "error", err)
		return nil
	}

	return map[string]interface{}{
		"id":           farmer.ID,
		"farm_name":    farmer.FarmName,
		"manager_name": farmer.ManagerName,
		"city":         farmer.City,
		"country":      farmer.Country,
	}
}
