/*
 * @module service/schema/schema_service
 * @description 数据库结构契约服务，以显式版本化契约替代请求时的动态结构发现
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/schema_contract.md
 * @stateFlow 启动时校验一次契约 -> 运行期只读访问
 * @rules 契约在启动时对照information_schema校验一次，请求处理路径不做结构发现；
 *        契约摘要供LLM提示词和 /meta/schema 使用
 * @dependencies gorm.io/gorm
 * @refs service/nlquery/translator.go, api/controllers/meta_controller.go
 */

package schema

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// ContractVersion 契约版本，表结构变更时递增
const ContractVersion = "1.0"

// Contract 数据库结构契约：逻辑表名到列名清单的映射
type Contract map[string][]string

// DefaultContract 当前服务依赖的表结构契约
func DefaultContract() Contract {
	return Contract{
		"farmers":                  {"id", "farm_name", "manager_name", "email", "phone", "city", "country", "created_at"},
		"fields":                   {"id", "farmer_id", "field_name", "area_ha", "country", "notes", "created_at"},
		"tasks":                    {"id", "task_type", "description", "date_performed", "status", "created_at"},
		"task_fields":              {"task_id", "field_id"},
		"machinery":                {"id", "farmer_id", "name", "machinery_type", "year", "notes", "created_at"},
		"standard_queries":         {"id", "query_name", "sql_query", "description", "natural_language_query", "created_at", "farmer_id", "usage_count", "is_global"},
		"farmer_interaction_costs": {"id", "farmer_id", "interaction_type", "cost_amount", "tokens_used", "api_service", "created_at"},
		"cost_rates":               {"id", "service_name", "cost_per_unit", "unit_type", "currency", "updated_at"},
	}
}

// Service 结构契约服务
type Service struct {
	db       *gorm.DB
	contract Contract
}

// NewService 创建结构契约服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, contract: DefaultContract()}
}

// Contract 返回契约内容
func (s *Service) Contract() Contract {
	return s.contract
}

// Version 返回契约版本
func (s *Service) Version() string {
	return ContractVersion
}

// Validate 对照数据库实际结构校验契约，启动时调用一次
// 仅校验契约列是否全部存在，数据库中的多余列不视为冲突
func (s *Service) Validate() error {
	if s.db.Dialector.Name() != "postgres" {
		// 测试环境使用sqlite，跳过information_schema校验
		slog.Info("非PostgreSQL方言，跳过结构契约校验", "dialect", s.db.Dialector.Name())
		return nil
	}

	for table, wantColumns := range s.contract {
		var gotColumns []string
		err := s.db.Raw(`
			SELECT column_name FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = ?
			ORDER BY ordinal_position`, table).Scan(&gotColumns).Error
		if err != nil {
			return fmt.Errorf("校验表 %s 失败: %w", table, err)
		}
		if len(gotColumns) == 0 {
			return fmt.Errorf("契约表 %s 不存在", table)
		}

		existing := make(map[string]bool, len(gotColumns))
		for _, col := range gotColumns {
			existing[col] = true
		}
		for _, col := range wantColumns {
			if !existing[col] {
				return fmt.Errorf("契约校验失败: 表 %s 缺少列 %s", table, col)
			}
		}
	}

	slog.Info("数据库结构契约校验通过", "version", ContractVersion, "tables", len(s.contract))
	return nil
}

// Summary 生成契约的文本摘要，用于LLM提示词
func (s *Service) Summary() string {
	tables := make([]string, 0, len(s.contract))
	for table := range s.contract {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var sb strings.Builder
	for _, table := range tables {
		sb.WriteString(table)
		sb.WriteString("(")
		sb.WriteString(strings.Join(s.contract[table], ", "))
		sb.WriteString(")\n")
	}
	return sb.String()
}
