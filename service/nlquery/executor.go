/*
 * @module service/nlquery/executor
 * @description SQL执行器，执行已分类的原生SQL并归一化为统一的执行结果
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/nlquery_pipeline.md
 * @stateFlow 已分类SQL -> 超时上下文 -> 执行/提交 -> 结果整形
 * @rules 读操作不提交事务；写操作显式提交；零行命中视为成功；
 *        确认前置条件由编排器保证，执行器本身不做确认检查
 * @dependencies gorm.io/gorm, github.com/lib/pq, github.com/spf13/cast
 * @refs service/nlquery/service.go, service/standard_query
 */

package nlquery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"agridata-service/service/models"

	"github.com/lib/pq"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// ErrorKind 执行错误的封闭分类，消息文本仅作补充诊断信息
const (
	ErrorKindConnectionFailed  = "connection_failed"
	ErrorKindStatementRejected = "statement_rejected"
	ErrorKindExecutionFailed   = "execution_failed"
	ErrorKindTimeout           = "timeout"
)

// DefaultQueryTimeout 单条语句的默认执行超时
const DefaultQueryTimeout = 30 * time.Second

// Executor SQL执行器
type Executor struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewExecutor 创建SQL执行器实例
// 超时可通过 QUERY_TIMEOUT 环境变量覆盖（如 "10s"）
func NewExecutor(db *gorm.DB) *Executor {
	timeout := DefaultQueryTimeout
	if val := os.Getenv("QUERY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			timeout = d
		}
	}
	return &Executor{db: db, timeout: timeout}
}

// Execute 执行一条已分类的SQL语句
// SELECT 抓取全部行并按列名整形；写操作在事务中执行并提交，
// 返回驱动报告的受影响行数。任何驱动层错误都被捕获为错误结果。
func (e *Executor) Execute(ctx context.Context, sqlQuery string, operation OperationType) models.ExecutionResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if operation == OperationSelect {
		return e.executeRead(ctx, sqlQuery, operation)
	}
	return e.executeWrite(ctx, sqlQuery, operation)
}

// executeRead 执行读查询，不提交任何事务
func (e *Executor) executeRead(ctx context.Context, sqlQuery string, operation OperationType) models.ExecutionResult {
	rows, err := e.db.WithContext(ctx).Raw(sqlQuery).Rows()
	if err != nil {
		return failureResult(operation, err)
	}
	defer rows.Close()

	data, err := ShapeRows(rows)
	if err != nil {
		return failureResult(operation, err)
	}

	return models.ExecutionResult{
		Status:        "success",
		OperationType: string(operation),
		RowCount:      len(data),
		Data:          data,
	}
}

// executeWrite 执行写语句，事务内执行并显式提交
// 零行命中返回 affected_rows = 0 的成功结果，不视为失败
func (e *Executor) executeWrite(ctx context.Context, sqlQuery string, operation OperationType) models.ExecutionResult {
	var affected int64
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(sqlQuery)
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return failureResult(operation, err)
	}

	return models.ExecutionResult{
		Status:        "success",
		OperationType: string(operation),
		AffectedRows:  affected,
		Message:       fmt.Sprintf("%s executed successfully", operation),
	}
}

// ShapeRows 将查询结果整形为列名到值的记录序列
// 自然语言查询与标准查询共用本函数，保证列命名和空值处理行为一致。
// 字节切片统一转为字符串，便于JSON序列化。
func ShapeRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("获取列名失败: %w", err)
	}

	data := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("扫描行数据失败: %w", err)
		}

		rowData := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			switch val := values[i].(type) {
			case []byte:
				rowData[col] = cast.ToString(val)
			default:
				rowData[col] = val
			}
		}
		data = append(data, rowData)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历数据失败: %w", err)
	}
	return data, nil
}

// failureResult 将驱动层错误映射为带分类的失败结果
func failureResult(operation OperationType, err error) models.ExecutionResult {
	return models.ExecutionResult{
		Status:        "error",
		OperationType: string(operation),
		Error:         err.Error(),
		ErrorKind:     classifyError(err),
	}
}

// classifyError 将错误映射到封闭的错误分类
func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 08类为连接异常，57P类为管理员关闭连接
		class := pqErr.Code.Class()
		if class == "08" || class == "57" {
			return ErrorKindConnectionFailed
		}
		// 42类为语法/对象不存在等语句级错误
		if class == "42" {
			return ErrorKindStatementRejected
		}
	}
	return ErrorKindExecutionFailed
}
