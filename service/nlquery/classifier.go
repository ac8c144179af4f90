/*
 * @module service/nlquery/classifier
 * @description SQL语句安全分类器，根据首关键字判定操作类型并给出确认要求
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/nlquery_pipeline.md
 * @stateFlow 候选SQL -> 词法判定 -> (操作类型, 是否需确认)
 * @rules 纯函数，不做SQL解析和表列校验；仅是最低限度的词法安全网，不是安全边界
 * @dependencies strings
 * @refs service/nlquery/service.go
 */

package nlquery

import (
	"strings"
)

// OperationType SQL操作类型，由语句首关键字推导
type OperationType string

const (
	OperationSelect      OperationType = "SELECT"
	OperationInsert      OperationType = "INSERT"
	OperationUpdate      OperationType = "UPDATE"
	OperationDelete      OperationType = "DELETE"
	OperationTransaction OperationType = "TRANSACTION"
)

// Classify 对候选SQL语句进行分类
// 返回操作类型以及是否需要调用方确认后才能执行。
// 判定规则：去除首尾空白并转大写后，按首关键字判定 INSERT/UPDATE/DELETE，
// BEGIN 视为事务，其余一律按 SELECT 处理（合法输出绝大多数为读查询）。
// UPDATE/DELETE 语句若不含 WHERE 子串则要求确认。
// 分类永不失败；BEGIN 事务块内的子语句不做 WHERE 检查。
func Classify(sql string) (OperationType, bool) {
	upper := strings.ToUpper(strings.TrimSpace(sql))

	operation := OperationSelect
	switch {
	case strings.HasPrefix(upper, "INSERT"):
		operation = OperationInsert
	case strings.HasPrefix(upper, "UPDATE"):
		operation = OperationUpdate
	case strings.HasPrefix(upper, "DELETE"):
		operation = OperationDelete
	case strings.HasPrefix(upper, "BEGIN"):
		operation = OperationTransaction
	}

	requiresConfirmation := false
	if operation == OperationUpdate || operation == OperationDelete {
		requiresConfirmation = !strings.Contains(upper, "WHERE")
	}

	return operation, requiresConfirmation
}

// IsMutation 判断操作类型是否会修改数据
func IsMutation(op OperationType) bool {
	return op != OperationSelect
}
