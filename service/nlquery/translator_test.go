/*
 * @module service/nlquery/translator_test
 * @description LLM翻译器单元测试，使用httptest模拟补全服务
 * @architecture 测试层 - 基于httptest的适配器测试
 * @documentReference ai_docs/test_plan.md
 * @stateFlow 模拟LLM服务 -> 翻译调用 -> 断言结果与错误分类
 * @rules 未配置凭证、网络故障、5xx统一报告不可用；代码块围栏需被剥离
 * @dependencies testing, testify, net/http/httptest
 * @refs translator.go
 */

package nlquery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTranslator 创建指向模拟服务的翻译器
func newTestTranslator(t *testing.T, serverURL string) *LLMTranslator {
	t.Setenv("LLM_API_URL", serverURL)
	t.Setenv("LLM_API_KEY", "test-key-1234567890")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	return NewLLMTranslator("farmers(id, farm_name)\n")
}

// chatCompletionResponse 构造一条补全响应体
func chatCompletionResponse(content string) string {
	return chatCompletionResponseWithUsage(content, 0)
}

// chatCompletionResponseWithUsage 构造带usage统计的补全响应体
func chatCompletionResponseWithUsage(content string, totalTokens int) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	if totalTokens > 0 {
		resp["usage"] = map[string]int{"total_tokens": totalTokens}
	}
	body, _ := json.Marshal(resp)
	return string(body)
}

func TestTranslatorUnavailableWithoutKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	translator := NewLLMTranslator("")

	assert.False(t, translator.Available())

	_, err := translator.Translate(context.Background(), "有多少农户", nil)
	assert.True(t, errors.Is(err, ErrLLMUnavailable))
}

func TestTranslatorSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key-1234567890", r.Header.Get("Authorization"))
		w.Write([]byte(chatCompletionResponse(
			`{"sql_query": "SELECT COUNT(*) FROM farmers", "ready_to_execute": true, "explanation": "统计农户数量"}`)))
	}))
	defer server.Close()

	translator := newTestTranslator(t, server.URL)
	result, err := translator.Translate(context.Background(), "有多少农户", nil)

	require.NoError(t, err)
	assert.True(t, result.ReadyToExecute)
	assert.Equal(t, "SELECT COUNT(*) FROM farmers", result.SQLQuery)
	assert.Equal(t, "统计农户数量", result.Explanation)
}

func TestTranslatorParsesUsageTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletionResponseWithUsage(
			`{"sql_query": "SELECT COUNT(*) FROM farmers", "ready_to_execute": true}`, 567)))
	}))
	defer server.Close()

	translator := newTestTranslator(t, server.URL)
	result, err := translator.Translate(context.Background(), "有多少农户", nil)

	require.NoError(t, err)
	assert.Equal(t, 567, result.TokensUsed)
}

func TestTranslatorMissingUsageDefaultsToZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletionResponse(
			`{"sql_query": "SELECT COUNT(*) FROM farmers", "ready_to_execute": true}`)))
	}))
	defer server.Close()

	translator := newTestTranslator(t, server.URL)
	result, err := translator.Translate(context.Background(), "有多少农户", nil)

	require.NoError(t, err)
	assert.Zero(t, result.TokensUsed)
}

func TestTranslatorStripsCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletionResponse(
			"```json\n{\"sql_query\": \"SELECT * FROM fields\", \"ready_to_execute\": true}\n```")))
	}))
	defer server.Close()

	translator := newTestTranslator(t, server.URL)
	result, err := translator.Translate(context.Background(), "列出地块", nil)

	require.NoError(t, err)
	assert.True(t, result.ReadyToExecute)
	assert.Equal(t, "SELECT * FROM fields", result.SQLQuery)
}

func TestTranslatorUnparseableContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletionResponse("抱歉，这个问题无法转换为SQL查询。")))
	}))
	defer server.Close()

	translator := newTestTranslator(t, server.URL)
	result, err := translator.Translate(context.Background(), "今天天气怎么样", nil)

	// 不可解析的输出不是错误，标记为不可执行并透传原文
	require.NoError(t, err)
	assert.False(t, result.ReadyToExecute)
	assert.Empty(t, result.SQLQuery)
	assert.Contains(t, result.Explanation, "无法转换")
}

func TestTranslatorServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	translator := newTestTranslator(t, server.URL)
	_, err := translator.Translate(context.Background(), "有多少农户", nil)

	assert.True(t, errors.Is(err, ErrLLMUnavailable))
}

func TestTranslatorUnauthorizedIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	translator := newTestTranslator(t, server.URL)
	_, err := translator.Translate(context.Background(), "有多少农户", nil)

	assert.True(t, errors.Is(err, ErrLLMUnavailable))
}

func TestTranslatorNetworkErrorIsUnavailable(t *testing.T) {
	// 指向一个已关闭的地址
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	translator := newTestTranslator(t, serverURL)
	_, err := translator.Translate(context.Background(), "有多少农户", nil)

	assert.True(t, errors.Is(err, ErrLLMUnavailable))
}

func TestTranslatorEmptySQLNotExecutable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletionResponse(
			`{"sql_query": "", "ready_to_execute": true, "explanation": "缺少信息"}`)))
	}))
	defer server.Close()

	translator := newTestTranslator(t, server.URL)
	result, err := translator.Translate(context.Background(), "更新那个东西", nil)

	require.NoError(t, err)
	assert.False(t, result.ReadyToExecute)
}

func TestParseTranslation(t *testing.T) {
	result := parseTranslation(`{"sql_query": "SELECT 1", "ready_to_execute": true}`)
	assert.True(t, result.ReadyToExecute)
	assert.Equal(t, "SELECT 1", result.SQLQuery)

	result = parseTranslation("not json at all")
	assert.False(t, result.ReadyToExecute)
	assert.Equal(t, "not json at all", result.Explanation)
}

func TestStatusWithoutKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	translator := NewLLMTranslator("")

	status := translator.Status(context.Background())
	assert.False(t, status.Available)
	assert.Contains(t, status.Message, "LLM_API_KEY")
}

func TestStatusWithWorkingService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatCompletionResponse(
			`{"sql_query": "SELECT COUNT(*) FROM farmers", "ready_to_execute": true}`)))
	}))
	defer server.Close()

	translator := newTestTranslator(t, server.URL)
	status := translator.Status(context.Background())

	assert.True(t, status.Available)
	assert.Equal(t, "gpt-4o-mini", status.Model)
}
