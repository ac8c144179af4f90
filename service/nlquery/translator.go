/*
 * @module service/nlquery/translator
 * @description 自然语言到SQL翻译器，封装对LLM补全服务的HTTP调用
 * @architecture 适配器模式 - 封装外部LLM服务，提供统一的翻译接口
 * @documentReference ai_docs/nlquery_pipeline.md
 * @stateFlow 问题+上下文 -> 提示词构造 -> LLM调用 -> 候选SQL解析
 * @rules 翻译器是不可信的易错预言机；未配置凭证或超时一律报告不可用，
 *        不可用与翻译结果不可执行必须区分
 * @dependencies net/http, encoding/json
 * @refs service/nlquery/service.go, service/schema
 */

package nlquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrLLMUnavailable LLM服务不可用（未配置凭证、网络故障或超时）
var ErrLLMUnavailable = errors.New("LLM服务不可用")

// TranslationResult 翻译器输出
// TokensUsed 来自补全响应的usage字段，不参与模型输出JSON的解析
type TranslationResult struct {
	SQLQuery       string `json:"sql_query"`
	ReadyToExecute bool   `json:"ready_to_execute"`
	Explanation    string `json:"explanation,omitempty"`
	TokensUsed     int    `json:"-"`
}

// Translator 自然语言到SQL翻译器接口
type Translator interface {
	// Translate 将自然语言问题翻译为候选SQL语句
	Translate(ctx context.Context, question string, farmerContext map[string]interface{}) (*TranslationResult, error)
	// Available 检查翻译服务是否已配置可用
	Available() bool
}

// LLMTranslator 基于OpenAI兼容补全接口的翻译器实现
type LLMTranslator struct {
	apiURL        string
	apiKey        string
	model         string
	schemaSummary string
	client        *http.Client
}

// NewLLMTranslator 创建翻译器实例
// 配置来自环境变量：LLM_API_URL、LLM_API_KEY、LLM_MODEL、LLM_TIMEOUT
// schemaSummary 为数据库结构契约摘要，随提示词发送以约束生成的SQL
func NewLLMTranslator(schemaSummary string) *LLMTranslator {
	apiURL := os.Getenv("LLM_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1/chat/completions"
	}
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := 30 * time.Second
	if val := os.Getenv("LLM_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			timeout = d
		}
	}

	return &LLMTranslator{
		apiURL:        apiURL,
		apiKey:        os.Getenv("LLM_API_KEY"),
		model:         model,
		schemaSummary: schemaSummary,
		client:        &http.Client{Timeout: timeout},
	}
}

// Available 检查是否配置了API密钥
func (t *LLMTranslator) Available() bool {
	return len(t.apiKey) > 10
}

// chatRequest OpenAI兼容的补全请求
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse OpenAI兼容的补全响应
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Translate 调用LLM将自然语言问题翻译为候选SQL
func (t *LLMTranslator) Translate(ctx context.Context, question string, farmerContext map[string]interface{}) (*TranslationResult, error) {
	if !t.Available() {
		return nil, ErrLLMUnavailable
	}

	body, err := json.Marshal(chatRequest{
		Model:       t.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: t.buildSystemPrompt()},
			{Role: "user", Content: buildUserPrompt(question, farmerContext)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		// 网络错误和超时统一视为服务不可用
		return nil, ErrLLMUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode >= http.StatusInternalServerError {
		return nil, ErrLLMUnavailable
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("LLM调用失败: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("LLM未返回任何候选")
	}

	result := parseTranslation(chatResp.Choices[0].Message.Content)
	result.TokensUsed = chatResp.Usage.TotalTokens
	return result, nil
}

// buildSystemPrompt 构造系统提示词，携带数据库结构契约
func (t *LLMTranslator) buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("你是农业数据库的SQL助手。根据用户问题生成一条PostgreSQL语句。\n")
	sb.WriteString("数据库结构如下：\n")
	sb.WriteString(t.schemaSummary)
	sb.WriteString("\n只返回JSON对象：{\"sql_query\": \"...\", \"ready_to_execute\": true, \"explanation\": \"...\"}。")
	sb.WriteString("无法生成可执行SQL时将 ready_to_execute 置为 false 并在 explanation 中说明原因。")
	return sb.String()
}

// buildUserPrompt 构造用户提示词，附带可选的农户上下文记录
func buildUserPrompt(question string, farmerContext map[string]interface{}) string {
	if len(farmerContext) == 0 {
		return question
	}
	contextJSON, err := json.Marshal(farmerContext)
	if err != nil {
		return question
	}
	return fmt.Sprintf("%s\n\n当前农户上下文：%s", question, contextJSON)
}

// parseTranslation 解析LLM输出为翻译结果
// 模型偶尔会把JSON包在markdown代码块里，先剥离围栏再解析；
// 解析失败时原样透传文本并标记为不可执行
func parseTranslation(content string) *TranslationResult {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var result TranslationResult
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return &TranslationResult{
			ReadyToExecute: false,
			Explanation:    content,
		}
	}
	if result.SQLQuery == "" {
		result.ReadyToExecute = false
	}
	return &result
}

// StatusCheck 翻译服务状态探测结果
type StatusCheck struct {
	Available bool   `json:"available"`
	Model     string `json:"model,omitempty"`
	Message   string `json:"message"`
}

// Status 探测翻译服务可用性，用于 /api/llm-status
func (t *LLMTranslator) Status(ctx context.Context) StatusCheck {
	if !t.Available() {
		return StatusCheck{
			Available: false,
			Message:   "LLM未配置：缺少 LLM_API_KEY",
		}
	}

	result, err := t.Translate(ctx, "返回一条统计农户数量的SQL", nil)
	if err != nil {
		return StatusCheck{
			Available: false,
			Model:     t.model,
			Message:   fmt.Sprintf("LLM连接检查失败: %v", err),
		}
	}

	return StatusCheck{
		Available: true,
		Model:     t.model,
		Message:   fmt.Sprintf("LLM连接正常, ready_to_execute=%v", result.ReadyToExecute),
	}
}
