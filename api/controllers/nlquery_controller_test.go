/*
 * @module api/controllers/nlquery_controller_test
 * @description 自然语言查询控制器集成测试
 * @architecture 测试层 - 控制器集成测试，模拟LLM服务走通完整管线
 * @documentReference ai_docs/test_plan.md
 * @stateFlow 模拟LLM服务 -> HTTP请求 -> 管线处理 -> 断言响应
 * @rules 覆盖查询、确认门和LLM不可用路径
 * @dependencies testing, testify, httptest, agridata-service/testutil
 * @refs nlquery_controller.go
 */

package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"agridata-service/service/cost"
	"agridata-service/service/models"
	"agridata-service/service/nlquery"
	"agridata-service/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type NLQueryControllerTestSuite struct {
	suite.Suite
	testDB     *testutil.TestDB
	factory    *testutil.TestDataFactory
	llmServer  *httptest.Server
	llmContent string
	router     *chi.Mux
}

func (suite *NLQueryControllerTestSuite) SetupSuite() {
	suite.testDB = testutil.NewTestDB()
	suite.factory = testutil.NewTestDataFactory(suite.testDB.DB)

	// 模拟LLM补全服务，返回suite.llmContent设置的内容
	suite.llmServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": suite.llmContent}},
			},
			"usage": map[string]int{"total_tokens": 321},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func (suite *NLQueryControllerTestSuite) TearDownSuite() {
	suite.llmServer.Close()
	suite.testDB.Close()
}

func (suite *NLQueryControllerTestSuite) SetupTest() {
	suite.testDB.CleanDB()

	suite.T().Setenv("LLM_API_URL", suite.llmServer.URL)
	suite.T().Setenv("LLM_API_KEY", "test-key-1234567890")

	translator := nlquery.NewLLMTranslator("farmers(id, farm_name)\n")
	service := nlquery.NewService(suite.testDB.DB, translator, nlquery.NewMemoryPendingStore(), nil,
		cost.NewService(suite.testDB.DB))
	controller := NewNLQueryController(service, translator)

	suite.router = chi.NewRouter()
	suite.router.Post("/api/natural-query", controller.ProcessQuery)
	suite.router.Post("/api/natural-query/confirm", controller.ConfirmQuery)
	suite.router.Get("/api/llm-status", controller.LLMStatus)
}

// postJSON 发送JSON请求并返回响应记录器
func (suite *NLQueryControllerTestSuite) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	require.NoError(suite.T(), err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *NLQueryControllerTestSuite) TestProcessSelectQuery() {
	suite.factory.CreateFarmer()
	suite.llmContent = `{"sql_query": "SELECT COUNT(*) AS farmer_count FROM farmers", "ready_to_execute": true, "explanation": "统计农户数量"}`

	w := suite.postJSON("/api/natural-query", models.NaturalQueryRequest{Query: "有多少农户"})

	require.Equal(suite.T(), http.StatusOK, w.Code)
	var result models.PipelineResult
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(suite.T(), "success", result.Status)
	assert.Equal(suite.T(), "SELECT", result.OperationType)
	require.NotNil(suite.T(), result.ExecutionResult)
	assert.Equal(suite.T(), 1, result.ExecutionResult.RowCount)
}

func (suite *NLQueryControllerTestSuite) TestProcessUnsafeDeleteThenConfirm() {
	suite.factory.CreateFarmer()
	suite.factory.CreateFarmer()
	suite.llmContent = `{"sql_query": "DELETE FROM farmers", "ready_to_execute": true}`

	w := suite.postJSON("/api/natural-query", models.NaturalQueryRequest{Query: "删掉所有农户"})

	require.Equal(suite.T(), http.StatusOK, w.Code)
	var pending models.PipelineResult
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &pending))
	assert.Equal(suite.T(), "pending_confirmation", pending.Status)
	require.NotEmpty(suite.T(), pending.ConfirmationToken)

	// 确认前不落库
	var count int64
	suite.testDB.DB.Raw("SELECT COUNT(*) FROM farmers").Scan(&count)
	assert.Equal(suite.T(), int64(2), count)

	w = suite.postJSON("/api/natural-query/confirm", models.ConfirmRequest{ConfirmationToken: pending.ConfirmationToken})

	require.Equal(suite.T(), http.StatusOK, w.Code)
	var confirmed models.PipelineResult
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &confirmed))
	assert.Equal(suite.T(), "success", confirmed.Status)

	suite.testDB.DB.Raw("SELECT COUNT(*) FROM farmers").Scan(&count)
	assert.Equal(suite.T(), int64(0), count)
}

func (suite *NLQueryControllerTestSuite) TestConfirmInvalidToken() {
	w := suite.postJSON("/api/natural-query/confirm", models.ConfirmRequest{ConfirmationToken: "no-such-token"})

	require.Equal(suite.T(), http.StatusOK, w.Code)
	var result models.PipelineResult
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(suite.T(), "error", result.Status)
}

func (suite *NLQueryControllerTestSuite) TestProcessBadRequestBody() {
	req := httptest.NewRequest(http.MethodPost, "/api/natural-query", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *NLQueryControllerTestSuite) TestLLMStatusUnavailableWithoutKey() {
	suite.T().Setenv("LLM_API_KEY", "")
	translator := nlquery.NewLLMTranslator("")
	service := nlquery.NewService(suite.testDB.DB, translator, nlquery.NewMemoryPendingStore(), nil, nil)
	controller := NewNLQueryController(service, translator)

	router := chi.NewRouter()
	router.Get("/api/llm-status", controller.LLMStatus)

	req := httptest.NewRequest(http.MethodGet, "/api/llm-status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(suite.T(), http.StatusOK, w.Code)
	var status nlquery.StatusCheck
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(suite.T(), status.Available)
}

func (suite *NLQueryControllerTestSuite) TestProcessQueryRecordsCost() {
	farmer := suite.factory.CreateFarmer()
	suite.factory.CreateCostRate("openai_gpt4")
	suite.llmContent = `{"sql_query": "SELECT COUNT(*) AS farmer_count FROM farmers", "ready_to_execute": true}`

	w := suite.postJSON("/api/natural-query", models.NaturalQueryRequest{
		Query:    "有多少农户",
		FarmerID: &farmer.ID,
	})

	require.Equal(suite.T(), http.StatusOK, w.Code)

	// 翻译消耗的Token按费率落成本流水
	var entry models.InteractionCost
	require.NoError(suite.T(), suite.testDB.DB.Where("farmer_id = ?", farmer.ID).First(&entry).Error)
	assert.Equal(suite.T(), "openai_gpt4", entry.APIService)
	require.NotNil(suite.T(), entry.TokensUsed)
	assert.Equal(suite.T(), 321, *entry.TokensUsed)
}

func (suite *NLQueryControllerTestSuite) TestZeroRowWriteReportsAffectedRows() {
	suite.factory.CreateFarmer()
	suite.llmContent = `{"sql_query": "DELETE FROM farmers WHERE city = '不存在的城市'", "ready_to_execute": true}`

	w := suite.postJSON("/api/natural-query", models.NaturalQueryRequest{Query: "删除那个城市的农户"})

	require.Equal(suite.T(), http.StatusOK, w.Code)
	var result models.PipelineResult
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(suite.T(), "success", result.Status)

	// 零行命中的写操作在响应体中显式给出affected_rows
	assert.Contains(suite.T(), w.Body.String(), `"affected_rows":0`)
}

func (suite *NLQueryControllerTestSuite) TestZeroRowSelectReportsRowCount() {
	suite.llmContent = `{"sql_query": "SELECT * FROM farmers WHERE city = '不存在的城市'", "ready_to_execute": true}`

	w := suite.postJSON("/api/natural-query", models.NaturalQueryRequest{Query: "那个城市有哪些农户"})

	require.Equal(suite.T(), http.StatusOK, w.Code)
	var result models.PipelineResult
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(suite.T(), "success", result.Status)
	assert.Contains(suite.T(), w.Body.String(), `"row_count":0`)
}

func (suite *NLQueryControllerTestSuite) TestProcessWithFarmerContext() {
	farmer := suite.factory.CreateFarmer()
	suite.llmContent = fmt.Sprintf(
		`{"sql_query": "SELECT * FROM fields WHERE farmer_id = %d", "ready_to_execute": true}`, farmer.ID)

	w := suite.postJSON("/api/natural-query", models.NaturalQueryRequest{
		Query:    "我的地块有哪些",
		FarmerID: &farmer.ID,
	})

	require.Equal(suite.T(), http.StatusOK, w.Code)
	var result models.PipelineResult
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(suite.T(), "success", result.Status)
}

func TestNLQueryControllerTestSuite(t *testing.T) {
	suite.Run(t, new(NLQueryControllerTestSuite))
}
