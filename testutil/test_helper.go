/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agridata-service/service/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Farmer{},
		&models.Field{},
		&models.Task{},
		&models.TaskField{},
		&models.Machinery{},
		&models.StandardQuery{},
		&models.InteractionCost{},
		&models.CostRate{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	// 清空所有表的数据
	tables := []string{
		"task_fields",
		"tasks",
		"machinery",
		"fields",
		"farmers",
		"standard_queries",
		"farmer_interaction_costs",
		"cost_rates",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// FarmerOption 农户选项函数类型
type FarmerOption func(*models.Farmer)

// CreateFarmer 创建测试农户
func (f *TestDataFactory) CreateFarmer(opts ...FarmerOption) *models.Farmer {
	farmer := &models.Farmer{
		FarmName:    "测试农场_" + generateSuffix(),
		ManagerName: "测试农户",
		Email:       fmt.Sprintf("farmer_%s@example.com", generateSuffix()),
		Phone:       "13800138000",
		City:        "哈尔滨",
		Country:     "中国",
		CreatedAt:   time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(farmer)
	}

	err := f.DB.Create(farmer).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test farmer: %v", err))
	}

	return farmer
}

// FieldOption 地块选项函数类型
type FieldOption func(*models.Field)

// CreateField 创建测试地块
func (f *TestDataFactory) CreateField(farmerID int, opts ...FieldOption) *models.Field {
	field := &models.Field{
		FarmerID:  farmerID,
		FieldName: "测试地块_" + generateSuffix(),
		AreaHa:    12.5,
		Country:   "中国",
		Notes:     "测试用地块",
		CreatedAt: time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(field)
	}

	err := f.DB.Create(field).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test field: %v", err))
	}

	return field
}

// TaskOption 任务选项函数类型
type TaskOption func(*models.Task)

// CreateTask 创建测试农事任务并关联地块
func (f *TestDataFactory) CreateTask(fieldIDs []int, opts ...TaskOption) *models.Task {
	now := time.Now()
	task := &models.Task{
		TaskType:      "播种",
		Description:   "测试农事任务",
		DatePerformed: &now,
		Status:        "pending",
		CreatedAt:     now,
	}

	// 应用选项
	for _, opt := range opts {
		opt(task)
	}

	err := f.DB.Create(task).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test task: %v", err))
	}

	for _, fieldID := range fieldIDs {
		link := &models.TaskField{TaskID: task.ID, FieldID: fieldID}
		if err := f.DB.Create(link).Error; err != nil {
			panic(fmt.Sprintf("failed to link test task to field: %v", err))
		}
	}

	return task
}

// MachineryOption 农机选项函数类型
type MachineryOption func(*models.Machinery)

// CreateMachinery 创建测试农机
func (f *TestDataFactory) CreateMachinery(farmerID int, opts ...MachineryOption) *models.Machinery {
	machinery := &models.Machinery{
		FarmerID:      farmerID,
		Name:          "测试拖拉机_" + generateSuffix(),
		MachineryType: "tractor",
		Year:          2022,
		CreatedAt:     time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(machinery)
	}

	err := f.DB.Create(machinery).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test machinery: %v", err))
	}

	return machinery
}

// StandardQueryOption 标准查询选项函数类型
type StandardQueryOption func(*models.StandardQuery)

// CreateStandardQuery 创建测试标准查询
func (f *TestDataFactory) CreateStandardQuery(farmerID *int, opts ...StandardQueryOption) *models.StandardQuery {
	query := &models.StandardQuery{
		QueryName:            "测试查询_" + generateSuffix(),
		SQLQuery:             "SELECT COUNT(*) AS farmer_count FROM farmers",
		Description:          "测试用标准查询",
		NaturalLanguageQuery: "一共有多少农户",
		FarmerID:             farmerID,
		IsGlobal:             farmerID == nil,
		CreatedAt:            time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(query)
	}

	err := f.DB.Create(query).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test standard query: %v", err))
	}

	return query
}

// CostRateOption 费率选项函数类型
type CostRateOption func(*models.CostRate)

// CreateCostRate 创建测试费率
func (f *TestDataFactory) CreateCostRate(serviceName string, opts ...CostRateOption) *models.CostRate {
	rate := &models.CostRate{
		ServiceName: serviceName,
		CostPerUnit: 0.00002,
		UnitType:    "token",
		Currency:    "USD",
		UpdatedAt:   time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(rate)
	}

	err := f.DB.Create(rate).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test cost rate: %v", err))
	}

	return rate
}

// 辅助函数
func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
