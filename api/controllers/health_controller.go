/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务健康状态、版本信息和数据库连通性检查
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/requirements.md
 * @stateFlow HTTP请求处理流程
 * @rules 提供简单的健康检查接口，用于容器健康检查和负载均衡
 * @dependencies net/http, gorm.io/gorm
 * @refs ai_docs/model.md
 */

package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// ServiceVersion 服务版本号
const ServiceVersion = "1.2.0"

// ServiceName 服务名称
const ServiceName = "agridata-service"

// HealthController 健康检查控制器
type HealthController struct {
	db *gorm.DB
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"1.2.0"`
	Service   string    `json:"service" example:"agridata-service"`
}

// DatabaseHealthResponse 数据库健康检查响应结构
type DatabaseHealthResponse struct {
	Connected bool   `json:"connected"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   ServiceVersion,
		Service:   ServiceName,
	})
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查服务是否就绪
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   ServiceVersion,
		Service:   ServiceName,
	})
}

// Version 版本信息
// @Summary 版本信息
// @Description 获取服务版本信息
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /version [get]
func (c *HealthController) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   ServiceVersion,
		Service:   ServiceName,
	})
}

// DatabaseHealth 数据库连通性检查
// @Summary 数据库连通性检查
// @Description 探测数据库连接并报告延迟
// @Tags 系统
// @Produce json
// @Success 200 {object} DatabaseHealthResponse
// @Router /health/database [get]
func (c *HealthController) DatabaseHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	sqlDB, err := c.db.DB()
	if err != nil {
		render.JSON(w, r, DatabaseHealthResponse{Connected: false, Error: err.Error()})
		return
	}
	if err := sqlDB.PingContext(r.Context()); err != nil {
		render.JSON(w, r, DatabaseHealthResponse{Connected: false, Error: err.Error()})
		return
	}

	render.JSON(w, r, DatabaseHealthResponse{
		Connected: true,
		LatencyMs: time.Since(start).Milliseconds(),
	})
}
