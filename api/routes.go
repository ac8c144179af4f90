/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs ai_docs/model.md
 */

package api

import (
	"agridata-service/api/controllers"
	"agridata-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查与版本信息
	healthController := controllers.NewHealthController(service.DB)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)
	r.Get("/version", healthController.Version)
	r.Get("/health/database", healthController.DatabaseHealth)

	// 元数据
	metaController := controllers.NewMetaController(service.GlobalSchemaService)
	r.Get("/meta/schema", metaController.GetSchema)

	// 自然语言查询管线
	nlqueryController := controllers.NewNLQueryController(service.GlobalNLQueryService, service.GlobalTranslator)
	r.Get("/api/llm-status", nlqueryController.LLMStatus)
	r.Route("/api/natural-query", func(r chi.Router) {
		r.Post("/", nlqueryController.ProcessQuery)
		r.Post("/confirm", nlqueryController.ConfirmQuery)
	})

	// 标准查询管理
	standardQueryController := controllers.NewStandardQueryController(service.GlobalStandardQueryService)
	r.Route("/api/standard-queries", func(r chi.Router) {
		r.Post("/", standardQueryController.SaveQuery)
		r.Get("/", standardQueryController.ListQueries)
		r.Post("/{id}/run", standardQueryController.RunQuery)
		r.Delete("/{id}", standardQueryController.DeleteQuery)
	})

	// 农户档案
	farmerController := controllers.NewFarmerController(service.GlobalFarmerService, service.GlobalDashboardService.Cache())
	r.Route("/api/farmers", func(r chi.Router) {
		r.Get("/count", farmerController.Count)
		r.Get("/", farmerController.List)
		r.Post("/", farmerController.Register)
		r.Get("/{id}", farmerController.GetByID)
		r.Get("/{id}/fields", farmerController.GetFields)
	})
	r.Get("/api/fields/{id}/tasks", farmerController.GetFieldTasks)
	r.Post("/api/fields", farmerController.RegisterField)
	r.Post("/api/tasks", farmerController.RegisterTask)
	r.Post("/api/machinery", farmerController.RegisterMachinery)

	// 经营看板
	dashboardController := controllers.NewDashboardController(service.GlobalDashboardService)
	r.Get("/api/dashboard/overview", dashboardController.GetOverview)

	// 成本核算
	costController := controllers.NewCostController(service.GlobalCostService)
	r.Route("/api/costs", func(r chi.Router) {
		r.Get("/rates", costController.ListRates)
		r.Put("/rates/{service_name}", costController.UpdateRate)
		r.Get("/summary", costController.GetSummary)
	})
}
