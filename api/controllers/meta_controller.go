/*
 * @module api/controllers/meta_controller
 * @description 元数据控制器，暴露版本化的数据库结构契约
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/schema_contract.md
 * @stateFlow HTTP请求处理流程
 * @rules 契约只读，内容在启动时校验，不做请求时结构发现
 * @dependencies agridata-service/service/schema, github.com/go-chi/render
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"

	"agridata-service/service/schema"

	"github.com/go-chi/render"
)

// MetaController 元数据控制器
type MetaController struct {
	schemaService *schema.Service
}

// NewMetaController 创建元数据控制器实例
func NewMetaController(schemaService *schema.Service) *MetaController {
	return &MetaController{schemaService: schemaService}
}

// SchemaContractResponse 结构契约响应
type SchemaContractResponse struct {
	Version string          `json:"version"`
	Tables  schema.Contract `json:"tables"`
}

// GetSchema 获取数据库结构契约
// @Summary 结构契约
// @Description 获取服务依赖的版本化数据库结构契约
// @Tags 元数据
// @Produce json
// @Success 200 {object} APIResponse{data=SchemaContractResponse} "获取成功"
// @Router /meta/schema [get]
func (c *MetaController) GetSchema(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取结构契约成功",
		Data: SchemaContractResponse{
			Version: c.schemaService.Version(),
			Tables:  c.schemaService.Contract(),
		},
	})
}
