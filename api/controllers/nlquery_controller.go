/*
 * @module api/controllers/nlquery_controller
 * @description 自然语言查询控制器，暴露查询管线、确认执行和LLM状态接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/nlquery_pipeline.md
 * @stateFlow HTTP请求 -> 管线编排 -> 结构化结果
 * @rules 管线内部错误以结构化结果返回，不向传输层抛未处理异常
 * @dependencies agridata-service/service/nlquery, github.com/go-chi/render
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"

	"agridata-service/service/models"
	"agridata-service/service/nlquery"

	"github.com/go-chi/render"
)

// NLQueryController 自然语言查询控制器
type NLQueryController struct {
	nlqueryService *nlquery.Service
	translator     *nlquery.LLMTranslator
}

// NewNLQueryController 创建自然语言查询控制器实例
func NewNLQueryController(nlqueryService *nlquery.Service, translator *nlquery.LLMTranslator) *NLQueryController {
	return &NLQueryController{
		nlqueryService: nlqueryService,
		translator:     translator,
	}
}

// ProcessQuery 处理自然语言查询
// @Summary 自然语言查询
// @Description 将自然语言问题翻译为SQL并执行，变更语句需二次确认
// @Tags 自然语言查询
// @Accept json
// @Produce json
// @Param request body models.NaturalQueryRequest true "查询请求"
// @Success 200 {object} models.PipelineResult "管线结果"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /api/natural-query [post]
func (c *NLQueryController) ProcessQuery(w http.ResponseWriter, r *http.Request) {
	var req models.NaturalQueryRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	result := c.nlqueryService.Process(r.Context(), req.Query, req.FarmerID)
	render.JSON(w, r, result)
}

// ConfirmQuery 确认执行先前暂存的变更语句
// @Summary 确认执行
// @Description 使用一次性令牌确认执行先前分类为需确认的变更语句
// @Tags 自然语言查询
// @Accept json
// @Produce json
// @Param request body models.ConfirmRequest true "确认请求"
// @Success 200 {object} models.PipelineResult "执行结果"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /api/natural-query/confirm [post]
func (c *NLQueryController) ConfirmQuery(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	result := c.nlqueryService.Confirm(r.Context(), req.ConfirmationToken)
	render.JSON(w, r, result)
}

// LLMStatus 检查LLM服务状态
// @Summary LLM状态检查
// @Description 探测LLM翻译服务的配置与连通性
// @Tags 自然语言查询
// @Produce json
// @Success 200 {object} nlquery.StatusCheck
// @Router /api/llm-status [get]
func (c *NLQueryController) LLMStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, c.translator.Status(r.Context()))
}
