/*
 * @module api/controllers/cost_controller
 * @description 成本核算控制器，提供服务费率管理与成本汇总接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/requirements.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式
 * @dependencies agridata-service/service/cost, github.com/go-chi/chi/v5
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"
	"strconv"

	"agridata-service/service/cost"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// CostController 成本核算控制器
type CostController struct {
	costService *cost.Service
}

// NewCostController 创建成本核算控制器实例
func NewCostController(costService *cost.Service) *CostController {
	return &CostController{costService: costService}
}

// UpdateRateRequest 费率更新请求
type UpdateRateRequest struct {
	CostPerUnit float64 `json:"cost_per_unit"`
}

// ListRates 服务费率列表
// @Summary 服务费率列表
// @Description 获取全部外部服务费率
// @Tags 成本核算
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.CostRate} "获取成功"
// @Router /api/costs/rates [get]
func (c *CostController) ListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := c.costService.ListRates()
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取费率列表失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取费率列表成功",
		Data:   rates,
	})
}

// UpdateRate 更新服务费率
// @Summary 更新服务费率
// @Description 按服务名更新单价
// @Tags 成本核算
// @Accept json
// @Produce json
// @Param service_name path string true "服务名"
// @Param request body UpdateRateRequest true "费率"
// @Success 200 {object} APIResponse{data=models.CostRate} "更新成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /api/costs/rates/{service_name} [put]
func (c *CostController) UpdateRate(w http.ResponseWriter, r *http.Request) {
	serviceName := chi.URLParam(r, "service_name")

	var req UpdateRateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	rate, err := c.costService.UpdateRate(serviceName, req.CostPerUnit)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "更新费率成功",
		Data:   rate,
	})
}

// GetSummary 成本汇总
// @Summary 成本汇总
// @Description 按农户或全局汇总交互成本
// @Tags 成本核算
// @Produce json
// @Param farmer_id query int false "农户ID"
// @Success 200 {object} APIResponse{data=models.CostSummary} "获取成功"
// @Router /api/costs/summary [get]
func (c *CostController) GetSummary(w http.ResponseWriter, r *http.Request) {
	var farmerID *int
	if val := r.URL.Query().Get("farmer_id"); val != "" {
		if id, err := strconv.Atoi(val); err == nil {
			farmerID = &id
		}
	}

	summary, err := c.costService.Summary(farmerID)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取成本汇总失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取成本汇总成功",
		Data:   summary,
	})
}
