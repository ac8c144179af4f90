/*
 * @module api/controllers/dashboard_controller
 * @description 经营看板控制器，提供农户/地块/面积/任务等总览指标
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/requirements.md
 * @stateFlow HTTP请求处理流程
 * @rules 指标聚合带TTL缓存，响应标注是否命中缓存
 * @dependencies agridata-service/service/dashboard, github.com/go-chi/render
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"

	"agridata-service/service/dashboard"

	"github.com/go-chi/render"
)

// DashboardController 经营看板控制器
type DashboardController struct {
	dashboardService *dashboard.Service
}

// NewDashboardController 创建看板控制器实例
func NewDashboardController(dashboardService *dashboard.Service) *DashboardController {
	return &DashboardController{dashboardService: dashboardService}
}

// GetOverview 看板总览
// @Summary 看板总览
// @Description 获取农户/地块/面积/任务等关键指标
// @Tags 经营看板
// @Produce json
// @Success 200 {object} APIResponse{data=dashboard.Overview} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /api/dashboard/overview [get]
func (c *DashboardController) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := c.dashboardService.GetOverview()
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取看板指标失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取看板指标成功",
		Data:   overview,
	})
}
