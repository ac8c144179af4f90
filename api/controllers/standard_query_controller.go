/*
 * @module api/controllers/standard_query_controller
 * @description 标准查询控制器，提供已保存查询的保存、列表、执行和删除接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/standard_query.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式；全局查询删除保护在服务层实现
 * @dependencies agridata-service/service/standard_query, github.com/go-chi/chi/v5
 * @refs api/routes.go
 */

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"agridata-service/service/models"
	"agridata-service/service/standard_query"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// StandardQueryController 标准查询控制器
type StandardQueryController struct {
	queryService *standard_query.Service
}

// NewStandardQueryController 创建标准查询控制器实例
func NewStandardQueryController(queryService *standard_query.Service) *StandardQueryController {
	return &StandardQueryController{queryService: queryService}
}

// SaveQuery 保存标准查询
// @Summary 保存标准查询
// @Description 将一条成功的查询保存为标准查询，每个农户最多保存10条
// @Tags 标准查询
// @Accept json
// @Produce json
// @Param request body models.SaveStandardQueryRequest true "保存请求"
// @Success 201 {object} APIResponse{data=models.StandardQuery} "保存成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /api/standard-queries [post]
func (c *StandardQueryController) SaveQuery(w http.ResponseWriter, r *http.Request) {
	var req models.SaveStandardQueryRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	query, err := c.queryService.Save(&req)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    err.Error(),
		})
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, APIResponse{
		Status: http.StatusCreated,
		Msg:    "保存标准查询成功",
		Data:   query,
	})
}

// ListQueries 获取标准查询列表
// @Summary 标准查询列表
// @Description 获取农户专属及全局的标准查询
// @Tags 标准查询
// @Produce json
// @Param farmer_id query int false "农户ID"
// @Success 200 {object} APIResponse{data=[]models.StandardQuery} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /api/standard-queries [get]
func (c *StandardQueryController) ListQueries(w http.ResponseWriter, r *http.Request) {
	var farmerID *int
	if val := r.URL.Query().Get("farmer_id"); val != "" {
		if id, err := strconv.Atoi(val); err == nil {
			farmerID = &id
		}
	}

	queries, err := c.queryService.List(farmerID)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取标准查询列表失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取标准查询列表成功",
		Data:   queries,
	})
}

// RunQuery 执行标准查询
// @Summary 执行标准查询
// @Description 按ID执行标准查询并累计使用次数
// @Tags 标准查询
// @Produce json
// @Param id path int true "查询ID"
// @Success 200 {object} APIResponse{data=standard_query.RunResult} "执行成功"
// @Failure 404 {object} APIResponse "查询不存在"
// @Failure 500 {object} APIResponse "执行失败"
// @Router /api/standard-queries/{id}/run [post]
func (c *StandardQueryController) RunQuery(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "无效的查询ID",
		})
		return
	}

	result, err := c.queryService.Run(r.Context(), id)
	if err != nil {
		if errors.Is(err, standard_query.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, APIResponse{
				Status: http.StatusNotFound,
				Msg:    "标准查询不存在",
			})
			return
		}
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "执行标准查询成功",
		Data:   result,
	})
}

// DeleteQuery 删除标准查询
// @Summary 删除标准查询
// @Description 按ID删除标准查询，全局查询受保护不可删除
// @Tags 标准查询
// @Produce json
// @Param id path int true "查询ID"
// @Success 200 {object} APIResponse "删除成功"
// @Failure 403 {object} APIResponse "全局查询受保护"
// @Failure 404 {object} APIResponse "查询不存在"
// @Router /api/standard-queries/{id} [delete]
func (c *StandardQueryController) DeleteQuery(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "无效的查询ID",
		})
		return
	}

	if err := c.queryService.Delete(id); err != nil {
		switch {
		case errors.Is(err, standard_query.ErrGlobalProtected):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, APIResponse{
				Status: http.StatusForbidden,
				Msg:    err.Error(),
			})
		case errors.Is(err, standard_query.ErrNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, APIResponse{
				Status: http.StatusNotFound,
				Msg:    err.Error(),
			})
		default:
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, APIResponse{
				Status: http.StatusInternalServerError,
				Msg:    "删除标准查询失败",
			})
		}
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "删除标准查询成功",
	})
}
