/*
 * @module api/controllers/farmer_controller
 * @description 农户档案控制器，提供农户、地块、农事任务、农机的查询与登记接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/requirements.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式
 * @dependencies agridata-service/service/farmer, github.com/go-chi/chi/v5
 * @refs api/routes.go
 */

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"agridata-service/service/dashboard"
	"agridata-service/service/farmer"
	"agridata-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// FarmerController 农户档案控制器
type FarmerController struct {
	farmerService *farmer.Service
	metricsCache  *dashboard.MetricsCache
}

// NewFarmerController 创建农户档案控制器实例
// metricsCache 用于在登记写入后失效看板缓存，可为nil
func NewFarmerController(farmerService *farmer.Service, metricsCache *dashboard.MetricsCache) *FarmerController {
	return &FarmerController{
		farmerService: farmerService,
		metricsCache:  metricsCache,
	}
}

// Count 农户总数
// @Summary 农户总数
// @Description 统计已注册农户数量
// @Tags 农户档案
// @Produce json
// @Success 200 {object} APIResponse "统计成功"
// @Router /api/farmers/count [get]
func (c *FarmerController) Count(w http.ResponseWriter, r *http.Request) {
	count, err := c.farmerService.Count()
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "统计农户数量失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "统计农户数量成功",
		Data:   map[string]int64{"farmer_count": count},
	})
}

// List 农户列表
// @Summary 农户列表
// @Description 分页获取农户列表
// @Tags 农户档案
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.Farmer} "获取成功"
// @Router /api/farmers [get]
func (c *FarmerController) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 10
	}

	farmers, total, err := c.farmerService.List(page, size)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取农户列表失败",
		})
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "获取农户列表成功",
		Data:   farmers,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// GetByID 农户详情
// @Summary 农户详情
// @Description 按ID获取农户详情（含地块）
// @Tags 农户档案
// @Produce json
// @Param id path int true "农户ID"
// @Success 200 {object} APIResponse{data=models.Farmer} "获取成功"
// @Failure 404 {object} APIResponse "农户不存在"
// @Router /api/farmers/{id} [get]
func (c *FarmerController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "无效的农户ID",
		})
		return
	}

	result, err := c.farmerService.GetByID(id)
	if err != nil {
		if errors.Is(err, farmer.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, APIResponse{
				Status: http.StatusNotFound,
				Msg:    "农户不存在",
			})
			return
		}
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取农户详情失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取农户详情成功",
		Data:   result,
	})
}

// GetFields 农户地块列表
// @Summary 农户地块列表
// @Description 获取指定农户的全部地块
// @Tags 农户档案
// @Produce json
// @Param id path int true "农户ID"
// @Success 200 {object} APIResponse{data=[]models.Field} "获取成功"
// @Router /api/farmers/{id}/fields [get]
func (c *FarmerController) GetFields(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "无效的农户ID",
		})
		return
	}

	fields, err := c.farmerService.GetFields(id)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取地块列表失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取地块列表成功",
		Data:   fields,
	})
}

// GetFieldTasks 地块任务列表
// @Summary 地块任务列表
// @Description 获取指定地块的农事任务
// @Tags 农户档案
// @Produce json
// @Param id path int true "地块ID"
// @Success 200 {object} APIResponse{data=[]models.Task} "获取成功"
// @Router /api/fields/{id}/tasks [get]
func (c *FarmerController) GetFieldTasks(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "无效的地块ID",
		})
		return
	}

	tasks, err := c.farmerService.GetFieldTasks(id)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取任务列表失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取任务列表成功",
		Data:   tasks,
	})
}

// Register 注册农户
// @Summary 注册农户
// @Description 登记新农户档案
// @Tags 农户档案
// @Accept json
// @Produce json
// @Param farmer body models.Farmer true "农户信息"
// @Success 201 {object} APIResponse{data=models.Farmer} "注册成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /api/farmers [post]
func (c *FarmerController) Register(w http.ResponseWriter, r *http.Request) {
	var req models.Farmer
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	if err := c.farmerService.Register(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    err.Error(),
		})
		return
	}

	c.invalidateMetrics()
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, APIResponse{
		Status: http.StatusCreated,
		Msg:    "注册农户成功",
		Data:   req,
	})
}

// RegisterField 登记地块
// @Summary 登记地块
// @Description 为农户登记新地块
// @Tags 农户档案
// @Accept json
// @Produce json
// @Param field body models.Field true "地块信息"
// @Success 201 {object} APIResponse{data=models.Field} "登记成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /api/fields [post]
func (c *FarmerController) RegisterField(w http.ResponseWriter, r *http.Request) {
	var req models.Field
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	if err := c.farmerService.RegisterField(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    err.Error(),
		})
		return
	}

	c.invalidateMetrics()
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, APIResponse{
		Status: http.StatusCreated,
		Msg:    "登记地块成功",
		Data:   req,
	})
}

// RegisterTask 登记农事任务
// @Summary 登记农事任务
// @Description 登记农事任务并关联一个或多个地块
// @Tags 农户档案
// @Accept json
// @Produce json
// @Param task body farmer.RegisterTaskRequest true "任务信息"
// @Success 201 {object} APIResponse{data=models.Task} "登记成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /api/tasks [post]
func (c *FarmerController) RegisterTask(w http.ResponseWriter, r *http.Request) {
	var req farmer.RegisterTaskRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	task, err := c.farmerService.RegisterTask(&req)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    err.Error(),
		})
		return
	}

	c.invalidateMetrics()
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, APIResponse{
		Status: http.StatusCreated,
		Msg:    "登记农事任务成功",
		Data:   task,
	})
}

// RegisterMachinery 登记农机
// @Summary 登记农机
// @Description 为农户登记农机设备
// @Tags 农户档案
// @Accept json
// @Produce json
// @Param machinery body models.Machinery true "农机信息"
// @Success 201 {object} APIResponse{data=models.Machinery} "登记成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /api/machinery [post]
func (c *FarmerController) RegisterMachinery(w http.ResponseWriter, r *http.Request) {
	var req models.Machinery
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	if err := c.farmerService.RegisterMachinery(&req); err != nil {
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
		Msg:    "登记农机成功",
		Data:   req,
	})
}

// invalidateMetrics 登记写入后失效看板缓存
func (c *FarmerController) invalidateMetrics() {
	if c.metricsCache != nil {
		c.metricsCache.Invalidate()
	}
}
