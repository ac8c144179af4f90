/*
 * @module service/farmer/service
 * @description 农户档案服务，提供农户、地块、农事任务、农机的查询与登记
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/requirements.md
 * @stateFlow 农户注册 -> 地块登记 -> 任务记录(关联多地块) -> 农机登记
 * @rules 任务与地块通过task_fields关联表多对多绑定，登记在同一事务内完成
 * @dependencies gorm.io/gorm
 * @refs service/models/farmer.go
 */

package farmer

import (
	"errors"
	"fmt"

	"agridata-service/service/models"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// Service 农户档案服务
type Service struct {
	db *gorm.DB
}

// NewService 创建农户档案服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Count 统计农户总数
func (s *Service) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&models.Farmer{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// List 分页获取农户列表
func (s *Service) List(page, size int) ([]models.Farmer, int64, error) {
	var farmers []models.Farmer
	var total int64

	if err := s.db.Model(&models.Farmer{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * size
	if err := s.db.Offset(offset).Limit(size).
		Order("farm_name").
		Find(&farmers).Error; err != nil {
		return nil, 0, err
	}
	return farmers, total, nil
}

// GetByID 按ID获取农户详情（含地块）
func (s *Service) GetByID(id int) (*models.Farmer, error) {
	var farmer models.Farmer
	if err := s.db.Preload("Fields").First(&farmer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &farmer, nil
}

// GetFields 获取农户的全部地块，按地块名排序
func (s *Service) GetFields(farmerID int) ([]models.Field, error) {
	var fields []models.Field
	if err := s.db.Where("farmer_id = ?", farmerID).
		Order("field_name").
		Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

// GetFieldTasks 获取指定地块的农事任务，经task_fields关联表查询
func (s *Service) GetFieldTasks(fieldID int) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.
		Joins("JOIN task_fields ON task_fields.task_id = tasks.id").
		Where("task_fields.field_id = ?", fieldID).
		Order("tasks.date_performed DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Register 注册新农户
func (s *Service) Register(farmer *models.Farmer) error {
	if farmer.FarmName == "" {
		return errors.New("农场名称不能为空")
	}
	return s.db.Create(farmer).Error
}

// RegisterField 登记地块，所属农户必须存在
func (s *Service) RegisterField(field *models.Field) error {
	if field.FieldName == "" {
		return errors.New("地块名称不能为空")
	}

	var count int64
	if err := s.db.Model(&models.Farmer{}).
		Where("id = ?", field.FarmerID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("农户 %d 不存在", field.FarmerID)
	}

	return s.db.Create(field).Error
}

// RegisterTaskRequest 农事任务登记请求
type RegisterTaskRequest struct {
	TaskType    string `json:"task_type"`
	Description string `json:"description"`
	FieldIDs    []int  `json:"field_ids"`
}

// RegisterTask 登记农事任务并关联地块，整体在一个事务内完成
func (s *Service) RegisterTask(req *RegisterTaskRequest) (*models.Task, error) {
	if req.TaskType == "" {
		return nil, errors.New("任务类型不能为空")
	}
	if len(req.FieldIDs) == 0 {
		return nil, errors.New("任务必须关联至少一个地块")
	}

	task := &models.Task{
		TaskType:    req.TaskType,
		Description: req.Description,
		Status:      "pending",
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Field{}).
			Where("id IN ?", req.FieldIDs).
			Count(&count).Error; err != nil {
			return err
		}
		if count != int64(len(req.FieldIDs)) {
			return errors.New("存在无效的地块ID")
		}

		if err := tx.Create(task).Error; err != nil {
			return err
		}

		links := make([]models.TaskField, 0, len(req.FieldIDs))
		for _, fieldID := range req.FieldIDs {
			links = append(links, models.TaskField{TaskID: task.ID, FieldID: fieldID})
		}
		return tx.Create(&links).Error
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// RegisterMachinery 登记农机设备
func (s *Service) RegisterMachinery(machinery *models.Machinery) error {
	if machinery.Name == "" {
		return errors.New("农机名称不能为空")
	}

	var count int64
	if err := s.db.Model(&models.Farmer{}).
		Where("id = ?", machinery.FarmerID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("农户 %d 不存在", machinery.FarmerID)
	}

	return s.db.Create(machinery).Error
}
