/*
 * @module service/farmer/service_test
 * @description 农户档案服务单元测试
 * @architecture 测试层 - 基于内存SQLite的服务测试
 * @documentReference ai_docs/test_plan.md
 * @stateFlow 构造测试库 -> 注册/查询 -> 断言关联和校验规则
 * @rules 覆盖分页、地块关联任务查询、登记校验
 * @dependencies testing, testify, agridata-service/testutil
 * @refs service.go
 */

package farmer

import (
	"errors"
	"fmt"
	"testing"

	"agridata-service/service/models"
	"agridata-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type FarmerServiceTestSuite struct {
	suite.Suite
	testDB  *testutil.TestDB
	factory *testutil.TestDataFactory
	service *Service
}

func (suite *FarmerServiceTestSuite) SetupSuite() {
	suite.testDB = testutil.NewTestDB()
	suite.factory = testutil.NewTestDataFactory(suite.testDB.DB)
	suite.service = NewService(suite.testDB.DB)
}

func (suite *FarmerServiceTestSuite) TearDownSuite() {
	suite.testDB.Close()
}

func (suite *FarmerServiceTestSuite) SetupTest() {
	suite.testDB.CleanDB()
}

func (suite *FarmerServiceTestSuite) TestCount() {
	count, err := suite.service.Count()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), count)

	suite.factory.CreateFarmer()
	suite.factory.CreateFarmer()

	count, err = suite.service.Count()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), count)
}

func (suite *FarmerServiceTestSuite) TestListPagination() {
	for i := 0; i < 5; i++ {
		idx := i
		suite.factory.CreateFarmer(func(f *models.Farmer) {
			f.FarmName = fmt.Sprintf("农场%d", idx)
		})
	}

	farmers, total, err := suite.service.List(1, 3)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(5), total)
	assert.Len(suite.T(), farmers, 3)

	farmers, total, err = suite.service.List(2, 3)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(5), total)
	assert.Len(suite.T(), farmers, 2)
}

func (suite *FarmerServiceTestSuite) TestGetByIDWithFields() {
	farmer := suite.factory.CreateFarmer()
	suite.factory.CreateField(farmer.ID)
	suite.factory.CreateField(farmer.ID)

	got, err := suite.service.GetByID(farmer.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), farmer.FarmName, got.FarmName)
	assert.Len(suite.T(), got.Fields, 2)
}

func (suite *FarmerServiceTestSuite) TestGetByIDNotFound() {
	_, err := suite.service.GetByID(99999)
	assert.True(suite.T(), errors.Is(err, ErrNotFound))
}

func (suite *FarmerServiceTestSuite) TestGetFields() {
	farmer := suite.factory.CreateFarmer()
	other := suite.factory.CreateFarmer()
	suite.factory.CreateField(farmer.ID)
	suite.factory.CreateField(other.ID)

	fields, err := suite.service.GetFields(farmer.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), fields, 1)
	assert.Equal(suite.T(), farmer.ID, fields[0].FarmerID)
}

func (suite *FarmerServiceTestSuite) TestGetFieldTasks() {
	farmer := suite.factory.CreateFarmer()
	field := suite.factory.CreateField(farmer.ID)
	otherField := suite.factory.CreateField(farmer.ID)

	// 一个任务同时关联两个地块
	suite.factory.CreateTask([]int{field.ID, otherField.ID})
	// 一个任务只关联另一个地块
	suite.factory.CreateTask([]int{otherField.ID})

	tasks, err := suite.service.GetFieldTasks(field.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), tasks, 1)

	tasks, err = suite.service.GetFieldTasks(otherField.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), tasks, 2)
}

func (suite *FarmerServiceTestSuite) TestRegister() {
	farmer := &models.Farmer{FarmName: "新农场", Country: "中国"}
	err := suite.service.Register(farmer)
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), farmer.ID)
}

func (suite *FarmerServiceTestSuite) TestRegisterRequiresFarmName() {
	err := suite.service.Register(&models.Farmer{})
	assert.Error(suite.T(), err)
}

func (suite *FarmerServiceTestSuite) TestRegisterField() {
	farmer := suite.factory.CreateFarmer()

	field := &models.Field{FarmerID: farmer.ID, FieldName: "东区地块", AreaHa: 20.5}
	err := suite.service.RegisterField(field)
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), field.ID)
}

func (suite *FarmerServiceTestSuite) TestRegisterFieldUnknownFarmer() {
	field := &models.Field{FarmerID: 99999, FieldName: "无主地块"}
	err := suite.service.RegisterField(field)
	assert.Error(suite.T(), err)
}

func (suite *FarmerServiceTestSuite) TestRegisterTask() {
	farmer := suite.factory.CreateFarmer()
	field := suite.factory.CreateField(farmer.ID)
	otherField := suite.factory.CreateField(farmer.ID)

	task, err := suite.service.RegisterTask(&RegisterTaskRequest{
		TaskType:    "施肥",
		Description: "春季基肥",
		FieldIDs:    []int{field.ID, otherField.ID},
	})
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), task.ID)
	assert.Equal(suite.T(), "pending", task.Status)

	var links int64
	suite.testDB.DB.Model(&models.TaskField{}).
		Where("task_id = ?", task.ID).Count(&links)
	assert.Equal(suite.T(), int64(2), links)
}

func (suite *FarmerServiceTestSuite) TestRegisterTaskInvalidField() {
	farmer := suite.factory.CreateFarmer()
	field := suite.factory.CreateField(farmer.ID)

	_, err := suite.service.RegisterTask(&RegisterTaskRequest{
		TaskType: "施肥",
		FieldIDs: []int{field.ID, 99999},
	})
	assert.Error(suite.T(), err)

	// 事务回滚，不留下半成品任务
	var count int64
	suite.testDB.DB.Model(&models.Task{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

func (suite *FarmerServiceTestSuite) TestRegisterTaskValidation() {
	_, err := suite.service.RegisterTask(&RegisterTaskRequest{FieldIDs: []int{1}})
	assert.Error(suite.T(), err)

	_, err = suite.service.RegisterTask(&RegisterTaskRequest{TaskType: "播种"})
	assert.Error(suite.T(), err)
}

func (suite *FarmerServiceTestSuite) TestRegisterMachinery() {
	farmer := suite.factory.CreateFarmer()

	machinery := &models.Machinery{FarmerID: farmer.ID, Name: "约翰迪尔拖拉机", MachineryType: "tractor", Year: 2021}
	err := suite.service.RegisterMachinery(machinery)
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), machinery.ID)
}

func (suite *FarmerServiceTestSuite) TestRegisterMachineryUnknownFarmer() {
	err := suite.service.RegisterMachinery(&models.Machinery{FarmerID: 99999, Name: "无主农机"})
	assert.Error(suite.T(), err)
}

func TestFarmerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FarmerServiceTestSuite))
}
