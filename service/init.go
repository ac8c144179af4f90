/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、契约校验和各业务服务装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/requirements.md
 * @stateFlow 应用启动时执行初始化流程：连库 -> 迁移 -> 契约校验 -> 装配服务
 * @rules 确保所有依赖服务正常启动后才提供API服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs ai_docs/model.md
 */

package service

import (
	"fmt"
	"log"
	"os"
	"time"

	"agridata-service/logger"
	"agridata-service/service/audit"
	"agridata-service/service/cleanup"
	"agridata-service/service/cost"
	"agridata-service/service/dashboard"
	"agridata-service/service/database"
	"agridata-service/service/farmer"
	"agridata-service/service/nlquery"
	"agridata-service/service/schema"
	"agridata-service/service/standard_query"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                         *gorm.DB
	GlobalSchemaService        *schema.Service
	GlobalNLQueryService       *nlquery.Service
	GlobalTranslator           *nlquery.LLMTranslator
	GlobalStandardQueryService *standard_query.Service
	GlobalFarmerService        *farmer.Service
	GlobalDashboardService     *dashboard.Service
	GlobalCostService          *cost.Service
	GlobalAuditPublisher       *audit.Publisher
	GlobalCleanupService       *cleanup.Service
)

func init() {
	logger.InitLogger()
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "farmer_crm")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移并校验结构契约
func runMigrations() {
	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	if err := database.InitializeData(DB); err != nil {
		log.Fatalf("基础数据初始化失败: %v", err)
	}

	GlobalSchemaService = schema.NewService(DB)
	if err := GlobalSchemaService.Validate(); err != nil {
		log.Fatalf("数据库结构契约校验失败: %v", err)
	}
}

// initServices 装配各业务服务
func initServices() {
	GlobalTranslator = nlquery.NewLLMTranslator(GlobalSchemaService.Summary())
	GlobalAuditPublisher = audit.NewPublisher()

	pendingStore := nlquery.NewPendingStore()
	GlobalCostService = cost.NewService(DB)

	// Kafka发布器为nil时不传入管线，避免接口持有nil指针
	var auditPublisher nlquery.AuditPublisher
	if GlobalAuditPublisher != nil {
		auditPublisher = GlobalAuditPublisher
	}
	GlobalNLQueryService = nlquery.NewService(DB, GlobalTranslator, pendingStore, auditPublisher, GlobalCostService)

	GlobalStandardQueryService = standard_query.NewService(DB, GlobalNLQueryService.Executor())
	GlobalFarmerService = farmer.NewService(DB)
	GlobalDashboardService = dashboard.NewService(DB, dashboard.NewMetricsCache(dashboardCacheTTL()))

	// 进程内待确认存储才需要周期清理
	memoryStore, _ := pendingStore.(*nlquery.MemoryPendingStore)
	GlobalCleanupService = cleanup.NewService(memoryStore, GlobalDashboardService.Cache())
	if err := GlobalCleanupService.Start(); err != nil {
		log.Fatalf("维护服务启动失败: %v", err)
	}

	log.Println("业务服务初始化完成")
}

// dashboardCacheTTL 看板缓存时长，可通过 DASHBOARD_CACHE_TTL 覆盖
func dashboardCacheTTL() time.Duration {
	if val := os.Getenv("DASHBOARD_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return dashboard.DefaultCacheTTL
}
