package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"talent-bridge-go/internal/config"
	"talent-bridge-go/internal/storage/models"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("talent-bridge-go/storage/mysql")

// ErrJobNotFound 指定的岗位不存在
var ErrJobNotFound = errors.New("job not found")

// ErrTalentNotFound 指定的人才不存在
var ErrTalentNotFound = errors.New("talent not found")

// GormTracingPlugin 是一个GORM插件，为数据库操作添加OpenTelemetry追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		// ErrRecordNotFound 是业务逻辑正常情况的一部分，不应作为错误处理
		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，附带超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true, // 禁用自动外键创建
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true, // 开启预编译语句缓存
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	// 注册OpenTelemetry追踪插件
	tracingPlugin := NewGormTracingPlugin(cfg.Database)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	// 使用 GORM 的 AutoMigrate 功能自动迁移表结构
	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	return m.db.AutoMigrate(
		&models.CustomUser{},
		&models.Talent{},
		&models.Company{},
		&models.Recruiter{},
		&models.Job{},
		&models.TalentNotificationLog{},
		&models.OutboxMessage{},
	)
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// NewUUID 生成一个新的UUID字符串，供各实体主键使用
func NewUUID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// uuid.NewV4 仅在系统熵源不可用时失败
		panic(fmt.Sprintf("生成UUID失败: %v", err))
	}
	return id.String()
}

// GetJobByID 按ID查询岗位
func (m *MySQL) GetJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := m.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("查询岗位 %s 失败: %w", jobID, err)
	}
	return &job, nil
}

// GetTalentByID 按ID查询人才（带账号信息）
func (m *MySQL) GetTalentByID(ctx context.Context, talentID string) (*models.Talent, error) {
	var talent models.Talent
	err := m.db.WithContext(ctx).Preload("User").Where("talent_id = ?", talentID).First(&talent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTalentNotFound
		}
		return nil, fmt.Errorf("查询人才 %s 失败: %w", talentID, err)
	}
	return &talent, nil
}

// ListOpenToWorkTalents 查询求职中的人才池（带账号信息，供通知payload使用）
func (m *MySQL) ListOpenToWorkTalents(ctx context.Context) ([]models.Talent, error) {
	var talents []models.Talent
	err := m.db.WithContext(ctx).
		Preload("User").
		Where("is_open_to_work = ?", true).
		Find(&talents).Error
	if err != nil {
		return nil, fmt.Errorf("查询求职人才池失败: %w", err)
	}
	return talents, nil
}

// UpdateTalentCV 更新人才的CV对象引用
func (m *MySQL) UpdateTalentCV(ctx context.Context, talentID, objectKey, fileName string) error {
	result := m.db.WithContext(ctx).
		Model(&models.Talent{}).
		Where("talent_id = ?", talentID).
		Updates(map[string]interface{}{
			"cv_object_key": objectKey,
			"cv_file_name":  fileName,
		})
	if result.Error != nil {
		return fmt.Errorf("更新人才 %s 的CV引用失败: %w", talentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTalentNotFound
	}
	return nil
}

// InsertNotificationLogTx 在事务tx中写入一条通知台账行。
// 依赖 (talent_id, job_id) 复合唯一索引做 insert-or-ignore，
// 返回该行是否为本次新插入（即该人才是否需要进入本次通知批）。
// 用数据库约束而非先查后插，避免并发运行下的竞态双写。
func InsertNotificationLogTx(tx *gorm.DB, talentID, jobID string) (bool, error) {
	entry := models.TalentNotificationLog{
		TalentID: talentID,
		JobID:    jobID,
	}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if result.Error != nil {
		return false, fmt.Errorf("写入通知台账 (talent=%s, job=%s) 失败: %w", talentID, jobID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RecordNotificationBatch 在一个事务里为每位候选人做insert-or-ignore入账，
// 并在有新入账时写入一条承载整批通知的outbox行。
// 返回本次新入账的候选人；台账已有记录的人才被过滤掉，不会重复通知。
func (m *MySQL) RecordNotificationBatch(ctx context.Context, job *models.Job, candidates []NotifiedTalent, exchange, routingKey string) ([]NotifiedTalent, error) {
	newlyNotified := make([]NotifiedTalent, 0, len(candidates))

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		newlyNotified = newlyNotified[:0]

		for _, candidate := range candidates {
			inserted, err := InsertNotificationLogTx(tx, candidate.TalentID, job.JobID)
			if err != nil {
				return err
			}
			if inserted {
				newlyNotified = append(newlyNotified, candidate)
			}
		}

		if len(newlyNotified) == 0 {
			// 全部人才此前已通知过，无需新消息
			return nil
		}

		message := TalentMatchNotificationMessage{
			JobID:     job.JobID,
			JobTitle:  job.Title,
			MatchedAt: time.Now(),
			Talents:   newlyNotified,
		}
		payload, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("序列化通知消息失败: %w", err)
		}

		outboxRow := models.OutboxMessage{
			AggregateID:      job.JobID,
			EventType:        models.EventTypeTalentMatchNotification,
			Payload:          string(payload),
			TargetExchange:   exchange,
			TargetRoutingKey: routingKey,
			Status:           "PENDING",
		}
		if err := tx.Create(&outboxRow).Error; err != nil {
			return fmt.Errorf("写入outbox通知行失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newlyNotified, nil
}

// CountNotificationLogsByJob 统计某岗位已通知的人才数，供测试与运营接口使用
func (m *MySQL) CountNotificationLogsByJob(ctx context.Context, jobID string) (int64, error) {
	var count int64
	err := m.db.WithContext(ctx).
		Model(&models.TalentNotificationLog{}).
		Where("job_id = ?", jobID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计岗位 %s 的通知台账失败: %w", jobID, err)
	}
	return count, nil
}
