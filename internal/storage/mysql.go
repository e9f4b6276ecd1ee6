package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/registry"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

// ErrAnalysisNotFound 分析记录不存在
var ErrAnalysisNotFound = errors.New("analysis not found")

var mysqlTracer = otel.Tracer("resume-match-go/storage/mysql")

type spanKey struct{}

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
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
	steps := []struct {
		op     string
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}{
		{"CREATE", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"ROW", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"RAW", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		name := strings.ToLower(s.op)
		if err := s.before("otel:before_"+name, p.before(s.op)); err != nil {
			return err
		}
		if err := s.after("otel:after_"+name, p.after()); err != nil {
			return err
		}
	}
	return nil
}

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

		attrs := []attribute.KeyValue{
			attribute.String("db.system", "mysql"),
			attribute.String("db.name", p.dbName),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", tableName),
		}
		if sql := db.Statement.SQL.String(); sql != "" {
			attrs = append(attrs, attribute.String("db.statement", tracing.SafeSQL(sql)))
		}
		newCtx, span := p.tracer.Start(ctx, operation+" "+tableName,
			trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
		db.Statement.Context = context.WithValue(newCtx, spanKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(spanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			// 查不到记录属于正常业务分支
			span.SetAttributes(attribute.String("error.type", "record_not_found"))
			span.SetStatus(codes.Ok, "record not found")
		default:
			tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
		}
	}
}

// MySQL 提供关系数据库功能：岗位注册表、同义词表和分析结果
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

var _ registry.Source = (*MySQL)(nil)

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

func gormLogLevel(level int) gormlogger.LogLevel {
	switch level {
	case 1:
		return gormlogger.Silent
	case 2:
		return gormlogger.Error
	case 3:
		return gormlogger.Warn
	case 4:
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// autoMigrateSchema 迁移时关闭SQL日志
func (m *MySQL) autoMigrateSchema() error {
	silentDB := m.db.Session(&gorm.Session{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err := silentDB.AutoMigrate(
		&models.JobRole{},
		&models.SkillSynonym{},
		&models.ResumeAnalysis{},
	); err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
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

// Name 实现 registry.Source
func (m *MySQL) Name() string { return "mysql" }

// Load 实现 registry.Source：读取启用的岗位（按 position 排序）和全部同义词
func (m *MySQL) Load(ctx context.Context) (registry.Dataset, error) {
	var roleRows []models.JobRole
	if err := m.db.WithContext(ctx).Where("active = ?", true).
		Order("position ASC").Order("id ASC").Find(&roleRows).Error; err != nil {
		return registry.Dataset{}, fmt.Errorf("查询岗位失败: %w", err)
	}
	var synonymRows []models.SkillSynonym
	if err := m.db.WithContext(ctx).Order("popularity_score DESC").Order("id ASC").
		Find(&synonymRows).Error; err != nil {
		return registry.Dataset{}, fmt.Errorf("查询技能同义词失败: %w", err)
	}
	return datasetFromRows(roleRows, synonymRows), nil
}

// datasetFromRows 行记录转换为注册表数据，技能格式错误的岗位被跳过
func datasetFromRows(roleRows []models.JobRole, synonymRows []models.SkillSynonym) registry.Dataset {
	var ds registry.Dataset
	for _, row := range roleRows {
		required, err := models.StringsFromJSON(row.RequiredSkills)
		if err != nil {
			logger.Warn().Str("role", row.RoleName).Err(err).Msg("岗位技能要求格式错误，已跳过")
			continue
		}
		ds.Roles = append(ds.Roles, types.RoleProfile{RoleName: row.RoleName, RequiredSkills: required})
	}
	for _, row := range synonymRows {
		syns, err := models.StringsFromJSON(row.Synonyms)
		if err != nil {
			logger.Warn().Str("canonical", row.Canonical).Err(err).Msg("同义词格式错误，已跳过")
			continue
		}
		ds.Synonyms = append(ds.Synonyms, skills.SynonymGroup{Canonical: row.Canonical, Synonyms: syns})
	}
	return ds
}

// UpsertRoles 按注册表顺序写入岗位，已存在的岗位更新技能和顺序
func (m *MySQL) UpsertRoles(ctx context.Context, roles []types.RoleProfile, category string) error {
	if len(roles) == 0 {
		return nil
	}
	rows := make([]models.JobRole, 0, len(roles))
	for i, r := range roles {
		required, err := models.ToJSON(r.RequiredSkills)
		if err != nil {
			return err
		}
		rows = append(rows, models.JobRole{
			RoleName:       r.RoleName,
			RequiredSkills: required,
			Category:       category,
			Position:       i,
			Active:         true,
		})
	}
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"required_skills", "category", "position", "active", "updated_at"}),
	}).CreateInBatches(rows, 100).Error
}

// UpsertSynonyms 写入同义词组
func (m *MySQL) UpsertSynonyms(ctx context.Context, groups []skills.SynonymGroup) error {
	if len(groups) == 0 {
		return nil
	}
	rows := make([]models.SkillSynonym, 0, len(groups))
	for _, g := range groups {
		syns, err := models.ToJSON(g.Synonyms)
		if err != nil {
			return err
		}
		rows = append(rows, models.SkillSynonym{Canonical: g.Canonical, Synonyms: syns})
	}
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "canonical"}},
		DoUpdates: clause.AssignmentColumns([]string{"synonyms", "updated_at"}),
	}).Create(&rows).Error
}

// CreatePendingAnalysis 上传后先登记一条待处理记录
func (m *MySQL) CreatePendingAnalysis(ctx context.Context, analysisID, filename, originalPath string) error {
	return m.db.WithContext(ctx).Create(&models.ResumeAnalysis{
		AnalysisID:       analysisID,
		OriginalFilename: filename,
		OriginalPathOSS:  originalPath,
		Status:           constants.AnalysisStatusPending,
	}).Error
}

// SaveAnalysis 保存（或覆盖）一次完成的分析
func (m *MySQL) SaveAnalysis(ctx context.Context, result *types.AnalysisResult, textPath string) error {
	row, err := analysisToModel(result)
	if err != nil {
		return err
	}
	row.TextPathOSS = textPath
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "analysis_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"text_path_oss", "sections_json", "predictions_json", "rank_mode", "chosen_role",
			"required_skills", "gap_json", "match_score", "status", "error_message", "updated_at",
		}),
	}).Create(row).Error
}

// UpdateAnalysisRole 重新选择岗位后只更新岗位相关的列
func (m *MySQL) UpdateAnalysisRole(ctx context.Context, result *types.AnalysisResult) error {
	required, err := models.ToJSON(result.RequiredSkills)
	if err != nil {
		return err
	}
	gap, err := models.ToJSON(result.Gap)
	if err != nil {
		return err
	}
	tx := m.db.WithContext(ctx).Model(&models.ResumeAnalysis{}).
		Where("analysis_id = ?", result.AnalysisID).
		Updates(map[string]any{
			"chosen_role":     result.ChosenRole,
			"required_skills": required,
			"gap_json":        gap,
			"match_score":     result.MatchScore,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

// MarkAnalysisFailed 记录失败原因
func (m *MySQL) MarkAnalysisFailed(ctx context.Context, analysisID, reason string) error {
	return m.db.WithContext(ctx).Model(&models.ResumeAnalysis{}).
		Where("analysis_id = ?", analysisID).
		Updates(map[string]any{
			"status":        constants.AnalysisStatusFailed,
			"error_message": reason,
		}).Error
}

// GetAnalysis 读取分析结果；未完成的记录返回 Status 供调用方判断
func (m *MySQL) GetAnalysis(ctx context.Context, analysisID string) (*types.AnalysisResult, string, error) {
	var row models.ResumeAnalysis
	err := m.db.WithContext(ctx).First(&row, "analysis_id = ?", analysisID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrAnalysisNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if row.Status != constants.AnalysisStatusCompleted {
		return nil, row.Status, nil
	}
	result, err := modelToAnalysis(&row)
	if err != nil {
		return nil, row.Status, err
	}
	return result, row.Status, nil
}

func analysisToModel(result *types.AnalysisResult) (*models.ResumeAnalysis, error) {
	row := &models.ResumeAnalysis{
		AnalysisID: result.AnalysisID,
		RankMode:   string(result.RankMode),
		ChosenRole: result.ChosenRole,
		MatchScore: result.MatchScore,
		Status:     constants.AnalysisStatusCompleted,
	}
	var err error
	if row.SectionsJSON, err = models.ToJSON(result.Sections); err != nil {
		return nil, err
	}
	if row.PredictionsJSON, err = models.ToJSON(result.Predictions); err != nil {
		return nil, err
	}
	if row.RequiredSkills, err = models.ToJSON(result.RequiredSkills); err != nil {
		return nil, err
	}
	if row.GapJSON, err = models.ToJSON(result.Gap); err != nil {
		return nil, err
	}
	return row, nil
}

func modelToAnalysis(row *models.ResumeAnalysis) (*types.AnalysisResult, error) {
	result := &types.AnalysisResult{
		AnalysisID: row.AnalysisID,
		Sections:   types.NewSectionMap(),
		RankMode:   types.RankMode(row.RankMode),
		ChosenRole: row.ChosenRole,
		MatchScore: row.MatchScore,
	}
	if len(row.SectionsJSON) > 0 {
		if err := json.Unmarshal(row.SectionsJSON, &result.Sections); err != nil {
			return nil, fmt.Errorf("解析章节失败: %w", err)
		}
	}
	normalizeSections(&result.Sections)
	if len(row.PredictionsJSON) > 0 {
		if err := json.Unmarshal(row.PredictionsJSON, &result.Predictions); err != nil {
			return nil, fmt.Errorf("解析预测失败: %w", err)
		}
	}
	required, err := models.StringsFromJSON(row.RequiredSkills)
	if err != nil {
		return nil, fmt.Errorf("解析岗位技能失败: %w", err)
	}
	result.RequiredSkills = required
	if len(row.GapJSON) > 0 {
		if err := json.Unmarshal(row.GapJSON, &result.Gap); err != nil {
			return nil, fmt.Errorf("解析技能差距失败: %w", err)
		}
	}
	return result, nil
}
