// Package bootstrap 按配置组装注册表、文档读取器和分析器，供服务和命令行共用。
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"resume-match-go/internal/analyzer"
	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/matcher"
	"resume-match-go/internal/reader"
	"resume-match-go/internal/registry"
	"resume-match-go/internal/storage"
)

// ErrMySQLRequired 注册表来源为 mysql 但数据库不可用
var ErrMySQLRequired = errors.New("岗位注册表来源为 mysql，但 MySQL 未配置或连接失败")

// NewRegistrySource 按配置选择岗位数据源；db 可为 nil
func NewRegistrySource(cfg *config.RegistryConfig, db *storage.MySQL) (registry.Source, error) {
	if cfg.Source == "mysql" {
		if db == nil {
			return nil, ErrMySQLRequired
		}
		return db, nil
	}
	return registry.NewFileSource(cfg.Source, cfg.Path)
}

// NewRegistry 创建岗位注册表并完成首次加载
func NewRegistry(ctx context.Context, cfg *config.RegistryConfig, db *storage.MySQL) (*registry.Registry, error) {
	source, err := NewRegistrySource(cfg, db)
	if err != nil {
		return nil, err
	}

	var opts []registry.Option
	if cfg.SynonymsPath != "" {
		groups, err := registry.LoadSynonymsFile(cfg.SynonymsPath)
		if err != nil {
			return nil, fmt.Errorf("加载同义词文件失败: %w", err)
		}
		opts = append(opts, registry.WithExtraSynonyms(groups))
	}

	reg := registry.New(source, opts...)
	if _, err := reg.Reload(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}

// NewReader 创建文档读取器。pdf_reader 为 eino 时先用 Eino 解析，失败再按行读取。
func NewReader(ctx context.Context, cfg *config.EngineConfig) *reader.Reader {
	if cfg.PDFReader != "eino" {
		return reader.New()
	}
	eino, err := reader.NewEinoPDFReader(ctx, 0)
	if err != nil {
		logger.Warn().Err(err).Msg("创建Eino PDF解析器失败，使用按行读取")
		return reader.New()
	}
	return reader.New(reader.WithPDFExtractors(eino, reader.NewRowPDFReader()))
}

// NewAnalyzer 创建分析器；cache 和 metrics 可为 nil
func NewAnalyzer(cfg *config.EngineConfig, reg analyzer.RoleRegistry, cache analyzer.SegmentCache, metrics *analyzer.Metrics) *analyzer.Analyzer {
	compOpts := []analyzer.ComponentOpt{
		analyzer.WithcompRegistry(reg),
		analyzer.WithcompClassifier(matcher.LoadClassifier(cfg.ClassifierModelPath)),
		analyzer.WithcompMetrics(metrics),
	}
	if cache != nil {
		compOpts = append(compOpts, analyzer.WithcompCache(cache))
	}
	return analyzer.NewWithOptions(compOpts,
		analyzer.WithsetTopK(cfg.TopK),
		analyzer.WithsetMinSkills(cfg.MinSkills),
		analyzer.WithsetCacheTTL(config.GetDuration(cfg.CacheTTL, analyzer.DefaultSettings().CacheTTL)),
		analyzer.WithsetTokenLimits(cfg.MaxTokenLength, cfg.MaxBulletLineLength, cfg.MaxTableCellLength),
		analyzer.WithsetBatchWorkers(cfg.BatchWorkers),
	)
}
