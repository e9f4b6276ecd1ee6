package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"resume-match-go/internal/config"
	"resume-match-go/internal/registry"
	"resume-match-go/internal/storage"
)

func runImportRoles(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("import-roles", pflag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	category := fs.String("category", "", "岗位分类")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if common.rolesPath == "" {
		return fmt.Errorf("必须通过 --roles 指定岗位文件")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	source, err := registry.NewFileSource(cfg.Registry.Source, cfg.Registry.Path)
	if err != nil {
		return err
	}
	data, err := source.Load(ctx)
	if err != nil {
		return err
	}
	extra, err := registry.LoadSynonymsFile(cfg.Registry.SynonymsPath)
	if err != nil {
		return err
	}
	data.Synonyms = append(data.Synonyms, extra...)

	return importDataset(ctx, &cfg.MySQL, data, *category, stdout)
}

func importDataset(ctx context.Context, cfg *config.MySQLConfig, data registry.Dataset, category string, stdout io.Writer) error {
	db, err := storage.NewMySQL(cfg)
	if err != nil {
		return fmt.Errorf("连接MySQL失败: %w", err)
	}
	defer db.Close()

	if err := db.UpsertRoles(ctx, data.Roles, category); err != nil {
		return fmt.Errorf("导入岗位失败: %w", err)
	}
	if len(data.Synonyms) > 0 {
		if err := db.UpsertSynonyms(ctx, data.Synonyms); err != nil {
			return fmt.Errorf("导入同义词失败: %w", err)
		}
	}
	fmt.Fprintf(stdout, "已导入 %d 个岗位, %d 组同义词\n", len(data.Roles), len(data.Synonyms))
	return nil
}

func runSampleConfig(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("sample-config", pflag.ContinueOnError)
	out := fs.StringP("out", "o", "config.yaml", "输出路径")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.CreateSampleConfig(*out); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "示例配置已写入: %s\n", *out)
	return nil
}
