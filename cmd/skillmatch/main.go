// skillmatch 离线命令行：分析简历文件、训练岗位分类模型、导出报告、导入岗位数据。
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"resume-match-go/internal/bootstrap"
	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/registry"
	"resume-match-go/internal/storage"
)

const usage = `用法: skillmatch <命令> [参数]

命令:
  analyze        分析一个或多个简历文件 (pdf, docx, txt)
  export         分析简历并导出 xlsx 报告
  train          由岗位数据合成样本并训练分类模型
  import-roles   把岗位和同义词文件导入 MySQL
  sample-config  生成示例配置文件
`

// commonFlags 各命令共用的参数
type commonFlags struct {
	configPath   string
	rolesPath    string
	synonymsPath string
	modelPath    string
	verbose      bool
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&c.configPath, "config", "c", "", "配置文件路径")
	fs.StringVar(&c.rolesPath, "roles", "", "岗位文件 (csv, xlsx, yaml)，覆盖配置中的注册表来源")
	fs.StringVar(&c.synonymsPath, "synonyms", "", "额外的同义词 YAML 文件")
	fs.StringVar(&c.modelPath, "model", "", "分类模型文件，覆盖配置中的 classifier_model_path")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "输出调试日志")
}

// load 读取配置并初始化日志；命令行日志输出到 stderr
func (c *commonFlags) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return nil, err
	}
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	logger.InitWithWriter(logger.Config{Level: level, Format: "pretty", TimeFormat: "15:04:05"}, os.Stderr)

	if c.rolesPath != "" {
		kind, err := sourceKind(c.rolesPath)
		if err != nil {
			return nil, err
		}
		cfg.Registry.Source = kind
		cfg.Registry.Path = c.rolesPath
	}
	if c.synonymsPath != "" {
		cfg.Registry.SynonymsPath = c.synonymsPath
	}
	if c.modelPath != "" {
		cfg.Engine.ClassifierModelPath = c.modelPath
	}
	return cfg, nil
}

// loadRegistry 注册表来源为 mysql 时才连接数据库
func loadRegistry(ctx context.Context, cfg *config.Config) (*registry.Registry, func(), error) {
	var db *storage.MySQL
	closeDB := func() {}
	if cfg.Registry.Source == "mysql" {
		var err error
		if db, err = storage.NewMySQL(&cfg.MySQL); err != nil {
			return nil, nil, fmt.Errorf("连接MySQL失败: %w", err)
		}
		closeDB = func() { db.Close() }
	}
	reg, err := bootstrap.NewRegistry(ctx, &cfg.Registry, db)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return reg, closeDB, nil
}

// sourceKind 按扩展名判断岗位文件类型
func sourceKind(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv", nil
	case ".xlsx":
		return "xlsx", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("无法识别的岗位文件类型: %s", path)
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("缺少命令")
	}
	ctx := context.Background()
	switch args[0] {
	case "analyze":
		return runAnalyze(ctx, args[1:], stdout)
	case "export":
		return runExport(ctx, args[1:], stdout)
	case "train":
		return runTrain(ctx, args[1:], stdout)
	case "import-roles":
		return runImportRoles(ctx, args[1:], stdout)
	case "sample-config":
		return runSampleConfig(args[1:], stdout)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	fmt.Fprint(stdout, usage)
	return fmt.Errorf("未知命令 '%s'", args[0])
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
