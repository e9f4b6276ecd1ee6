package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ecodeclub/ekit/slice"
	"github.com/spf13/pflag"

	"resume-match-go/internal/analyzer"
	"resume-match-go/internal/bootstrap"
	"resume-match-go/internal/config"
	"resume-match-go/internal/export"
	"resume-match-go/internal/types"
)

// analyzeFiles 读取并批量分析文件，返回与文件一一对应的报告条目
func analyzeFiles(ctx context.Context, cfg *config.Config, files []string, chosenRole string) ([]export.Entry, error) {
	reg, closeDB, err := loadRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	an := bootstrap.NewAnalyzer(&cfg.Engine, reg, analyzer.NewMemoryCache(), nil)
	rd := bootstrap.NewReader(ctx, &cfg.Engine)

	reqs := make([]analyzer.Request, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取文件失败: %w", err)
		}
		doc, ok := rd.Read(ctx, filepath.Base(path), "", data)
		if !ok {
			fmt.Fprintf(os.Stderr, "警告: 无法读取 %s，按空文本分析\n", path)
		}
		reqs = append(reqs, analyzer.Request{Text: doc.Text, Hint: doc.Hint, ChosenRole: chosenRole})
	}

	results, err := an.AnalyzeBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	return slice.Map(results, func(i int, r *types.AnalysisResult) export.Entry {
		return export.Entry{Label: filepath.Base(files[i]), Result: r}
	}), nil
}

func runAnalyze(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	role := fs.StringP("role", "r", "", "指定岗位，默认使用排名第一的岗位")
	format := fs.StringP("format", "f", "text", "输出格式: text, json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("必须提供至少一个简历文件")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	entries, err := analyzeFiles(ctx, cfg, fs.Args(), *role)
	if err != nil {
		return err
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(slice.Map(entries, func(_ int, e export.Entry) *types.AnalysisResult { return e.Result }))
	case "text":
		for _, e := range entries {
			printResult(stdout, e)
		}
		return nil
	}
	return fmt.Errorf("不支持的输出格式: %s", *format)
}

func printResult(w io.Writer, e export.Entry) {
	r := e.Result
	fmt.Fprintf(w, "===== %s =====\n", e.Label)
	fmt.Fprintf(w, "排序方式: %s\n", r.RankMode)
	for i, p := range r.Predictions {
		fmt.Fprintf(w, "  %d. %s (%.1f)\n", i+1, p.RoleName, p.Score)
	}
	fmt.Fprintf(w, "选择岗位: %s  匹配度: %.1f%%\n", r.ChosenRole, r.MatchScore)
	fmt.Fprintf(w, "已具备: %s\n", strings.Join(r.Gap.Matched, ", "))
	fmt.Fprintf(w, "缺少:   %s\n", strings.Join(r.Gap.Missing, ", "))
	fmt.Fprintf(w, "技能 (%d): %s\n\n", len(r.Sections.Skills), strings.Join(r.Sections.Skills, ", "))
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	role := fs.StringP("role", "r", "", "指定岗位，默认使用排名第一的岗位")
	out := fs.StringP("out", "o", "analysis_report.xlsx", "报告文件路径")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("必须提供至少一个简历文件")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	entries, err := analyzeFiles(ctx, cfg, fs.Args(), *role)
	if err != nil {
		return err
	}
	path, err := export.SaveAnalysisReport(*out, entries, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "报告已保存: %s (%d 份简历)\n", path, len(entries))
	return nil
}
