package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"resume-match-go/internal/matcher"
)

func runTrain(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("train", pflag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	out := fs.StringP("out", "o", "", "模型输出路径，默认使用配置中的 classifier_model_path")
	perRole := fs.Int("samples-per-role", matcher.DefaultSamplesPerRole, "每个岗位合成的样本数")
	seed := fs.Int64("seed", matcher.DefaultSampleSeed, "随机种子")
	epochs := fs.Int("epochs", matcher.DefaultTrainOptions().Epochs, "训练轮数")
	decision := fs.Bool("decision-scores", false, "输出原始决策分数而不是概率")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = cfg.Engine.ClassifierModelPath
	}
	if path == "" {
		return fmt.Errorf("必须通过 --out 或配置 classifier_model_path 指定模型路径")
	}

	reg, closeDB, err := loadRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	samples := matcher.SynthesizeSamples(reg.Snapshot().Roles(), *perRole, *seed)
	opts := matcher.DefaultTrainOptions()
	opts.Epochs = *epochs
	if *decision {
		opts.Output = matcher.ScoreDecision
	}
	model, err := matcher.Train(samples, opts)
	if err != nil {
		return fmt.Errorf("训练模型失败: %w", err)
	}
	if err := model.SaveFile(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "模型已保存: %s (%d 个岗位, %d 条样本, %d 个特征)\n", path, len(model.Labels), len(samples), len(model.IDF))
	return nil
}
