package matcher

import (
	"context"
	"errors"
	"math"
)

// ScoreKind 分类器输出的分数类型
type ScoreKind int

const (
	// ScoreProbability 概率，范围 [0,1]
	ScoreProbability ScoreKind = iota
	// ScoreDecision 无界的决策分数，需要平移和归一化
	ScoreDecision
)

// Scores 分类器对每个岗位标签的打分，Labels 与 Values 一一对应
type Scores struct {
	Kind   ScoreKind
	Labels []string
	Values []float64
}

// Classifier 可选的岗位文本分类器
type Classifier interface {
	HasModel() bool
	Predict(ctx context.Context, text string) (Scores, error)
}

var (
	// ErrNoModel 没有可用的分类模型
	ErrNoModel = errors.New("classifier model not available")
	// ErrMalformedScores 标签与分数数量不一致，或分数不是有限值
	ErrMalformedScores = errors.New("classifier returned malformed scores")
)

// NoopClassifier 没有模型时使用，HasModel 恒为 false
type NoopClassifier struct{}

// HasModel 实现 Classifier
func (NoopClassifier) HasModel() bool { return false }

// Predict 实现 Classifier
func (NoopClassifier) Predict(context.Context, string) (Scores, error) {
	return Scores{}, ErrNoModel
}

// rescale 把分类器分数统一换算到 0-100：
// 概率直接乘 100；决策分数先减去最小值，再按总和归一化（总和为 0 时均分），最后乘 100
func rescale(s Scores) ([]float64, error) {
	if len(s.Labels) != len(s.Values) || len(s.Values) == 0 {
		return nil, ErrMalformedScores
	}
	for _, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrMalformedScores
		}
	}
	out := make([]float64, len(s.Values))
	switch s.Kind {
	case ScoreDecision:
		lowest := s.Values[0]
		for _, v := range s.Values[1:] {
			lowest = min(lowest, v)
		}
		sum := 0.0
		for i, v := range s.Values {
			out[i] = v - lowest
			sum += out[i]
		}
		for i := range out {
			if sum == 0 {
				out[i] = 100 / float64(len(out))
			} else {
				out[i] = 100 * out[i] / sum
			}
		}
	default:
		for i, v := range s.Values {
			out[i] = 100 * min(max(v, 0), 1)
		}
	}
	return out, nil
}
