package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"regexp"
	"strings"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/types"
)

// 单词由字母、数字以及 + # 组成（保留 c++ / c#），至少两个字符
var modelTokenRe = regexp.MustCompile(`[\p{L}\p{N}+#]{2,}`)

// Model TF-IDF（一元+二元词）特征上的多分类逻辑回归，JSON 持久化
type Model struct {
	Labels     []string       `json:"labels"`
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	Weights    [][]float64    `json:"weights"` // [类别][特征]
	Bias       []float64      `json:"bias"`
	Output     ScoreKind      `json:"output"`
}

// Sample 一条训练样本
type Sample struct {
	Text  string
	Label string
}

// TrainOptions 训练参数
type TrainOptions struct {
	Epochs       int
	LearningRate float64
	L2           float64
	Output       ScoreKind
}

// DefaultTrainOptions 默认训练参数
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Epochs: 300, LearningRate: 1.0, L2: 1e-4, Output: ScoreProbability}
}

var (
	// ErrNoSamples 没有可用于训练的样本
	ErrNoSamples = errors.New("no training samples")
	// ErrSingleLabel 至少需要两个不同的岗位标签
	ErrSingleLabel = errors.New("at least two distinct labels are required")
)

// terms 小写分词后生成一元词和相邻二元词
func terms(text string) []string {
	words := modelTokenRe.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, 2*len(words))
	out = append(out, words...)
	for i := 1; i < len(words); i++ {
		out = append(out, words[i-1]+" "+words[i])
	}
	return out
}

// vectorize TF-IDF 后做 L2 归一化，返回稀疏向量
func (m *Model) vectorize(text string) map[int]float64 {
	vec := make(map[int]float64)
	for _, t := range terms(text) {
		if idx, ok := m.Vocabulary[t]; ok {
			vec[idx]++
		}
	}
	norm := 0.0
	for idx, tf := range vec {
		v := tf * m.IDF[idx]
		vec[idx] = v
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

func (m *Model) logits(x map[int]float64) []float64 {
	out := make([]float64, len(m.Labels))
	for c := range m.Labels {
		z := m.Bias[c]
		for idx, v := range x {
			z += m.Weights[c][idx] * v
		}
		out[c] = z
	}
	return out
}

func softmax(z []float64) []float64 {
	out := make([]float64, len(z))
	peak := math.Inf(-1)
	for _, v := range z {
		peak = max(peak, v)
	}
	sum := 0.0
	for i, v := range z {
		out[i] = math.Exp(v - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Train 在样本上训练模型，批量梯度下降
func Train(samples []Sample, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultTrainOptions().Epochs
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}

	m := &Model{Vocabulary: make(map[string]int), Output: opts.Output}
	labelIdx := make(map[string]int)
	df := make(map[int]int)
	for _, s := range samples {
		if _, ok := labelIdx[s.Label]; !ok {
			labelIdx[s.Label] = len(m.Labels)
			m.Labels = append(m.Labels, s.Label)
		}
		seen := make(map[int]struct{})
		for _, t := range terms(s.Text) {
			idx, ok := m.Vocabulary[t]
			if !ok {
				idx = len(m.Vocabulary)
				m.Vocabulary[t] = idx
			}
			if _, dup := seen[idx]; !dup {
				seen[idx] = struct{}{}
				df[idx]++
			}
		}
	}
	if len(m.Labels) < 2 {
		return nil, ErrSingleLabel
	}

	// 平滑 idf：ln((1+n)/(1+df)) + 1
	n := float64(len(samples))
	m.IDF = make([]float64, len(m.Vocabulary))
	for idx := range m.IDF {
		m.IDF[idx] = math.Log((1+n)/(1+float64(df[idx]))) + 1
	}
	m.Weights = make([][]float64, len(m.Labels))
	for c := range m.Weights {
		m.Weights[c] = make([]float64, len(m.Vocabulary))
	}
	m.Bias = make([]float64, len(m.Labels))

	xs := make([]map[int]float64, len(samples))
	ys := make([]int, len(samples))
	for i, s := range samples {
		xs[i] = m.vectorize(s.Text)
		ys[i] = labelIdx[s.Label]
	}

	step := opts.LearningRate / n
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		gradW := make([]map[int]float64, len(m.Labels))
		for c := range gradW {
			gradW[c] = make(map[int]float64)
		}
		gradB := make([]float64, len(m.Labels))
		for i, x := range xs {
			p := softmax(m.logits(x))
			for c := range p {
				diff := p[c]
				if c == ys[i] {
					diff -= 1
				}
				gradB[c] += diff
				for idx, v := range x {
					gradW[c][idx] += diff * v
				}
			}
		}
		for c := range m.Weights {
			if opts.L2 > 0 {
				decay := 1 - opts.LearningRate*opts.L2
				for idx := range m.Weights[c] {
					m.Weights[c][idx] *= decay
				}
			}
			for idx, g := range gradW[c] {
				m.Weights[c][idx] -= step * g
			}
			m.Bias[c] -= step * gradB[c]
		}
	}
	return m, nil
}

// HasModel 实现 Classifier
func (m *Model) HasModel() bool {
	return m != nil && len(m.Labels) > 0 && len(m.Weights) == len(m.Labels)
}

// Predict 实现 Classifier，按 Output 返回概率或决策分数
func (m *Model) Predict(ctx context.Context, text string) (Scores, error) {
	if !m.HasModel() {
		return Scores{}, ErrNoModel
	}
	if err := ctx.Err(); err != nil {
		return Scores{}, err
	}
	z := m.logits(m.vectorize(text))
	scores := Scores{Kind: m.Output, Labels: append([]string{}, m.Labels...)}
	if m.Output == ScoreDecision {
		scores.Values = z
	} else {
		scores.Values = softmax(z)
	}
	return scores, nil
}

// Save 以 JSON 写出模型
func (m *Model) Save(w io.Writer) error {
	return json.NewEncoder(w).Encode(m)
}

// SaveFile 写入模型文件
func (m *Model) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建模型文件失败: %w", err)
	}
	defer f.Close()
	if err := m.Save(f); err != nil {
		return fmt.Errorf("写入模型文件失败: %w", err)
	}
	return nil
}

// LoadModel 从 JSON 读取模型并校验维度
func LoadModel(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("解析模型失败: %w", err)
	}
	if len(m.Labels) == 0 || len(m.Weights) != len(m.Labels) || len(m.Bias) != len(m.Labels) ||
		len(m.IDF) != len(m.Vocabulary) {
		return nil, fmt.Errorf("模型维度不一致: %w", ErrMalformedScores)
	}
	for _, row := range m.Weights {
		if len(row) != len(m.IDF) {
			return nil, fmt.Errorf("模型维度不一致: %w", ErrMalformedScores)
		}
	}
	for _, idx := range m.Vocabulary {
		if idx < 0 || idx >= len(m.IDF) {
			return nil, fmt.Errorf("模型词表下标越界: %w", ErrMalformedScores)
		}
	}
	return &m, nil
}

// LoadClassifier 加载模型文件；路径为空或加载失败时返回 NoopClassifier，不向调用方报错
func LoadClassifier(path string) Classifier {
	if path == "" {
		return NoopClassifier{}
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("分类模型不可用，使用技能重叠排序")
		return NoopClassifier{}
	}
	defer f.Close()
	m, err := LoadModel(f)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("分类模型加载失败，使用技能重叠排序")
		return NoopClassifier{}
	}
	logger.Info().Str("path", path).Int("labels", len(m.Labels)).Int("features", len(m.IDF)).Msg("分类模型已加载")
	return m
}

const (
	// DefaultSamplesPerRole 每个岗位合成的样本数
	DefaultSamplesPerRole = 12
	// DefaultSampleSeed 合成样本的随机种子
	DefaultSampleSeed     = 7
	minSkillsForSamples   = 3
)

// SynthesizeSamples 由岗位技能列表合成训练文本，技能少于3个的岗位跳过。
// 相同输入和种子得到相同样本。
func SynthesizeSamples(roles []types.RoleProfile, perRole int, seed int64) []Sample {
	rng := rand.New(rand.NewSource(seed))
	var samples []Sample
	for _, role := range roles {
		if len(role.RequiredSkills) < minSkillsForSamples {
			continue
		}
		for i := 0; i < perRole; i++ {
			picked := append([]string{}, role.RequiredSkills...)
			rng.Shuffle(len(picked), func(a, b int) { picked[a], picked[b] = picked[b], picked[a] })
			k := 2 + rng.Intn(min(len(picked), 5)-1)
			picked = picked[:k]
			text := fmt.Sprintf("Experienced %s. Key skills: %s. Projects used %s and %s.",
				role.RoleName, strings.Join(picked, ", "), picked[0], picked[len(picked)-1])
			samples = append(samples, Sample{Text: text, Label: role.RoleName})
		}
	}
	return samples
}
