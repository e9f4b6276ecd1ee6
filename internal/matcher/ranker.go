package matcher

import (
	"context"
	"sort"
	"strings"

	"github.com/ecodeclub/ekit/slice"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

var tracer = otel.Tracer("resume-match-go/matcher")

// Ranker 对岗位注册表中的所有岗位打分排序。
// 有分类模型时按分类器置信度，否则（或分类器出错时）按技能重叠度。
type Ranker struct {
	table      *skills.Table
	classifier Classifier
}

// NewRanker 创建排序器，classifier 可以为 nil
func NewRanker(table *skills.Table, classifier Classifier) *Ranker {
	if classifier == nil {
		classifier = NoopClassifier{}
	}
	return &Ranker{table: table, classifier: classifier}
}

// ClassifierText 分类器的输入：教育、经历、技能拼接
func ClassifierText(sections types.SectionMap) string {
	parts := make([]string, 0, len(sections.Education)+len(sections.Experience)+len(sections.Skills))
	parts = append(parts, sections.Education...)
	parts = append(parts, sections.Experience...)
	parts = append(parts, sections.Skills...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// RankRoles 返回按分数降序排列的全部岗位预测
func (r *Ranker) RankRoles(ctx context.Context, sections types.SectionMap, roles []types.RoleProfile) ([]types.Prediction, types.RankMode) {
	ctx, span := tracer.Start(ctx, "Ranker.RankRoles",
		trace.WithAttributes(attribute.Int("roles.count", len(roles))))
	defer span.End()

	if r.classifier.HasModel() {
		if preds, ok := r.rankByClassifier(ctx, span, sections, roles); ok {
			span.SetAttributes(attribute.String("rank.mode", string(types.RankModeClassifier)))
			return preds, types.RankModeClassifier
		}
	}
	span.SetAttributes(attribute.String("rank.mode", string(types.RankModeOverlap)))
	return OverlapRank(r.table, sections.Skills, roles), types.RankModeOverlap
}

func (r *Ranker) rankByClassifier(ctx context.Context, span trace.Span, sections types.SectionMap, roles []types.RoleProfile) ([]types.Prediction, bool) {
	text := ClassifierText(sections)
	if text == "" || len(roles) == 0 {
		return nil, false
	}
	scores, err := r.classifier.Predict(ctx, text)
	if err == nil {
		var values []float64
		values, err = rescale(scores)
		if err == nil {
			preds := orderByRegistry(scores.Labels, values, roles)
			if len(preds) > 0 {
				return preds, true
			}
			logger.Warn().Strs("labels", scores.Labels).Msg("分类器标签均不在岗位注册表中，改用技能重叠排序")
			return nil, false
		}
	}
	tracing.RecordError(span, err, tracing.ErrorTypeClassifier)
	logger.Warn().Err(err).Msg("分类器预测失败，改用技能重叠排序")
	return nil, false
}

// orderByRegistry 丢弃注册表中没有的标签，按分数降序、注册表顺序稳定排序
func orderByRegistry(labels []string, values []float64, roles []types.RoleProfile) []types.Prediction {
	position := make(map[string]int, len(roles))
	for i, role := range roles {
		position[role.RoleName] = i
	}
	type scored struct {
		pos  int
		pred types.Prediction
	}
	var out []scored
	seen := make(map[string]struct{}, len(labels))
	for i, label := range labels {
		pos, ok := position[label]
		if !ok {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, scored{pos: pos, pred: types.Prediction{RoleName: label, Score: Round1(values[i])}})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].pred.Score != out[j].pred.Score {
			return out[i].pred.Score > out[j].pred.Score
		}
		return out[i].pos < out[j].pos
	})
	return slice.Map(out, func(_ int, s scored) types.Prediction { return s.pred })
}

// OverlapRank 技能重叠模式：每个岗位的分数为命中的要求技能占比，
// 分数降序，分数相同按注册表顺序
func OverlapRank(table *skills.Table, candidate []string, roles []types.RoleProfile) []types.Prediction {
	preds := slice.Map(roles, func(_ int, role types.RoleProfile) types.Prediction {
		gap := ComputeGap(table, candidate, role.RequiredSkills)
		return types.Prediction{RoleName: role.RoleName, Score: MatchScore(gap)}
	})
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Score > preds[j].Score
	})
	return preds
}
