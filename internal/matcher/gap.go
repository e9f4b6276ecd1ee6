package matcher

import (
	"math"

	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

// ComputeGap 比较候选人技能与岗位要求技能（均按规范名）。
// Matched/Missing 返回岗位要求中的原始写法，按在 required 中首次出现的顺序；
// 同一规范名出现多次时，展示最后一次出现的写法。
func ComputeGap(table *skills.Table, candidate, required []string) types.GapResult {
	have := make(map[string]struct{}, len(candidate))
	for _, s := range candidate {
		if c := table.Canonicalize(s); c != "" {
			have[c] = struct{}{}
		}
	}

	var order []string
	display := make(map[string]string, len(required))
	for _, s := range required {
		c := table.Canonicalize(s)
		if c == "" {
			continue
		}
		if _, seen := display[c]; !seen {
			order = append(order, c)
		}
		display[c] = s
	}

	gap := types.GapResult{Matched: []string{}, Missing: []string{}}
	for _, c := range order {
		if _, ok := have[c]; ok {
			gap.Matched = append(gap.Matched, display[c])
		} else {
			gap.Missing = append(gap.Missing, display[c])
		}
	}
	return gap
}

// MatchScore 100 * 命中数 / 去重后的要求技能数，保留一位小数；没有要求技能时为 0
func MatchScore(gap types.GapResult) float64 {
	total := len(gap.Matched) + len(gap.Missing)
	if total == 0 {
		return 0
	}
	return Round1(100 * float64(len(gap.Matched)) / float64(total))
}

// Round1 四舍五入到一位小数
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
