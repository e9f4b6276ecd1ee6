package types

// SectionType 表示简历章节类型
type SectionType string

const (
	// SectionSkills 技能章节
	SectionSkills SectionType = "skills"
	// SectionEducation 教育经历章节
	SectionEducation SectionType = "education"
	// SectionExperience 工作经历章节
	SectionExperience SectionType = "experience"
	// SectionCertifications 证书章节
	SectionCertifications SectionType = "certifications"
)

// AllSections 固定顺序的四个章节
var AllSections = []SectionType{
	SectionSkills,
	SectionEducation,
	SectionExperience,
	SectionCertifications,
}

// SectionMap 分段结果，四个键固定存在，列表按提取顺序且已去重
type SectionMap struct {
	Skills         []string `json:"skills"`
	Education      []string `json:"education"`
	Experience     []string `json:"experience"`
	Certifications []string `json:"certifications"`
}

// NewSectionMap 返回四个列表均为空（非nil）的SectionMap
func NewSectionMap() SectionMap {
	return SectionMap{
		Skills:         []string{},
		Education:      []string{},
		Experience:     []string{},
		Certifications: []string{},
	}
}

// Get 返回指定章节的列表
func (m SectionMap) Get(section SectionType) []string {
	switch section {
	case SectionSkills:
		return m.Skills
	case SectionEducation:
		return m.Education
	case SectionExperience:
		return m.Experience
	case SectionCertifications:
		return m.Certifications
	}
	return nil
}

// Set 覆盖指定章节的列表
func (m *SectionMap) Set(section SectionType, items []string) {
	switch section {
	case SectionSkills:
		m.Skills = items
	case SectionEducation:
		m.Education = items
	case SectionExperience:
		m.Experience = items
	case SectionCertifications:
		m.Certifications = items
	}
}

// Append 向指定章节追加条目（不去重）
func (m *SectionMap) Append(section SectionType, items ...string) {
	m.Set(section, append(m.Get(section), items...))
}

// IsEmpty 四个章节是否全部为空
func (m SectionMap) IsEmpty() bool {
	for _, s := range AllSections {
		if len(m.Get(s)) > 0 {
			return false
		}
	}
	return true
}

// Clone 深拷贝，保证调用方拿到的结果不会被后续修改影响
func (m SectionMap) Clone() SectionMap {
	out := NewSectionMap()
	for _, s := range AllSections {
		out.Set(s, append([]string{}, m.Get(s)...))
	}
	return out
}

// RoleProfile 岗位及其要求技能（原始写法）
type RoleProfile struct {
	RoleName       string   `json:"role_name"`
	RequiredSkills []string `json:"required_skills"`
}

// GapResult 技能差距，Matched 与 Missing 均为岗位要求技能的原始写法
type GapResult struct {
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
}

// Prediction 岗位预测结果，Score 范围 0-100
type Prediction struct {
	RoleName string  `json:"role_name"`
	Score    float64 `json:"score"`
}

// RankMode 岗位排序所用的模式
type RankMode string

const (
	// RankModeOverlap 按技能重叠度排序
	RankModeOverlap RankMode = "overlap"
	// RankModeClassifier 按分类器置信度排序
	RankModeClassifier RankMode = "classifier"
)

// AnalysisResult 一次分析的完整结果，构造后不再修改
type AnalysisResult struct {
	AnalysisID     string       `json:"analysis_id,omitempty"`
	Sections       SectionMap   `json:"sections"`
	Predictions    []Prediction `json:"predictions"`
	RankMode       RankMode     `json:"rank_mode"`
	ChosenRole     string       `json:"chosen_role"`
	RequiredSkills []string     `json:"required_skills"`
	Gap            GapResult    `json:"gap"`
	MatchScore     float64      `json:"match_score"`
}

// Table 文档中检测到的表格，按行存储单元格文本
type Table [][]string

// DocHint 文档来源提示，Tabular 为真时分段器会尝试表格提取
type DocHint struct {
	Format  string  `json:"format,omitempty"` // pdf, docx, txt
	Tabular bool    `json:"tabular,omitempty"`
	Tables  []Table `json:"tables,omitempty"`
}

// IsTabular 文档是否来自表格型来源
func (h *DocHint) IsTabular() bool {
	if h == nil {
		return false
	}
	return h.Tabular || len(h.Tables) > 0
}
