package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// JobRole 岗位注册表
type JobRole struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement"`
	RoleName       string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_job_roles_role_name"`
	RequiredSkills datatypes.JSON `gorm:"type:json;not null"` // string[]
	Category       string         `gorm:"type:varchar(100);index:idx_job_roles_category"`
	Position       int            `gorm:"default:0;index:idx_job_roles_position"` // 注册表顺序
	Active         bool           `gorm:"default:true"`
	CreatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (JobRole) TableName() string {
	return "job_roles"
}

// SkillSynonym 技能同义词，合并进默认规范化表
type SkillSynonym struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement"`
	Canonical       string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_skill_synonyms_canonical"`
	Synonyms        datatypes.JSON `gorm:"type:json"` // string[]
	PopularityScore float64        `gorm:"type:float;default:0"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (SkillSynonym) TableName() string {
	return "skill_synonyms"
}

// ResumeAnalysis 一次简历分析的持久化结果
type ResumeAnalysis struct {
	AnalysisID       string         `gorm:"type:char(36);primaryKey"`
	OriginalFilename string         `gorm:"type:varchar(255)"`
	OriginalPathOSS  string         `gorm:"type:varchar(1024)"`
	TextPathOSS      string         `gorm:"type:varchar(1024)"`
	SectionsJSON     datatypes.JSON `gorm:"type:json"`
	PredictionsJSON  datatypes.JSON `gorm:"type:json"`
	RankMode         string         `gorm:"type:varchar(20)"`
	ChosenRole       string         `gorm:"type:varchar(255);index:idx_ra_chosen_role"`
	RequiredSkills   datatypes.JSON `gorm:"type:json"`
	GapJSON          datatypes.JSON `gorm:"type:json"`
	MatchScore       float64        `gorm:"type:float"`
	Status           string         `gorm:"type:varchar(50);default:'PENDING';index:idx_ra_status"`
	ErrorMessage     string         `gorm:"type:text"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ResumeAnalysis) TableName() string {
	return "resume_analyses"
}

// ToJSON 把任意值序列化为 datatypes.JSON
func ToJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// StringsFromJSON 解析 string[] 列，空列返回 nil
func StringsFromJSON(j datatypes.JSON) ([]string, error) {
	if len(j) == 0 || string(j) == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(j, &out); err != nil {
		return nil, err
	}
	return out, nil
}
