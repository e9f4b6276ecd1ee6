package registry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

// 表头第一列的可能写法
var roleHeaderNames = map[string]struct{}{
	"role": {}, "role_name": {}, "job_role": {}, "job title": {}, "title": {}, "position": {},
}

// splitSkillCell 技能单元格优先按分号拆分，没有分号时按逗号或竖线
func splitSkillCell(cell string) []string {
	sep := ";"
	switch {
	case strings.Contains(cell, ";"):
	case strings.Contains(cell, ","):
		sep = ","
	case strings.Contains(cell, "|"):
		sep = "|"
	}
	var out []string
	for _, s := range strings.Split(cell, sep) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseRoleRows 解析 "岗位,技能" 表格行。第一行若是表头则跳过；
// 多于两列时其余各列都视为技能。
func parseRoleRows(rows [][]string) ([]types.RoleProfile, error) {
	var roles []types.RoleProfile
	for i, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		name := strings.TrimSpace(row[0])
		if i == 0 {
			if _, header := roleHeaderNames[strings.ToLower(name)]; header {
				continue
			}
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("第 %d 行缺少技能列: %w", i+1, ErrInvalidRow)
		}
		var required []string
		for _, cell := range row[1:] {
			required = append(required, splitSkillCell(cell)...)
		}
		roles = append(roles, types.RoleProfile{RoleName: name, RequiredSkills: required})
	}
	return roles, nil
}

// CSVSource 岗位 CSV 文件：role,skills，技能之间用分号分隔，# 开头为注释
type CSVSource struct {
	Path string
}

// Name 实现 Source
func (s *CSVSource) Name() string { return "csv:" + filepath.Base(s.Path) }

// Load 实现 Source
func (s *CSVSource) Load(_ context.Context) (Dataset, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return Dataset{}, fmt.Errorf("打开岗位文件失败: %w", err)
	}
	defer f.Close()
	roles, err := ReadRolesCSV(f)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Roles: roles}, nil
}

// ReadRolesCSV 从 CSV 读取岗位
func ReadRolesCSV(r io.Reader) ([]types.RoleProfile, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析岗位CSV失败: %w", err)
	}
	return parseRoleRows(rows)
}

// XLSXSource 岗位 Excel 文件。岗位在 RoleSheet（默认第一个工作表），
// 同义词在可选的 "synonyms" 工作表：规范名,同义词（分号分隔）
type XLSXSource struct {
	Path      string
	RoleSheet string
}

const synonymSheet = "synonyms"

// Name 实现 Source
func (s *XLSXSource) Name() string { return "xlsx:" + filepath.Base(s.Path) }

// Load 实现 Source
func (s *XLSXSource) Load(_ context.Context) (Dataset, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return Dataset{}, fmt.Errorf("打开岗位Excel失败: %w", err)
	}
	defer f.Close()

	sheet := s.RoleSheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Dataset{}, fmt.Errorf("读取工作表 %s 失败: %w", sheet, err)
	}
	roles, err := parseRoleRows(rows)
	if err != nil {
		return Dataset{}, err
	}
	data := Dataset{Roles: roles}

	if idx, _ := f.GetSheetIndex(synonymSheet); idx >= 0 {
		synRows, err := f.GetRows(synonymSheet)
		if err != nil {
			return Dataset{}, fmt.Errorf("读取同义词工作表失败: %w", err)
		}
		for _, row := range synRows {
			if len(row) < 2 || strings.EqualFold(strings.TrimSpace(row[0]), "canonical") {
				continue
			}
			data.Synonyms = append(data.Synonyms, skills.SynonymGroup{
				Canonical: strings.TrimSpace(row[0]),
				Synonyms:  splitSkillCell(row[1]),
			})
		}
	}
	return data, nil
}

// yamlDataset YAML 文件结构
type yamlDataset struct {
	Roles []struct {
		Name   string   `yaml:"name"`
		Skills []string `yaml:"skills"`
	} `yaml:"roles"`
	Synonyms []skills.SynonymGroup `yaml:"synonyms"`
}

// YAMLSource YAML 格式的岗位和同义词
type YAMLSource struct {
	Path string
}

// Name 实现 Source
func (s *YAMLSource) Name() string { return "yaml:" + filepath.Base(s.Path) }

// Load 实现 Source
func (s *YAMLSource) Load(_ context.Context) (Dataset, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Dataset{}, fmt.Errorf("读取岗位YAML失败: %w", err)
	}
	var doc yamlDataset
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Dataset{}, fmt.Errorf("解析岗位YAML失败: %w", err)
	}
	out := Dataset{Synonyms: doc.Synonyms}
	for _, role := range doc.Roles {
		out.Roles = append(out.Roles, types.RoleProfile{RoleName: role.Name, RequiredSkills: role.Skills})
	}
	return out, nil
}

// LoadSynonymsFile 读取只包含 synonyms 的 YAML 文件，路径为空时返回 nil
func LoadSynonymsFile(path string) ([]skills.SynonymGroup, error) {
	if path == "" {
		return nil, nil
	}
	data, err := (&YAMLSource{Path: path}).Load(context.Background())
	if err != nil {
		return nil, err
	}
	return data.Synonyms, nil
}

// ErrUnknownSource 不支持的数据源类型
var ErrUnknownSource = errors.New("unknown registry source")

// NewFileSource 按类型创建文件数据源：csv、xlsx、yaml
func NewFileSource(kind, path string) (Source, error) {
	switch strings.ToLower(kind) {
	case "csv":
		return &CSVSource{Path: path}, nil
	case "xlsx", "excel":
		return &XLSXSource{Path: path}, nil
	case "yaml", "yml":
		return &YAMLSource{Path: path}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSource, kind)
}
