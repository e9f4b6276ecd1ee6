package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"resume-match-go/internal/types"
)

const (
	SummarySheet = "Summary"
	GapSheet     = "Skill Gap"
)

// Entry 报告中的一份分析结果，Label 通常是简历文件名
type Entry struct {
	Label  string
	Result *types.AnalysisResult
}

// WriteAnalysisReport 把分析结果写成 xlsx 报告
func WriteAnalysisReport(w io.Writer, entries []Entry, generated time.Time) error {
	f, err := buildReport(entries, generated)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel report: %w", err)
	}
	return nil
}

// SaveAnalysisReport 写入文件，路径缺少扩展名时补上 .xlsx
func SaveAnalysisReport(path string, entries []Entry, generated time.Time) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)

	f, err := buildReport(entries, generated)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	return path, nil
}

func buildReport(entries []Entry, generated time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(GapSheet); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSummarySheet(f, headerStyle, entries, generated); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeGapSheet(f, headerStyle, entries); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create skill gap sheet: %w", err)
	}
	return f, nil
}

var summaryHeaders = []string{"Resume", "Analysis ID", "Chosen Role", "Match Score", "Rank Mode", "Top Predictions", "Skills", "Education", "Experience", "Certifications"}

func writeSummarySheet(f *excelize.File, headerStyle int, entries []Entry, generated time.Time) error {
	sheet := SummarySheet
	if err := writeHeader(f, sheet, headerStyle, summaryHeaders); err != nil {
		return err
	}
	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "B", "B", 38)
	f.SetColWidth(sheet, "C", "C", 24)
	f.SetColWidth(sheet, "F", "J", 40)

	row := 2
	for _, e := range entries {
		r := e.Result
		if r == nil {
			continue
		}
		values := []any{
			e.Label,
			r.AnalysisID,
			r.ChosenRole,
			r.MatchScore,
			string(r.RankMode),
			formatPredictions(r.Predictions),
			strings.Join(r.Sections.Skills, ", "),
			strings.Join(r.Sections.Education, "\n"),
			strings.Join(r.Sections.Experience, "\n"),
			strings.Join(r.Sections.Certifications, "\n"),
		}
		if err := writeRow(f, sheet, row, values); err != nil {
			return err
		}
		row++
	}

	// 末尾附上生成时间
	cell, _ := excelize.CoordinatesToCellName(1, row+1)
	if err := f.SetCellValue(sheet, cell, "Generated: "+generated.Format("2006-01-02 15:04:05")); err != nil {
		return err
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

var gapHeaders = []string{"Resume", "Role", "Skill", "Status"}

func writeGapSheet(f *excelize.File, headerStyle int, entries []Entry) error {
	sheet := GapSheet
	if err := writeHeader(f, sheet, headerStyle, gapHeaders); err != nil {
		return err
	}
	f.SetColWidth(sheet, "A", "C", 28)

	matchedStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	missingStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	row := 2
	emit := func(label, role, skill, status string, style int) error {
		if err := writeRow(f, sheet, row, []any{label, role, skill, status}); err != nil {
			return err
		}
		from, _ := excelize.CoordinatesToCellName(1, row)
		to, _ := excelize.CoordinatesToCellName(len(gapHeaders), row)
		row++
		return f.SetCellStyle(sheet, from, to, style)
	}

	for _, e := range entries {
		r := e.Result
		if r == nil {
			continue
		}
		for _, s := range r.Gap.Matched {
			if err := emit(e.Label, r.ChosenRole, s, "Matched", matchedStyle); err != nil {
				return err
			}
		}
		for _, s := range r.Gap.Missing {
			if err := emit(e.Label, r.ChosenRole, s, "Missing", missingStyle); err != nil {
				return err
			}
		}
	}

	if row > 2 {
		if err := f.AutoFilter(sheet, fmt.Sprintf("A1:D%d", row-1), []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, style int, headers []string) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := writeRow(f, sheet, 1, values); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func formatPredictions(preds []types.Prediction) string {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		parts = append(parts, fmt.Sprintf("%s (%.1f)", p.RoleName, p.Score))
	}
	return strings.Join(parts, "; ")
}
