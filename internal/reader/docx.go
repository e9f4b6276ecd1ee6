package reader

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/types"
)

// DocxReader 读取 word/document.xml：段落转为文本行，列表段落加项目符号并按层级缩进，
// 表格转为 DocHint.Tables，同时以两个空格分隔单元格写入文本
type DocxReader struct{}

// NewDocxReader 创建 DOCX 提取器
func NewDocxReader() *DocxReader {
	return &DocxReader{}
}

// Extract 实现 Extractor
func (d *DocxReader) Extract(_ context.Context, data []byte, uri string) (Document, bool) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Warn().Err(err).Str("uri", uri).Msg("打开DOCX失败")
		return Document{}, false
	}
	defer r.Close()

	text, tables, err := parseDocumentXML(r.Editable().GetContent())
	if err != nil {
		logger.Warn().Err(err).Str("uri", uri).Msg("解析DOCX内容失败")
		return Document{}, false
	}
	if strings.TrimSpace(text) == "" && len(tables) == 0 {
		return Document{}, false
	}
	return Document{
		Text: text,
		Hint: &types.DocHint{Format: FormatDOCX, Tabular: len(tables) > 0, Tables: tables},
	}, true
}

// paragraph 解析中的段落状态
type paragraph struct {
	text   strings.Builder
	listed bool
	level  int
}

func (p *paragraph) line() string {
	s := strings.TrimRight(p.text.String(), " \t")
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if p.listed {
		return strings.Repeat("  ", p.level) + "- " + strings.TrimSpace(s)
	}
	return s
}

// parseDocumentXML 按 WordprocessingML 元素流式解析（只看本地名，忽略命名空间）
func parseDocumentXML(content string) (string, []types.Table, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		lines     []string
		tables    []types.Table
		tableRows []types.Table // 嵌套表格栈
		row       []string
		cell      []string
		para      *paragraph
		inText    bool
		tableDeep int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "tbl":
				tableDeep++
				tableRows = append(tableRows, nil)
			case "tr":
				row = nil
			case "tc":
				cell = nil
			case "p":
				para = &paragraph{}
			case "numPr":
				if para != nil {
					para.listed = true
				}
			case "ilvl":
				if para != nil {
					if n, err := strconv.Atoi(attr(el, "val")); err == nil {
						para.level = n
					}
				}
			case "t":
				inText = true
			case "tab":
				if para != nil {
					para.text.WriteByte('\t')
				}
			case "br", "cr":
				if para != nil {
					para.text.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText && para != nil {
				para.text.Write(el)
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if para == nil {
					continue
				}
				if line := para.line(); line != "" {
					if tableDeep > 0 {
						cell = append(cell, strings.TrimSpace(line))
					} else {
						lines = append(lines, line)
					}
				} else if tableDeep == 0 {
					lines = append(lines, "")
				}
				para = nil
			case "tc":
				row = append(row, strings.Join(cell, " "))
				cell = nil
			case "tr":
				if tableDeep > 0 && hasContent(row) {
					tableRows[len(tableRows)-1] = append(tableRows[len(tableRows)-1], row)
					lines = append(lines, strings.Join(nonEmpty(row), "  "))
				}
				row = nil
			case "tbl":
				if len(tableRows) > 0 {
					if t := tableRows[len(tableRows)-1]; len(t) > 0 {
						tables = append(tables, t)
					}
					tableRows = tableRows[:len(tableRows)-1]
				}
				tableDeep--
				lines = append(lines, "")
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), tables, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func hasContent(row []string) bool {
	return len(nonEmpty(row)) > 0
}

func nonEmpty(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
