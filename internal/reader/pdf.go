package reader

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	einopdf "github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/ledongthuc/pdf"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/types"
)

const (
	// DefaultPDFTimeout 单个 PDF 的解析超时
	DefaultPDFTimeout = 30 * time.Second
	// 同一行内两段文字的间距超过字号的该倍数时视为新的一列
	columnGapFactor = 1.5
	// 间距超过字号的该倍数时补一个空格
	wordGapFactor = 0.15
)

// RowPDFReader 使用 ledongthuc/pdf 按行读取，保留列间距，
// 存在多列的行时标记为表格型文档
type RowPDFReader struct {
	minTableRows int
}

// NewRowPDFReader 创建按行读取的 PDF 提取器
func NewRowPDFReader() *RowPDFReader {
	return &RowPDFReader{minTableRows: 2}
}

// Extract 实现 Extractor
func (p *RowPDFReader) Extract(_ context.Context, data []byte, uri string) (doc Document, ok bool) {
	// ledongthuc/pdf 遇到损坏文件可能 panic
	defer func() {
		if r := recover(); r != nil {
			logger.Warn().Str("uri", uri).Interface("panic", r).Msg("PDF按行解析异常")
			doc, ok = Document{}, false
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Warn().Err(err).Str("uri", uri).Msg("打开PDF失败")
		return Document{}, false
	}

	var lines []string
	var table types.Table
	var tables []types.Table
	flush := func() {
		if len(table) >= p.minTableRows {
			tables = append(tables, table)
		}
		table = nil
	}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			logger.Debug().Err(err).Int("page", i).Msg("读取PDF页面失败，跳过")
			continue
		}
		for _, row := range rows {
			cells := rowCells(row.Content)
			if len(cells) == 0 {
				continue
			}
			lines = append(lines, strings.Join(cells, "  "))
			if len(cells) > 1 {
				table = append(table, cells)
			} else {
				flush()
			}
		}
		flush()
		lines = append(lines, "")
	}

	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return Document{}, false
	}
	return Document{
		Text: text,
		Hint: &types.DocHint{Format: FormatPDF, Tabular: len(tables) > 0, Tables: tables},
	}, true
}

// rowCells 按水平间距把一行文字拼成单元格
func rowCells(texts pdf.TextHorizontal) []string {
	var cells []string
	var cur strings.Builder
	prevEnd := 0.0
	for i, t := range texts {
		if t.S == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		if i > 0 && cur.Len() > 0 {
			gap := t.X - prevEnd
			switch {
			case gap > size*columnGapFactor:
				cells = append(cells, strings.TrimSpace(cur.String()))
				cur.Reset()
			case gap > size*wordGapFactor && !strings.HasSuffix(cur.String(), " ") && !strings.HasPrefix(t.S, " "):
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		cells = append(cells, s)
	}
	out := cells[:0]
	for _, c := range cells {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// EinoPDFReader 使用 Eino PDF Parser 提取整份文档的连续文本
type EinoPDFReader struct {
	parser  *einopdf.PDFParser
	timeout time.Duration
}

// NewEinoPDFReader 初始化 Eino PDF 提取器，不按页面分割
func NewEinoPDFReader(ctx context.Context, timeout time.Duration) (*EinoPDFReader, error) {
	p, err := einopdf.NewPDFParser(ctx, &einopdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}
	return &EinoPDFReader{parser: p, timeout: timeout}, nil
}

// Extract 实现 Extractor
func (e *EinoPDFReader) Extract(ctx context.Context, data []byte, uri string) (Document, bool) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, bytes.NewReader(data), einoParser.WithURI(uri))
	if err != nil {
		logger.Warn().Err(err).Str("uri", uri).Msg("Eino PDF解析失败")
		return Document{}, false
	}

	var sb strings.Builder
	for i, d := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(d.Content)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Document{}, false
	}
	logger.Debug().
		Str("uri", uri).
		Int("documents", len(docs)).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Eino PDF提取完成")
	return Document{Text: text, Hint: &types.DocHint{Format: FormatPDF}}, true
}
