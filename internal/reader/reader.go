// Package reader 把上传的简历文件转换为纯文本和表格提示。
// 无法读取的文件返回 ok=false，调用方按“没有识别到任何章节”处理，不视为错误。
package reader

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

var tracer = otel.Tracer("resume-match-go/reader")

// 支持的文档格式
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatText = "txt"
)

// ErrUnreadable 文件格式不支持或内容损坏，只记录在 span 上
var ErrUnreadable = errors.New("document is unreadable")

// Document 提取结果
type Document struct {
	Text string
	Hint *types.DocHint
}

// Extractor 单一格式的文本提取器
type Extractor interface {
	Extract(ctx context.Context, data []byte, uri string) (Document, bool)
}

// ExtractorFunc 函数适配器
type ExtractorFunc func(ctx context.Context, data []byte, uri string) (Document, bool)

// Extract 实现 Extractor
func (f ExtractorFunc) Extract(ctx context.Context, data []byte, uri string) (Document, bool) {
	return f(ctx, data, uri)
}

// DetectFormat 按扩展名判断格式，扩展名缺失时参考 Content-Type，最后检查文件头
func DetectFormat(filename, contentType string, data []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt", ".text", ".md":
		return FormatText
	}
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mt {
			case "application/pdf":
				return FormatPDF
			case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
				return FormatDOCX
			case "text/plain", "text/markdown":
				return FormatText
			}
		}
	}
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return FormatDOCX
	case utf8.Valid(data):
		return FormatText
	}
	return ""
}

// Reader 按格式分发到具体提取器。PDF 可配置多个提取器，按顺序取第一个有结果的。
type Reader struct {
	pdf  []Extractor
	docx Extractor
	text Extractor
}

// Option Reader 选项
type Option func(*Reader)

// WithPDFExtractors 设置 PDF 提取器链
func WithPDFExtractors(ex ...Extractor) Option {
	return func(r *Reader) {
		r.pdf = ex
	}
}

// WithDOCXExtractor 替换 DOCX 提取器
func WithDOCXExtractor(ex Extractor) Option {
	return func(r *Reader) {
		r.docx = ex
	}
}

// New 默认只包含按行读取的 PDF 提取器、DOCX 和纯文本提取器
func New(opts ...Option) *Reader {
	r := &Reader{
		pdf:  []Extractor{NewRowPDFReader()},
		docx: NewDocxReader(),
		text: ExtractorFunc(ExtractPlainText),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read 提取文本。不支持的格式或损坏的文件返回 ok=false。
func (r *Reader) Read(ctx context.Context, filename, contentType string, data []byte) (Document, bool) {
	format := DetectFormat(filename, contentType, data)
	ctx, span := tracer.Start(ctx, "Reader.Read",
		trace.WithAttributes(
			attribute.String("document.format", format),
			attribute.String("document.name", tracing.SafeAttributeValue("document.name", filename, tracing.DefaultMaxLength)),
			attribute.Int("document.size", len(data)),
		))
	defer span.End()

	var doc Document
	ok := false
	switch format {
	case FormatPDF:
		for _, ex := range r.pdf {
			if doc, ok = ex.Extract(ctx, data, filename); ok {
				break
			}
		}
	case FormatDOCX:
		doc, ok = r.docx.Extract(ctx, data, filename)
	case FormatText:
		doc, ok = r.text.Extract(ctx, data, filename)
	}
	if !ok {
		logger.Warn().Str("file", filename).Str("format", format).Msg("无法读取简历文件，按空文本处理")
		span.SetAttributes(attribute.Bool("document.readable", false))
		tracing.RecordError(span, ErrUnreadable, tracing.ErrorTypeExtract)
		return Document{}, false
	}
	if doc.Hint == nil {
		doc.Hint = &types.DocHint{}
	}
	doc.Hint.Format = format
	span.SetAttributes(
		attribute.Bool("document.readable", true),
		attribute.Int("document.text_length", len(doc.Text)),
		attribute.Bool("document.tabular", doc.Hint.IsTabular()),
	)
	logger.Debug().Str("format", format).Str("preview", tracing.SafeResumeContent(doc.Text)).Msg("简历文本提取完成")
	return doc, true
}

// ExtractPlainText 纯文本，去掉 BOM；非 UTF-8 内容视为不可读
func ExtractPlainText(_ context.Context, data []byte, _ string) (Document, bool) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return Document{}, false
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return Document{}, false
	}
	return Document{Text: text, Hint: &types.DocHint{Format: FormatText}}, true
}
