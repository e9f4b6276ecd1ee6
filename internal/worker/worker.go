// Package worker 消费分析请求队列：下载简历、抽取文本、执行分析并持久化结果。
package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"resume-match-go/internal/analyzer"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/reader"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

var tracer = otel.Tracer("resume-match-go/worker")

// ObjectStore 简历文档存取
type ObjectStore interface {
	GetObject(ctx context.Context, objectKey string) ([]byte, error)
	PutText(ctx context.Context, analysisID, text string) (string, error)
}

// DocumentReader 文档文本抽取
type DocumentReader interface {
	Read(ctx context.Context, filename, contentType string, data []byte) (reader.Document, bool)
}

// Analyzer 分析器
type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (*types.AnalysisResult, error)
}

// ResultStore 分析结果持久化
type ResultStore interface {
	SaveAnalysis(ctx context.Context, result *types.AnalysisResult, textPath string) error
	MarkAnalysisFailed(ctx context.Context, analysisID, reason string) error
}

// ResultCache 分析结果缓存
type ResultCache interface {
	Save(ctx context.Context, result *types.AnalysisResult) error
}

// Publisher 重试时重新发布消息
type Publisher interface {
	PublishAnalysisRequested(ctx context.Context, msg *storage.AnalysisRequestedMessage) error
}

// ConsumeFunc 阻塞消费队列直到 ctx 结束，例如 (*storage.RabbitMQ).Consume
type ConsumeFunc func(ctx context.Context, handler func(ctx context.Context, body []byte) bool) error

// Options 工作器设置
type Options struct {
	Consumers     int
	MaxRetries    int
	RetryInterval time.Duration
}

// Worker 分析请求的消费者
type Worker struct {
	objects   ObjectStore
	reader    DocumentReader
	analyzer  Analyzer
	results   ResultStore
	cache     ResultCache
	publisher Publisher
	opts      Options
	sleep     func(ctx context.Context, d time.Duration)
}

// New 创建工作器；cache 与 publisher 可为 nil
func New(objects ObjectStore, rd DocumentReader, an Analyzer, results ResultStore, cache ResultCache, publisher Publisher, opts Options) *Worker {
	if opts.Consumers <= 0 {
		opts.Consumers = 1
	}
	return &Worker{
		objects:   objects,
		reader:    rd,
		analyzer:  an,
		results:   results,
		cache:     cache,
		publisher: publisher,
		opts:      opts,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run 启动 Consumers 个并发消费者，任一消费者出错时全部停止
func (w *Worker) Run(ctx context.Context, consume ConsumeFunc) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.opts.Consumers; i++ {
		g.Go(func() error {
			return consume(ctx, w.Handle)
		})
	}
	return g.Wait()
}

// Handle 处理一条消息，返回 false 表示消息需要重新入队
func (w *Worker) Handle(ctx context.Context, body []byte) bool {
	var msg storage.AnalysisRequestedMessage
	if err := json.Unmarshal(body, &msg); err != nil || msg.AnalysisID == "" {
		logger.Error().Err(err).Int("size", len(body)).Msg("丢弃格式错误的分析消息")
		return true
	}

	ctx = logger.WithAnalysisID(ctx, msg.AnalysisID)
	err := w.Process(ctx, &msg)
	if err == nil {
		return true
	}

	log := logger.Ctx(ctx)
	if retryable(err) && msg.Attempt < w.opts.MaxRetries {
		if w.publisher == nil {
			log.Warn().Err(err).Msg("分析失败，消息重新入队")
			return false
		}
		w.sleep(ctx, w.opts.RetryInterval)
		next := msg
		next.Attempt++
		if pubErr := w.publisher.PublishAnalysisRequested(ctx, &next); pubErr != nil {
			log.Error().Err(pubErr).Msg("重新发布分析消息失败")
			return false
		}
		log.Warn().Err(err).Int("attempt", next.Attempt).Msg("分析失败，已安排重试")
		return true
	}

	if retryable(err) {
		err = newError(msg.AnalysisID, "retry", ErrRetriesExhausted, err.Error())
	}
	log.Error().Err(err).Msg("分析失败")
	if markErr := w.results.MarkAnalysisFailed(ctx, msg.AnalysisID, err.Error()); markErr != nil {
		log.Error().Err(markErr).Msg("记录失败状态失败")
	}
	return true
}

// Process 下载、抽取、分析并保存一份简历
func (w *Worker) Process(ctx context.Context, msg *storage.AnalysisRequestedMessage) error {
	ctx, span := tracer.Start(ctx, "Worker.Process")
	defer span.End()
	span.SetAttributes(
		attribute.String("analysis.id", msg.AnalysisID),
		attribute.Int("analysis.attempt", msg.Attempt),
	)

	data, err := w.objects.GetObject(ctx, msg.OriginalPathOSS)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return newError(msg.AnalysisID, "download", ErrDownloadFailed, err.Error())
	}

	// 无法读取的文档按空文本分析
	doc, ok := w.reader.Read(ctx, msg.OriginalFilename, msg.ContentType, data)
	textPath := ""
	if ok {
		if textPath, err = w.objects.PutText(ctx, msg.AnalysisID, doc.Text); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("上传抽取文本失败")
			textPath = ""
		}
	}

	result, err := w.analyzer.Analyze(ctx, analyzer.Request{
		AnalysisID: msg.AnalysisID,
		Text:       doc.Text,
		Hint:       doc.Hint,
		ChosenRole: msg.ChosenRole,
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeConfig)
		return newError(msg.AnalysisID, "analyze", ErrAnalysisFailed, err.Error())
	}

	if err := w.results.SaveAnalysis(ctx, result, textPath); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return newError(msg.AnalysisID, "persist", ErrPersistFailed, err.Error())
	}
	if w.cache != nil {
		if err := w.cache.Save(ctx, result); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("缓存分析结果失败")
		}
	}

	logger.Ctx(ctx).Info().
		Str("chosen_role", result.ChosenRole).
		Float64("match_score", result.MatchScore).
		Bool("readable", ok).
		Msg("简历分析完成")
	return nil
}
