package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/analyzer"
	"resume-match-go/internal/constants"
	"resume-match-go/internal/export"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/reader"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Analyzer 分析器
type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (*types.AnalysisResult, error)
	Recompute(ctx context.Context, prev *types.AnalysisResult, chosenRole string) (*types.AnalysisResult, error)
}

// DocumentReader 文档文本抽取
type DocumentReader interface {
	Read(ctx context.Context, filename, contentType string, data []byte) (reader.Document, bool)
}

// AnalysisStore 分析结果持久化，例如 *storage.MySQL
type AnalysisStore interface {
	CreatePendingAnalysis(ctx context.Context, analysisID, filename, originalPath string) error
	SaveAnalysis(ctx context.Context, result *types.AnalysisResult, textPath string) error
	UpdateAnalysisRole(ctx context.Context, result *types.AnalysisResult) error
	MarkAnalysisFailed(ctx context.Context, analysisID, reason string) error
	GetAnalysis(ctx context.Context, analysisID string) (*types.AnalysisResult, string, error)
}

// ResultCache 分析结果缓存，例如 *storage.ResultCache
type ResultCache interface {
	Save(ctx context.Context, result *types.AnalysisResult) error
	Load(ctx context.Context, analysisID string) (*types.AnalysisResult, error)
}

// DocumentStore 原始简历存储
type DocumentStore interface {
	PutOriginal(ctx context.Context, analysisID, filename string, data []byte) (string, error)
}

// Publisher 发布异步分析请求
type Publisher interface {
	PublishAnalysisRequested(ctx context.Context, msg *storage.AnalysisRequestedMessage) error
}

// AnalysisOption 分析处理器的可选依赖
type AnalysisOption func(*AnalysisHandler)

// WithStore 持久化分析结果
func WithStore(store AnalysisStore) AnalysisOption {
	return func(h *AnalysisHandler) { h.store = store }
}

// WithResultCache 缓存分析结果
func WithResultCache(cache ResultCache) AnalysisOption {
	return func(h *AnalysisHandler) { h.cache = cache }
}

// WithAsyncUpload 上传的简历先存入对象存储，再交给队列异步分析
func WithAsyncUpload(docs DocumentStore, publisher Publisher) AnalysisOption {
	return func(h *AnalysisHandler) {
		h.docs = docs
		h.publisher = publisher
	}
}

// WithMaxUploadBytes 上传文件大小上限，<=0 表示不限制
func WithMaxUploadBytes(n int) AnalysisOption {
	return func(h *AnalysisHandler) { h.maxUploadBytes = n }
}

// AnalysisHandler 简历分析接口
type AnalysisHandler struct {
	analyzer       Analyzer
	reader         DocumentReader
	store          AnalysisStore
	cache          ResultCache
	docs           DocumentStore
	publisher      Publisher
	maxUploadBytes int
}

// NewAnalysisHandler 创建分析处理器
func NewAnalysisHandler(an Analyzer, rd DocumentReader, opts ...AnalysisOption) *AnalysisHandler {
	h := &AnalysisHandler{analyzer: an, reader: rd}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AnalyzeTextRequest 文本分析请求
type AnalyzeTextRequest struct {
	Text       string `json:"text"`
	ChosenRole string `json:"chosen_role"`
}

// SelectRoleRequest 重新选择岗位
type SelectRoleRequest struct {
	ChosenRole string `json:"chosen_role"`
}

// AnalysisStatusResponse 异步分析的状态
type AnalysisStatusResponse struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
}

func (h *AnalysisHandler) asyncEnabled() bool {
	return h.docs != nil && h.publisher != nil && h.store != nil
}

// HandleAnalyzeText 同步分析一段纯文本
func (h *AnalysisHandler) HandleAnalyzeText(ctx context.Context, c *app.RequestContext) {
	var req AnalyzeTextRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		writeError(ctx, c, consts.StatusBadRequest, err, "请求体不是有效的JSON")
		return
	}

	result, err := h.analyzer.Analyze(ctx, analyzer.Request{Text: req.Text, ChosenRole: req.ChosenRole})
	if err != nil {
		h.writeAnalyzeError(ctx, c, err)
		return
	}
	h.persist(ctx, result)
	c.JSON(consts.StatusOK, result)
}

// HandleUpload 上传简历文件。配置了对象存储和队列时异步处理并返回 202，否则同步分析。
func (h *AnalysisHandler) HandleUpload(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(ctx, c, consts.StatusBadRequest, err, "文件未找到")
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > int64(h.maxUploadBytes) {
		writeError(ctx, c, consts.StatusRequestEntityTooLarge, nil, fmt.Sprintf("文件大小超过限制 (%d 字节)", h.maxUploadBytes))
		return
	}
	chosenRole := c.PostForm("chosen_role")
	contentType := fileHeader.Header.Get("Content-Type")

	file, err := fileHeader.Open()
	if err != nil {
		writeError(ctx, c, consts.StatusInternalServerError, err, "打开文件失败")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(ctx, c, consts.StatusInternalServerError, err, "读取上传文件失败")
		return
	}

	if h.asyncEnabled() {
		h.submit(ctx, c, fileHeader.Filename, contentType, chosenRole, data)
		return
	}

	// 无法读取的文档按空文本分析
	doc, ok := h.reader.Read(ctx, fileHeader.Filename, contentType, data)
	if !ok {
		logger.Ctx(ctx).Warn().Str("filename", fileHeader.Filename).Msg("无法读取上传的文档，按空文本分析")
	}
	result, err := h.analyzer.Analyze(ctx, analyzer.Request{Text: doc.Text, Hint: doc.Hint, ChosenRole: chosenRole})
	if err != nil {
		h.writeAnalyzeError(ctx, c, err)
		return
	}
	h.persist(ctx, result)
	c.JSON(consts.StatusOK, result)
}

// submit 存储原始文件、登记待处理记录并发布分析请求
func (h *AnalysisHandler) submit(ctx context.Context, c *app.RequestContext, filename, contentType, chosenRole string, data []byte) {
	id := uuid.Must(uuid.NewV4()).String()
	ctx = logger.WithAnalysisID(ctx, id)
	log := logger.Ctx(ctx)

	path, err := h.docs.PutOriginal(ctx, id, filename, data)
	if err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("上传简历到对象存储失败")
		writeError(ctx, c, consts.StatusInternalServerError, err, "存储简历失败")
		return
	}
	if err := h.store.CreatePendingAnalysis(ctx, id, filename, path); err != nil {
		log.Error().Err(err).Msg("登记分析记录失败")
		writeError(ctx, c, consts.StatusInternalServerError, err, "登记分析记录失败")
		return
	}

	msg := &storage.AnalysisRequestedMessage{
		AnalysisID:       id,
		OriginalFilename: filename,
		OriginalPathOSS:  path,
		ContentType:      contentType,
		ChosenRole:       chosenRole,
		RequestedAt:      time.Now(),
	}
	if err := h.publisher.PublishAnalysisRequested(ctx, msg); err != nil {
		log.Error().Err(err).Msg("发布分析请求失败")
		if markErr := h.store.MarkAnalysisFailed(ctx, id, err.Error()); markErr != nil {
			log.Error().Err(markErr).Msg("记录失败状态失败")
		}
		writeError(ctx, c, consts.StatusInternalServerError, err, "提交分析请求失败")
		return
	}

	log.Info().Str("filename", filename).Int("size", len(data)).Msg("简历已提交异步分析")
	c.JSON(consts.StatusAccepted, AnalysisStatusResponse{AnalysisID: id, Status: constants.AnalysisStatusPending})
}

// HandleGetAnalysis 查询分析结果
func (h *AnalysisHandler) HandleGetAnalysis(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	result, status, err := h.lookup(ctx, id)
	if !h.writeLookupError(ctx, c, id, status, err) {
		return
	}
	c.JSON(consts.StatusOK, result)
}

// HandleSelectRole 为新选择的岗位重新计算差距和分数，不重新分段
func (h *AnalysisHandler) HandleSelectRole(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	var req SelectRoleRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil || req.ChosenRole == "" {
		writeError(ctx, c, consts.StatusBadRequest, err, "chosen_role 不能为空")
		return
	}

	prev, status, err := h.lookup(ctx, id)
	if !h.writeLookupError(ctx, c, id, status, err) {
		return
	}

	result, err := h.analyzer.Recompute(ctx, prev, req.ChosenRole)
	if err != nil {
		h.writeAnalyzeError(ctx, c, err)
		return
	}

	log := logger.Ctx(logger.WithAnalysisID(ctx, id))
	if h.store != nil {
		if err := h.store.UpdateAnalysisRole(ctx, result); err != nil && !errors.Is(err, storage.ErrAnalysisNotFound) {
			log.Error().Err(err).Msg("更新选择岗位失败")
			writeError(ctx, c, consts.StatusInternalServerError, err, "保存分析结果失败")
			return
		}
	}
	if h.cache != nil {
		if err := h.cache.Save(ctx, result); err != nil {
			log.Warn().Err(err).Msg("缓存分析结果失败")
		}
	}
	c.JSON(consts.StatusOK, result)
}

// HandleReport 以 xlsx 报告下载分析结果
func (h *AnalysisHandler) HandleReport(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	result, status, err := h.lookup(ctx, id)
	if !h.writeLookupError(ctx, c, id, status, err) {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteAnalysisReport(&buf, []export.Entry{{Label: id, Result: result}}, time.Now()); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("analysis_id", id).Msg("生成报告失败")
		writeError(ctx, c, consts.StatusInternalServerError, err, "生成报告失败")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis-%s.xlsx"`, id))
	c.Data(consts.StatusOK, xlsxContentType, buf.Bytes())
}

// lookup 先查缓存再查数据库
func (h *AnalysisHandler) lookup(ctx context.Context, id string) (*types.AnalysisResult, string, error) {
	if h.cache != nil {
		result, err := h.cache.Load(ctx, id)
		if err == nil {
			return result, constants.AnalysisStatusCompleted, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Ctx(ctx).Warn().Err(err).Str("analysis_id", id).Msg("读取分析结果缓存失败")
		}
	}
	if h.store == nil {
		return nil, "", storage.ErrAnalysisNotFound
	}
	return h.store.GetAnalysis(ctx, id)
}

// writeLookupError 写出查询失败或未完成的响应，结果可用时返回 true
func (h *AnalysisHandler) writeLookupError(ctx context.Context, c *app.RequestContext, id, status string, err error) bool {
	switch {
	case errors.Is(err, storage.ErrAnalysisNotFound):
		writeError(ctx, c, consts.StatusNotFound, err, fmt.Sprintf("未找到分析记录 %s", id))
	case err != nil:
		logger.Ctx(ctx).Error().Err(err).Str("analysis_id", id).Msg("查询分析结果失败")
		writeError(ctx, c, consts.StatusInternalServerError, err, "查询分析结果失败")
	case status == constants.AnalysisStatusPending:
		c.JSON(consts.StatusAccepted, AnalysisStatusResponse{AnalysisID: id, Status: status})
	case status != constants.AnalysisStatusCompleted:
		tracing.RecordHTTPError(trace.SpanFromContext(ctx), fmt.Errorf("分析状态为 %s", status), consts.StatusUnprocessableEntity)
		c.JSON(consts.StatusUnprocessableEntity, AnalysisStatusResponse{AnalysisID: id, Status: status})
	default:
		return true
	}
	return false
}

// writeAnalyzeError 岗位注册表为空返回 503，其余返回 500
func (h *AnalysisHandler) writeAnalyzeError(ctx context.Context, c *app.RequestContext, err error) {
	if analyzer.IsConfigError(err) {
		logger.Ctx(ctx).Error().Err(err).Msg("岗位注册表不可用")
		writeError(ctx, c, consts.StatusServiceUnavailable, err, err.Error())
		return
	}
	logger.Ctx(ctx).Error().Err(err).Msg("简历分析失败")
	writeError(ctx, c, consts.StatusInternalServerError, err, "简历分析失败")
}

// writeError 写出错误响应并记录到当前 span；err 为空时以 msg 作为错误
func writeError(ctx context.Context, c *app.RequestContext, status int, err error, msg string) {
	if err == nil {
		err = errors.New(msg)
	}
	tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, status)
	c.JSON(status, map[string]string{"error": msg})
}

// persist 保存同步分析的结果，失败只记录日志
func (h *AnalysisHandler) persist(ctx context.Context, result *types.AnalysisResult) {
	log := logger.Ctx(logger.WithAnalysisID(ctx, result.AnalysisID))
	if h.store != nil {
		if err := h.store.SaveAnalysis(ctx, result, ""); err != nil {
			log.Error().Err(err).Msg("保存分析结果失败")
		}
	}
	if h.cache != nil {
		if err := h.cache.Save(ctx, result); err != nil {
			log.Warn().Err(err).Msg("缓存分析结果失败")
		}
	}
}
