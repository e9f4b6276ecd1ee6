package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/tracing"
)

var minioTracer = otel.Tracer("resume-match-go/storage/minio")

// ObjectStorage 简历文档的对象存储接口
type ObjectStorage interface {
	// PutOriginal 上传原始简历文件，返回对象键
	PutOriginal(ctx context.Context, analysisID, filename string, data []byte) (string, error)
	// PutText 上传抽取出的文本，返回对象键
	PutText(ctx context.Context, analysisID, text string) (string, error)
	// GetObject 下载对象
	GetObject(ctx context.Context, objectKey string) ([]byte, error)
	// DeleteObject 删除对象
	DeleteObject(ctx context.Context, objectKey string) error
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("MinIO存储桶名称不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{client: client, cfg: cfg, bucket: cfg.BucketName}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.ensureBucketExists(ctx, cfg.Location); err != nil {
		return nil, err
	}
	if cfg.ExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, "expire-resumes", cfg.ExpireDays); err != nil {
			logger.Warn().Err(err).Str("bucket", m.bucket).Msg("设置MinIO生命周期规则失败")
		}
	}

	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", m.bucket).Msg("MinIO客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", m.bucket, err)
	}
	logger.Info().Str("bucket", m.bucket).Msg("已创建MinIO存储桶")
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, ruleID string, expiryDays int) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, m.bucket, cfg)
}

func (m *MinIO) put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	ctx, span := minioTracer.Start(ctx, "MinIO.PutObject", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("objectstore.bucket", m.bucket),
			attribute.String("objectstore.key", objectKey),
			attribute.Int64("objectstore.size", size),
		))
	defer span.End()

	if _, err := m.client.PutObject(ctx, m.bucket, objectKey, reader, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, objectKey, err)
	}
	return nil
}

// PutOriginal 上传原始简历，例如 resume/{id}/original.pdf
func (m *MinIO) PutOriginal(ctx context.Context, analysisID, filename string, data []byte) (string, error) {
	key := OriginalObjectKey(analysisID, filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if err := m.put(ctx, key, bytes.NewReader(data), int64(len(data)), getContentType(ext)); err != nil {
		return "", err
	}
	return key, nil
}

// PutText 上传抽取文本
func (m *MinIO) PutText(ctx context.Context, analysisID, text string) (string, error) {
	key := fmt.Sprintf(constants.ObjectTextFormat, analysisID)
	if err := m.put(ctx, key, strings.NewReader(text), int64(len(text)), "text/plain; charset=utf-8"); err != nil {
		return "", err
	}
	return key, nil
}

// GetObject 下载对象
func (m *MinIO) GetObject(ctx context.Context, objectKey string) ([]byte, error) {
	ctx, span := minioTracer.Start(ctx, "MinIO.GetObject", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("objectstore.bucket", m.bucket),
			attribute.String("objectstore.key", objectKey),
		))
	defer span.End()

	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, fmt.Errorf("获取对象 %s 失败: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, fmt.Errorf("读取对象 %s 失败: %w", objectKey, err)
	}
	span.SetAttributes(attribute.Int("objectstore.size", len(data)))
	return data, nil
}

// DeleteObject 删除对象
func (m *MinIO) DeleteObject(ctx context.Context, objectKey string) error {
	return m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{})
}

// GetPresignedURL 获取预签名下载地址
func (m *MinIO) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return u.String(), nil
}

// OriginalObjectKey 原始文件的对象键，扩展名统一为小写
func OriginalObjectKey(analysisID, filename string) string {
	return fmt.Sprintf(constants.ObjectOriginalFormat, analysisID, strings.ToLower(filepath.Ext(filename)))
}

func getContentType(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
