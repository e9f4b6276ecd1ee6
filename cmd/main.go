package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"resume-match-go/internal/analyzer"
	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/api/middleware"
	"resume-match-go/internal/api/router"
	"resume-match-go/internal/bootstrap"
	"resume-match-go/internal/config"
	appLogger "resume-match-go/internal/logger"
	"resume-match-go/internal/registry"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/worker"
)

var (
	version     = "1.0.0"           //nolint:gochecknoglobals
	serviceName = "resume-match-go" //nolint:gochecknoglobals
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}
	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.InitProvider(ctx, tracing.Options{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Endpoint:       tracingEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	reg, err := bootstrap.NewRegistry(ctx, &cfg.Registry, storageManager.MySQL)
	if err != nil {
		glog.Fatalf("加载岗位注册表失败: %v", err)
	}

	// Redis 可用时分段缓存、结果缓存和重载锁都放在 Redis
	var (
		segmentCache analyzer.SegmentCache = analyzer.NewMemoryCache()
		resultCache  *storage.ResultCache
		locker       registry.Locker
	)
	if storageManager.Redis != nil {
		segmentCache = storage.NewSegmentCache(storageManager.Redis)
		resultCache = storage.NewResultCache(storageManager.Redis, storageManager.Redis.AnalysisTTL())
		locker = storageManager.Redis
	}

	var metrics *analyzer.Metrics
	if cfg.Metrics.Enabled {
		metrics = analyzer.NewMetrics(prometheus.DefaultRegisterer)
	}
	an := bootstrap.NewAnalyzer(&cfg.Engine, reg, segmentCache, metrics)
	rd := bootstrap.NewReader(ctx, &cfg.Engine)
	glog.Info("分析引擎初始化成功")

	reloadDone := reg.StartAutoReload(ctx, config.GetDuration(cfg.Registry.ReloadInterval, 0), locker)

	analysisOpts := []handler.AnalysisOption{handler.WithMaxUploadBytes(cfg.Server.MaxUploadBytes)}
	if storageManager.MySQL != nil {
		analysisOpts = append(analysisOpts, handler.WithStore(storageManager.MySQL))
	}
	if resultCache != nil {
		analysisOpts = append(analysisOpts, handler.WithResultCache(resultCache))
	}
	if storageManager.MinIO != nil && storageManager.RabbitMQ != nil {
		analysisOpts = append(analysisOpts, handler.WithAsyncUpload(storageManager.MinIO, storageManager.RabbitMQ))
	}
	analysisHandler := handler.NewAnalysisHandler(an, rd, analysisOpts...)
	registryHandler := handler.NewRegistryHandler(reg, func(ctx context.Context) {
		reg.PublishReload(ctx, locker)
	})

	workerDone := startWorker(ctx, cfg, storageManager, rd, an, resultCache)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled && cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				glog.Errorf("指标服务异常退出: %v", err)
			}
		}()
		glog.Infof("指标服务监听地址: %s", cfg.Metrics.Address)
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(cfg.Server.MaxUploadBytes+1<<20),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg), middleware.RequestID(), middleware.AccessLog())
	if cfg.Metrics.Enabled {
		h.Use(middleware.NewMetricsBuilder(prometheus.DefaultRegisterer).Build())
	}
	if len(cfg.Server.AdminAPIKeys) == 0 {
		glog.Warn("未配置管理接口 API Key，管理接口将拒绝所有请求")
	}
	router.RegisterRoutes(h.Engine, analysisHandler, registryHandler, router.Options{
		AdminAPIKeys:    cfg.Server.AdminAPIKeys,
		UploadPerMinute: cfg.Server.UploadPerMinute,
	})
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}

	// 停止消费者和定时重载
	cancel()
	<-workerDone
	<-reloadDone

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			glog.Errorf("指标服务关闭失败: %v", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Errorf("关闭链路追踪失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// startWorker RabbitMQ、MinIO 和 MySQL 都可用时启动分析消费者
func startWorker(ctx context.Context, cfg *config.Config, s *storage.Storage, rd worker.DocumentReader, an worker.Analyzer, cache *storage.ResultCache) <-chan struct{} {
	done := make(chan struct{})
	if s.RabbitMQ == nil || s.MinIO == nil || s.MySQL == nil {
		glog.Info("异步分析未启用：需要 RabbitMQ、MinIO 和 MySQL")
		close(done)
		return done
	}

	var workerCache worker.ResultCache
	if cache != nil {
		workerCache = cache
	}
	w := worker.New(s.MinIO, rd, an, s.MySQL, workerCache, s.RabbitMQ, worker.Options{
		Consumers:     cfg.RabbitMQ.ConsumerWorkers,
		MaxRetries:    cfg.RabbitMQ.MaxRetries,
		RetryInterval: config.GetDuration(cfg.RabbitMQ.RetryInterval, 5*time.Second),
	})

	go func() {
		defer close(done)
		glog.Infof("启动分析消费者，工作线程数: %d", cfg.RabbitMQ.ConsumerWorkers)
		if err := w.Run(ctx, s.RabbitMQ.Consume); err != nil && ctx.Err() == nil {
			glog.Errorf("分析消费者异常退出: %v", err)
		}
	}()
	return done
}

func initLogger(cfg *config.Config) {
	appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	// Hertz 自身的日志也输出到 zerolog
	glog.SetLogger(hertzadapter.From(appLogger.Logger))
	if cfg.Logger.Level == "debug" {
		glog.SetLevel(glog.LevelDebug)
	} else {
		glog.SetLevel(glog.LevelInfo)
	}
	appLogger.Logger.Info().Str("service", serviceName).Str("version", version).Msg("日志初始化完成")
}
