package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talent-bridge-go/internal/api/handler"
	"talent-bridge-go/internal/api/router"
	"talent-bridge-go/internal/config"
	appCoreLogger "talent-bridge-go/internal/logger"
	"talent-bridge-go/internal/matching"
	"talent-bridge-go/internal/notifier"
	"talent-bridge-go/internal/outbox"
	"talent-bridge-go/internal/parser"
	"talent-bridge-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"            //nolint:gochecknoglobals
	serviceName = "talent-bridge-go" //nolint:gochecknoglobals
)

func main() {
	initLogger()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	// 配置就绪后用logger配置重建全局日志器，此前的引导日志器只服务于启动早期
	applyLoggerConfig(&cfg.Logger)
	glog.Infof("配置加载成功 (%s v%s)", serviceName, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()

	// NewStorage容忍单个组件失败，但本服务的核心链路三者缺一不可：
	// 缺MinIO的适配器经接口传入引擎后会绕过nil判断，首个带CV的人才就会崩掉整次运行
	if storageManager.MySQL == nil || storageManager.RabbitMQ == nil || storageManager.MinIO == nil {
		glog.Fatalf("核心存储组件未就绪 (MySQL=%v, RabbitMQ=%v, MinIO=%v)，拒绝启动",
			storageManager.MySQL != nil, storageManager.RabbitMQ != nil, storageManager.MinIO != nil)
	}
	glog.Info("存储服务初始化成功")

	// 初始化CV文本提取器
	cvExtractor, err := parser.NewCVTextExtractor(ctx,
		parser.WithExtractorLogger(log.New(appCoreLogger.Logger, "[CVExtractorMain] ", log.LstdFlags)))
	if err != nil {
		glog.Fatalf("创建CV文本提取器失败: %v", err)
	}
	glog.Info("CV文本提取器初始化成功")

	// 初始化匹配引擎
	matchEngine := matching.NewEngine(
		storageManager.MySQL,
		storageManager.Redis,
		storageManager.MinIO,
		cvExtractor,
		&cfg.RabbitMQ,
	)
	glog.Info("匹配引擎初始化成功")

	// 启动outbox通知中继
	relayLogger := log.New(appCoreLogger.Logger, "[NotificationRelay] ", log.LstdFlags|log.Lshortfile)
	notificationRelay := outbox.NewNotificationRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, relayLogger,
		outbox.WithPollingInterval(config.GetDuration(cfg.RabbitMQ.RetryInterval, 5*time.Second)),
		outbox.WithMaxRetryCount(cfg.RabbitMQ.MaxRetries),
	)
	notificationRelay.Start()
	glog.Info("通知中继服务已启动")

	// 启动通知消费者，转发给外部分发服务
	dispatchClient := notifier.NewDispatchClient(&cfg.Notifier)
	consumerLogger := log.New(appCoreLogger.Logger, "[NotifierConsumer] ", log.LstdFlags|log.Lshortfile)
	notifierConsumer := notifier.NewConsumer(storageManager.RabbitMQ, dispatchClient, &cfg.RabbitMQ, consumerLogger)
	if err := notifierConsumer.Start(); err != nil {
		glog.Fatalf("启动通知消费者失败: %v", err)
	}
	glog.Info("通知消费者已启动")

	// 初始化HTTP handler
	searchHandler := handler.NewTalentSearchHandler(cfg, storageManager, matchEngine)
	cvHandler := handler.NewCVUploadHandler(cfg, storageManager)

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, searchHandler, cvHandler)
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

	// 先停掉异步组件，再关HTTP
	notifierConsumer.Stop()
	notificationRelay.Stop()
	glog.Info("通知中继和消费者已停止")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// applyLoggerConfig 按配置文件的logger段重建全局日志器并重新桥接Hertz glog
func applyLoggerConfig(cfg *config.LoggerConfig) {
	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		TimeFormat:   cfg.TimeFormat,
		ReportCaller: cfg.ReportCaller,
	})

	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))
	glog.SetLevel(hertzLogLevel(cfg.Level))
}

// hertzLogLevel 把zerolog风格的级别名映射到Hertz glog级别
func hertzLogLevel(level string) glog.Level {
	switch level {
	case "debug":
		return glog.LevelDebug
	case "warn":
		return glog.LevelWarn
	case "error":
		return glog.LevelError
	default:
		return glog.LevelInfo
	}
}

func initLogger() {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	level := zerolog.InfoLevel
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = "15:04:05"

	logger := zerolog.New(consoleWriter).With().Timestamp().Caller().Logger()

	// 全局zerolog与Hertz glog共用同一个底层logger
	appCoreLogger.Logger = logger
	zlog.Logger = logger

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
	glog.SetLevel(glog.LevelInfo)
}
