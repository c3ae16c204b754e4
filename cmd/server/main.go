package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shortlink-service/internal/aggregator"
	"shortlink-service/internal/config"
	"shortlink-service/internal/grant"
	"shortlink-service/internal/handler"
	"shortlink-service/internal/metadata"
	"shortlink-service/internal/middleware"
	"shortlink-service/internal/ratelimit"
	"shortlink-service/internal/resolver"
	"shortlink-service/internal/shortcode"
	"shortlink-service/internal/store"
	"shortlink-service/internal/tracker"
	"shortlink-service/pkg/database"
	"shortlink-service/pkg/logger"
	"shortlink-service/pkg/redis"
	"shortlink-service/web"

	_ "shortlink-service/docs"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisClient "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Shortlink Service API
// @version         1.0
// @description     短链接跳转服务：创建、跳转、点击统计、每日汇总与二维码
// @BasePath        /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Bearer <api key>

// @securityDefinitions.apikey CronSecret
// @in header
// @name Authorization
// @description Bearer <cron secret>

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "配置加载失败:", err)
		os.Exit(1)
	}

	zapLogger := logger.InitLogger(logger.Options{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	defer func() {
		if err := zapLogger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	db, err := database.Open(database.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Name:         cfg.Database.Name,
		Charset:      cfg.Database.Charset,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		sugaredLogger.Fatalf("数据库初始化失败: %v", err)
	}
	sugaredLogger.Infow("✅ 数据库连接成功", "driver", cfg.Database.Driver)

	// Redis 不可用时降级：不缓存、内存限流、单实例锁
	var rdb *redisClient.Client
	rdb, err = redis.NewRedisClient(&redis.Options{
		Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
	})
	switch {
	case err != nil:
		sugaredLogger.Warnf("缓存连接失败，降级运行: %v", err)
		rdb = nil
	case rdb != nil:
		defer func() {
			if err := rdb.Close(); err != nil {
				sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
			}
		}()
		sugaredLogger.Info("✅ 缓存连接成功")
	default:
		sugaredLogger.Info("未配置 Redis，使用内存限流")
	}

	linkStore := store.New(db, rdb, time.Duration(cfg.Cache.LinkTTLSeconds)*time.Second, sugaredLogger)

	shortcodeGenerator := shortcode.NewGenerator(linkStore, sugaredLogger)
	shortcodeGenerator.Start()
	defer shortcodeGenerator.Stop()
	sugaredLogger.Info("✅ 短码生成器已启动")

	grantSecret := cfg.Grant.Secret
	if grantSecret == "" {
		// 重启后已签发的凭证失效，需要重新输入密码
		grantSecret, err = shortcode.RandomString(48)
		if err != nil {
			sugaredLogger.Fatalf("生成凭证密钥失败: %v", err)
		}
		sugaredLogger.Warn("未配置 GRANT_SECRET，使用随机密钥")
	}
	grants, err := grant.NewManager(grantSecret, cfg.GrantTTL())
	if err != nil {
		sugaredLogger.Fatalf("凭证管理器初始化失败: %v", err)
	}

	dispatcher := tracker.NewDispatcher(
		tracker.New(linkStore, cfg.Tracking.IPSalt, sugaredLogger),
		cfg.Tracking.QueueSize, cfg.Tracking.Workers, sugaredLogger,
	)
	dispatcher.Start()

	linkResolver := resolver.New(linkStore, grants, dispatcher, sugaredLogger)

	metadataService := metadata.New(rdb, metadata.Options{
		Timeout:      time.Duration(cfg.Metadata.TimeoutSeconds) * time.Second,
		CacheTTL:     time.Duration(cfg.Metadata.CacheTTLHours) * time.Hour,
		PerSecond:    cfg.Metadata.FetchPerSecond,
		Burst:        cfg.Metadata.FetchBurst,
		UserAgent:    cfg.Metadata.UserAgent,
		MaxBodyBytes: cfg.Metadata.MaxBodyBytes,

		AllowPrivateNetworks: cfg.Metadata.AllowPrivateNetworks,
	}, sugaredLogger)

	aggOpts := aggregator.Options{ChunkSize: cfg.Aggregation.ChunkSize, Retention: cfg.Retention()}
	if rdb != nil {
		aggOpts.Locker = aggregator.NewRedisLock(rdb, time.Duration(cfg.Aggregation.LockTTL)*time.Second)
	}
	dailyAggregator := aggregator.New(linkStore, aggOpts, sugaredLogger)

	var scheduler *aggregator.Scheduler
	if cfg.Aggregation.Enabled {
		scheduler, err = aggregator.NewScheduler(dailyAggregator, cfg.Aggregation.Schedule, sugaredLogger)
		if err != nil {
			sugaredLogger.Fatalf("汇总任务初始化失败: %v", err)
		}
		scheduler.Start()
	}
	if cfg.Aggregation.CronSecret == "" {
		sugaredLogger.Warn("未配置 CRON_SECRET，/internal/cron 接口不做校验")
	}

	var counter ratelimit.Counter = ratelimit.NewMemoryCounter()
	if cfg.RateLimit.Backend == "redis" && rdb != nil {
		counter = ratelimit.NewRedisCounter(rdb)
	}
	limiter := ratelimit.New(counter, sugaredLogger)

	if err := handler.RegisterValidators(); err != nil {
		sugaredLogger.Fatalf("注册校验器失败: %v", err)
	}
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapRecovery(zapLogger, true))
	router.Use(middleware.GinZapLogger(zapLogger))
	router.Use(middleware.Metrics())
	router.Use(middleware.RateLimit(limiter, &cfg.RateLimit))

	tmpl, err := web.Templates()
	if err != nil {
		sugaredLogger.Fatalf("模板加载失败: %v", err)
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", http.FS(web.Static()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handler.NewShortLinkHandler(handler.Deps{
		Config:     cfg,
		Store:      linkStore,
		Redis:      rdb,
		Resolver:   linkResolver,
		Generator:  shortcodeGenerator,
		Grants:     grants,
		Metadata:   metadataService,
		Aggregator: dailyAggregator,
		Logger:     sugaredLogger,
	})
	handler.RegisterRoutes(router, h, middleware.APIKeyAuth(linkStore), middleware.CronAuth(cfg.Aggregation.CronSecret))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
		sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugaredLogger.Fatalf("服务启动失败: %v", err)
		}
	}()

	<-ctx.Done()
	sugaredLogger.Info("收到退出信号，正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugaredLogger.Errorf("HTTP 服务关闭失败: %v", err)
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			sugaredLogger.Errorf("汇总任务停止超时: %v", err)
		}
	}
	// 先停 HTTP 再排空点击队列，保证已接收的点击写入数据库
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		sugaredLogger.Errorf("点击队列未排空: %v", err)
	}
	sugaredLogger.Info("服务已退出")
}
