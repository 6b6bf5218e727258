package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "campusfind/docs"
	chatmodel "campusfind/internal/domain/chat/model"
	notifymodel "campusfind/internal/domain/notification/model"
	postmodel "campusfind/internal/domain/post/model"
	usermodel "campusfind/internal/domain/user/model"
	"campusfind/internal/pkg/config"
	"campusfind/internal/pkg/middleware"
	"campusfind/internal/pkg/registry"
	"campusfind/pkg/cache"
	"campusfind/pkg/database"
	"campusfind/pkg/logger"
	"campusfind/pkg/memdb"
	"campusfind/pkg/metrics"
	"campusfind/pkg/security"

	// 模块通过 init 自动注册
	_ "campusfind/internal/domain/chat"
	_ "campusfind/internal/domain/common"
	_ "campusfind/internal/domain/notification"
	_ "campusfind/internal/domain/post"
	_ "campusfind/internal/domain/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// @title CampusFind API
// @version 1.0
// @description Campus lost-and-found backend.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. 配置与日志
	config.LoadConfig()
	cfg := config.GlobalConfig

	if err := logger.Init(cfg.App.Env); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.Mode)
	if err := security.RegisterRules(cfg.App.USNPrefix); err != nil {
		logger.Log.Fatal("register validation rules", zap.Error(err))
	}

	// 2. 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 3. 路由与全局中间件
	r := gin.New()
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware(collector))

	// 4. 存储与模块
	ctx := &registry.ModuleContext{
		Config:   &cfg,
		Driver:   cfg.Store.Driver,
		Router:   r,
		Logger:   logger.Log,
		Metrics:  collector,
		Gatherer: reg,
	}
	if err := setupStore(ctx, cfg); err != nil {
		logger.Log.Fatal("init store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	ctx.Cache = setupCache(ctx, cfg.Redis)

	if err := registry.InitModules(ctx); err != nil {
		logger.Log.Fatal("init modules", zap.Error(err))
	}

	// 5. 启动与优雅退出
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Log.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("server shutdown", zap.Error(err))
	}
	ctx.Shutdown()
}

// setupStore 按驱动初始化存储，并注册关闭函数
func setupStore(ctx *registry.ModuleContext, cfg config.Config) error {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := database.InitDatabase(cfg.Database, cfg.App.Debug)
		if err != nil {
			return err
		}
		if cfg.Database.AutoMigrate {
			err := db.AutoMigrate(
				&usermodel.User{},
				&postmodel.Post{},
				&postmodel.Reply{},
				&chatmodel.Chat{},
				&chatmodel.Message{},
				&notifymodel.Notification{},
			)
			if err != nil {
				return err
			}
		}
		ctx.DB = db
		ctx.OnShutdown(func() { database.CloseDatabase(db) })

	case config.DriverFirestore:
		client, err := database.InitFirestore(context.Background(), cfg.Firebase)
		if err != nil {
			return err
		}
		ctx.Firestore = client
		ctx.OnShutdown(func() { _ = client.Close() })

	case config.DriverMemory:
		ctx.Memory = memdb.New()
		logger.Log.Warn("memory store selected, data is lost on restart")
	}
	return nil
}

// setupCache 优先 Redis；未配置或连接失败时使用进程内 LRU
func setupCache(ctx *registry.ModuleContext, cfg config.RedisConfig) cache.CacheService {
	if cfg.Addr != "" {
		rdb, err := database.InitRedis(cfg)
		if err == nil {
			ctx.OnShutdown(func() { _ = rdb.Close() })
			return cache.NewRedisCache(rdb, "campusfind:")
		}
		logger.Log.Warn("redis unavailable, falling back to memory cache", zap.Error(err))
	}

	c, err := cache.NewMemoryCache(1000)
	if err != nil {
		logger.Log.Warn("cache disabled", zap.Error(err))
		return nil
	}
	return c
}
