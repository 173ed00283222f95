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

	"go.uber.org/zap"
	"gorm.io/gorm"

	"maintenance-tracker/config"
	"maintenance-tracker/internal/api/handler"
	"maintenance-tracker/internal/api/router"
	"maintenance-tracker/internal/repository"
	"maintenance-tracker/internal/service"
	"maintenance-tracker/pkg/database"
	"maintenance-tracker/pkg/jwt"
	pkgkafka "maintenance-tracker/pkg/kafka"
	applogger "maintenance-tracker/pkg/logger"
	"maintenance-tracker/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("MAINT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	loc, _ := cfg.Server.Location() // Validate 已校验
	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", loc.String()),
	)

	// 3. 连接 Redis（可选：连接失败时黑名单与限流降级放行）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流将不可用", zap.Error(err))
		rdb = nil
	}

	// 4. 连接数据库并迁移；不可用时按配置降级到 Redis
	db, err := openDatabase(cfg, logger)
	var (
		repo   *repository.Repository
		health router.HealthCheck
	)
	switch {
	case err == nil:
		repo = repository.NewRepository(db)
		health = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	case cfg.Storage.Fallback == config.FallbackRedis && rdb != nil:
		logger.Warn("数据库不可用，使用 Redis 降级存储", zap.Error(err))
		repo = repository.NewKVRepository(rdb.Raw())
		health = func(ctx context.Context) error {
			return rdb.Raw().Ping(ctx).Err()
		}
	default:
		logger.Fatal("数据库连接失败且无可用的降级存储", zap.Error(err))
	}

	// 5. 审计事件投递（未配置 brokers 时不投递）
	var writer pkgkafka.MessageWriter
	if producer := pkgkafka.NewProducer(cfg.Audit.KafkaBrokers); producer != nil {
		writer = producer
		logger.Info("审计事件将投递到 Kafka",
			zap.Strings("brokers", cfg.Audit.KafkaBrokers),
			zap.String("topic", cfg.Audit.KafkaTopic),
		)
	}

	// 6. 初始化 JWT 校验器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	svc := service.NewService(cfg, repo, writer, loc, logger)
	h := handler.NewHandler(cfg, svc)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, health, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second, // 表格上传
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 等待后台审计投递结束后再关闭 Kafka Writer
	if err := svc.Audit.Flush(ctx); err != nil {
		logger.Warn("等待审计事件投递超时", zap.Error(err))
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Warn("关闭 Kafka Writer 失败", zap.Error(err))
		}
	}

	// 关闭数据库连接
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// openDatabase 连接 PostgreSQL 并执行迁移
func openDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}
