package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/3Eeeecho/go-sharelink/internal/config"
	"github.com/3Eeeecho/go-sharelink/internal/handlers"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/cache"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/mq"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/mq/worker"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/storage"
	"github.com/3Eeeecho/go-sharelink/internal/repositories"
	"github.com/3Eeeecho/go-sharelink/internal/router"
	"github.com/3Eeeecho/go-sharelink/internal/services/explorer"
	"github.com/3Eeeecho/go-sharelink/internal/services/share"
	"github.com/3Eeeecho/go-sharelink/internal/setup"
)

type Server struct {
	cfg            *config.Config
	router         *gin.Engine
	httpServer     *http.Server
	db             *gorm.DB
	redisClient    *redis.Client
	rabbitMQClient *mq.RabbitMQClient
	storage        storage.StorageService
}

// NewServer 负责构建所有依赖
func NewServer(cfg *config.Config) (*Server, error) {
	// 初始化数据库连接
	db, err := setup.OpenDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("成功连接数据库!", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis 连接，未配置时不启用文件元数据缓存
	redisClient := setup.InitRedis(context.Background(), &cfg.Redis)

	// 初始化 RabbitMQ，未配置时删除对象改为同步执行
	var rabbitMQClient *mq.RabbitMQClient
	if cfg.RabbitMQ.URL != "" {
		rabbitMQClient, err = mq.NewRabbitMQClient(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		if _, err := rabbitMQClient.DeclareQueue(cfg.RabbitMQ.DeleteQueue); err != nil {
			return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.RabbitMQ.DeleteQueue, err)
		}
	}

	ss := setup.InitStorage(cfg)

	// 初始化 Repositories
	var fileCache cache.Cache
	if redisClient != nil {
		fileCache = cache.NewRedisCache(redisClient)
	}
	fileRepo := repositories.NewCachedFileRepository(repositories.NewDBFileRepository(db), fileCache)
	linkRepo := repositories.NewShareLinkRepository(db)
	attemptRepo := repositories.NewDownloadAttemptRepository(db)
	logRepo := repositories.NewDownloadLogRepository(db)
	tm := repositories.NewTransactionManager(db)

	// 初始化 Services
	registry := share.NewLinkRegistry(linkRepo, fileRepo, logRepo, share.WithTokenRetries(cfg.Share.TokenMaxRetries))
	limiter := share.NewRateLimiter(attemptRepo, share.PolicyFromConfig(cfg.Share.RateLimit))
	authorizer := share.NewDownloadAuthorizer(limiter, registry, linkRepo, attemptRepo, logRepo, tm)
	downloadService := share.NewDownloadService(authorizer, ss, cfg.Share.SignedURLTTL)

	deps := explorer.FileServiceDeps{
		DeleteQueue:   cfg.RabbitMQ.DeleteQueue,
		BucketName:    storage.BucketName(cfg),
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}
	if rabbitMQClient != nil {
		deps.Publisher = rabbitMQClient
	}
	fileService := explorer.NewFileService(fileRepo, linkRepo, registry, tm, ss, deps)

	// 初始化 Handlers
	engine := router.InitRouter(router.Handlers{
		Download: handlers.NewDownloadHandler(downloadService),
		Share:    handlers.NewShareHandler(registry),
		File:     handlers.NewFileHandler(fileService),
	}, cfg)

	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		cfg:            cfg,
		router:         engine,
		httpServer:     httpServer,
		db:             db,
		redisClient:    redisClient,
		rabbitMQClient: rabbitMQClient,
		storage:        ss,
	}, nil
}

// Run 启动服务器和 Worker，并处理优雅关机
func (s *Server) Run(ctx context.Context, stopChan chan os.Signal) {
	defer setup.CloseDatabase(s.db)
	defer setup.CloseRedis(s.redisClient)
	if s.rabbitMQClient != nil {
		defer s.rabbitMQClient.Close()
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	worker.StartAllWorkers(workerCtx, s.cfg, s.rabbitMQClient, s.storage)

	// 启动 HTTP 服务器
	go func() {
		logger.Info("Server is running", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// 等待停止信号
	<-stopChan
	logger.Info("Shutting down server...")

	// 优雅关机
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	logger.Info("Server exited gracefully")
}
