package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/3Eeeecho/go-sharelink/internal/config"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/mq"
)

// StartAllWorkers 启动应用中所有定义的后台 Worker
func StartAllWorkers(ctx context.Context, cfg *config.Config, mqClient *mq.RabbitMQClient, remover ObjectRemover) {
	if mqClient == nil {
		logger.Warn("RabbitMQ not configured, background workers not started")
		return
	}

	deleteWorker := NewDeleteWorker(mqClient, cfg.RabbitMQ.DeleteQueue, remover)
	if err := deleteWorker.Start(ctx); err != nil {
		logger.Error("Failed to start delete worker", zap.Error(err))
		return
	}

	logger.Info("所有后台工作进程已启动。")
}
