package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/mq"
)

const (
	// RetryCountHeader 记录消息已经被重新投递的次数
	RetryCountHeader  = "x-retry-count"
	defaultMaxRetries = 5
	defaultRetryDelay = 2 * time.Second
)

// ObjectRemover 删除对象存储中的文件
type ObjectRemover interface {
	RemoveObject(ctx context.Context, bucketName, objectName string) error
}

// requeuer 把失败的消息带着新的重试次数重新发布
type requeuer interface {
	Publish(ctx context.Context, queueName string, body []byte, headers amqp.Table) error
}

// acknowledger amqp.Delivery 的确认方法
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type deliveryAction int

const (
	actionAck deliveryAction = iota
	actionRetry
	actionDrop
)

// DeleteWorker 消费文件删除任务，清理对象存储
// 数据库记录在发布任务前已由文件服务在事务中删除
type DeleteWorker struct {
	mqClient   *mq.RabbitMQClient
	requeuer   requeuer
	queueName  string
	remover    ObjectRemover
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	ctx        context.Context
}

func NewDeleteWorker(mqClient *mq.RabbitMQClient, queueName string, remover ObjectRemover) *DeleteWorker {
	w := &DeleteWorker{
		mqClient:   mqClient,
		queueName:  queueName,
		remover:    remover,
		timeout:    30 * time.Second,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		ctx:        context.Background(),
	}
	if mqClient != nil {
		w.requeuer = mqClient
	}
	return w
}

func (w *DeleteWorker) Start(ctx context.Context) error {
	w.ctx = ctx
	if _, err := w.mqClient.DeclareQueue(w.queueName); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := w.mqClient.Consume(ctx, w.queueName, w.onDelivery); err != nil {
		return fmt.Errorf("failed to start consuming from queue: %w", err)
	}
	logger.Info("Delete worker started", zap.String("queue", w.queueName), zap.Int("maxRetries", w.maxRetries))
	return nil
}

func (w *DeleteWorker) onDelivery(msg amqp.Delivery) {
	w.dispatch(msg, msg.Headers, msg.Body)
}

func (w *DeleteWorker) dispatch(ack acknowledger, headers amqp.Table, body []byte) {
	retries := retryCount(headers)
	switch w.Handle(w.ctx, body, retries) {
	case actionAck:
		_ = ack.Ack(false)
	case actionDrop:
		// 配置了死信交换机时进入死信队列
		_ = ack.Nack(false, false)
	case actionRetry:
		if err := w.republish(body, retries+1); err != nil {
			logger.Error("Failed to republish delete task, requeue original", zap.Int("retry", retries+1), zap.Error(err))
			_ = ack.Nack(false, true)
			return
		}
		_ = ack.Ack(false)
	}
}

// republish 退避后以新的重试次数重新发布，原消息随后确认
func (w *DeleteWorker) republish(body []byte, retry int) error {
	if w.requeuer == nil {
		return fmt.Errorf("no requeuer configured")
	}
	select {
	case <-w.ctx.Done():
		return w.ctx.Err()
	case <-time.After(w.retryDelay * time.Duration(retry)):
	}
	return w.requeuer.Publish(w.ctx, w.queueName, body, amqp.Table{RetryCountHeader: int32(retry)})
}

// Handle 处理一条消息，retries 为此前已失败的次数
func (w *DeleteWorker) Handle(ctx context.Context, body []byte, retries int) deliveryAction {
	var task models.DeleteObjectTask
	if err := json.Unmarshal(body, &task); err != nil || task.OssKey == "" || task.Bucket == "" {
		logger.Error("Failed to unmarshal delete task", zap.ByteString("body", body), zap.Error(err))
		return actionDrop // 解析失败,直接抛弃
	}

	logger.Info("Received object deletion task",
		zap.Uint64("fileID", task.FileID), zap.String("ossKey", task.OssKey), zap.Int("retries", retries))

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.remover.RemoveObject(ctx, task.Bucket, task.OssKey); err != nil {
		if retries >= w.maxRetries {
			logger.Error("Giving up object deletion after max retries",
				zap.String("ossKey", task.OssKey),
				zap.Uint64("fileID", task.FileID),
				zap.Int("retries", retries),
				zap.Error(err))
			return actionDrop
		}
		logger.Warn("Failed to delete object from storage, will retry",
			zap.String("ossKey", task.OssKey),
			zap.Uint64("fileID", task.FileID),
			zap.Int("retries", retries),
			zap.Error(err))
		return actionRetry
	}

	logger.Info("Successfully processed object deletion task", zap.Uint64("fileID", task.FileID))
	return actionAck
}

func retryCount(headers amqp.Table) int {
	switch v := headers[RetryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
