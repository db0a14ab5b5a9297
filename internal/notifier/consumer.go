package notifier

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"talent-bridge-go/internal/config"
	"talent-bridge-go/internal/storage"
	"talent-bridge-go/internal/types"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer 消费通知队列并调用分发服务。
// 分发失败的消息先Nack重入队再试一次；重投后仍失败则记录并Ack丢弃，
// 通知是尽力而为的，绝不反过来回滚台账。
type Consumer struct {
	mq     *storage.RabbitMQ
	client *DispatchClient
	cfg    *config.RabbitMQConfig
	logger *log.Logger
	stopCh chan struct{}
}

// NewConsumer 创建通知消费者
func NewConsumer(mq *storage.RabbitMQ, client *DispatchClient, cfg *config.RabbitMQConfig, logger *log.Logger) *Consumer {
	return &Consumer{
		mq:     mq,
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Start 启动队列消费
func (c *Consumer) Start() error {
	stopCh, err := c.mq.StartConsumer(c.cfg.NotificationQueue, c.cfg.PrefetchCount, c.handleDelivery)
	if err != nil {
		return err
	}
	c.stopCh = stopCh
	c.logger.Printf("通知消费者已启动，队列: %s", c.cfg.NotificationQueue)
	return nil
}

// Stop 停止队列消费
func (c *Consumer) Stop() {
	if c.stopCh != nil {
		close(c.stopCh)
	}
}

// handleDelivery 处理单条通知消息，返回true表示Ack
func (c *Consumer) handleDelivery(delivery amqp.Delivery) bool {
	var message storage.TalentMatchNotificationMessage
	if err := json.Unmarshal(delivery.Body, &message); err != nil {
		// 消息体损坏，重投也无济于事，直接Ack丢弃
		c.logger.Printf("通知消息解析失败，丢弃: %v", err)
		return true
	}

	batch := types.NotificationBatch{
		JobID:           message.JobID,
		RelevantTalents: make([]types.MatchResult, 0, len(message.Talents)),
	}
	for _, talent := range message.Talents {
		batch.RelevantTalents = append(batch.RelevantTalents, types.MatchResult{
			TalentID:    talent.TalentID,
			UserID:      talent.UserID,
			Username:    talent.Username,
			FirstName:   talent.FirstName,
			LastName:    talent.LastName,
			Points:      talent.Points,
			CVMatches:   talent.CVMatches,
			MatchByForm: talent.MatchByForm,
			MatchByCV:   talent.MatchByCV,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.client.Dispatch(ctx, batch); err != nil {
		if !delivery.Redelivered {
			// 首次失败，重入队再试一次
			c.logger.Printf("通知分发失败 (job=%s)，重入队重试: %v", message.JobID, err)
			return false
		}
		// 已经重投过，放弃。台账行已存在，该批人才不会被再次通知
		c.logger.Printf("通知分发重试后仍失败 (job=%s, talents=%d)，放弃该消息: %v",
			message.JobID, len(message.Talents), err)
		return true
	}

	c.logger.Printf("通知批次已转交分发服务 (job=%s, talents=%d)", message.JobID, len(message.Talents))
	return true
}
