package outbox // 发件箱模式（Outbox Pattern）：台账事务落库的通知消息由这里投递到MQ

import (
	"context"
	"log"
	"time"

	"talent-bridge-go/internal/storage"
	"talent-bridge-go/internal/storage/models"
	"talent-bridge-go/internal/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second // 轮询outbox表的间隔
	defaultBatchSize       = 10              // 每次轮询处理的消息批量大小
	defaultMaxRetryCount   = 5               // 消息发布失败的最大重试次数
)

// NotificationRelay 轮询outbox表并将人才通知消息发布到RabbitMQ。
// 多实例部署时靠 FOR UPDATE SKIP LOCKED 避免重复投递同一行。
type NotificationRelay struct {
	db              *gorm.DB
	publisher       *storage.RabbitMQ
	logger          *log.Logger
	pollingInterval time.Duration
	batchSize       int
	maxRetryCount   int
	done            chan struct{}
	tracer          trace.Tracer
}

// RelayOption 中继服务的配置选项
type RelayOption func(*NotificationRelay)

// WithPollingInterval 自定义轮询间隔
func WithPollingInterval(interval time.Duration) RelayOption {
	return func(r *NotificationRelay) {
		if interval > 0 {
			r.pollingInterval = interval
		}
	}
}

// WithBatchSize 自定义批量大小
func WithBatchSize(size int) RelayOption {
	return func(r *NotificationRelay) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// WithMaxRetryCount 自定义单条消息的最大发布重试次数
func WithMaxRetryCount(count int) RelayOption {
	return func(r *NotificationRelay) {
		if count > 0 {
			r.maxRetryCount = count
		}
	}
}

// NewNotificationRelay 创建通知消息中继
func NewNotificationRelay(db *gorm.DB, publisher *storage.RabbitMQ, logger *log.Logger, options ...RelayOption) *NotificationRelay {
	relay := &NotificationRelay{
		db:              db,
		publisher:       publisher,
		logger:          logger,
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		maxRetryCount:   defaultMaxRetryCount,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("talent-bridge-go/outbox"),
	}
	for _, option := range options {
		option(relay)
	}
	return relay
}

// Start 启动中继的后台轮询
func (r *NotificationRelay) Start() {
	r.logger.Println("NotificationRelay starting...")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				r.logger.Println("NotificationRelay stopped.")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					r.logger.Printf("Error processing pending messages: %v", err)
				}
			}
		}
	}()
}

// Stop 优雅地停止中继服务
func (r *NotificationRelay) Stop() {
	r.logger.Println("NotificationRelay stopping...")
	close(r.done)
}

// processPendingMessages 取出并投递一批待处理的outbox消息
func (r *NotificationRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	// 取行和改状态放在同一个事务里，保证原子性。
	// 故意不给空轮询建span，避免追踪数据被噪音淹没。
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback() // 事务提交之后回滚是无操作的

	// FOR UPDATE SKIP LOCKED: 跳过已被其他实例锁定的行，水平扩展的关键
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", "PENDING").
		Order("created_at asc"). // 先进先出
		Limit(r.batchSize).
		Find(&messages).Error

	if err != nil {
		r.logger.Printf("Failed to fetch pending outbox messages: %v", err)
		return err
	}

	if len(messages) == 0 {
		return tx.Commit().Error
	}

	// 仅在有消息时创建追踪Span
	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	r.logger.Printf("Fetched %d pending messages to process.", len(messages))

	for _, msg := range messages {
		err := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true, // 持久化消息
		)

		if err != nil {
			r.logger.Printf("Failed to publish message ID %d (AggregateID: %s): %v. Retries: %d", msg.ID, msg.AggregateID, err, msg.RetryCount+1)
			tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeRabbitMQ,
				attribute.String("messaging.aggregate_id", msg.AggregateID),
			)
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= r.maxRetryCount {
				msg.Status = "FAILED"
			}
		} else {
			msg.Status = "SENT"
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		// 状态更新失败时整个事务回滚，这批消息会在下一次轮询被重新拾取
		if err := tx.Save(&msg).Error; err != nil {
			r.logger.Printf("Failed to update outbox message ID %d: %v", msg.ID, err)
			return err
		}
	}

	return tx.Commit().Error
}
