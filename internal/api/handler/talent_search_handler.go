package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"talent-bridge-go/internal/config"
	"talent-bridge-go/internal/constants"
	"talent-bridge-go/internal/matching"
	"talent-bridge-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// TalentSearchHandler 负责处理岗位人才匹配请求。
type TalentSearchHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	engine  *matching.Engine
	logger  *log.Logger
}

// NewTalentSearchHandler 创建一个新的 TalentSearchHandler 实例。
func NewTalentSearchHandler(cfg *config.Config, storage *storage.Storage, engine *matching.Engine) *TalentSearchHandler {
	return &TalentSearchHandler{
		cfg:     cfg,
		storage: storage,
		engine:  engine,
		logger:  log.New(os.Stdout, "[TalentSearchHandler] ", log.LstdFlags|log.Lshortfile),
	}
}

// HandleSearchTalentsByJobID 为指定岗位执行人才匹配运行。
// GET /api/v1/jobs/:job_id/talents/search
func (h *TalentSearchHandler) HandleSearchTalentsByJobID(ctx context.Context, c *app.RequestContext) {
	// 1. 获取请求参数
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "job_id 不能为空"})
		return
	}

	startTime := time.Now()
	h.logger.Printf("开始处理 JobID: %s 的人才匹配请求", jobID)

	// 2. 尝试获取分布式锁，避免并发执行相同岗位的匹配
	if h.storage.Redis != nil {
		lockKey := fmt.Sprintf(constants.KeyMatchLock, jobID)
		lockValue, err := h.storage.Redis.AcquireLock(ctx, lockKey, constants.SearchLockDuration)
		if err != nil {
			// 锁服务故障时继续执行：台账的唯一索引兜底保证不会重复通知
			h.logger.Printf("获取分布式锁失败 for JobID %s: %v，继续执行", jobID, err)
		} else if lockValue == "" {
			// 未能获取锁，表示已有其他进程正在处理相同岗位
			h.logger.Printf("匹配已在处理中 for JobID: %s，返回等待消息", jobID)
			c.JSON(consts.StatusAccepted, map[string]interface{}{
				"message":     "该岗位的匹配正在处理中，请稍后重试",
				"status":      "processing",
				"job_id":      jobID,
				"retry_after": 2, // 建议客户端2秒后重试
			})
			return
		} else {
			defer func() {
				if _, err := h.storage.Redis.ReleaseLock(context.Background(), lockKey, lockValue); err != nil {
					h.logger.Printf("释放分布式锁失败 for JobID %s: %v", jobID, err)
				}
			}()
		}
	}

	// 3. 执行匹配运行
	outcome, err := h.engine.SearchTalentsForJob(ctx, jobID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrJobNotFound):
			c.JSON(consts.StatusNotFound, map[string]string{"error": fmt.Sprintf("岗位 %s 不存在", jobID)})
		case errors.Is(err, matching.ErrJobNotActive):
			c.JSON(consts.StatusBadRequest, map[string]string{"error": fmt.Sprintf("岗位 %s 未激活或已过截止日", jobID)})
		case errors.Is(err, matching.ErrInvalidRequirementsFormat):
			c.JSON(consts.StatusBadRequest, map[string]string{"error": fmt.Sprintf("岗位 %s 的requirements格式不受支持", jobID)})
		default:
			h.logger.Printf("匹配运行失败 for JobID %s: %v", jobID, err)
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "匹配运行失败"})
		}
		return
	}

	totalNotified, err := h.storage.MySQL.CountNotificationLogsByJob(ctx, jobID)
	if err != nil {
		h.logger.Printf("统计岗位 %s 的通知台账失败: %v", jobID, err)
	}

	h.logger.Printf("匹配流程结束 for JobID: %s，耗时: %v，相关人才 %d 人，新通知 %d 人，累计已通知 %d 人",
		jobID, time.Since(startTime), len(outcome.RelevantTalents), outcome.NewlyNotified, totalNotified)

	// 4. 返回全部过阈值的人才，通知排队由outbox异步完成
	c.JSON(consts.StatusOK, map[string]interface{}{
		"message":          "匹配成功",
		"job_id":           outcome.JobID,
		"relevant_talents": outcome.RelevantTalents,
		"newly_notified":   outcome.NewlyNotified,
	})
}

// HandleInvalidateRequirementsCache 删除岗位要求的Redis缓存。
// 岗位的requirements更新后调用，下一次匹配运行会重新归一化并回填缓存。
// DELETE /api/v1/jobs/:job_id/requirements-cache
func (h *TalentSearchHandler) HandleInvalidateRequirementsCache(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "job_id 不能为空"})
		return
	}

	if h.storage.Redis == nil {
		// 缓存未启用时没有可删的内容，幂等地返回成功
		c.JSON(consts.StatusOK, map[string]interface{}{
			"message": "缓存未启用",
			"job_id":  jobID,
		})
		return
	}

	if err := h.storage.Redis.InvalidateJobRequirements(ctx, jobID); err != nil {
		h.logger.Printf("删除岗位 %s 的要求缓存失败: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "删除缓存失败"})
		return
	}

	h.logger.Printf("已删除岗位 %s 的要求缓存", jobID)
	c.JSON(consts.StatusOK, map[string]interface{}{
		"message": "缓存已删除",
		"job_id":  jobID,
	})
}
