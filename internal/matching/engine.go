package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talent-bridge-go/internal/config"
	"talent-bridge-go/internal/constants"
	"talent-bridge-go/internal/logger"
	"talent-bridge-go/internal/parser"
	"talent-bridge-go/internal/storage"
	"talent-bridge-go/internal/storage/models"
	"talent-bridge-go/internal/types"

	"github.com/rs/zerolog"
)

// ErrJobNotActive 岗位存在但未激活（is_relevant为false或已过截止日）
var ErrJobNotActive = errors.New("job is not active")

// Store 匹配引擎依赖的持久层能力，由 storage.MySQL 实现
type Store interface {
	GetJobByID(ctx context.Context, jobID string) (*models.Job, error)
	ListOpenToWorkTalents(ctx context.Context) ([]models.Talent, error)
	// RecordNotificationBatch 事务性入账：insert-or-ignore写台账，
	// 并为本次新入账的人才落一条outbox通知行。返回新入账的人才。
	RecordNotificationBatch(ctx context.Context, job *models.Job, candidates []storage.NotifiedTalent, exchange, routingKey string) ([]storage.NotifiedTalent, error)
}

// Engine 人才匹配引擎：加载岗位、归一化要求、遍历候选池评分、
// 过阈值筛选，并通过Store在一个事务里写通知台账和outbox行。
type Engine struct {
	store     Store
	redis     *storage.Redis // 可为nil，此时不启用要求缓存
	blobs     parser.BlobFetcher
	extractor *parser.CVTextExtractor
	mqCfg     *config.RabbitMQConfig
	logger    zerolog.Logger
}

// NewEngine 创建匹配引擎
func NewEngine(store Store, redis *storage.Redis, blobs parser.BlobFetcher, extractor *parser.CVTextExtractor, mqCfg *config.RabbitMQConfig) *Engine {
	return &Engine{
		store:     store,
		redis:     redis,
		blobs:     blobs,
		extractor: extractor,
		mqCfg:     mqCfg,
		logger:    logger.Logger.With().Str("component", "match_engine").Logger(),
	}
}

// SearchTalentsForJob 为指定岗位执行一次完整的匹配运行。
// 返回全部过阈值的人才；通知只发给本次首次入账的人才（台账幂等）。
func (e *Engine) SearchTalentsForJob(ctx context.Context, jobID string) (*types.SearchOutcome, error) {
	job, err := e.store.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err // 包括 storage.ErrJobNotFound
	}

	if !job.IsActive(time.Now()) {
		return nil, fmt.Errorf("岗位 %s 未激活或已过截止日: %w", jobID, ErrJobNotActive)
	}

	// 要求集合每次运行只归一化一次，分母随之固定
	reqs, err := e.requirementsForJob(ctx, job)
	if err != nil {
		return nil, err
	}

	talents, err := e.store.ListOpenToWorkTalents(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("job_id", jobID).
		Int("candidate_pool", len(talents)).
		Int("requirements", reqs.Len()).
		Msg("开始匹配运行")

	// 响应里总是数组，无人过阈值时为空数组而非null
	relevant := make([]types.MatchResult, 0)
	for i := range talents {
		talent := &talents[i]

		// 硬性门槛：无CV的人才完全不参与，不评分也不出现在结果里
		if !talent.HasCV() {
			continue
		}

		// CV提取失败降级为空文本，单个人才的失败不中断整次运行
		cvText := e.extractor.ExtractFromObject(ctx, e.blobs, talent.CVObjectKey, talent.CVFileName)

		result := ScoreTalent(talent, job, reqs, cvText)
		if IsRelevant(result, constants.RelevanceThreshold) {
			relevant = append(relevant, result)
		}
	}

	outcome := &types.SearchOutcome{
		JobID:           jobID,
		RelevantTalents: relevant,
	}

	if len(relevant) == 0 {
		e.logger.Info().Str("job_id", jobID).Msg("无人才过阈值，运行正常结束")
		return outcome, nil
	}

	// 台账写入与outbox行在同一事务里：要么"入账+通知已排队"同时成立，要么都不发生
	newlyNotified, err := e.store.RecordNotificationBatch(ctx, job, toNotifiedTalents(relevant),
		e.mqCfg.NotificationExchange, e.mqCfg.NotificationRoutingKey)
	if err != nil {
		return nil, fmt.Errorf("写入通知台账事务失败 (job=%s): %w", jobID, err)
	}
	outcome.NewlyNotified = len(newlyNotified)

	e.logger.Info().
		Str("job_id", jobID).
		Int("relevant", len(relevant)).
		Int("newly_notified", len(newlyNotified)).
		Msg("匹配运行完成")

	return outcome, nil
}

// requirementsForJob 获取岗位的归一化要求集合，优先走Redis缓存
func (e *Engine) requirementsForJob(ctx context.Context, job *models.Job) (*RequirementSet, error) {
	if e.redis != nil {
		cached, err := e.redis.GetJobRequirements(ctx, job.JobID)
		if err == nil {
			return NewRequirementSet(cached), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			// 缓存故障不致命，退回到重新归一化
			e.logger.Warn().Err(err).Str("job_id", job.JobID).Msg("读取要求缓存失败，回退到重新解析")
		}
	}

	reqs, err := NormalizeRequirements(job.Requirements)
	if err != nil {
		return nil, fmt.Errorf("岗位 %s 的requirements无法归一化: %w", job.JobID, err)
	}

	if e.redis != nil {
		if err := e.redis.SetJobRequirements(ctx, job.JobID, reqs.Sorted()); err != nil {
			e.logger.Warn().Err(err).Str("job_id", job.JobID).Msg("写入要求缓存失败")
		}
	}

	return reqs, nil
}

// toNotifiedTalents 把过阈值的评分结果装配成通知候选条目
func toNotifiedTalents(results []types.MatchResult) []storage.NotifiedTalent {
	entries := make([]storage.NotifiedTalent, 0, len(results))
	for _, r := range results {
		entries = append(entries, storage.NotifiedTalent{
			TalentID:    r.TalentID,
			UserID:      r.UserID,
			Username:    r.Username,
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Points:      r.Points,
			CVMatches:   r.CVMatches,
			MatchByForm: r.MatchByForm,
			MatchByCV:   r.MatchByCV,
		})
	}
	return entries
}
