package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"talent-bridge-go/internal/config"
	"talent-bridge-go/internal/storage"
	"talent-bridge-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// stubStore 内存版Store：台账用集合模拟复合唯一索引的insert-or-ignore语义
type stubStore struct {
	jobs    map[string]*models.Job
	talents []models.Talent
	ledger  map[string]bool // "talentID:jobID"
	batches [][]storage.NotifiedTalent
	listErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		jobs:   make(map[string]*models.Job),
		ledger: make(map[string]bool),
	}
}

func (s *stubStore) GetJobByID(_ context.Context, jobID string) (*models.Job, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, storage.ErrJobNotFound
	}
	return job, nil
}

func (s *stubStore) ListOpenToWorkTalents(_ context.Context) ([]models.Talent, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.talents, nil
}

func (s *stubStore) RecordNotificationBatch(_ context.Context, job *models.Job, candidates []storage.NotifiedTalent, _, _ string) ([]storage.NotifiedTalent, error) {
	newly := make([]storage.NotifiedTalent, 0, len(candidates))
	for _, candidate := range candidates {
		key := fmt.Sprintf("%s:%s", candidate.TalentID, job.JobID)
		if s.ledger[key] {
			continue
		}
		s.ledger[key] = true
		newly = append(newly, candidate)
	}
	if len(newly) > 0 {
		s.batches = append(s.batches, newly)
	}
	return newly, nil
}

func activeBerlinJob() *models.Job {
	job := berlinJob()
	endDate := datatypes.Date(time.Now().AddDate(0, 0, 7))
	job.EndDate = &endDate
	return job
}

func newTestEngine(store Store) *Engine {
	// extractor为nil时CV文本降级为空串，评分只走表单字段
	return NewEngine(store, nil, nil, nil, &config.RabbitMQConfig{
		NotificationExchange:   "talent.notification.exchange",
		NotificationRoutingKey: "talent.match.notify",
	})
}

// TestSearchTalentsForJobIdempotentRuns 重复运行同一岗位：人才始终上报，但只通知一次
func TestSearchTalentsForJobIdempotentRuns(t *testing.T) {
	store := newStubStore()
	job := activeBerlinJob()
	store.jobs[job.JobID] = job
	store.talents = []models.Talent{*fullMatchTalent()}

	engine := newTestEngine(store)

	first, err := engine.SearchTalentsForJob(context.Background(), job.JobID)
	require.NoError(t, err)
	require.Len(t, first.RelevantTalents, 1)
	assert.Equal(t, 1, first.NewlyNotified)
	assert.Len(t, store.ledger, 1, "每个(talent, job)对只有一条台账行")
	require.Len(t, store.batches, 1)
	assert.Equal(t, "talent-1", store.batches[0][0].TalentID)

	// 第二次运行：台账行已存在，人才照常上报但不再进入任何通知批
	second, err := engine.SearchTalentsForJob(context.Background(), job.JobID)
	require.NoError(t, err)
	require.Len(t, second.RelevantTalents, 1)
	assert.Equal(t, 0, second.NewlyNotified)
	assert.Len(t, store.ledger, 1)
	assert.Len(t, store.batches, 1, "没有新入账时不产生新的通知批")
}

// TestSearchTalentsForJobSkipsTalentsWithoutCV 无CV的人才完全不参与，即使表单全中
func TestSearchTalentsForJobSkipsTalentsWithoutCV(t *testing.T) {
	store := newStubStore()
	job := activeBerlinJob()
	store.jobs[job.JobID] = job

	withCV := *fullMatchTalent()
	withoutCV := *fullMatchTalent()
	withoutCV.TalentID = "talent-2"
	withoutCV.CVObjectKey = ""
	withoutCV.CVFileName = ""
	store.talents = []models.Talent{withCV, withoutCV}

	engine := newTestEngine(store)

	outcome, err := engine.SearchTalentsForJob(context.Background(), job.JobID)
	require.NoError(t, err)
	require.Len(t, outcome.RelevantTalents, 1)
	assert.Equal(t, "talent-1", outcome.RelevantTalents[0].TalentID)
	assert.Len(t, store.ledger, 1)
}

// TestSearchTalentsForJobThresholdFilter 未达阈值的人才不上报也不入账
func TestSearchTalentsForJobThresholdFilter(t *testing.T) {
	store := newStubStore()
	job := activeBerlinJob()
	store.jobs[job.JobID] = job

	qualified := *fullMatchTalent()
	unqualified := *fullMatchTalent()
	unqualified.TalentID = "talent-3"
	unqualified.Residence = "Tokyo"
	unqualified.JobType = "Part-time"
	unqualified.JobSitting = "Office"
	unqualified.Skills = datatypes.JSON(`["cobol"]`)
	store.talents = []models.Talent{qualified, unqualified}

	engine := newTestEngine(store)

	outcome, err := engine.SearchTalentsForJob(context.Background(), job.JobID)
	require.NoError(t, err)
	require.Len(t, outcome.RelevantTalents, 1)
	assert.Equal(t, "talent-1", outcome.RelevantTalents[0].TalentID)
	assert.Equal(t, 1, outcome.NewlyNotified)
	assert.False(t, store.ledger["talent-3:job-1"], "未达阈值的人才不应入账")
}

// TestSearchTalentsForJobNoRelevantTalents 无人过阈值时返回空数组(非null)且无任何写入
func TestSearchTalentsForJobNoRelevantTalents(t *testing.T) {
	store := newStubStore()
	job := activeBerlinJob()
	store.jobs[job.JobID] = job

	stranger := *fullMatchTalent()
	stranger.Residence = "Tokyo"
	stranger.JobType = "Part-time"
	stranger.JobSitting = "Office"
	stranger.Skills = datatypes.JSON(`[]`)
	store.talents = []models.Talent{stranger}

	engine := newTestEngine(store)

	outcome, err := engine.SearchTalentsForJob(context.Background(), job.JobID)
	require.NoError(t, err)
	require.NotNil(t, outcome.RelevantTalents, "响应中必须是空数组而非null")
	assert.Empty(t, outcome.RelevantTalents)
	assert.Zero(t, outcome.NewlyNotified)
	assert.Empty(t, store.ledger)
	assert.Empty(t, store.batches)
}

// TestSearchTalentsForJobNotFound 岗位不存在
func TestSearchTalentsForJobNotFound(t *testing.T) {
	engine := newTestEngine(newStubStore())

	_, err := engine.SearchTalentsForJob(context.Background(), "missing-job")
	assert.ErrorIs(t, err, storage.ErrJobNotFound)
}

// TestSearchTalentsForJobInactive 过期或未激活的岗位直接拒绝，不做任何写入
func TestSearchTalentsForJobInactive(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(job *models.Job)
	}{
		{"已过截止日", func(job *models.Job) {
			expired := datatypes.Date(time.Now().AddDate(0, 0, -1))
			job.EndDate = &expired
		}},
		{"is_relevant为false", func(job *models.Job) {
			job.IsRelevant = false
		}},
		{"无截止日", func(job *models.Job) {
			job.EndDate = nil
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStubStore()
			job := activeBerlinJob()
			tc.mutate(job)
			store.jobs[job.JobID] = job
			store.talents = []models.Talent{*fullMatchTalent()}

			engine := newTestEngine(store)

			_, err := engine.SearchTalentsForJob(context.Background(), job.JobID)
			assert.ErrorIs(t, err, ErrJobNotActive)
			assert.Empty(t, store.ledger, "拒绝的运行不应写台账")
			assert.Empty(t, store.batches)
		})
	}
}

// TestSearchTalentsForJobInvalidRequirements requirements无法归一化时运行失败
func TestSearchTalentsForJobInvalidRequirements(t *testing.T) {
	store := newStubStore()
	job := activeBerlinJob()
	job.Requirements = datatypes.JSON(`42`)
	store.jobs[job.JobID] = job
	store.talents = []models.Talent{*fullMatchTalent()}

	engine := newTestEngine(store)

	_, err := engine.SearchTalentsForJob(context.Background(), job.JobID)
	assert.ErrorIs(t, err, ErrInvalidRequirementsFormat)
	assert.Empty(t, store.ledger)
}

// TestSearchTalentsForJobListFailure 人才池查询失败时错误向上传递
func TestSearchTalentsForJobListFailure(t *testing.T) {
	store := newStubStore()
	job := activeBerlinJob()
	store.jobs[job.JobID] = job
	store.listErr = errors.New("connection reset")

	engine := newTestEngine(store)

	_, err := engine.SearchTalentsForJob(context.Background(), job.JobID)
	assert.ErrorContains(t, err, "connection reset")
}
