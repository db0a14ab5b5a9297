package matching

import (
	"testing"

	"talent-bridge-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func berlinJob() *models.Job {
	return &models.Job{
		JobID:        "job-1",
		Title:        "Backend Engineer",
		Requirements: datatypes.JSON(`["python","docker"]`),
		JobType:      "Full-time",
		JobSitting:   "Remote",
		Location:     "Berlin",
		IsRelevant:   true,
	}
}

func fullMatchTalent() *models.Talent {
	return &models.Talent{
		TalentID:     "talent-1",
		UserID:       "user-1",
		IsOpenToWork: true,
		Residence:    "Berlin",
		JobType:      "Full-time",
		JobSitting:   "Remote",
		Skills:       datatypes.JSON(`["python"]`),
		Languages:    datatypes.JSON(`[]`),
		CVObjectKey:  "cv/talent-1/original.pdf",
		CVFileName:   "cv.pdf",
		User: &models.CustomUser{
			UserID:    "user-1",
			Email:     "ada@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
		},
	}
}

// TestScoreTalentFullScenario 完整评分场景：结构化三项全中 + 一项技能命中
func TestScoreTalentFullScenario(t *testing.T) {
	job := berlinJob()
	talent := fullMatchTalent()

	reqs, err := NormalizeRequirements(job.Requirements)
	require.NoError(t, err)

	result := ScoreTalent(talent, job, reqs, "experienced python developer")

	// job_sitting +1, residence +1, job_type +1, skill "python" +1
	assert.Equal(t, 4, result.Points)
	// 分母固定为 1 + 要求条数 = 3
	assert.InDelta(t, 133.33, result.MatchByForm, 0.001)
	// CV词集中只有 "python" 命中要求集合
	assert.Equal(t, 1, result.CVMatches)
	assert.InDelta(t, 33.33, result.MatchByCV, 0.001)

	// 通知payload字段来自账号
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, "ada@example.com", result.Username)
	assert.Equal(t, "Ada", result.FirstName)
	assert.Equal(t, "Lovelace", result.LastName)
}

// TestScoreTalentCaseAndCommaNormalization 大小写与逗号归一化
func TestScoreTalentCaseAndCommaNormalization(t *testing.T) {
	job := berlinJob()
	job.Location = "Berlin, Germany"
	job.JobSitting = "REMOTE"
	job.JobType = "full-TIME"

	talent := fullMatchTalent()
	talent.Residence = "berlin,germany"
	talent.Skills = datatypes.JSON(`["  PyThOn  "]`)

	reqs, err := NormalizeRequirements(job.Requirements)
	require.NoError(t, err)

	result := ScoreTalent(talent, job, reqs, "")
	assert.Equal(t, 4, result.Points, "逗号和大小写差异不应影响匹配")
}

// TestScoreTalentNoCVText 提取失败(空文本)时CV项记0分，表单项不受影响
func TestScoreTalentNoCVText(t *testing.T) {
	job := berlinJob()
	talent := fullMatchTalent()

	reqs, err := NormalizeRequirements(job.Requirements)
	require.NoError(t, err)

	result := ScoreTalent(talent, job, reqs, "")
	assert.Equal(t, 4, result.Points)
	assert.Equal(t, 0, result.CVMatches)
	assert.Zero(t, result.MatchByCV)
}

// TestScoreTalentUncappedPercent 百分比不封顶，qualifications多于要求条数时可超过100
func TestScoreTalentUncappedPercent(t *testing.T) {
	job := berlinJob()
	job.Requirements = datatypes.JSON(`["python"]`)

	talent := fullMatchTalent()
	talent.Skills = datatypes.JSON(`["python"]`)

	reqs, err := NormalizeRequirements(job.Requirements)
	require.NoError(t, err)

	// points = 3(结构化) + 1(python) = 4, total = 2 → 200%
	result := ScoreTalent(talent, job, reqs, "")
	assert.Equal(t, 4, result.Points)
	assert.InDelta(t, 200.0, result.MatchByForm, 0.001)
}

// TestScoreTalentQualificationsFromObjectShape skills/languages为对象形态时取值参与匹配
func TestScoreTalentQualificationsFromObjectShape(t *testing.T) {
	job := berlinJob()
	talent := fullMatchTalent()
	talent.Skills = datatypes.JSON(`{"primary": "python", "secondary": "go"}`)
	talent.Languages = datatypes.JSON(`{"native": "docker"}`)

	reqs, err := NormalizeRequirements(job.Requirements)
	require.NoError(t, err)

	// 结构化3分 + python命中 + docker命中("go"不在要求里)
	result := ScoreTalent(talent, job, reqs, "")
	assert.Equal(t, 5, result.Points)
}

// TestCountCVMatchesWordSet CV匹配按词集交集计数，重复出现只计一次
func TestCountCVMatchesWordSet(t *testing.T) {
	reqs := NewRequirementSet([]string{"python", "docker", "sql"})

	assert.Equal(t, 2, countCVMatches("python docker python python", reqs))
	assert.Equal(t, 0, countCVMatches("pythonic dockerfile", reqs), "子串不算命中，必须整词相等")
	assert.Equal(t, 0, countCVMatches("", reqs))
	assert.Equal(t, 3, countCVMatches("sql\npython\tdocker", reqs), "任意空白都是分词符")
}

// TestIsRelevantThreshold 阈值是'达到即相关'，两个分数任一达标即可
func TestIsRelevantThreshold(t *testing.T) {
	testCases := []struct {
		name     string
		form     float64
		cv       float64
		relevant bool
	}{
		{"双双低于阈值", 29.99, 29.99, false},
		{"form恰好达标", 30.0, 0, true},
		{"cv恰好达标", 0, 30.0, true},
		{"双双达标", 133.33, 33.33, true},
		{"双零", 0, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ScoreTalent(fullMatchTalent(), berlinJob(), NewRequirementSet(nil), "")
			result.MatchByForm = tc.form
			result.MatchByCV = tc.cv
			assert.Equal(t, tc.relevant, IsRelevant(result, 30.0))
		})
	}
}

// TestScoreTalentWithoutUserPreload Preload缺失时评分照常，账号字段留空
func TestScoreTalentWithoutUserPreload(t *testing.T) {
	talent := fullMatchTalent()
	talent.User = nil

	reqs, err := NormalizeRequirements(berlinJob().Requirements)
	require.NoError(t, err)

	result := ScoreTalent(talent, berlinJob(), reqs, "")
	assert.Equal(t, 4, result.Points)
	assert.Empty(t, result.Username)
}
