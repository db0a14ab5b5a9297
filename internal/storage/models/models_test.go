package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

// TestTalentQualifications skills/languages两种历史形态都展平为归一化序列
func TestTalentQualifications(t *testing.T) {
	testCases := []struct {
		name      string
		skills    string
		languages string
		expected  []string
	}{
		{
			name:      "双数组",
			skills:    `["Python", " Docker "]`,
			languages: `["English"]`,
			expected:  []string{"python", "docker", "english"},
		},
		{
			name:      "对象形态取值",
			skills:    `{"b_key": "Go", "a_key": "Python"}`,
			languages: `[]`,
			expected:  []string{"python", "go"}, // 对象按key排序展平
		},
		{
			name:      "空与非字符串元素",
			skills:    `["Python", 42, ""]`,
			languages: ``,
			expected:  []string{"python"},
		},
		{
			name:      "非法JSON整列丢弃",
			skills:    `{broken`,
			languages: `["English"]`,
			expected:  []string{"english"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			talent := &Talent{
				Skills:    datatypes.JSON(tc.skills),
				Languages: datatypes.JSON(tc.languages),
			}
			assert.Equal(t, tc.expected, talent.Qualifications())
		})
	}
}

// TestTalentHasCV CV引用为空即视为无CV
func TestTalentHasCV(t *testing.T) {
	assert.False(t, (&Talent{}).HasCV())
	assert.True(t, (&Talent{CVObjectKey: "cv/t1/original.pdf"}).HasCV())
}

// TestJobIsActive 激活状态 = is_relevant 且 end_date 未过（按日期比较，不看时刻）
func TestJobIsActive(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)

	dateOf := func(t time.Time) *datatypes.Date {
		d := datatypes.Date(t)
		return &d
	}

	testCases := []struct {
		name       string
		isRelevant bool
		endDate    *datatypes.Date
		active     bool
	}{
		{"截止日是明天", true, dateOf(now.AddDate(0, 0, 1)), true},
		{"截止日是今天", true, dateOf(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)), true},
		{"截止日是昨天", true, dateOf(now.AddDate(0, 0, -1)), false},
		{"is_relevant为false", false, dateOf(now.AddDate(0, 0, 1)), false},
		{"无截止日", true, nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			job := &Job{IsRelevant: tc.isRelevant, EndDate: tc.endDate}
			assert.Equal(t, tc.active, job.IsActive(now))
		})
	}
}
