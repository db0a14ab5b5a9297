// Package types 定义匹配流程在组件之间传递的领域类型
package types

// MatchResult 单次评分运行中一位人才的匹配结果（不落库，仅过阈值者向外传递）
type MatchResult struct {
	TalentID    string  `json:"talent_id"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"` // 即注册邮箱
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Points      int     `json:"points"`        // 结构化表单累计得分
	CVMatches   int     `json:"cv_matches"`    // CV文本命中的要求条数
	MatchByForm float64 `json:"match_by_form"` // 表单匹配度(%)，不封顶
	MatchByCV   float64 `json:"match_by_cv"`   // CV匹配度(%)，不封顶
}

// SearchOutcome 一次岗位匹配运行的完整结果
type SearchOutcome struct {
	JobID string `json:"job_id"`
	// RelevantTalents 过阈值的全部人才（台账只限制通知，不限制上报）
	RelevantTalents []MatchResult `json:"relevant_talents"`
	// NewlyNotified 本次运行中首次进入通知台账的人才数
	NewlyNotified int `json:"newly_notified"`
}

// NotificationBatch 发往外部通知分发服务的一批人才通知
type NotificationBatch struct {
	JobID           string        `json:"job_id"`
	RelevantTalents []MatchResult `json:"relevant_talents"`
}
