package storage

import "time"

// TalentMatchNotificationMessage 人才匹配通知消息。
// 由outbox relay发布到RabbitMQ，消费端(notifier)转发给外部分发服务。
type TalentMatchNotificationMessage struct {
	// 与通知台账字段一致的主要字段
	JobID     string    `json:"job_id"`     // 触发匹配的岗位ID
	JobTitle  string    `json:"job_title"`  // 岗位标题，冗余存储避免消费端回查
	MatchedAt time.Time `json:"matched_at"` // 匹配运行完成时间

	// 本次新入账的相关人才及其评分明细
	Talents []NotifiedTalent `json:"talents"`
}

// NotifiedTalent 通知消息中的单个人才条目
type NotifiedTalent struct {
	TalentID    string  `json:"talent_id"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	FirstName   string  `json:"first_name,omitempty"`
	LastName    string  `json:"last_name,omitempty"`
	Points      int     `json:"points"`
	CVMatches   int     `json:"cv_matches"`
	MatchByForm float64 `json:"match_by_form"`
	MatchByCV   float64 `json:"match_by_cv"`
}
