package constants

import "time"

const (
	// RelevanceThreshold 相关度阈值(%)：form或cv任一得分达到该值即视为相关人才
	// 注意：这是组件级别的固定常量，不按岗位配置
	RelevanceThreshold = 30.0

	// RequirementsCacheDuration 归一化岗位要求在Redis中的缓存时长
	RequirementsCacheDuration = 24 * time.Hour

	// CVExtractionTimeout 单份CV文本提取的超时时间，超时按提取失败处理（零内容，继续批处理）
	CVExtractionTimeout = 30 * time.Second

	// SearchLockDuration 单岗位匹配运行的分布式锁时长
	SearchLockDuration = 5 * time.Minute
)
