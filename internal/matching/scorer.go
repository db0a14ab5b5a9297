package matching

import (
	"math"
	"strings"

	"talent-bridge-go/internal/storage/models"
	"talent-bridge-go/internal/types"
)

// ScoreTalent 对单个人才按固定公式评分。
// 资格门槛(is_open_to_work、CV存在)由调用方把关，这里只管算分。
// cvText 是已提取的小写CV文本，提取失败时为空串，CV项记0分。
func ScoreTalent(talent *models.Talent, job *models.Job, reqs *RequirementSet, cvText string) types.MatchResult {
	points := 0

	// 结构化字段逐项比较，大小写不敏感
	if normalizeField(talent.JobSitting) == normalizeField(job.JobSitting) {
		points++
	}
	// 居住地与岗位地点比较时去掉逗号，"Berlin, Germany" 与 "Berlin,Germany" 视为相同
	if stripCommas(talent.Residence) == stripCommas(job.Location) {
		points++
	}
	if normalizeField(talent.JobType) == normalizeField(job.JobType) {
		points++
	}

	// 每个命中要求集合的qualification(skills ∪ languages)各得1分
	for _, qualification := range talent.Qualifications() {
		if reqs.Contains(qualification) {
			points++
		}
	}

	// 固定分母：1(求职意愿基线) + 要求条数。与实际比较的字段数无关
	totalCharacteristics := 1 + reqs.Len()

	cvMatches := countCVMatches(cvText, reqs)

	result := types.MatchResult{
		TalentID:    talent.TalentID,
		Points:      points,
		CVMatches:   cvMatches,
		MatchByForm: roundPercent(points, totalCharacteristics),
		MatchByCV:   roundPercent(cvMatches, totalCharacteristics),
	}

	// 人才档案总是挂在账号下，但Preload失败时不让评分崩掉
	if talent.User != nil {
		result.UserID = talent.User.UserID
		result.Username = talent.User.Email
		result.FirstName = talent.User.FirstName
		result.LastName = talent.User.LastName
	}

	return result
}

// IsRelevant 判断评分结果是否达到相关度阈值
func IsRelevant(result types.MatchResult, threshold float64) bool {
	return result.MatchByCV >= threshold || result.MatchByForm >= threshold
}

// countCVMatches 统计CV词集与要求集合的交集大小。
// CV文本按空白切词，每条要求最多计1次，与其在CV中出现的次数无关。
func countCVMatches(cvText string, reqs *RequirementSet) int {
	if cvText == "" || reqs.Len() == 0 {
		return 0
	}

	words := make(map[string]struct{})
	for _, word := range strings.Fields(cvText) {
		words[word] = struct{}{}
	}

	matches := 0
	for _, requirement := range reqs.Sorted() {
		if _, ok := words[requirement]; ok {
			matches++
		}
	}
	return matches
}

// normalizeField 归一化结构化字段用于比较
func normalizeField(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// stripCommas 去掉逗号后再做归一化比较
func stripCommas(value string) string {
	return normalizeField(strings.ReplaceAll(value, ",", ""))
}

// roundPercent 计算百分比并保留两位小数，不封顶（可超过100）
func roundPercent(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	percent := float64(numerator) / float64(denominator) * 100
	return math.Round(percent*100) / 100
}
