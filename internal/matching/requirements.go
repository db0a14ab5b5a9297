package matching

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"talent-bridge-go/internal/logger"

	"gorm.io/datatypes"
)

// ErrInvalidRequirementsFormat 岗位要求字段不是受支持的JSON形态
var ErrInvalidRequirementsFormat = errors.New("invalid requirements format")

// RequirementSet 岗位要求的归一化集合。
// 所有条目均已trim+小写，去重。
type RequirementSet struct {
	items map[string]struct{}
}

// NewRequirementSet 从已归一化的条目构建集合，空白条目被丢弃
func NewRequirementSet(items []string) *RequirementSet {
	s := &RequirementSet{items: make(map[string]struct{}, len(items))}
	for _, item := range items {
		s.add(item)
	}
	return s
}

func (s *RequirementSet) add(raw string) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return
	}
	s.items[normalized] = struct{}{}
}

// Len 返回集合中不重复要求的数量
func (s *RequirementSet) Len() int {
	return len(s.items)
}

// Contains 判断归一化后的qualification是否命中要求集合
func (s *RequirementSet) Contains(qualification string) bool {
	normalized := strings.ToLower(strings.TrimSpace(qualification))
	if normalized == "" {
		return false
	}
	_, ok := s.items[normalized]
	return ok
}

// Sorted 返回按字典序排序的条目切片，用于日志和缓存
func (s *RequirementSet) Sorted() []string {
	out := make([]string, 0, len(s.items))
	for item := range s.items {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// NormalizeRequirements 将岗位要求的变体JSON解析为归一化集合。
// 受支持的形态:
//   - JSON数组: 逐项取字符串元素
//   - JSON字符串: 按逗号切分
//   - JSON对象: 字符串值按逗号切分，数组值逐项取字符串元素
//
// 其余形态(数字、布尔、null、非法JSON)返回 ErrInvalidRequirementsFormat。
func NormalizeRequirements(raw datatypes.JSON) (*RequirementSet, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("requirements字段为空: %w", ErrInvalidRequirementsFormat)
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("requirements字段JSON解析失败: %w", ErrInvalidRequirementsFormat)
	}

	set := &RequirementSet{items: make(map[string]struct{})}

	switch v := decoded.(type) {
	case []interface{}:
		collectListItems(set, v)

	case string:
		collectCommaSeparated(set, v)

	case map[string]interface{}:
		for key, value := range v {
			switch item := value.(type) {
			case string:
				collectCommaSeparated(set, item)
			case []interface{}:
				collectListItems(set, item)
			default:
				logger.Warn().
					Str("key", key).
					Interface("value", value).
					Msg("requirements对象中存在不支持的值类型，已跳过")
			}
		}

	default:
		return nil, fmt.Errorf("requirements字段形态不受支持 (%T): %w", decoded, ErrInvalidRequirementsFormat)
	}

	return set, nil
}

// collectListItems 收集JSON数组中的字符串元素，非字符串元素警告并跳过
func collectListItems(set *RequirementSet, items []interface{}) {
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			logger.Warn().
				Interface("item", item).
				Msg("requirements数组中存在非字符串元素，已跳过")
			continue
		}
		set.add(str)
	}
}

// collectCommaSeparated 按逗号切分字符串并收集各片段
func collectCommaSeparated(set *RequirementSet, value string) {
	for _, part := range strings.Split(value, ",") {
		set.add(part)
	}
}
