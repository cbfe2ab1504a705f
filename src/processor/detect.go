package processor

import (
	"strings"

	"SiamikDashboard/src/config"

	"golang.org/x/text/cases"
)

// GroupID 一组one-hot列共同表示的语义字段
type GroupID string

const (
	GroupFaculty  GroupID = "faculty"
	GroupProgram  GroupID = "study_program"
	GroupProblem  GroupID = "problem"
	GroupPriority GroupID = "priority"
)

// MatchKind 列名匹配方式
type MatchKind int

const (
	MatchPrefix       MatchKind = iota // 区分大小写的前缀
	MatchPrefixFold                    // 不区分大小写的前缀
	MatchContainsFold                  // 不区分大小写的子串
)

// DetectionRule 一条列组识别规则
type DetectionRule struct {
	Group   GroupID
	Kind    MatchKind
	Pattern string
}

// Match 判断列名是否满足规则
func (r DetectionRule) Match(name string) bool {
	switch r.Kind {
	case MatchPrefix:
		return strings.HasPrefix(name, r.Pattern)
	case MatchPrefixFold:
		return hasPrefixFold(name, r.Pattern)
	case MatchContainsFold:
		return containsFold(name, r.Pattern)
	default:
		return false
	}
}

// DefaultRules 根据数据配置生成有序的识别规则
func DefaultRules(d config.DetectionConfig) []DetectionRule {
	rules := []DetectionRule{
		{Group: GroupFaculty, Kind: MatchPrefixFold, Pattern: d.FacultyPrefix},
		{Group: GroupProgram, Kind: MatchPrefixFold, Pattern: d.ProgramPrefix},
		{Group: GroupProblem, Kind: MatchPrefix, Pattern: d.ProblemPrefix},
		{Group: GroupProblem, Kind: MatchContainsFold, Pattern: d.ProblemKeyword},
	}
	for _, p := range d.PriorityPrefixes {
		rules = append(rules, DetectionRule{Group: GroupPriority, Kind: MatchPrefix, Pattern: p})
	}
	rules = append(rules, DetectionRule{Group: GroupPriority, Kind: MatchContainsFold, Pattern: d.PriorityKeyword})

	// 空模式会匹配所有列，直接丢弃
	out := rules[:0]
	for _, r := range rules {
		if r.Pattern != "" {
			out = append(out, r)
		}
	}
	return out
}

// DetectGroups 按列顺序把列名分配到各个组，一列可以同时属于多个组
func DetectGroups(names []string, rules []DetectionRule) map[GroupID][]string {
	groups := map[GroupID][]string{
		GroupFaculty:  {},
		GroupProgram:  {},
		GroupProblem:  {},
		GroupPriority: {},
	}
	for _, name := range names {
		seen := make(map[GroupID]bool)
		for _, r := range rules {
			if seen[r.Group] || !r.Match(name) {
				continue
			}
			seen[r.Group] = true
			groups[r.Group] = append(groups[r.Group], name)
		}
	}
	return groups
}

// FindColumn 返回第一个包含任一关键词(不区分大小写)或包含exact子串的列
func FindColumn(names []string, keywords []string, exact string) (string, bool) {
	for _, name := range names {
		for _, kw := range keywords {
			if kw != "" && containsFold(name, kw) {
				return name, true
			}
		}
		if exact != "" && strings.Contains(name, exact) {
			return name, true
		}
	}
	return "", false
}

func fold(s string) string {
	// Caser有状态，不能跨goroutine共享
	return cases.Fold().String(s)
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(fold(s), fold(prefix))
}

func containsFold(s, substr string) bool {
	return strings.Contains(fold(s), fold(substr))
}

// stripPrefixFold 不区分大小写地去掉前缀
func stripPrefixFold(s, prefix string) string {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):]
	}
	return s
}
