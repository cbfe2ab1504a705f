package processor

import (
	"strings"

	"SiamikDashboard/src/utils"
)

// actionPlanSize 行动计划覆盖的优先级数量
const actionPlanSize = 3

// urgencies 按排名的紧急程度
var urgencies = []string{"CRITICAL", "HIGH", "MEDIUM"}

// recommendation 按关键字给出的改进建议，依次匹配
type recommendation struct {
	keywords []string
	text     string
}

var recommendations = []recommendation{
	{
		keywords: []string{"kecepatan", "server"},
		text:     "Tingkatkan kapasitas server, optimalkan query, dan tambahkan caching atau CDN.",
	},
	{
		keywords: []string{"notifikasi", "notification"},
		text:     "Implementasi notifikasi real-time (email/SMS/in-app) dan riwayat notifikasi yang lebih jelas.",
	},
	{
		keywords: []string{"proses", "approval", "acc"},
		text:     "Sederhanakan alur approval, tambahkan SLA, dan buat pengingat otomatis untuk status pengajuan.",
	},
}

const defaultRecommendation = "Lakukan survei kualitatif untuk desain solusi yang lebih tepat, uji coba kecil sebelum penerapan besar."

// PriorityShare 某个改进优先级的票数及占比(%)
type PriorityShare struct {
	Priority   string  `json:"priority"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ActionItem 行动计划中的一项
type ActionItem struct {
	Rank           int     `json:"rank"`
	Priority       string  `json:"priority"`
	Urgency        string  `json:"urgency"`
	Count          int     `json:"count"`
	Percentage     float64 `json:"percentage"`
	Recommendation string  `json:"recommendation"`
}

// Priorities 改进优先级页
type Priorities struct {
	Available     bool            `json:"available"`
	Source        string          `json:"source,omitempty"`
	Shares        []PriorityShare `json:"shares"`
	TopPriority   string          `json:"top_priority,omitempty"`
	TopPercentage float64         `json:"top_percentage"`
	ByFaculty     *Matrix         `json:"by_faculty"`
	ActionPlan    []ActionItem    `json:"action_plan"`
}

// BuildPriorities 优先级分布、首要优先级、院系×优先级矩阵和前三项行动计划
// 计数为空或全为0时Available为false
func BuildPriorities(s *Snapshot, sel Selection) Priorities {
	dff := s.Filtered(sel)
	cols := s.Meta.PriorityCols
	pr := Priorities{Shares: []PriorityShare{}, ActionPlan: []ActionItem{}}

	var counts []LabelCount
	switch {
	case len(cols) > 0:
		counts = OneHotCounts(dff, cols, s.priorityLabel)
		pr.Source = SourceOneHot
	case utils.HasColumn(dff, ColPriority):
		counts = ValueCounts(dff.Col(ColPriority))
		pr.Source = SourceSingular
	}

	total := TotalCount(counts)
	if total == 0 {
		return pr
	}
	pr.Available = true

	for _, c := range counts {
		pr.Shares = append(pr.Shares, PriorityShare{
			Priority:   c.Label,
			Count:      c.Count,
			Percentage: round(float64(c.Count)/float64(total)*100, 1),
		})
	}
	pr.TopPriority = pr.Shares[0].Priority
	pr.TopPercentage = pr.Shares[0].Percentage

	if len(s.Meta.FacultyCols) > 0 && len(cols) > 0 {
		pr.ByFaculty = facultyMatrix(s, cols, s.priorityLabel)
	}

	pr.ActionPlan = ActionPlan(pr.Shares)
	return pr
}

// ActionPlan 为排名前三的优先级生成行动计划，shares需已按票数降序
func ActionPlan(shares []PriorityShare) []ActionItem {
	out := []ActionItem{}
	for i, sh := range shares {
		if i >= actionPlanSize {
			break
		}
		out = append(out, ActionItem{
			Rank:           i + 1,
			Priority:       sh.Priority,
			Urgency:        urgencies[i],
			Count:          sh.Count,
			Percentage:     sh.Percentage,
			Recommendation: Recommend(sh.Priority),
		})
	}
	return out
}

// Recommend 根据优先级名称中的关键字选择改进建议
func Recommend(priority string) string {
	name := fold(priority)
	for _, r := range recommendations {
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) {
				return r.text
			}
		}
	}
	return defaultRecommendation
}
