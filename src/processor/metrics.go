package processor

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// maxSatisfaction 满意度量表的最大值
const maxSatisfaction = 5.0

// LabelCount 某个取值及其出现次数
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MeanOfSubset 计算mask选中行的均值，NaN忽略
// 没有可用的行时返回ok=false，表示"不存在"而不是0
func MeanOfSubset(values []float64, mask []bool) (float64, bool) {
	var (
		sum float64
		n   int
	)
	for i, v := range values {
		if i >= len(mask) || !mask[i] || math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// SeverityScore 问题严重度：(5 - 报告者平均满意度) × 报告数 / 总报告数
// 平均满意度不存在时为0，总报告数为0时按1计算
func SeverityScore(meanSat float64, ok bool, count, totalReports int) float64 {
	if !ok || math.IsNaN(meanSat) {
		return 0
	}
	if totalReports == 0 {
		totalReports = 1
	}
	return (maxSatisfaction - meanSat) * float64(count) / float64(totalReports)
}

// PercentageBreakdown 计算inner组在每个outer组内的选中比例(%)
// 结果按inner列为行、outer列为列；outer组没有任何行时为0
func PercentageBreakdown(df dataframe.DataFrame, outer, inner []string) [][]float64 {
	outerMasks := make([][]bool, len(outer))
	for j, c := range outer {
		outerMasks[j] = TruthyMask(df.Col(c))
	}

	out := make([][]float64, len(inner))
	for i, c := range inner {
		ind := Indicators(df.Col(c))
		out[i] = make([]float64, len(outer))
		for j := range outer {
			if mean, ok := MeanOfSubset(ind, outerMasks[j]); ok {
				out[i][j] = mean * 100
			}
		}
	}
	return out
}

// OneHotCounts 统计每个one-hot列的选中次数，按次数降序
func OneHotCounts(df dataframe.DataFrame, cols []string, label Label) []LabelCount {
	out := make([]LabelCount, 0, len(cols))
	for _, c := range cols {
		out = append(out, LabelCount{Label: label(c), Count: countTrue(TruthyMask(df.Col(c)))})
	}
	sortCounts(out)
	return out
}

// ValueCounts 统计非缺失取值的出现次数，按次数降序
func ValueCounts(s series.Series) []LabelCount {
	index := make(map[string]int)
	var out []LabelCount
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		v := e.String()
		if k, ok := index[v]; ok {
			out[k].Count++
			continue
		}
		index[v] = len(out)
		out = append(out, LabelCount{Label: v, Count: 1})
	}
	sortCounts(out)
	if out == nil {
		out = []LabelCount{}
	}
	return out
}

// TotalCount 所有计数之和
func TotalCount(counts []LabelCount) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}

// sortCounts 次数降序，次数相同时保持原有顺序
func sortCounts(counts []LabelCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
}

func countTrue(mask []bool) int {
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	return n
}
