package processor

import (
	"sort"

	"SiamikDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// 计数来源
const (
	SourceOneHot   = "one_hot"
	SourceSingular = "singular"
)

// ProblemSeverity 某个问题的报告数、报告者平均满意度和严重度
type ProblemSeverity struct {
	Problem         string   `json:"problem"`
	Count           int      `json:"count"`
	AvgSatisfaction *float64 `json:"avg_satisfaction"`
	Severity        float64  `json:"severity"`
}

// Matrix 行为inner组、列为院系的百分比矩阵
type Matrix struct {
	Rows    []string    `json:"rows"`
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// Problems 常见问题页
type Problems struct {
	Available bool              `json:"available"`
	Source    string            `json:"source,omitempty"`
	Counts    []LabelCount      `json:"counts"`
	Severity  []ProblemSeverity `json:"severity"`
	ByFaculty *Matrix           `json:"by_faculty"`
}

// BuildProblems 问题频次、严重度排名以及院系×问题百分比矩阵
// 没有问题one-hot组时退回main_problem的取值计数
func BuildProblems(s *Snapshot, sel Selection) Problems {
	dff := s.Filtered(sel)
	cols := s.Meta.ProblemCols
	p := Problems{Counts: []LabelCount{}, Severity: []ProblemSeverity{}}

	if len(cols) == 0 {
		if utils.HasColumn(dff, ColMainProblem) {
			p.Counts = ValueCounts(dff.Col(ColMainProblem))
			p.Source = SourceSingular
		}
		p.Available = len(p.Counts) > 0
		return p
	}

	p.Source = SourceOneHot
	p.Counts = OneHotCounts(dff, cols, s.problemLabel)
	p.Severity = severityTable(dff, cols, s.problemLabel, TotalCount(p.Counts))
	p.Available = true

	if len(s.Meta.FacultyCols) > 0 {
		p.ByFaculty = facultyMatrix(s, cols, s.problemLabel)
	}
	return p
}

// severityTable 按严重度降序
func severityTable(df dataframe.DataFrame, cols []string, label Label, totalReports int) []ProblemSeverity {
	var satisfaction []float64
	if utils.HasColumn(df, ColSatisfaction) {
		satisfaction = ToFloats(df.Col(ColSatisfaction))
	}

	out := make([]ProblemSeverity, 0, len(cols))
	for _, c := range cols {
		mask := TruthyMask(df.Col(c))
		count := countTrue(mask)

		row := ProblemSeverity{Problem: label(c), Count: count}
		mean, ok := MeanOfSubset(satisfaction, mask)
		if ok {
			row.AvgSatisfaction = rounded(mean)
		}
		row.Severity = round(SeverityScore(mean, ok, count, totalReports), 3)
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Severity > out[j].Severity })
	return out
}

// facultyMatrix 在完整数据上计算每个院系内各列的选中比例
func facultyMatrix(s *Snapshot, inner []string, label Label) *Matrix {
	m := &Matrix{Rows: make([]string, len(inner)), Columns: make([]string, len(s.Meta.FacultyCols))}
	for i, c := range inner {
		m.Rows[i] = label(c)
	}
	for j, c := range s.Meta.FacultyCols {
		m.Columns[j] = s.facultyLabel(c)
	}
	m.Values = PercentageBreakdown(s.Canonical, s.Meta.FacultyCols, inner)
	for _, row := range m.Values {
		for j := range row {
			row[j] = round(row[j], 3)
		}
	}
	return m
}
