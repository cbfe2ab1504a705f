package processor

import (
	"sort"

	"SiamikDashboard/src/utils"
)

const (
	loginBins        = 25
	loginErrorBins   = 10
	satisfactionBins = 6
)

// performanceMetrics 性能汇总表的候选指标
var performanceMetrics = []string{ColEase, ColLoginStd, ColLoginLog, ColLoginErrors, ColAccStd, ColAccLog, ColSatisfaction}

// FacultyMean 某院系的均值
type FacultyMean struct {
	Faculty string   `json:"faculty"`
	Mean    *float64 `json:"mean"`
}

// MetricSummary 性能指标的均值、中位数和标准差(保留2位小数)
type MetricSummary struct {
	Metric string   `json:"metric"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	StdDev *float64 `json:"std"`
}

// Performance 系统性能页
type Performance struct {
	LoginDuration    *Histogram      `json:"login_duration"`
	LoginErrors      *Histogram      `json:"login_errors"`
	AccWaitColumn    string          `json:"acc_wait_column,omitempty"`
	AccWaitByFaculty []FacultyMean   `json:"acc_wait_by_faculty"`
	Summary          []MetricSummary `json:"summary"`
}

// Satisfaction 满意度与相关性页
type Satisfaction struct {
	Overall     *Histogram        `json:"overall_satisfaction"`
	Ease        *Histogram        `json:"ease_of_access"`
	Correlation CorrelationMatrix `json:"correlation"`
}

// BuildPerformance 登录时长、登录错误分布，各院系ACC等待均值和汇总表
func BuildPerformance(s *Snapshot, sel Selection) Performance {
	dff := s.Filtered(sel)
	perf := Performance{AccWaitByFaculty: []FacultyMean{}, Summary: []MetricSummary{}}

	if col, ok := firstColumn(dff.Names(), ColLoginLog, ColLoginStd); ok {
		h := NewHistogram(col, ToFloats(dff.Col(col)), loginBins)
		perf.LoginDuration = &h
	}
	if utils.HasColumn(dff, ColLoginErrors) {
		h := NewHistogram(ColLoginErrors, ToFloats(dff.Col(ColLoginErrors)), loginErrorBins)
		perf.LoginErrors = &h
	}

	// 各院系ACC等待时间使用完整数据
	if col, ok := firstColumn(s.Canonical.Names(), ColAccLog, ColAccStd); ok && len(s.Meta.FacultyCols) > 0 {
		perf.AccWaitColumn = col
		perf.AccWaitByFaculty = facultyMeans(s, col)
	}

	for _, c := range performanceMetrics {
		if !utils.HasColumn(dff, c) {
			continue
		}
		m := MetricSummary{Metric: c}
		if IsNumeric(dff.Col(c)) {
			values := ToFloats(dff.Col(c))
			m.Mean = roundedOK(Mean(values))
			m.Median = roundedOK(Median(values))
			m.StdDev = roundedOK(StdDev(values))
		}
		perf.Summary = append(perf.Summary, m)
	}
	return perf
}

// BuildSatisfaction 满意度、易用性分布和相关性矩阵
func BuildSatisfaction(s *Snapshot, sel Selection) Satisfaction {
	dff := s.Filtered(sel)
	sat := Satisfaction{}
	if utils.HasColumn(dff, ColSatisfaction) {
		h := NewHistogram(ColSatisfaction, ToFloats(dff.Col(ColSatisfaction)), satisfactionBins)
		sat.Overall = &h
	}
	if utils.HasColumn(dff, ColEase) {
		h := NewHistogram(ColEase, ToFloats(dff.Col(ColEase)), satisfactionBins)
		sat.Ease = &h
	}
	sat.Correlation = Correlation(dff, CorrelationColumns(dff))
	return sat
}

// facultyMeans 跳过没有任何受访者的院系，按均值降序，均值缺失的排在最后
func facultyMeans(s *Snapshot, col string) []FacultyMean {
	df := s.Canonical
	numeric := IsNumeric(df.Col(col))
	values := ToFloats(df.Col(col))

	out := []FacultyMean{}
	for _, fcol := range s.Meta.FacultyCols {
		mask := TruthyMask(df.Col(fcol))
		if countTrue(mask) == 0 {
			continue
		}
		fm := FacultyMean{Faculty: s.facultyLabel(fcol)}
		if numeric {
			if m, ok := MeanOfSubset(values, mask); ok {
				fm.Mean = finite(m)
			}
		}
		out = append(out, fm)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Mean, out[j].Mean
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})
	return out
}

func firstColumn(names []string, candidates ...string) (string, bool) {
	for _, c := range candidates {
		if utils.Contains(names, c) {
			return c, true
		}
	}
	return "", false
}

func roundedOK(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return finite(round(v, 2))
}
