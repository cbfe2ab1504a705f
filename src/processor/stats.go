package processor

import (
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// correlationKeys 参与相关性矩阵的列名关键字
var correlationKeys = []string{"_std", "_log", "ease_of_access", "overall_satisfaction", "system_quality"}

// ColumnSummary 数值列的描述性统计，与pandas describe()的列一致
type ColumnSummary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"25%"`
	Q50    *float64 `json:"50%"`
	Q75    *float64 `json:"75%"`
	Max    *float64 `json:"max"`
}

// Bin 直方图的一个区间 [Lower, Upper)，最后一个区间包含上界
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram 等宽直方图
type Histogram struct {
	Column string   `json:"column"`
	Bins   []Bin    `json:"bins"`
	Mean   *float64 `json:"mean"`
}

// CorrelationMatrix Pearson相关系数矩阵，无法计算的位置为null
type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// NumericColumns 返回Int/Float类型的列名，顺序与表一致
func NumericColumns(df dataframe.DataFrame) []string {
	var out []string
	for _, name := range df.Names() {
		if IsNumeric(df.Col(name)) {
			out = append(out, name)
		}
	}
	return out
}

// Describe 对所有数值列做描述性统计，结果保留3位小数
func Describe(df dataframe.DataFrame) []ColumnSummary {
	out := make([]ColumnSummary, 0)
	for _, name := range NumericColumns(df) {
		out = append(out, Summarize(name, ToFloats(df.Col(name))))
	}
	return out
}

// Summarize 对单列数值做描述性统计
func Summarize(name string, values []float64) ColumnSummary {
	x := dropNaN(values)
	summary := ColumnSummary{Column: name, Count: len(x)}
	if len(x) == 0 {
		return summary
	}
	sort.Float64s(x)

	summary.Mean = rounded(stat.Mean(x, nil))
	if len(x) > 1 {
		summary.Std = rounded(stat.StdDev(x, nil))
	}
	summary.Min = rounded(x[0])
	summary.Q25 = rounded(quantile(x, 0.25))
	summary.Q50 = rounded(quantile(x, 0.5))
	summary.Q75 = rounded(quantile(x, 0.75))
	summary.Max = rounded(x[len(x)-1])
	return summary
}

// Median 非NaN值的中位数
func Median(values []float64) (float64, bool) {
	x := dropNaN(values)
	if len(x) == 0 {
		return 0, false
	}
	sort.Float64s(x)
	return quantile(x, 0.5), true
}

// Mean 非NaN值的均值
func Mean(values []float64) (float64, bool) {
	x := dropNaN(values)
	if len(x) == 0 {
		return 0, false
	}
	return stat.Mean(x, nil), true
}

// StdDev 非NaN值的样本标准差，少于两个值时不存在
func StdDev(values []float64) (float64, bool) {
	x := dropNaN(values)
	if len(x) < 2 {
		return 0, false
	}
	return stat.StdDev(x, nil), true
}

// quantile 线性插值分位数(pandas默认方法)，x必须已排序且非空
func quantile(x []float64, q float64) float64 {
	pos := q * float64(len(x)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return x[lo]
	}
	return x[lo] + (x[hi]-x[lo])*(pos-float64(lo))
}

// NewHistogram 在非NaN值的最小值和最大值之间划分nbins个等宽区间
func NewHistogram(name string, values []float64, nbins int) Histogram {
	h := Histogram{Column: name, Bins: []Bin{}}
	x := dropNaN(values)
	if len(x) == 0 || nbins <= 0 {
		return h
	}
	h.Mean = finite(stat.Mean(x, nil))

	sort.Float64s(x)
	lo, hi := floats.Min(x), floats.Max(x)
	if lo == hi {
		h.Bins = append(h.Bins, Bin{Lower: lo, Upper: hi, Count: len(x)})
		return h
	}

	dividers := floats.Span(make([]float64, nbins+1), lo, hi)
	// 上界放宽一个ulp，最大值落在最后一个区间
	dividers[nbins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, x, nil)

	h.Bins = make([]Bin, nbins)
	for i := range h.Bins {
		h.Bins[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(counts[i])}
	}
	h.Bins[nbins-1].Upper = hi
	return h
}

// CorrelationColumns 挑选参与相关性分析的数值列
func CorrelationColumns(df dataframe.DataFrame) []string {
	var out []string
	for _, name := range NumericColumns(df) {
		for _, k := range correlationKeys {
			if strings.Contains(name, k) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// Correlation 按成对完整的行计算Pearson相关系数
func Correlation(df dataframe.DataFrame, cols []string) CorrelationMatrix {
	values := make([][]float64, len(cols))
	for i, c := range cols {
		values[i] = ToFloats(df.Col(c))
	}

	m := CorrelationMatrix{Columns: append([]string{}, cols...), Values: make([][]*float64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]*float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := pairwiseCorrelation(values[i], values[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func pairwiseCorrelation(a, b []float64) *float64 {
	var x, y []float64
	for k := range a {
		if math.IsNaN(a[k]) || math.IsNaN(b[k]) {
			continue
		}
		x = append(x, a[k])
		y = append(y, b[k])
	}
	if len(x) < 2 {
		return nil
	}
	return rounded(stat.Correlation(x, y, nil))
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// finite NaN/Inf转换为nil，避免JSON序列化失败
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// rounded 保留3位小数
func rounded(v float64) *float64 {
	return finite(math.Round(v*1000) / 1000)
}

// round 按小数位数四舍五入
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
