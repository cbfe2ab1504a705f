package processor

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DecodeKind one-hot解码结果的来源
type DecodeKind int

const (
	Decoded  DecodeKind = iota // 按行取最大值得到
	Fallback                   // 逐列扫描第一个选中列得到
	Missing                    // 没有选中列
)

func (k DecodeKind) String() string {
	switch k {
	case Decoded:
		return "decoded"
	case Fallback:
		return "fallback"
	default:
		return "missing"
	}
}

// DecodeResult 单行的解码结果
type DecodeResult struct {
	Kind  DecodeKind
	Value string
}

// Label 把one-hot列名转换为取值
type Label func(col string) string

// DecodeOneHot 对一组one-hot列逐行解码
// 所有列均为数值/布尔类型时走按行最大值路径，否则逐列扫描
func DecodeOneHot(df dataframe.DataFrame, cols []string, label Label) ([]DecodeResult, Strategy) {
	if canTakeMax(df, cols) {
		return decodeMax(df, cols, label), StrategyOneHotMax
	}
	return decodeScan(df, cols, label), StrategyOneHotScan
}

func canTakeMax(df dataframe.DataFrame, cols []string) bool {
	for _, c := range cols {
		switch df.Col(c).Type() {
		case series.Int, series.Float, series.Bool:
		default:
			return false
		}
	}
	return len(cols) > 0
}

// decodeMax 取每行最大值所在的第一列；最大值不为正时视为未选中
func decodeMax(df dataframe.DataFrame, cols []string, label Label) []DecodeResult {
	values := make([][]float64, len(cols))
	for i, c := range cols {
		values[i] = df.Col(c).Float()
	}

	out := make([]DecodeResult, df.Nrow())
	for row := range out {
		best, bestIdx := math.Inf(-1), -1
		for i := range cols {
			v := values[i][row]
			if math.IsNaN(v) {
				continue
			}
			if v > best {
				best, bestIdx = v, i
			}
		}
		if bestIdx >= 0 && best > 0 {
			out[row] = DecodeResult{Kind: Decoded, Value: label(cols[bestIdx])}
		} else {
			out[row] = DecodeResult{Kind: Missing}
		}
	}
	return out
}

// decodeScan 按组内顺序返回第一个选中的列
func decodeScan(df dataframe.DataFrame, cols []string, label Label) []DecodeResult {
	columns := make([]series.Series, len(cols))
	for i, c := range cols {
		columns[i] = df.Col(c)
	}

	out := make([]DecodeResult, df.Nrow())
	for row := range out {
		out[row] = DecodeResult{Kind: Missing}
		for i, s := range columns {
			if IsTruthy(s.Elem(row)) {
				out[row] = DecodeResult{Kind: Fallback, Value: label(cols[i])}
				break
			}
		}
	}
	return out
}

// Values 把解码结果转换为列值，未选中时使用missing
func Values(results []DecodeResult, missing string) []string {
	out := make([]string, len(results))
	for i, r := range results {
		if r.Kind == Missing {
			out[i] = missing
		} else {
			out[i] = r.Value
		}
	}
	return out
}
