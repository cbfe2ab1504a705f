package processor

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
)

// truthyStrings one-hot列中表示"选中"的文本值
var truthyStrings = map[string]bool{"1": true, "true": true, "True": true, "TRUE": true}

// yesStrings 是/否题中表示"是"的文本值(小写、去空白后比较)
var yesStrings = map[string]bool{"true": true, "1": true, "yes": true, "y": true, "ya": true}

// IsTruthy 判断one-hot单元格是否为选中状态
func IsTruthy(e series.Element) bool {
	if e.IsNA() {
		return false
	}
	switch e.Type() {
	case series.Int, series.Float:
		return e.Float() == 1
	case series.Bool:
		b, err := e.Bool()
		return err == nil && b
	default:
		return truthyStrings[e.String()]
	}
}

// IsYes 判断是/否题的文本回答是否为"是"
func IsYes(s string) bool {
	return yesStrings[fold(strings.TrimSpace(s))]
}

// CoerceBool 把列转换为bool：数值/布尔列直接转换，文本列按IsYes判断
func CoerceBool(s series.Series) []bool {
	out := make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		switch s.Type() {
		case series.Int, series.Float:
			out[i] = e.Float() != 0
		case series.Bool:
			b, err := e.Bool()
			out[i] = err == nil && b
		default:
			out[i] = IsYes(e.String())
		}
	}
	return out
}

// ToFloats 把列转换为float64切片，无法转换的值为NaN(对应pandas的errors='coerce')
func ToFloats(s series.Series) []float64 {
	out := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			out[i] = math.NaN()
			continue
		}
		switch s.Type() {
		case series.Int, series.Float:
			out[i] = e.Float()
		case series.Bool:
			if b, err := e.Bool(); err == nil && b {
				out[i] = 1
			}
		default:
			v, err := strconv.ParseFloat(strings.TrimSpace(e.String()), 64)
			if err != nil {
				v = math.NaN()
			}
			out[i] = v
		}
	}
	return out
}

// Indicators 把one-hot列转换为0/1，缺失值为NaN
func Indicators(s series.Series) []float64 {
	out := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		switch {
		case e.IsNA():
			out[i] = math.NaN()
		case IsTruthy(e):
			out[i] = 1
		}
	}
	return out
}

// TruthyMask 返回one-hot列的选中掩码
func TruthyMask(s series.Series) []bool {
	out := make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		out[i] = IsTruthy(s.Elem(i))
	}
	return out
}

// IsNumeric 判断列是否为数值类型
func IsNumeric(s series.Series) bool {
	return s.Type() == series.Int || s.Type() == series.Float
}
