package processor

import (
	"math"
	"testing"
)

func TestMeanOfSubset(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		values []float64
		mask   []bool
		want   float64
		ok     bool
	}{
		{"masked rows", []float64{1, 2, 3, 4}, []bool{true, false, true, false}, 2, true},
		{"nan skipped", []float64{1, nan, 5}, []bool{true, true, true}, 3, true},
		{"empty mask", []float64{1, 2}, []bool{false, false}, 0, false},
		{"only nan selected", []float64{nan, 2}, []bool{true, false}, 0, false},
		{"no values", nil, []bool{true}, 0, false},
	}
	for _, tt := range tests {
		got, ok := MeanOfSubset(tt.values, tt.mask)
		if ok != tt.ok || (ok && !approx(got, tt.want)) {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSeverityScore(t *testing.T) {
	if got := SeverityScore(3, true, 2, 4); !approx(got, 1) {
		t.Errorf("got %v, want 1", got)
	}
	if got := SeverityScore(0, false, 10, 10); got != 0 {
		t.Errorf("absent mean: got %v, want 0", got)
	}
	if got := SeverityScore(4, true, 3, 0); !approx(got, 3) {
		t.Errorf("zero total: got %v, want 3", got)
	}

	// 平均满意度固定时，严重度随报告数单调不减
	for _, sat := range []float64{1, 2.5, 5} {
		prev := math.Inf(-1)
		for count := 0; count <= 20; count++ {
			got := SeverityScore(sat, true, count, 20)
			if got < prev {
				t.Errorf("sat=%v: severity decreased at count=%d (%v < %v)", sat, count, got, prev)
			}
			prev = got
		}
	}
}

func TestPercentageBreakdown(t *testing.T) {
	df := frame(t, [][]string{
		{"Fakultas_A", "Fakultas_B", "Fakultas_C", "P_x", "P_y"},
		{"1", "0", "0", "1", "0"},
		{"1", "0", "0", "0", "1"},
		{"0", "1", "0", "1", "1"},
		{"1", "0", "0", "1", "0"},
	})

	got := PercentageBreakdown(df, []string{"Fakultas_A", "Fakultas_B", "Fakultas_C"}, []string{"P_x", "P_y"})
	want := [][]float64{
		{200.0 / 3, 100, 0},
		{100.0 / 3, 100, 0},
	}
	for i := range want {
		for j := range want[i] {
			if math.IsNaN(got[i][j]) || !approx(got[i][j], want[i][j]) {
				t.Errorf("[%d][%d] = %v, want %v", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestValueCounts(t *testing.T) {
	df := frame(t, [][]string{
		{"id", "v"},
		{"1", "b"},
		{"2", "a"},
		{"3", ""},
		{"4", "a"},
		{"5", "c"},
	})

	got := ValueCounts(df.Col("v"))
	want := []LabelCount{{"a", 2}, {"b", 1}, {"c", 1}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if TotalCount(got) != 4 {
		t.Errorf("total = %d, want 4", TotalCount(got))
	}
}
