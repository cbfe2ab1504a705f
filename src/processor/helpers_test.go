package processor

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"SiamikDashboard/src/config"
	"SiamikDashboard/src/datasource/file"

	"github.com/go-gota/gota/dataframe"
)

// frame 把记录写成csv再用正式的加载器读回，保证列类型推断与线上一致
func frame(t *testing.T, records [][]string) dataframe.DataFrame {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	df, err := file.NewLoader("").Load(path)
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return df
}

func column(df dataframe.DataFrame, name string) []string {
	s := df.Col(name)
	out := make([]string, s.Len())
	for i := range out {
		if e := s.Elem(i); e.IsNA() {
			out[i] = "<NA>"
		} else {
			out[i] = e.String()
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

// surveyFixture 两个院系、两个问题、两个优先级的转换后数据以及对应的原始数据
func surveyFixture(t *testing.T) *Snapshot {
	t.Helper()
	dcfg := config.DefaultDataConfig()
	d := dcfg.Detection
	rc := dcfg.RawColumns

	transformed := frame(t, [][]string{
		{
			"Fakultas_Teknik", "Fakultas_Ekonomi", "Prodi_Informatika", "Prodi_Akuntansi",
			d.ProblemLabel + "Server lambat", d.ProblemLabel + "Slot penuh",
			d.PriorityLabel + "Kecepatan server", d.PriorityLabel + "Notifikasi",
			"std_" + rc.Satisfaction, d.LostLabelColumn,
		},
		{"1", "0", "1", "0", "1", "0", "1", "0", "2", "Ya"},
		{"0", "1", "0", "1", "0", "1", "0", "1", "4", "Tidak"},
		{"1", "0", "1", "0", "1", "1", "1", "0", "3", "Ya"},
		{"0", "1", "0", "1", "0", "0", "1", "0", "5", "Tidak"},
	})

	raw := frame(t, [][]string{
		{rc.Faculty, rc.Program, rc.Ease, rc.Satisfaction, rc.Login, rc.AccWait, rc.Lost},
		{"Teknik", "Informatika", "4", "2", "10", "30", "Ya"},
		{"Ekonomi", "Akuntansi", "3", "4", "5", "60", "Tidak"},
		{"Teknik", "Informatika", "5", "3", "15", "90", "ya"},
		{"teknik ", "Informatika", "2", "5", "20", "", "Tidak"},
	})

	return NewSnapshot(raw, transformed, dcfg)
}
