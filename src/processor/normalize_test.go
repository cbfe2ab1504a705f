package processor

import (
	"strconv"
	"testing"

	"SiamikDashboard/src/config"

	"github.com/go-gota/gota/dataframe"
)

func TestDetectGroups(t *testing.T) {
	d := config.DefaultDataConfig().Detection
	names := []string{
		"fakultas_Teknik",
		"Prodi_Informatika",
		d.ProblemLabel + "Server lambat",
		"Catatan MASALAH UTAMA lain",
		d.PriorityLabel + "Notifikasi",
		"Skor prioritas",
		"overall_satisfaction_std",
	}

	groups := DetectGroups(names, DefaultRules(d))

	tests := []struct {
		group GroupID
		want  []string
	}{
		{GroupFaculty, []string{"fakultas_Teknik"}},
		{GroupProgram, []string{"Prodi_Informatika"}},
		{GroupProblem, []string{d.ProblemLabel + "Server lambat", "Catatan MASALAH UTAMA lain"}},
		{GroupPriority, []string{d.PriorityLabel + "Notifikasi", "Skor prioritas"}},
	}
	for _, tt := range tests {
		if got := groups[tt.group]; !equalStrings(got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.group, got, tt.want)
		}
	}
}

func TestDetectGroupsNoMatches(t *testing.T) {
	groups := DetectGroups([]string{"a", "b"}, DefaultRules(config.DefaultDataConfig().Detection))
	for _, g := range []GroupID{GroupFaculty, GroupProgram, GroupProblem, GroupPriority} {
		if groups[g] == nil || len(groups[g]) != 0 {
			t.Errorf("%s: got %v, want empty non-nil slice", g, groups[g])
		}
	}
}

func TestDecodeOneHotFastPath(t *testing.T) {
	df := frame(t, [][]string{
		{"Fakultas_Engineering", "Fakultas_Business"},
		{"1", "0"},
		{"0", "1"},
		{"1", "0"},
	})
	label := func(c string) string { return stripPrefixFold(c, "Fakultas_") }

	results, strategy := DecodeOneHot(df, df.Names(), label)
	if strategy != StrategyOneHotMax {
		t.Errorf("strategy = %s, want %s", strategy, StrategyOneHotMax)
	}
	want := []string{"Engineering", "Business", "Engineering"}
	if got := Values(results, "Unknown"); !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	for i, r := range results {
		if r.Kind != Decoded {
			t.Errorf("row %d kind = %v, want decoded", i, r.Kind)
		}
	}
}

func TestDecodeOneHotScanPath(t *testing.T) {
	df := frame(t, [][]string{
		{"Fakultas_A", "Fakultas_B"},
		{"False", "TRUE"},
		{"False", "False"},
		{"True", "True"},
	})

	results, strategy := DecodeOneHot(df, df.Names(), func(c string) string { return c[len("Fakultas_"):] })
	if strategy != StrategyOneHotScan {
		t.Errorf("strategy = %s, want %s", strategy, StrategyOneHotScan)
	}

	want := []DecodeResult{
		{Kind: Fallback, Value: "B"},
		{Kind: Missing},
		{Kind: Fallback, Value: "A"},
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("row %d: got %+v, want %+v", i, results[i], want[i])
		}
	}
}

func TestNormalizeEmptyTable(t *testing.T) {
	df, meta := NewNormalizer(config.DefaultDataConfig()).Normalize(dataframe.New())
	if df.Nrow() != 0 || df.Ncol() != 0 {
		t.Errorf("dims = %dx%d, want 0x0", df.Nrow(), df.Ncol())
	}
	if len(meta.FacultyCols)+len(meta.ProgramCols)+len(meta.ProblemCols)+len(meta.PriorityCols) != 0 {
		t.Errorf("expected no detected groups, got %+v", meta)
	}
	if len(meta.Renamed) != 0 || len(meta.Strategies) != 0 {
		t.Errorf("expected empty rename/strategies, got %+v", meta)
	}
}

func TestNormalizeMissingDefaultsAreAsymmetric(t *testing.T) {
	d := config.DefaultDataConfig().Detection
	raw := frame(t, [][]string{
		{"Fakultas_Teknik", "Prodi_Informatika", d.ProblemLabel + "Server lambat", d.ProblemLabel + "Slot penuh", d.PriorityLabel + "Notifikasi"},
		{"1", "1", "1", "0", "1"},
		{"0", "0", "0", "0", "0"},
		{"1", "1", "0", "1", "0"},
	})

	df, meta := NewNormalizer(config.DefaultDataConfig()).Normalize(raw)
	if df.Nrow() != 3 {
		t.Fatalf("rows = %d, want 3", df.Nrow())
	}

	checks := []struct {
		col  string
		want []string
	}{
		{ColFaculty, []string{"Teknik", "Unknown", "Teknik"}},
		{ColProgram, []string{"Informatika", "Unknown", "Informatika"}},
		{ColMainProblem, []string{"Server lambat", "<NA>", "Slot penuh"}},
		{ColPriority, []string{"Notifikasi", "<NA>", "<NA>"}},
	}
	for _, c := range checks {
		if got := column(df, c.col); !equalStrings(got, c.want) {
			t.Errorf("%s: got %v, want %v", c.col, got, c.want)
		}
	}
	if meta.Strategies[ColFaculty] != StrategyOneHotMax {
		t.Errorf("faculty strategy = %s", meta.Strategies[ColFaculty])
	}
	if meta.Strategies[ColLostCourses] != StrategyDefault {
		t.Errorf("lost_courses strategy = %s, want default", meta.Strategies[ColLostCourses])
	}
	if got := column(df, ColLostCourses); !equalStrings(got, []string{"false", "false", "false"}) {
		t.Errorf("lost_courses = %v, want all false", got)
	}
}

func TestNormalizeSingularFallbacks(t *testing.T) {
	raw := frame(t, [][]string{
		{"Fakultas Asal", "Study Program", "Improvement Area"},
		{"Teknik", "Informatika", "Server"},
		{"", "Akuntansi", ""},
	})

	df, meta := NewNormalizer(config.DefaultDataConfig()).Normalize(raw)

	if got := column(df, ColFaculty); !equalStrings(got, []string{"Teknik", "Unknown"}) {
		t.Errorf("faculty = %v", got)
	}
	if got := column(df, ColProgram); !equalStrings(got, []string{"Informatika", "Akuntansi"}) {
		t.Errorf("study_program = %v", got)
	}
	if got := column(df, ColPriority); !equalStrings(got, []string{"Server", "<NA>"}) {
		t.Errorf("improvement_priority = %v", got)
	}
	if got := column(df, ColMainProblem); !equalStrings(got, []string{"<NA>", "<NA>"}) {
		t.Errorf("main_problem = %v", got)
	}
	if meta.Sources[ColFaculty] != "Fakultas Asal" || meta.Strategies[ColFaculty] != StrategySingular {
		t.Errorf("faculty source = %q (%s)", meta.Sources[ColFaculty], meta.Strategies[ColFaculty])
	}
	if meta.Strategies[ColMainProblem] != StrategyDefault {
		t.Errorf("main_problem strategy = %s", meta.Strategies[ColMainProblem])
	}
}

func TestNormalizeLostCourses(t *testing.T) {
	dcfg := config.DefaultDataConfig()
	tests := []struct {
		name   string
		header string
		values []string
		want   []string
	}{
		{"renamed label column", dcfg.Detection.LostLabelColumn, []string{"Ya", "Tidak", " yes ", "Y"}, []string{"true", "false", "true", "true"}},
		{"raw question column", dcfg.RawColumns.Lost, []string{"TRUE", "no", "1", ""}, []string{"true", "false", "true", "false"}},
		{"numeric column", "lost_courses_lbl", []string{"1", "0", "2", ""}, []string{"true", "false", "true", "false"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 单列空值会被csv写成空行，加一列id
			records := [][]string{{"id", tt.header}}
			for i, v := range tt.values {
				records = append(records, []string{strconv.Itoa(i), v})
			}
			df, meta := NewNormalizer(dcfg).Normalize(frame(t, records))
			if got := column(df, ColLostCourses); !equalStrings(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if meta.Sources[ColLostCourses] == "" {
				t.Error("lost_courses source not recorded")
			}
		})
	}
}

func TestNormalizeRenameIsIdempotent(t *testing.T) {
	dcfg := config.DefaultDataConfig()
	long := "std_" + dcfg.RawColumns.Satisfaction
	raw := frame(t, [][]string{
		{long, "Fakultas_Teknik"},
		{"3", "1"},
	})

	n := NewNormalizer(dcfg)
	first, meta := n.Normalize(raw)
	if meta.Renamed[long] != ColSatisfaction {
		t.Fatalf("renamed = %v", meta.Renamed)
	}

	second, meta2 := n.Normalize(first)
	if len(meta2.Renamed) != 0 {
		t.Errorf("second pass renamed %v, want nothing", meta2.Renamed)
	}
	if !equalStrings(first.Names(), second.Names()) {
		t.Errorf("columns changed: %v -> %v", first.Names(), second.Names())
	}
}

func TestNormalizeKeepsExistingTarget(t *testing.T) {
	dcfg := config.DefaultDataConfig()
	long := "std_" + dcfg.RawColumns.Satisfaction
	raw := frame(t, [][]string{
		{long, ColSatisfaction},
		{"3", "4"},
	})

	df, meta := NewNormalizer(dcfg).Normalize(raw)
	if _, ok := meta.Renamed[long]; ok {
		t.Error("rename onto an existing column should be skipped")
	}
	if got := column(df, ColSatisfaction); !equalStrings(got, []string{"4"}) {
		t.Errorf("overall_satisfaction_std = %v", got)
	}
}
