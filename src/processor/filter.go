package processor

import (
	"sort"
	"strings"

	"SiamikDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// Selection 侧边栏选择的院系和专业，取值为All时不过滤
type Selection struct {
	Faculty string `json:"faculty"`
	Program string `json:"prodi"`
}

// NewSelection 空值视为All
func NewSelection(faculty, program, all string) Selection {
	if strings.TrimSpace(faculty) == "" {
		faculty = all
	}
	if strings.TrimSpace(program) == "" {
		program = all
	}
	return Selection{Faculty: faculty, Program: program}
}

// Options 过滤选项：All加上去重排序后的取值
type Options struct {
	Faculties []string `json:"faculties"`
	Programs  []string `json:"prodis"`
}

// FacultyOptions 规范表中faculty列的选项
func FacultyOptions(df dataframe.DataFrame, all string) []string {
	return options(df, ColFaculty, all)
}

// ProgramOptions 规范表中study_program列的选项
func ProgramOptions(df dataframe.DataFrame, all string) []string {
	return options(df, ColProgram, all)
}

func options(df dataframe.DataFrame, col, all string) []string {
	out := []string{all}
	if !utils.HasColumn(df, col) {
		return out
	}
	seen := make(map[string]bool)
	var values []string
	s := df.Col(col)
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		v := e.String()
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return append(out, values...)
}

// FilterCanonical 按faculty和study_program精确匹配过滤，不修改原表
func FilterCanonical(df dataframe.DataFrame, sel Selection, all string) dataframe.DataFrame {
	idx := allRows(df.Nrow())
	if sel.Faculty != all && utils.HasColumn(df, ColFaculty) {
		idx = matchRows(df, ColFaculty, sel.Faculty, idx, false)
	}
	if sel.Program != all && utils.HasColumn(df, ColProgram) {
		idx = matchRows(df, ColProgram, sel.Program, idx, false)
	}
	return utils.Rows(df, idx)
}

// FilterRaw 按原始表的院系、专业列过滤
// 先精确匹配，没有任何匹配时再去空白且不区分大小写地匹配；列不存在时该维度不过滤
func FilterRaw(raw dataframe.DataFrame, sel Selection, all string, facultyCol, programCol string) dataframe.DataFrame {
	idx := allRows(raw.Nrow())
	if sel.Faculty != all && utils.HasColumn(raw, facultyCol) {
		idx = matchRowsLoose(raw, facultyCol, sel.Faculty, idx)
	}
	if sel.Program != all && utils.HasColumn(raw, programCol) {
		idx = matchRowsLoose(raw, programCol, sel.Program, idx)
	}
	return utils.Rows(raw, idx)
}

func matchRowsLoose(df dataframe.DataFrame, col, value string, rows []int) []int {
	if exact := matchRows(df, col, value, rows, false); len(exact) > 0 {
		return exact
	}
	return matchRows(df, col, value, rows, true)
}

func matchRows(df dataframe.DataFrame, col, value string, rows []int, loose bool) []int {
	s := df.Col(col)
	want := value
	if loose {
		want = fold(strings.TrimSpace(value))
	}

	out := make([]int, 0, len(rows))
	for _, i := range rows {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		got := e.String()
		if loose {
			got = fold(strings.TrimSpace(got))
		}
		if got == want {
			out = append(out, i)
		}
	}
	return out
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
