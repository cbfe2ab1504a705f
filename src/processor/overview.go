package processor

import (
	"strings"

	"SiamikDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// previewRows 原始数据预览行数
const previewRows = 10

// lostAnswers 原始数据中表示"失去过课程"的回答(小写、去空白后比较)
var lostAnswers = map[string]bool{"ya": true, "yes": true, "true": true, "1": true}

// QuickStats 侧边栏快速统计
type QuickStats struct {
	TotalRespondents int      `json:"total_respondents"`
	AvgSatisfaction  *float64 `json:"avg_satisfaction"`
	AvgEase          *float64 `json:"avg_ease"`
	LostCourseRate   *float64 `json:"lost_course_rate"`
}

// Table 表格预览
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Overview 概览页
type Overview struct {
	TotalRespondents    int             `json:"total_respondents"`
	LostCourseRate      *float64        `json:"lost_course_rate"`
	AvgLoginMinutes     *float64        `json:"avg_login_minutes"`
	AvgAccWaitMinutes   *float64        `json:"avg_acc_wait_minutes"`
	Preview             Table           `json:"preview"`
	Statistics          []ColumnSummary `json:"statistics"`
	FacultyDistribution []LabelCount    `json:"faculty_distribution"`
}

// BuildQuickStats 优先使用原始数据，原始列不存在时退回规范表
func BuildQuickStats(s *Snapshot, sel Selection) QuickStats {
	raw := s.FilteredRaw(sel)
	dff := s.Filtered(sel)
	rc := s.dcfg.RawColumns

	qs := QuickStats{TotalRespondents: raw.Nrow()}

	if utils.HasColumn(raw, rc.Satisfaction) {
		qs.AvgSatisfaction = columnMean(raw, rc.Satisfaction)
	} else {
		qs.AvgSatisfaction = columnMean(dff, ColSatisfaction)
	}

	if utils.HasColumn(raw, rc.Ease) {
		qs.AvgEase = columnMean(raw, rc.Ease)
	} else {
		qs.AvgEase = columnMean(dff, ColEase)
	}

	if utils.HasColumn(raw, rc.Lost) {
		qs.LostCourseRate = lostRate(raw.Col(rc.Lost))
	} else {
		qs.LostCourseRate = booleanRate(dff, ColLostCourses)
	}
	return qs
}

// BuildOverview 概览页：关键指标、原始数据预览、描述性统计和院系分布
func BuildOverview(s *Snapshot, sel Selection) Overview {
	raw := s.FilteredRaw(sel)
	dff := s.Filtered(sel)
	rc := s.dcfg.RawColumns

	ov := Overview{
		TotalRespondents:  raw.Nrow(),
		LostCourseRate:    booleanRate(dff, ColLostCourses),
		AvgLoginMinutes:   columnMean(raw, rc.Login),
		AvgAccWaitMinutes: columnMean(raw, rc.AccWait),
		Preview:           PreviewTable(utils.Head(raw, previewRows)),
		Statistics:        Describe(dff),
	}

	if len(s.Meta.FacultyCols) > 0 {
		ov.FacultyDistribution = OneHotCounts(s.Canonical, s.Meta.FacultyCols, s.facultyLabel)
	} else if utils.HasColumn(s.Canonical, ColFaculty) {
		ov.FacultyDistribution = ValueCounts(s.Canonical.Col(ColFaculty))
	} else {
		ov.FacultyDistribution = []LabelCount{}
	}
	return ov
}

// PreviewTable 把DataFrame转换为字符串表格，缺失值为空串
func PreviewTable(df dataframe.DataFrame) Table {
	t := Table{Columns: df.Names(), Rows: make([][]string, df.Nrow())}
	if t.Columns == nil {
		t.Columns = []string{}
	}
	columns := make([]series.Series, len(t.Columns))
	for j, name := range t.Columns {
		columns[j] = df.Col(name)
	}
	for i := range t.Rows {
		row := make([]string, len(columns))
		for j, col := range columns {
			if e := col.Elem(i); !e.IsNA() {
				row[j] = e.String()
			}
		}
		t.Rows[i] = row
	}
	return t
}

// columnMean 列不存在或没有可用数值时返回nil
func columnMean(df dataframe.DataFrame, col string) *float64 {
	if col == "" || !utils.HasColumn(df, col) {
		return nil
	}
	if m, ok := Mean(ToFloats(df.Col(col))); ok {
		return finite(m)
	}
	return nil
}

// booleanRate 布尔列的均值×100
func booleanRate(df dataframe.DataFrame, col string) *float64 {
	if !utils.HasColumn(df, col) || df.Nrow() == 0 {
		return nil
	}
	if m, ok := Mean(Indicators(df.Col(col))); ok {
		return finite(m * 100)
	}
	return nil
}

// lostRate 原始回答为ya/yes/true/1的比例×100，缺失回答计入分母
func lostRate(s series.Series) *float64 {
	if s.Len() == 0 {
		return nil
	}
	yes := 0
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		if lostAnswers[fold(strings.TrimSpace(e.String()))] {
			yes++
		}
	}
	return finite(float64(yes) / float64(s.Len()) * 100)
}
