package processor

import (
	"sort"
	"strings"

	"SiamikDashboard/src/config"
	"SiamikDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 规范化后的列名
const (
	ColFaculty      = "faculty"
	ColProgram      = "study_program"
	ColMainProblem  = "main_problem"
	ColPriority     = "improvement_priority"
	ColLostCourses  = "lost_courses"
	ColLostLabel    = "lost_courses_lbl"
	ColEase         = "ease_of_access_std"
	ColLoginStd     = "login_duration_std"
	ColLoginLog     = "login_duration_log"
	ColLoginErrors  = "login_errors_std"
	ColAccStd       = "acc_wait_std"
	ColAccLog       = "acc_wait_log"
	ColSatisfaction = "overall_satisfaction_std"
	ColQuality      = "system_quality_std"
)

// naValue gota把字符串"NaN"视为缺失值
const naValue = "NaN"

// Strategy 派生字段的生成方式
type Strategy string

const (
	StrategyOneHotMax  Strategy = "one_hot_max"
	StrategyOneHotScan Strategy = "one_hot_scan"
	StrategySingular   Strategy = "singular"
	StrategyDefault    Strategy = "default"
)

// DetectionMetadata 记录本次规范化识别出的列组和实际应用的重命名
type DetectionMetadata struct {
	FacultyCols  []string            `json:"faculty_cols"`
	ProgramCols  []string            `json:"prodi_cols"`
	ProblemCols  []string            `json:"problem_cols"`
	PriorityCols []string            `json:"priority_cols"`
	Renamed      map[string]string   `json:"renamed"`
	Strategies   map[string]Strategy `json:"strategies"`
	Sources      map[string]string   `json:"sources"` // 派生字段 -> 复制/转换来源列
}

// EmptyMetadata 空表对应的元数据
func EmptyMetadata() DetectionMetadata {
	return DetectionMetadata{
		FacultyCols:  []string{},
		ProgramCols:  []string{},
		ProblemCols:  []string{},
		PriorityCols: []string{},
		Renamed:      map[string]string{},
		Strategies:   map[string]Strategy{},
		Sources:      map[string]string{},
	}
}

// Normalizer 把问卷导出表转换为规范表
type Normalizer struct {
	dcfg  *config.DataConfig
	rules []DetectionRule
}

// NewNormalizer 根据数据配置创建规范化器
func NewNormalizer(dcfg *config.DataConfig) *Normalizer {
	return &Normalizer{
		dcfg:  dcfg,
		rules: DefaultRules(dcfg.Detection),
	}
}

// Normalize 重命名已知列，解码各个one-hot组，派生faculty、study_program、
// main_problem、improvement_priority和lost_courses列
// 任何缺失或格式异常的列都有对应的降级值，不返回错误
func (n *Normalizer) Normalize(raw dataframe.DataFrame) (dataframe.DataFrame, DetectionMetadata) {
	meta := EmptyMetadata()
	if raw.Err != nil || raw.Nrow() == 0 || raw.Ncol() == 0 {
		return dataframe.New(), meta
	}

	df := raw.Copy()
	unknown := n.dcfg.Labels.Unknown
	d := n.dcfg.Detection

	// 1. 重命名
	df, meta.Renamed = n.rename(df)

	// 2. 识别列组
	groups := DetectGroups(df.Names(), n.rules)
	meta.FacultyCols = groups[GroupFaculty]
	meta.ProgramCols = groups[GroupProgram]
	meta.ProblemCols = groups[GroupProblem]
	meta.PriorityCols = groups[GroupPriority]
	names := df.Names()

	// 3. 院系与专业：未选中时为Unknown
	facultyLabel := func(c string) string { return stripPrefixFold(c, d.FacultyPrefix) }
	fac, strategy, source := n.categorical(df, names, meta.FacultyCols, facultyLabel, d.FacultyKeywords, "", unknown, unknown)
	df = df.Mutate(series.New(fac, series.String, ColFaculty))
	n.record(&meta, ColFaculty, strategy, source)

	programLabel := func(c string) string { return stripPrefixFold(c, d.ProgramPrefix) }
	prog, strategy, source := n.categorical(df, names, meta.ProgramCols, programLabel, d.ProgramKeywords, "", unknown, unknown)
	df = df.Mutate(series.New(prog, series.String, ColProgram))
	n.record(&meta, ColProgram, strategy, source)

	// 4. 主要问题与改进优先级：未选中时为缺失值
	problemLabel := func(c string) string { return replaceAll(c, d.ProblemLabel) }
	var problems []string
	if len(meta.ProblemCols) > 0 {
		results, s := DecodeOneHot(df, meta.ProblemCols, problemLabel)
		problems, strategy = Values(results, naValue), s
	} else {
		problems, strategy = constant(df.Nrow(), naValue), StrategyDefault
	}
	df = df.Mutate(series.New(problems, series.String, ColMainProblem))
	n.record(&meta, ColMainProblem, strategy, "")

	priorityLabel := func(c string) string { return replaceAll(c, d.PriorityLabel) }
	prio, strategy, source := n.categorical(df, names, meta.PriorityCols, priorityLabel, d.PriorityAltWords, d.PriorityAltExact, naValue, naValue)
	df = df.Mutate(series.New(prio, series.String, ColPriority))
	n.record(&meta, ColPriority, strategy, source)

	// 5. 是否因名额已满失去课程
	lost, source := n.lostCourses(df)
	df = df.Mutate(series.New(lost, series.Bool, ColLostCourses))
	if source == "" {
		n.record(&meta, ColLostCourses, StrategyDefault, "")
	} else {
		n.record(&meta, ColLostCourses, StrategySingular, source)
	}

	return df, meta
}

// rename 只应用源列存在且目标列不存在的映射
func (n *Normalizer) rename(df dataframe.DataFrame) (dataframe.DataFrame, map[string]string) {
	mapping := n.dcfg.RenameMap()
	sources := make([]string, 0, len(mapping))
	for src := range mapping {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	applied := make(map[string]string)
	for _, src := range sources {
		dst := mapping[src]
		if src == dst || !utils.HasColumn(df, src) || utils.HasColumn(df, dst) {
			continue
		}
		df = df.Rename(dst, src)
		applied[src] = dst
	}
	return df, applied
}

// categorical 先尝试one-hot组，其次复制名称匹配的单列，最后使用默认值
func (n *Normalizer) categorical(
	df dataframe.DataFrame,
	names, cols []string,
	label Label,
	keywords []string,
	exact string,
	missing, fallback string,
) ([]string, Strategy, string) {
	if len(cols) > 0 {
		results, strategy := DecodeOneHot(df, cols, label)
		return Values(results, missing), strategy, ""
	}

	if col, ok := FindColumn(names, keywords, exact); ok {
		s := df.Col(col)
		out := make([]string, s.Len())
		for i := range out {
			if e := s.Elem(i); e.IsNA() {
				out[i] = fallback
			} else {
				out[i] = e.String()
			}
		}
		return out, StrategySingular, col
	}

	return constant(df.Nrow(), fallback), StrategyDefault, ""
}

// lostCourses 依次尝试重命名后的标签列、长题目标签列、原始题目列
func (n *Normalizer) lostCourses(df dataframe.DataFrame) ([]bool, string) {
	candidates := []string{ColLostLabel, n.dcfg.Detection.LostLabelColumn, n.dcfg.RawColumns.Lost}
	for _, c := range candidates {
		if c != "" && utils.HasColumn(df, c) {
			return CoerceBool(df.Col(c)), c
		}
	}
	return make([]bool, df.Nrow()), ""
}

func (n *Normalizer) record(meta *DetectionMetadata, field string, s Strategy, source string) {
	meta.Strategies[field] = s
	if source != "" {
		meta.Sources[field] = source
	}
}

func constant(n int, v string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// replaceAll 删除列名中出现的所有label
func replaceAll(s, label string) string {
	if label == "" {
		return s
	}
	return strings.ReplaceAll(s, label, "")
}
