package report

import (
	"fmt"
	"io"
	"strconv"

	"SiamikDashboard/src/processor"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
)

// labelWidth 问卷选项标签在终端中的最大显示宽度
const labelWidth = 48

// Render 把各页面的核心表格输出到w
func Render(w io.Writer, s *processor.Snapshot, sel processor.Selection) {
	fmt.Fprintf(w, "SIAMIK Dashboard  faculty=%s prodi=%s\n", sel.Faculty, sel.Program)
	for _, warn := range s.Warnings {
		fmt.Fprintf(w, "WARNING: %s\n", warn)
	}

	renderQuickStats(w, processor.BuildQuickStats(s, sel))
	renderDistribution(w, processor.BuildOverview(s, sel).FacultyDistribution)
	renderPerformance(w, processor.BuildPerformance(s, sel))
	renderProblems(w, processor.BuildProblems(s, sel))
	renderPriorities(w, processor.BuildPriorities(s, sel))
}

func renderQuickStats(w io.Writer, qs processor.QuickStats) {
	section(w, "Ringkasan")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Total Responden", strconv.Itoa(qs.TotalRespondents)})
	table.Append([]string{"Rata-rata Kepuasan", number(qs.AvgSatisfaction, 2)})
	table.Append([]string{"Rata-rata Kemudahan", number(qs.AvgEase, 2)})
	table.Append([]string{"Kehilangan Mata Kuliah (%)", number(qs.LostCourseRate, 1)})
	table.Render()
}

func renderDistribution(w io.Writer, counts []processor.LabelCount) {
	section(w, "Distribusi Fakultas")
	if len(counts) == 0 {
		fmt.Fprintln(w, "Data fakultas tidak tersedia")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Fakultas", "Responden"})
	for _, c := range counts {
		table.Append([]string{truncate(c.Label), strconv.Itoa(c.Count)})
	}
	table.Render()
}

func renderPerformance(w io.Writer, perf processor.Performance) {
	section(w, "Performa Sistem")
	if len(perf.Summary) == 0 {
		fmt.Fprintln(w, "Metrik performa tidak tersedia")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Mean", "Median", "Std"})
	for _, m := range perf.Summary {
		table.Append([]string{m.Metric, number(m.Mean, 2), number(m.Median, 2), number(m.StdDev, 2)})
	}
	table.Render()
}

func renderProblems(w io.Writer, p processor.Problems) {
	section(w, "Analisis Masalah")
	if !p.Available {
		fmt.Fprintln(w, "Data masalah utama tidak tersedia")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Masalah", "Jumlah", "Kepuasan", "Severity"})
	for _, sev := range p.Severity {
		table.Append([]string{
			truncate(sev.Problem),
			strconv.Itoa(sev.Count),
			number(sev.AvgSatisfaction, 2),
			strconv.FormatFloat(sev.Severity, 'f', 2, 64),
		})
	}
	table.Render()
}

func renderPriorities(w io.Writer, p processor.Priorities) {
	section(w, "Prioritas Perbaikan")
	if !p.Available {
		fmt.Fprintln(w, "Data prioritas tidak tersedia")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Prioritas", "Urgensi", "%", "Rekomendasi"})
	for _, item := range p.ActionPlan {
		table.Append([]string{
			strconv.Itoa(item.Rank),
			truncate(item.Priority),
			item.Urgency,
			strconv.FormatFloat(item.Percentage, 'f', 1, 64),
			truncate(item.Recommendation),
		})
	}
	table.Render()
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n== %s ==\n", title)
}

func truncate(s string) string {
	return runewidth.Truncate(s, labelWidth, "...")
}

func number(v *float64, places int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', places, 64)
}
