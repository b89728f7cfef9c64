package cmd

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/zalepa/unidash/dashboard"
)

// Viz implements the "viz" subcommand.
func Viz(args []string) {
	fs := flag.NewFlagSet("viz", flag.ExitOnError)
	common := addCommonFlags(fs)
	metric := fs.String("metric", "", "metric label (default first catalog entry)")
	var periods, institutions listFlag
	fs.Var(&periods, "period", "survey year to include; repeatable or comma-separated (default all)")
	fs.Var(&institutions, "institution", "normalized institution name; repeatable or comma-separated (default all)")
	pdfOut := fs.String("pdf", "", "output PDF file path (omit for terminal output)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: unidash viz [dir] [flags]

Show one metric per institution and per category over time.

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  unidash viz ./data --metric 재학률
  unidash viz ./data --metric 신입생충원율 --period 2023,2024
  unidash viz --dir ./data --metric 재학률 --institution 국립경국대학교
  unidash viz ./data --metric 재학률 --pdf 재학률.pdf --font NanumGothic.ttf
`)
	}
	fs.Parse(reorderArgs(args))

	if fs.NArg() > 0 {
		*common.dir = fs.Arg(0)
	}

	a, err := common.open()
	if err != nil {
		fatal("error: %v", err)
	}
	defer a.close()

	v := a.svc.Render(dashboard.Selection{Metric: *metric, Periods: periods, Institutions: institutions})
	printNotices(v)
	if v.Failed() {
		os.Exit(1)
	}

	if *pdfOut != "" {
		if err := renderPDF(*pdfOut, v); err != nil {
			fatal("error writing PDF: %v", err)
		}
		fmt.Printf("wrote %s\n", *pdfOut)
		return
	}

	writeView(os.Stdout, v)
}

// writeView prints the terminal rendering of v: a line chart when a single
// institution is shown, otherwise a sparkline table, followed by the category
// table.
func writeView(w io.Writer, v *dashboard.View) {
	title := v.Metric + " (" + strings.Join(v.SelectedPeriods, ", ") + ")"
	switch len(v.InstitutionSeries) {
	case 0:
	case 1:
		s := v.InstitutionSeries[0]
		renderChart(w, title+" - "+s.Name, s, v.SelectedPeriods)
	default:
		renderTable(w, title, "Institution", v.InstitutionSeries, v.SelectedPeriods)
	}
	if len(v.CategorySeries) > 0 {
		fmt.Fprintln(w)
		renderTable(w, v.Metric+" category means", "Category", v.CategorySeries, dashboard.Periods(v.CategorySeries))
	}
}

func renderTable(w io.Writer, title, heading string, series []dashboard.Series, periods []string) {
	maxName := runewidth.StringWidth(heading)
	for _, s := range series {
		if n := runewidth.StringWidth(s.Name); n > maxName {
			maxName = n
		}
	}
	if maxName < 10 {
		maxName = 10
	}

	nPeriods := len(periods)
	periodRange := ""
	if nPeriods > 0 {
		periodRange = fmt.Sprintf("%s to %s (%d periods)", periods[0], periods[nPeriods-1], nPeriods)
	}

	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "Trend: %s\n\n", periodRange)

	rule := strings.Repeat("─", maxName+2+10+3+nPeriods)
	fmt.Fprintf(w, "%s  %10s   %s\n", runewidth.FillRight(heading, maxName), "Latest", "Trend")
	fmt.Fprintln(w, rule)
	for _, s := range series {
		vals := s.Aligned(periods)
		fmt.Fprintf(w, "%s  %10s   %s\n", runewidth.FillRight(s.Name, maxName), formatNum(lastNonNaN(vals)), sparkline(vals))
	}
}

func lastNonNaN(vals []float64) float64 {
	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) {
			return vals[i]
		}
	}
	return math.NaN()
}

func sparkline(values []float64) string {
	blocks := []rune("▁▂▃▄▅▆▇█")
	n := len(blocks)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return strings.Repeat(" ", len(values))
	}

	spread := hi - lo
	var sb strings.Builder
	for _, v := range values {
		if math.IsNaN(v) {
			sb.WriteRune(' ')
			continue
		}
		idx := n / 2
		if spread > 0 {
			idx = min(int((v-lo)/spread*float64(n-1)), n-1)
		}
		sb.WriteRune(blocks[idx])
	}
	return sb.String()
}

// renderChart draws an ASCII line chart of s with one column per period.
func renderChart(w io.Writer, title string, s dashboard.Series, periods []string) {
	fmt.Fprintln(w, title)
	vals := s.Aligned(periods)

	var xs []string
	var ys []float64
	for i, v := range vals {
		if !math.IsNaN(v) {
			xs = append(xs, periods[i])
			ys = append(ys, v)
		}
	}
	if len(ys) == 0 {
		fmt.Fprintln(w, "(no data)")
		return
	}
	fmt.Fprintln(w)

	height := 15
	nPoints := len(ys)

	labelWidth := 10
	colWidth := max(min((100-labelWidth)/nPoints, 8), 3)

	minVal, maxVal := ys[0], ys[0]
	for _, y := range ys {
		minVal = math.Min(minVal, y)
		maxVal = math.Max(maxVal, y)
	}
	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1
		minVal -= 0.5
	}

	rowOf := func(v float64) int {
		r := int(math.Round((v - minVal) / valRange * float64(height-1)))
		return max(0, min(r, height-1))
	}

	totalWidth := nPoints * colWidth
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", totalWidth))
	}

	for i := 0; i < nPoints; i++ {
		col := i*colWidth + colWidth/2
		grid[rowOf(ys[i])][col] = '●'

		if i < nPoints-1 {
			endCol := (i+1)*colWidth + colWidth/2
			startRow, endRow := rowOf(ys[i]), rowOf(ys[i+1])
			for c := col + 1; c < endCol; c++ {
				t := float64(c-col) / float64(endCol-col)
				r := int(math.Round(float64(startRow) + t*float64(endRow-startRow)))
				if grid[r][c] == ' ' {
					grid[r][c] = '·'
				}
			}
		}
	}

	yLabels := make(map[int]string)
	for i := 0; i < 5; i++ {
		row := int(math.Round(float64(i) / 4.0 * float64(height-1)))
		yLabels[row] = formatCompact(minVal + float64(row)/float64(height-1)*valRange)
	}

	for r := height - 1; r >= 0; r-- {
		fmt.Fprintf(w, "%8s │%s\n", yLabels[r], string(grid[r]))
	}
	fmt.Fprintf(w, "%8s └%s\n", "", strings.Repeat("─", totalWidth))

	labelEvery := 1
	if colWidth < 8 {
		labelEvery = (8 + colWidth - 1) / colWidth
	}
	xLine := []byte(strings.Repeat(" ", totalWidth))
	for i := 0; i < nPoints; i += labelEvery {
		pos := max(i*colWidth+colWidth/2-len(xs[i])/2, 0)
		for j := 0; j < len(xs[i]) && pos+j < totalWidth; j++ {
			xLine[pos+j] = xs[i][j]
		}
	}
	fmt.Fprintf(w, "%8s  %s\n", "", string(xLine))
}

func formatNum(v float64) string {
	if math.IsNaN(v) {
		return "- -"
	}
	if v == float64(int64(v)) && math.Abs(v) < 1e15 {
		return formatInt(int64(v))
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatInt(v int64) string {
	s := strconv.FormatInt(v, 10)
	if v < 0 {
		return "-" + addCommas(s[1:])
	}
	return addCommas(s)
}

func addCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var sb strings.Builder
	pre := n % 3
	if pre > 0 {
		sb.WriteString(s[:pre])
		sb.WriteByte(',')
	}
	for i := pre; i < n; i += 3 {
		sb.WriteString(s[i : i+3])
		if i+3 < n {
			sb.WriteByte(',')
		}
	}
	return sb.String()
}

// formatCompact shortens axis labels: 1.2M, 45k, 7.
func formatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 0, 64) + "k"
	case abs < 10 && v != math.Trunc(v):
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}
