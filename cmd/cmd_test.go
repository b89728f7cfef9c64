package cmd

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-runewidth"

	"github.com/zalepa/unidash/dashboard"
	"github.com/zalepa/unidash/sheet"
	"github.com/zalepa/unidash/univ"
)

var testMetrics = []dashboard.Metric{
	{Label: "enrollment", File: "enrollment.xlsx"},
	{Label: "retention", File: "retention.xlsx"},
}

func writeTable(t *testing.T, path string, cols []string, rows [][]string) {
	t.Helper()
	if err := sheet.WriteXLSX(sheet.New(cols, rows), path); err != nil {
		t.Fatal(err)
	}
}

// testData writes enrollment.xlsx and codes.xlsx into a temp dir. Names
// are ASCII so charts render with the bundled fonts.
func testData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTable(t, filepath.Join(dir, "enrollment.xlsx"),
		[]string{univ.ColPeriod, univ.ColInstitution, "enrollment", univ.ColCode},
		[][]string{
			{"2023", "Alpha University", "80", "A"},
			{"2024", "Alpha University", "85", "A"},
			{"2023", "Beta University", "60", "B"},
			{"2024", "Beta University", "1,200", "B"},
		})
	writeTable(t, filepath.Join(dir, "codes.xlsx"),
		[]string{univ.ColSourceInstitution, univ.ColCompetitor, univ.ColPeerPrivate, univ.ColHome},
		[][]string{{"Alpha University", "경쟁대학", "", ""}})
	return dir
}

type testApp struct {
	dir    string
	svc    *dashboard.Service
	tables *sheet.Cache[*sheet.Table]
	codes  *sheet.Cache[*univ.CodeTable]
}

func newTestApp(t *testing.T, withCodes bool) testApp {
	t.Helper()
	a := testApp{
		dir:    testData(t),
		tables: sheet.NewCache[*sheet.Table](),
		codes:  sheet.NewCache[*univ.CodeTable](),
	}
	codePath := ""
	if withCodes {
		codePath = filepath.Join(a.dir, "codes.xlsx")
	}
	a.svc = dashboard.NewService(dashboard.Options{
		DataDir:  a.dir,
		CodePath: codePath,
		Metrics:  testMetrics,
		Tables:   a.tables,
		Codes:    a.codes,
	})
	return a
}

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		in, want []string
	}{
		{[]string{"./data", "-metric", "재학률"}, []string{"-metric", "재학률", "./data"}},
		{[]string{"-pdf=out.pdf", "./data"}, []string{"-pdf=out.pdf", "./data"}},
		{[]string{"-period", "2023", "./data", "-period", "2024"}, []string{"-period", "2023", "-period", "2024", "./data"}},
		{[]string{"-metric", "x", "--", "-odd"}, []string{"-metric", "x", "-odd"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, reorderArgs(tt.in)); diff != "" {
			t.Errorf("reorderArgs(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestListFlag(t *testing.T) {
	var l listFlag
	l.Set("2023, 2024")
	l.Set("")
	l.Set("2025")
	if diff := cmp.Diff(listFlag{"2023", "2024", "2025"}, l); diff != "" {
		t.Errorf("listFlag mismatch (-want +got):\n%s", diff)
	}
	if l.String() != "2023,2024,2025" {
		t.Errorf("String() = %q", l.String())
	}
}

func TestSparkline(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		in   []float64
		want string
	}{
		{[]float64{0, nan, 7}, "▁ █"},
		{[]float64{5, 5}, "▅▅"},
		{[]float64{nan, nan}, "  "},
		{[]float64{0, 1, 2, 3, 4, 5, 6, 7}, "▁▂▃▄▅▆▇█"},
	}
	for _, tt := range tests {
		if got := sparkline(tt.in); got != tt.want {
			t.Errorf("sparkline(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
		{123, "123"},
		{12.345, "12.3"},
		{math.NaN(), "- -"},
	}
	for _, tt := range tests {
		if got := formatNum(tt.in); got != tt.want {
			t.Errorf("formatNum(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2500000, "2.5M"},
		{45000, "45k"},
		{7, "7"},
		{2.5, "2.5"},
	}
	for _, tt := range tests {
		if got := formatCompact(tt.in); got != tt.want {
			t.Errorf("formatCompact(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderTableAlignsWideNames(t *testing.T) {
	series := []dashboard.Series{
		{Name: "국립경국대학교", Points: []dashboard.Point{{Period: "2023", Value: 85}}},
		{Name: "AlphaUniversity", Points: []dashboard.Point{{Period: "2023", Value: 1200}}},
	}
	var buf bytes.Buffer
	renderTable(&buf, "enrollment", "Institution", series, []string{"2023"})

	// Name column is as wide as the widest name, then two spaces and a
	// ten-column value.
	want := runewidth.StringWidth("AlphaUniversity") + 2 + 10
	for _, value := range []string{"85", "1,200"} {
		var line string
		for _, l := range strings.Split(buf.String(), "\n") {
			if strings.Contains(l, " "+value+" ") {
				line = l
			}
		}
		if line == "" {
			t.Fatalf("no row with %s in:\n%s", value, buf.String())
		}
		end := strings.Index(line, " "+value+" ") + 1 + len(value)
		if got := runewidth.StringWidth(line[:end]); got != want {
			t.Errorf("value %s ends at column %d, want %d", value, got, want)
		}
	}
}

func TestWriteView(t *testing.T) {
	a := newTestApp(t, true)

	var buf bytes.Buffer
	writeView(&buf, a.svc.Render(dashboard.Selection{Metric: "enrollment"}))
	out := buf.String()
	for _, want := range []string{"enrollment (2023, 2024)", "AlphaUniversity", "BetaUniversity", "1,200", "category means", string(univ.Competitor)} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	writeView(&buf, a.svc.Render(dashboard.Selection{Metric: "enrollment", Institutions: []string{"BetaUniversity"}}))
	out = buf.String()
	if !strings.Contains(out, "enrollment (2023, 2024) - BetaUniversity") || !strings.Contains(out, "●") {
		t.Errorf("single institution should draw a line chart:\n%s", out)
	}
}

func TestWriteAudit(t *testing.T) {
	groups := []univ.NameGroup{
		{Key: "OO대학교", Variants: []string{"OO 대학교", "OO대학교_제2캠퍼스"}},
		{Key: "국립경국대학교", Variants: []string{"안동대학교"}, Matched: true},
	}
	var buf bytes.Buffer
	writeAudit(&buf, "재학률", groups)
	out := buf.String()
	for _, want := range []string{
		"재학률: 2 names, 1 merged, 1 unmatched",
		`OO대학교 ← "OO 대학교", "OO대학교_제2캠퍼스"`,
		"unmatched: OO대학교",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "unmatched: 국립경국대학교") {
		t.Errorf("matched name listed as unmatched:\n%s", out)
	}
}

func TestWriteExport(t *testing.T) {
	a := newTestApp(t, false)
	v := a.svc.Render(dashboard.Selection{Metric: "enrollment", Periods: []string{"2024"}})

	xlsx := filepath.Join(t.TempDir(), "out.xlsx")
	if err := writeExport(v, xlsx); err != nil {
		t.Fatal(err)
	}
	got, err := sheet.ReadXLSX(xlsx)
	if err != nil {
		t.Fatal(err)
	}
	want := sheet.New(
		[]string{univ.ColPeriod, univ.ColInstitution, "enrollment", univ.ColCode},
		[][]string{
			{"2024", "AlphaUniversity", "85", "A"},
			{"2024", "BetaUniversity", "1,200", "B"},
		})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("xlsx export mismatch (-want +got):\n%s", diff)
	}

	csvPath := filepath.Join(t.TempDir(), v.CSVName)
	if err := writeExport(v, csvPath); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, sheet.New(records[0], records[1:])); diff != "" {
		t.Errorf("csv export mismatch (-want +got):\n%s", diff)
	}
}
