package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalepa/unidash/dashboard"
	"github.com/zalepa/unidash/sheet"
)

// Export implements the "export" subcommand: write the filtered, normalized
// table of one metric as CSV, or as a workbook when the output ends in .xlsx.
func Export(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	common := addCommonFlags(fs)
	metric := fs.String("metric", "", "metric label (default first catalog entry)")
	out := fs.String("out", "", "output file path, .csv or .xlsx (default <metric>.csv)")
	var periods listFlag
	fs.Var(&periods, "period", "survey year to include; repeatable or comma-separated (default all)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: unidash export [dir] --metric 재학률 [--period 2024] [--out 재학률.xlsx]\n\nFlags:\n")
		fs.PrintDefaults()
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

	v := a.svc.Render(dashboard.Selection{Metric: *metric, Periods: periods})
	printNotices(v)
	if v.Failed() {
		os.Exit(1)
	}
	if *out == "" {
		*out = v.CSVName
	}
	if err := writeExport(v, *out); err != nil {
		fatal("error writing %s: %v", *out, err)
	}
	fmt.Printf("wrote %s (%d rows)\n", *out, v.Export.Len())
}

func writeExport(v *dashboard.View, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return sheet.WriteXLSX(v.Export, path)
	}
	if v.CSV == nil {
		return fmt.Errorf("no CSV export for %s", v.Metric)
	}
	return os.WriteFile(path, v.CSV, 0o644)
}
