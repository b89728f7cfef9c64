package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/zalepa/unidash/dashboard"
)

// Report implements the "report" subcommand: render every catalog metric to
// its own PDF and merge them into one document.
func Report(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	common := addCommonFlags(fs)
	out := fs.String("out", "report.pdf", "output PDF file path")
	var periods listFlag
	fs.Var(&periods, "period", "survey year to include; repeatable or comma-separated (default all)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: unidash report [dir] [--out report.pdf] [--period 2024]\n\nWrite one PDF covering every metric.\n\nFlags:\n")
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

	tmp, err := os.MkdirTemp("", "unidash-report-")
	if err != nil {
		fatal("error: %v", err)
	}
	defer os.RemoveAll(tmp)

	parts, err := renderReportParts(a.svc, periods, tmp, a.log)
	if err != nil {
		fatal("error: %v", err)
	}
	if len(parts) == 0 {
		fatal("no metric could be rendered")
	}

	if err := mergePDFs(parts, *out); err != nil {
		fatal("error merging PDFs: %v", err)
	}
	pages, err := api.PageCountFile(*out)
	if err != nil {
		fatal("error reading %s: %v", *out, err)
	}
	fmt.Printf("wrote %s (%d metrics, %d pages)\n", *out, len(parts), pages)
}

// renderReportParts writes one PDF per metric into dir and returns their
// paths in catalog order. Metrics whose data cannot be loaded are skipped
// with their notices printed.
func renderReportParts(svc *dashboard.Service, periods []string, dir string, log *zap.Logger) ([]string, error) {
	var parts []string
	for i, m := range svc.Metrics() {
		v := svc.Render(dashboard.Selection{Metric: m.Label, Periods: periods})
		if v.Failed() {
			printNotices(v)
			log.Warn("metric skipped", zap.String("metric", m.Label), zap.Int("notices", len(v.Notices)))
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%02d.pdf", i))
		if err := renderPDF(path, v); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", m.Label, err)
		}
		parts = append(parts, path)
	}
	return parts, nil
}

func mergePDFs(inFiles []string, outFile string) error {
	return api.MergeCreateFile(inFiles, outFile, false, model.NewDefaultConfiguration())
}
