package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/zalepa/unidash/dashboard"
	"github.com/zalepa/unidash/univ"
)

// Names implements the "names" subcommand: report which raw institution
// spellings collapse onto one normalized name, and which normalized names
// have no row in the classification table.
func Names(args []string) {
	fs := flag.NewFlagSet("names", flag.ExitOnError)
	common := addCommonFlags(fs)
	metric := fs.String("metric", "", "metric label to audit (default every catalog metric)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: unidash names [dir] [--metric 재학률] [--rules rules.yaml]\n\nAudit institution name normalization.\n\nFlags:\n")
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

	metrics := a.svc.Metrics()
	if *metric != "" {
		m, _ := a.svc.Metric(*metric)
		metrics = []dashboard.Metric{m}
	}

	if _, found, err := a.svc.LoadCodeTable(); !found {
		fmt.Fprintf(os.Stderr, "warning: classification file %s not found; every name is unmatched\n", a.cfg.CodePath())
	} else if err != nil {
		fatal("error loading %s: %v", a.cfg.CodePath(), err)
	}

	audited := 0
	for _, m := range metrics {
		groups, err := a.svc.AuditNames(m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", m.Label, err)
			continue
		}
		writeAudit(os.Stdout, m.Label, groups)
		audited++
	}
	if audited == 0 {
		os.Exit(1)
	}
}

func writeAudit(w io.Writer, label string, groups []univ.NameGroup) {
	merged := univ.Merged(groups)
	unmatched := univ.Unmatched(groups)
	fmt.Fprintf(w, "%s: %d names, %d merged, %d unmatched\n", label, len(groups), len(merged), len(unmatched))

	width := 0
	for _, g := range merged {
		width = max(width, runewidth.StringWidth(g.Key))
	}
	for _, g := range merged {
		fmt.Fprintf(w, "  %s ← %s\n", runewidth.FillRight(g.Key, width), strings.Join(quoteAll(g.Variants), ", "))
	}
	for _, g := range unmatched {
		fmt.Fprintf(w, "  unmatched: %s\n", g.Key)
	}
	fmt.Fprintln(w)
}

func quoteAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
