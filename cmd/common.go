package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zalepa/unidash/config"
	"github.com/zalepa/unidash/dashboard"
	"github.com/zalepa/unidash/sheet"
	"github.com/zalepa/unidash/univ"
)

// commonFlags are the data-location flags shared by every subcommand. Unset
// flags fall back to the UNIDASH_* environment.
type commonFlags struct {
	dir   *string
	codes *string
	rules *string
	font  *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		dir:   fs.String("dir", "", "directory containing metric workbooks (default $UNIDASH_DATA_DIR or .)"),
		codes: fs.String("codes", "", "classification workbook (default <dir>/"+config.DefaultCodeFile+")"),
		rules: fs.String("rules", "", "YAML file of name rewrite rules (default built-in rules)"),
		font:  fs.String("font", "", "TTF/OTF font for chart text, needed for Hangul labels"),
	}
}

// app bundles what a subcommand needs after setup.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	svc    *dashboard.Service
	tables *sheet.Cache[*sheet.Table]
	codes  *sheet.Cache[*univ.CodeTable]
}

func (f *commonFlags) open() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if *f.dir != "" {
		cfg.DataDir = *f.dir
	}
	if *f.codes != "" {
		cfg.CodeFile = *f.codes
	}
	if *f.rules != "" {
		cfg.RulesFile = *f.rules
	}
	if *f.font != "" {
		cfg.FontFile = *f.font
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	n := univ.Default()
	if cfg.RulesFile != "" {
		rules, err := univ.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		if n, err = univ.NewNormalizer(rules); err != nil {
			return nil, fmt.Errorf("rules %s: %w", cfg.RulesFile, err)
		}
		log.Info("loaded rewrite rules", zap.String("path", cfg.RulesFile), zap.Int("rules", len(rules)))
	}

	if cfg.FontFile != "" {
		if err := useFont(cfg.FontFile); err != nil {
			return nil, err
		}
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		tables: sheet.NewCache[*sheet.Table](),
		codes:  sheet.NewCache[*univ.CodeTable](),
	}
	a.svc = dashboard.NewService(dashboard.Options{
		DataDir:    cfg.DataDir,
		CodePath:   cfg.CodePath(),
		Normalizer: n,
		Tables:     a.tables,
		Codes:      a.codes,
		Logger:     log,
	})
	return a, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// listFlag collects a repeatable, comma-separable flag such as
// -period 2023 -period 2024 or -period 2023,2024.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*l = append(*l, p)
		}
	}
	return nil
}

// printNotices writes view notices to stderr, one per line.
func printNotices(v *dashboard.View) {
	for _, n := range v.Notices {
		fmt.Fprintf(os.Stderr, "%s: %s\n", n.Level, n.Message)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// reorderArgs moves positional arguments to the end so that Go's flag package
// can parse all flags regardless of where a positional argument appears.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			// Consume the next arg as the flag's value unless it looks like a flag itself.
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && !strings.Contains(args[i], "=") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
