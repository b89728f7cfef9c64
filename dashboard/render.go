// Package dashboard runs one render cycle of the metrics dashboard: resolve
// and load the selected metric workbook, filter and normalize it, and build
// the per-institution and per-category views. Failures in one view become
// notices; they never abort the others.
package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zalepa/unidash/sheet"
	"github.com/zalepa/unidash/univ"
)

// FallbackPeriods are offered when a workbook has no period values.
var FallbackPeriods = []string{"2021", "2022", "2023", "2024"}

// Level grades a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a message for the user about a view that could not be built.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Selection is the user's filter state. Empty Periods or Institutions mean
// all of them.
type Selection struct {
	Metric       string
	Periods      []string
	Institutions []string
}

// View is the result of one render.
type View struct {
	Metric               string              `json:"metric"`
	CSVName              string              `json:"csvName"`
	Periods              []string            `json:"periods"`
	SelectedPeriods      []string            `json:"selectedPeriods"`
	Institutions         []string            `json:"institutions"`
	SelectedInstitutions []string            `json:"selectedInstitutions"`
	Table                *sheet.Table        `json:"table,omitempty"`
	InstitutionSeries    []Series            `json:"institutionSeries"`
	CategorySeries       []Series            `json:"categorySeries"`
	CategoryMeans        []univ.CategoryMean `json:"categoryMeans"`
	Export               *sheet.Table        `json:"-"`
	CSV                  []byte              `json:"-"`
	Notices              []Notice            `json:"notices"`
}

func (v *View) notify(level Level, format string, args ...any) {
	v.Notices = append(v.Notices, Notice{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Failed reports whether the render stopped before producing a table.
func (v *View) Failed() bool {
	return v.Table == nil
}

// Options configures a Service. Zero fields get defaults.
type Options struct {
	DataDir    string
	CodePath   string
	Metrics    []Metric
	Normalizer *univ.Normalizer
	Tables     *sheet.Cache[*sheet.Table]
	Codes      *sheet.Cache[*univ.CodeTable]
	Logger     *zap.Logger
}

// Service renders views. It is safe for concurrent use; the only shared
// state is the pair of read-through caches.
type Service struct {
	dataDir  string
	codePath string
	metrics  []Metric
	norm     *univ.Normalizer
	tables   *sheet.Cache[*sheet.Table]
	codes    *univ.CodeTableLoader
	log      *zap.Logger
}

// NewService builds a Service from opts.
func NewService(opts Options) *Service {
	if opts.Metrics == nil {
		opts.Metrics = DefaultMetrics
	}
	if opts.Normalizer == nil {
		opts.Normalizer = univ.Default()
	}
	if opts.Tables == nil {
		opts.Tables = sheet.NewCache[*sheet.Table]()
	}
	if opts.Codes == nil {
		opts.Codes = sheet.NewCache[*univ.CodeTable]()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		dataDir:  opts.DataDir,
		codePath: opts.CodePath,
		metrics:  opts.Metrics,
		norm:     opts.Normalizer,
		tables:   opts.Tables,
		codes:    univ.NewCodeTableLoader(opts.Normalizer, opts.Codes),
		log:      opts.Logger,
	}
}

// Metrics returns the catalog.
func (s *Service) Metrics() []Metric {
	return append([]Metric(nil), s.metrics...)
}

// Metric returns the catalog entry for label, falling back to the first
// entry when label is empty or unknown.
func (s *Service) Metric(label string) (Metric, bool) {
	for _, m := range s.metrics {
		if m.Label == label {
			return m, true
		}
	}
	if len(s.metrics) == 0 {
		return Metric{}, false
	}
	return s.metrics[0], true
}

// Normalizer returns the name normalizer in use.
func (s *Service) Normalizer() *univ.Normalizer { return s.norm }

// LoadMetricTable resolves and loads the raw workbook for m.
func (s *Service) LoadMetricTable(m Metric, periods []string) (*sheet.Table, string, error) {
	path, err := resolveMetricFile(s.dataDir, m, periods)
	if err != nil {
		return nil, path, err
	}
	tbl, err := s.tables.Load(path, sheet.ReadXLSX)
	return tbl, path, err
}

// LoadCodeTable loads the classification table. found is false when the
// workbook does not exist; any other stat failure is reported by the load.
func (s *Service) LoadCodeTable() (ct *univ.CodeTable, found bool, err error) {
	if _, err := os.Stat(s.codePath); errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	ct, err = s.codes.Load(s.codePath)
	return ct, true, err
}

// Render runs one full cycle for sel.
func (s *Service) Render(sel Selection) *View {
	start := time.Now()
	m, ok := s.Metric(sel.Metric)
	v := &View{Metric: m.Label, CSVName: m.Label + ".csv"}
	if !ok {
		v.notify(LevelError, "no metrics are configured")
		return v
	}

	defer func() {
		s.log.Debug("render",
			zap.String("metric", m.Label),
			zap.Int("periods", len(v.SelectedPeriods)),
			zap.Int("institutions", len(v.SelectedInstitutions)),
			zap.Int("notices", len(v.Notices)),
			zap.Duration("elapsed", time.Since(start)))
	}()

	tbl, path, err := s.LoadMetricTable(m, sel.Periods)
	switch {
	case errors.Is(err, ErrDataDirUnset), errors.Is(err, ErrDataDirMissing):
		v.notify(LevelError, "%v", err)
		s.log.Warn("data directory unavailable", zap.String("dir", s.dataDir), zap.Error(err))
		return v
	case errors.Is(err, ErrFileNotFound):
		v.notify(LevelError, "%s could not be found; check that it exists at %s", m.File, path)
		return v
	case err != nil:
		v.notify(LevelError, "%s could not be read: %v", path, err)
		s.log.Error("load metric workbook", zap.String("path", path), zap.Error(err))
		return v
	}

	v.Periods = AvailablePeriods(tbl)
	v.SelectedPeriods = pick(sel.Periods, v.Periods)

	work := tbl
	if i := tbl.Index(univ.ColPeriod); i >= 0 {
		want := toSet(v.SelectedPeriods)
		work = work.Filter(func(row []string) bool {
			return want[strings.TrimSpace(row[i])]
		})
	} else {
		v.notify(LevelInfo, "the data has no '%s' column", univ.ColPeriod)
	}

	if work.Has(univ.ColInstitution) {
		work = work.MapColumn(univ.ColInstitution, s.norm.Normalize)
	} else {
		v.notify(LevelInfo, "the data has no '%s' column", univ.ColInstitution)
	}

	v.Table = work.Drop(univ.ColCode)
	v.Export = work

	var buf bytes.Buffer
	if err := work.WriteCSV(&buf); err != nil {
		v.notify(LevelWarning, "CSV export failed: %v", err)
	} else {
		v.CSV = buf.Bytes()
	}

	records := univ.Records(work, m.Label)
	s.renderInstitutions(v, work, records, sel.Institutions)
	s.renderCategories(v, work, records)
	return v
}

func (s *Service) renderInstitutions(v *View, work *sheet.Table, records []univ.MetricRecord, selected []string) {
	if work.Has(univ.ColInstitution) {
		v.Institutions = work.Unique(univ.ColInstitution)
		v.SelectedInstitutions = pick(selected, v.Institutions)
	}
	if work.Len() == 0 || !work.Has(univ.ColInstitution) || !work.Has(v.Metric) || !work.Has(univ.ColPeriod) {
		v.notify(LevelInfo, "no data for the per-institution chart")
		return
	}
	v.InstitutionSeries = institutionSeries(records, v.SelectedInstitutions)
	if len(v.InstitutionSeries) == 0 {
		v.notify(LevelInfo, "no data for the per-institution chart")
	}
}

func (s *Service) renderCategories(v *View, work *sheet.Table, records []univ.MetricRecord) {
	ct, found, err := s.LoadCodeTable()
	if !found {
		v.notify(LevelInfo, "classification file %s not found; category chart unavailable", s.codePath)
		return
	}
	if err != nil {
		v.notify(LevelWarning, "classification file could not be loaded: %v", err)
		s.log.Error("load classification table", zap.String("path", s.codePath), zap.Error(err))
		return
	}
	if !work.Has(univ.ColInstitution) {
		v.notify(LevelInfo, "the data has no '%s' column; category chart unavailable", univ.ColInstitution)
		return
	}

	rows := univ.Categorized(univ.Explode(univ.Join(records, ct)))
	if len(rows) == 0 || !work.Has(v.Metric) || !work.Has(univ.ColPeriod) {
		v.notify(LevelWarning, "no data for the category chart")
		return
	}
	v.CategoryMeans = univ.MeanByPeriod(rows)
	if len(v.CategoryMeans) == 0 {
		v.notify(LevelWarning, "no data for the category chart")
		return
	}
	v.CategorySeries = categorySeries(v.CategoryMeans)
}

// AvailablePeriods returns the distinct trimmed period values of tbl, or
// FallbackPeriods when there are none.
func AvailablePeriods(tbl *sheet.Table) []string {
	var periods []string
	if tbl.Has(univ.ColPeriod) {
		periods = tbl.MapColumn(univ.ColPeriod, strings.TrimSpace).Unique(univ.ColPeriod)
	}
	if len(periods) == 0 {
		return append([]string(nil), FallbackPeriods...)
	}
	return periods
}

// pick keeps the selected values that are available, in available order.
// An empty result means everything is selected.
func pick(selected, available []string) []string {
	want := toSet(selected)
	var out []string
	for _, a := range available {
		if want[a] {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), available...)
	}
	return out
}

// AuditNames groups the raw institution names of metric m by normalized key.
func (s *Service) AuditNames(m Metric) ([]univ.NameGroup, error) {
	tbl, _, err := s.LoadMetricTable(m, nil)
	if err != nil {
		return nil, err
	}
	if !tbl.Has(univ.ColInstitution) {
		return nil, univ.ErrNoInstitutionColumn
	}
	ct, _, err := s.LoadCodeTable()
	if err != nil {
		return nil, err
	}
	return univ.AuditNames(tbl.Column(univ.ColInstitution), s.norm, ct), nil
}
