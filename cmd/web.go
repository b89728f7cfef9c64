package cmd

import (
	"bytes"
	"embed"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"mime"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zalepa/unidash/dashboard"
)

//go:embed web.html
var htmlContent embed.FS

type metadata struct {
	Metrics []labelValue `json:"metrics"`
}

type labelValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// seriesResponse is a chart aligned on one period axis; gaps are null.
type seriesResponse struct {
	Title   string       `json:"title"`
	Periods []string     `json:"periods"`
	Series  []seriesData `json:"series"`
}

type seriesData struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

type viewResponse struct {
	*dashboard.View
	InstitutionChart seriesResponse `json:"institutionChart"`
	CategoryChart    seriesResponse `json:"categoryChart"`
}

// Web implements the "web" subcommand.
func Web(args []string) {
	fs := flag.NewFlagSet("web", flag.ExitOnError)
	common := addCommonFlags(fs)
	addr := fs.String("addr", "", "listen address (default $UNIDASH_ADDR or :8080)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: unidash web [dir] [--addr :8080]\n\nStart the interactive web dashboard.\n\nFlags:\n")
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
	if *addr != "" {
		a.cfg.Addr = *addr
	}

	reg := prometheus.NewRegistry()
	m := newWebMetrics(reg, a.tables, a.codes)

	a.log.Info("serving dashboard",
		zap.String("addr", a.cfg.Addr),
		zap.String("dir", a.cfg.DataDir),
		zap.String("codes", a.cfg.CodePath()))
	fmt.Printf("serving on http://localhost%s\n", a.cfg.Addr)
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           newWebHandler(a.svc, m, reg, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		a.log.Error("server stopped", zap.Error(err))
		fatal("server error: %v", err)
	}
}

func newWebHandler(svc *dashboard.Service, m *webMetrics, gatherer prometheus.Gatherer, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	render := func(r *http.Request) *dashboard.View {
		start := time.Now()
		v := svc.Render(selectionFromQuery(r.URL.Query()))
		m.observe(v, time.Since(start))
		return v
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		data, _ := htmlContent.ReadFile("web.html")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	})

	mux.HandleFunc("GET /api/metadata", func(w http.ResponseWriter, r *http.Request) {
		var meta metadata
		for _, mt := range svc.Metrics() {
			meta.Metrics = append(meta.Metrics, labelValue{Value: mt.Label, Label: mt.Label})
		}
		writeJSON(w, log, meta)
	})

	mux.HandleFunc("GET /api/view", func(w http.ResponseWriter, r *http.Request) {
		v := render(r)
		writeJSON(w, log, viewResponse{
			View:             v,
			InstitutionChart: alignedChart(v.Metric+" by institution", v.InstitutionSeries, v.SelectedPeriods),
			CategoryChart:    alignedChart(v.Metric+" by category", v.CategorySeries, dashboard.Periods(v.CategorySeries)),
		})
	})

	mux.HandleFunc("GET /api/export.csv", func(w http.ResponseWriter, r *http.Request) {
		v := render(r)
		if v.CSV == nil {
			http.Error(w, noticeText(v), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": v.CSVName}))
		w.Write(v.CSV)
	})

	mux.HandleFunc("GET /api/chart.png", func(w http.ResponseWriter, r *http.Request) {
		v := render(r)
		series := v.InstitutionSeries
		title := v.Metric + " by institution"
		if r.URL.Query().Get("kind") == "category" {
			series = v.CategorySeries
			title = v.Metric + " by category"
		}
		p := lineChart(title, series)
		if p == nil {
			http.Error(w, noticeText(v), http.StatusNotFound)
			return
		}
		var buf bytes.Buffer
		if err := writeChartPNG(&buf, p); err != nil {
			log.Error("render chart", zap.String("metric", v.Metric), zap.Error(err))
			http.Error(w, "chart rendering failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func selectionFromQuery(q url.Values) dashboard.Selection {
	var periods, institutions listFlag
	for _, p := range q["period"] {
		periods.Set(p)
	}
	for _, i := range q["institution"] {
		institutions.Set(i)
	}
	return dashboard.Selection{Metric: q.Get("metric"), Periods: periods, Institutions: institutions}
}

// alignedChart lines every series up on periods, with null for gaps.
func alignedChart(title string, series []dashboard.Series, periods []string) seriesResponse {
	resp := seriesResponse{Title: title, Periods: periods, Series: []seriesData{}}
	for _, s := range series {
		aligned := s.Aligned(periods)
		values := make([]*float64, len(aligned))
		for i, v := range aligned {
			if !math.IsNaN(v) {
				f := v
				values[i] = &f
			}
		}
		resp.Series = append(resp.Series, seriesData{Name: s.Name, Values: values})
	}
	return resp
}

func noticeText(v *dashboard.View) string {
	var buf bytes.Buffer
	for _, n := range v.Notices {
		fmt.Fprintf(&buf, "%s: %s\n", n.Level, n.Message)
	}
	if buf.Len() == 0 {
		return "no data"
	}
	return buf.String()
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode response", zap.Error(err))
	}
}
