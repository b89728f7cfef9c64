package dashboard

import (
	"math"
	"sort"

	"github.com/zalepa/unidash/univ"
)

// Point is one plotted value.
type Point struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// Series is one line of a chart. Points are ordered by period; a period may
// repeat when several source rows resolve to the same institution.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Aligned returns one value per period, averaging repeated periods and
// filling gaps with NaN.
func (s Series) Aligned(periods []string) []float64 {
	sum := make(map[string]float64, len(s.Points))
	count := make(map[string]int, len(s.Points))
	for _, p := range s.Points {
		sum[p.Period] += p.Value
		count[p.Period]++
	}
	vals := make([]float64, len(periods))
	for i, d := range periods {
		if n := count[d]; n > 0 {
			vals[i] = sum[d] / float64(n)
		} else {
			vals[i] = math.NaN()
		}
	}
	return vals
}

// institutionSeries builds one series per selected institution. Records with
// no value are left out.
func institutionSeries(records []univ.MetricRecord, selected []string) []Series {
	want := toSet(selected)
	points := make(map[string][]Point)
	for _, r := range records {
		if !want[r.Institution] || math.IsNaN(r.Value) {
			continue
		}
		points[r.Institution] = append(points[r.Institution], Point{Period: r.Period, Value: r.Value})
	}

	names := make([]string, 0, len(points))
	for k := range points {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]Series, 0, len(names))
	for _, name := range names {
		pts := points[name]
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].Period < pts[j].Period })
		out = append(out, Series{Name: name, Points: pts})
	}
	return out
}

// categorySeries turns per-period means into one series per category, in
// category order.
func categorySeries(means []univ.CategoryMean) []Series {
	points := make(map[univ.Category][]Point)
	for _, m := range means {
		points[m.Category] = append(points[m.Category], Point{Period: m.Period, Value: m.Mean})
	}
	var out []Series
	for _, c := range univ.Categories {
		if pts, ok := points[c]; ok {
			out = append(out, Series{Name: string(c), Points: pts})
		}
	}
	return out
}

// Periods returns the sorted distinct periods across series.
func Periods(series []Series) []string {
	set := make(map[string]bool)
	for _, s := range series {
		for _, p := range s.Points {
			set[p.Period] = true
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, v := range list {
		set[v] = true
	}
	return set
}
