package univ

import (
	"math"
	"sort"
)

// CategoryMean is the mean metric value of one category in one period.
type CategoryMean struct {
	Period   string   `json:"period"`
	Category Category `json:"category"`
	Mean     float64  `json:"mean"`
	Count    int      `json:"count"`
}

// MeanByPeriod groups rows by (period, category) and averages their values,
// skipping NaN. Groups without a single value are omitted, as are
// Uncategorized rows. Output is ordered by period, then category order.
func MeanByPeriod(rows []CategorizedRecord) []CategoryMean {
	type key struct {
		period   string
		category Category
	}
	type accumulator struct {
		sum   float64
		count int
	}
	accum := make(map[key]*accumulator)
	for _, r := range rows {
		if r.Category == Uncategorized || math.IsNaN(r.Value) {
			continue
		}
		k := key{r.Period, r.Category}
		a, ok := accum[k]
		if !ok {
			a = &accumulator{}
			accum[k] = a
		}
		a.sum += r.Value
		a.count++
	}

	out := make([]CategoryMean, 0, len(accum))
	for k, a := range accum {
		out = append(out, CategoryMean{
			Period:   k.period,
			Category: k.category,
			Mean:     a.sum / float64(a.count),
			Count:    a.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return categoryRank(out[i].Category) < categoryRank(out[j].Category)
	})
	return out
}

func categoryRank(c Category) int {
	for i, k := range Categories {
		if k == c {
			return i
		}
	}
	return len(Categories)
}
