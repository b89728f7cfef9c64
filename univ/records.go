package univ

import (
	"math"
	"strconv"
	"strings"

	"github.com/zalepa/unidash/sheet"
)

// Records converts a metric table into records. metric names the value
// column; a missing column yields NaN values. Period cells are trimmed.
func Records(tbl *sheet.Table, metric string) []MetricRecord {
	out := make([]MetricRecord, 0, tbl.Len())
	for _, row := range tbl.Rows {
		out = append(out, MetricRecord{
			Institution: tbl.Value(row, ColInstitution),
			Period:      strings.TrimSpace(tbl.Value(row, ColPeriod)),
			Value:       ParseNumber(tbl.Value(row, metric)),
			Code:        tbl.Value(row, ColCode),
		})
	}
	return out
}

// ParseNumber parses a metric cell. Thousands separators and a trailing "%"
// are accepted; blanks, dashes and anything unparseable become NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "- -" || s == "--" {
		return math.NaN()
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
