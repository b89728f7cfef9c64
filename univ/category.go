package univ

import "strings"

// Category is a peer-group label. The zero value, Uncategorized, marks a
// record that belongs to no group.
type Category string

const (
	Uncategorized Category = ""
	Competitor    Category = "경쟁대학"
	PeerPrivate   Category = "대경사학"
	Home          Category = "본교"
)

// Categories lists the real categories in display order.
var Categories = []Category{Competitor, PeerPrivate, Home}

// Assign returns the categories a classification belongs to, in the fixed
// order competitor, peer-private, home. It never returns an empty slice: a
// classification with no matching signal yields []Category{Uncategorized}.
func Assign(c Classification) []Category {
	var cats []Category
	if strings.Contains(signal(c.Competitor), string(Competitor)) {
		cats = append(cats, Competitor)
	}
	if strings.Contains(signal(c.PeerPrivate), string(PeerPrivate)) {
		cats = append(cats, PeerPrivate)
	}
	if strings.Contains(signal(c.Home), string(Home)) {
		cats = append(cats, Home)
	}
	if len(cats) == 0 {
		return []Category{Uncategorized}
	}
	return cats
}

func signal(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Joined is a metric record with its classification. Matched is false when
// the code table had no row for the record's institution, in which case
// Classification is the zero value.
type Joined struct {
	Record         MetricRecord
	Classification Classification
	Matched        bool
}

// Join attaches classifications by normalized institution name. Every record
// appears exactly once in the output, matched or not. A nil table matches
// nothing.
func Join(records []MetricRecord, table *CodeTable) []Joined {
	out := make([]Joined, len(records))
	for i, r := range records {
		out[i] = Joined{Record: r}
		if table == nil {
			continue
		}
		if c, ok := table.Lookup(r.Institution); ok {
			out[i].Classification = c
			out[i].Matched = true
		}
	}
	return out
}

// CategorizedRecord is one record paired with one of its categories.
type CategorizedRecord struct {
	MetricRecord
	Category Category
}

// Explode emits one row per assigned category for each joined record.
// Uncategorized records produce a single Uncategorized row.
func Explode(joined []Joined) []CategorizedRecord {
	out := make([]CategorizedRecord, 0, len(joined))
	for _, j := range joined {
		for _, c := range Assign(j.Classification) {
			out = append(out, CategorizedRecord{MetricRecord: j.Record, Category: c})
		}
	}
	return out
}

// Categorized drops Uncategorized rows.
func Categorized(rows []CategorizedRecord) []CategorizedRecord {
	var out []CategorizedRecord
	for _, r := range rows {
		if r.Category != Uncategorized {
			out = append(out, r)
		}
	}
	return out
}
