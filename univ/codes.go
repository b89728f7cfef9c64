package univ

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalepa/unidash/sheet"
)

// ErrNoInstitutionColumn is returned when a table lacks the 학교 column.
var ErrNoInstitutionColumn = errors.New("no " + ColInstitution + " column")

// CodeTable maps normalized institution names to their classification.
// A CodeTable is shared through a cache and must not be modified.
type CodeTable struct {
	rows  map[string]Classification
	order []string
}

// Lookup returns the classification for a normalized name.
func (t *CodeTable) Lookup(name string) (Classification, bool) {
	c, ok := t.rows[name]
	return c, ok
}

// Len returns the number of distinct institutions.
func (t *CodeTable) Len() int { return len(t.order) }

// Names returns the normalized names in first-seen order.
func (t *CodeTable) Names() []string {
	return append([]string(nil), t.order...)
}

// BuildCodeTable renames and projects a raw classification table, normalizes
// every institution name and indexes the rows. Missing signal columns are
// left empty. Rows that collapse onto the same name have their signals
// merged, so an institution belongs to every group any of its rows names.
func BuildCodeTable(raw *sheet.Table, n *Normalizer) (*CodeTable, error) {
	tbl := raw.Rename(ColSourceInstitution, ColInstitution)
	if !tbl.Has(ColInstitution) {
		return nil, ErrNoInstitutionColumn
	}
	tbl = tbl.Select(ColInstitution, ColCompetitor, ColPeerPrivate, ColHome)
	tbl = tbl.MapColumn(ColInstitution, n.Normalize)

	ct := &CodeTable{rows: make(map[string]Classification)}
	for _, row := range tbl.Rows {
		c := Classification{
			Institution: tbl.Value(row, ColInstitution),
			Competitor:  tbl.Value(row, ColCompetitor),
			PeerPrivate: tbl.Value(row, ColPeerPrivate),
			Home:        tbl.Value(row, ColHome),
		}
		if c.Institution == "" {
			continue
		}
		prev, ok := ct.rows[c.Institution]
		if !ok {
			ct.order = append(ct.order, c.Institution)
			ct.rows[c.Institution] = c
			continue
		}
		ct.rows[c.Institution] = Classification{
			Institution: c.Institution,
			Competitor:  joinSignal(prev.Competitor, c.Competitor),
			PeerPrivate: joinSignal(prev.PeerPrivate, c.PeerPrivate),
			Home:        joinSignal(prev.Home, c.Home),
		}
	}
	return ct, nil
}

func joinSignal(a, b string) string {
	return strings.TrimSpace(a + " " + b)
}

// CodeTableLoader reads classification workbooks, caching one CodeTable per
// path for the life of the process.
type CodeTableLoader struct {
	normalizer *Normalizer
	cache      *sheet.Cache[*CodeTable]
}

// NewCodeTableLoader returns a loader that stores results in cache.
func NewCodeTableLoader(n *Normalizer, cache *sheet.Cache[*CodeTable]) *CodeTableLoader {
	return &CodeTableLoader{normalizer: n, cache: cache}
}

// Load returns the classification table at path.
func (l *CodeTableLoader) Load(path string) (*CodeTable, error) {
	return l.cache.Load(path, func(path string) (*CodeTable, error) {
		raw, err := sheet.ReadXLSX(path)
		if err != nil {
			return nil, err
		}
		ct, err := BuildCodeTable(raw, l.normalizer)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return ct, nil
	})
}
