// Package univ resolves university names and peer-group categories for
// metric records: name normalization, the classification (대학코드) table,
// category assignment and per-category aggregation.
package univ

// Column names used by the metric and classification workbooks.
const (
	ColInstitution = "학교"
	ColPeriod      = "조사연도"
	ColCode        = "대학코드"

	// ColSourceInstitution is the institution column as exported by the
	// classification source; it is renamed to ColInstitution on load.
	ColSourceInstitution = "schlKrnNm"

	ColCompetitor  = "경쟁대학_구분1"
	ColPeerPrivate = "대경사학_구분2"
	ColHome        = "본교_구분3"
)

// MetricRecord is one observation from a metric workbook. Value is NaN when
// the cell is empty or not numeric.
type MetricRecord struct {
	Institution string
	Period      string
	Value       float64
	Code        string
}

// Classification holds the peer-group signals for one institution. Each
// signal is free text that may contain other content besides the marker.
type Classification struct {
	Institution string `json:"institution"`
	Competitor  string `json:"competitor,omitempty"`
	PeerPrivate string `json:"peerPrivate,omitempty"`
	Home        string `json:"home,omitempty"`
}
