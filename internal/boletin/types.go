// Package boletin defines core types shared across the scrape pipeline.
package boletin

import (
	"time"
)

// Category classifies a notice for the front end.
type Category string

// Category values persisted in the artifact.
const (
	CategoryExpenditure Category = "expenditure"
	CategoryNorm        Category = "norm"
)

// NormType is the kind of legal instrument a notice was published as.
type NormType string

// Norm types published in the provincial bulletin.
const (
	NormResolucion  NormType = "Resolución"
	NormDisposicion NormType = "Disposición"
	NormDecreto     NormType = "Decreto"
	NormLey         NormType = "Ley"
)

// Notice is a single gazette entry. ReferenceID is stable across runs and
// is the deduplication key; summaries stay empty until the summarizer
// succeeds for this notice.
type Notice struct {
	ReferenceID   string     `json:"reference_id"`
	Title         string     `json:"title"`
	PublishedDate string     `json:"published_date"`
	Category      Category   `json:"category"`
	Type          NormType   `json:"type"`
	Organismo     string     `json:"organismo"`
	SourceURL     string     `json:"source_url"`
	RawText       string     `json:"raw_text"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Amount        float64    `json:"amount,omitempty"`
	AmountDisplay string     `json:"amount_display,omitempty"`
	ShortSummary  string     `json:"short_summary,omitempty"`
	LongSummary   string     `json:"long_summary,omitempty"`
	FirstSeen     time.Time  `json:"first_seen"`
	SummarizedAt  *time.Time `json:"summarized_at,omitempty"`
}

// NeedsSummary reports whether the notice is still waiting on a
// successful summarization run.
func (n Notice) NeedsSummary() bool {
	return n.LongSummary == "" || n.ShortSummary == ""
}

// BulletinInfo identifies the bulletin edition a run observed.
type BulletinInfo struct {
	Number      string `json:"numero_boletin"`
	DisplayDate string `json:"fecha_display"`
}

// Dataset is the persisted artifact consumed by the static front end.
// Notices are ordered newest first and reference ids are unique.
type Dataset struct {
	Bulletin    BulletinInfo `json:"bulletin"`
	GeneratedAt time.Time    `json:"generated_at"`
	Notices     []Notice     `json:"notices"`
}

// Contains reports whether a reference id is already in the dataset.
func (d Dataset) Contains(referenceID string) bool {
	for _, n := range d.Notices {
		if n.ReferenceID == referenceID {
			return true
		}
	}
	return false
}

// Pending returns the indexes of notices that still need a summary.
// Indexes keep the caller able to mutate the dataset in place.
func (d Dataset) Pending() []int {
	var idx []int
	for i, n := range d.Notices {
		if n.NeedsSummary() {
			idx = append(idx, i)
		}
	}
	return idx
}

// RunCounters tracks per-run outcomes for logs and metrics.
type RunCounters struct {
	PagesFetched      int
	RecordsParsed     int
	RecordsSkipped    int
	NoticesNew        int
	NoticesKnown      int
	SummariesWritten  int
	SummariesDeferred int
}
