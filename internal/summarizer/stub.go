package summarizer

import (
	"context"
	"fmt"

	"github.com/transparencia-pba/boletin-crawler/internal/boletin"
)

// Stub is a deterministic Summarizer for tests and offline runs. It
// derives both summaries from the notice itself and never fails unless
// told to.
type Stub struct {
	// Fail lists reference ids whose summarization should fail.
	Fail map[string]bool
	// Calls records the order notices were summarized in.
	Calls []string
}

// Summarize returns summaries derived from the notice title.
func (s *Stub) Summarize(_ context.Context, n boletin.Notice) (Summary, error) {
	s.Calls = append(s.Calls, n.ReferenceID)
	if s.Fail[n.ReferenceID] {
		return Summary{}, &boletin.SummarizeError{
			ReferenceID: n.ReferenceID,
			Err:         fmt.Errorf("stubbed failure"),
		}
	}
	return Summary{
		Short: "Resumen de " + n.Title,
		Long:  fmt.Sprintf("La norma %s establece disposiciones administrativas. Emitida por %s.", n.Title, n.Organismo),
	}, nil
}
