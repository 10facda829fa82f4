// Package dedup partitions freshly parsed notices against the
// persisted dataset. It is a pure function of its inputs; callers own
// any logging or persistence.
package dedup

import (
	"github.com/transparencia-pba/boletin-crawler/internal/boletin"
)

// Result is the outcome of partitioning one run's parse output.
type Result struct {
	// New holds notices whose reference id was not in the dataset,
	// in first-seen order.
	New []boletin.Notice
	// Known counts notices dropped because the dataset already has
	// them.
	Known int
	// Duplicates counts repeats of a reference id within the same
	// run; the first occurrence wins.
	Duplicates int
}

// Partition splits parsed notices into new and already-known against
// the prior dataset, keyed by reference id.
func Partition(parsed []boletin.Notice, prior boletin.Dataset) Result {
	existing := make(map[string]struct{}, len(prior.Notices))
	for _, n := range prior.Notices {
		existing[n.ReferenceID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(parsed))
	var res Result
	for _, n := range parsed {
		if _, dup := seen[n.ReferenceID]; dup {
			res.Duplicates++
			continue
		}
		seen[n.ReferenceID] = struct{}{}
		if _, known := existing[n.ReferenceID]; known {
			res.Known++
			continue
		}
		res.New = append(res.New, n)
	}
	return res
}
