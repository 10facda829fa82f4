package pipeline

// State is the phase a run is currently in. Runs move strictly
// forward; Fetching, Summarizing and Writing can fall into the
// terminal Failed state, which aborts the run and leaves the previous
// artifact untouched.
type State string

// Run states.
const (
	StateIdle          State = "idle"
	StateFetching      State = "fetching"
	StateParsing       State = "parsing"
	StateDeduplicating State = "deduplicating"
	StateSummarizing   State = "summarizing"
	StateWriting       State = "writing"
	StateFailed        State = "failed"
)
