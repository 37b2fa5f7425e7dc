package notify

// Result is the outcome of a store mutation.
type Result int

const (
	// ResultOK means the mutation was applied and persisted.
	ResultOK Result = iota
	// ResultDegraded means the mutation was applied in memory only; the
	// persistence write failed and will not be retried.
	ResultDegraded
	// ResultFailed means nothing was applied.
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultDegraded:
		return "degraded"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Applied reports whether the in-memory view reflects the mutation.
func (r Result) Applied() bool {
	return r == ResultOK || r == ResultDegraded
}
