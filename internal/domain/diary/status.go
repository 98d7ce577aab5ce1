package diary

type Status string

const (
	StatusPending   Status = "pending"
	StatusEnriching Status = "enriching"
	StatusFailed    Status = "failed"
	StatusPartial   Status = "partial"
	StatusEnriched  Status = "enriched"
)

// Status values form a total order. A stored status may only be replaced by one that
// ranks strictly higher, so out-of-order writers can never regress an entry.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusEnriching: 1,
	StatusFailed:    2,
	StatusPartial:   3,
	StatusEnriched:  4,
}

var allStatuses = []Status{StatusPending, StatusEnriching, StatusFailed, StatusPartial, StatusEnriched}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns -1 for unknown values.
func (s Status) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

func (s Status) Terminal() bool {
	return s == StatusEnriched || s == StatusPartial || s == StatusFailed
}

func (s Status) InProgress() bool {
	return s == StatusPending || s == StatusEnriching
}

// HasAnalysis reports whether entries in this status carry an analysis payload.
func (s Status) HasAnalysis() bool {
	return s == StatusEnriched || s == StatusPartial
}

// RankedBelow lists every status that ranks strictly lower than s.
func (s Status) RankedBelow() []Status {
	out := make([]Status, 0, len(allStatuses))
	for _, st := range allStatuses {
		if st.Rank() < s.Rank() {
			out = append(out, st)
		}
	}
	return out
}

func AnalyzedStatuses() []Status {
	return []Status{StatusEnriched, StatusPartial}
}
