package crawl

// State is the state of the trigger state machine.
type State int

const (
	StateAwaitingStart State = iota
	StateCollecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting-start"
	case StateCollecting:
		return "collecting"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// machine decides which listing rows become fetch tasks. It is only ever
// touched by the coordinating goroutine.
//
// startMap is the newest match to collect (collection begins when it is seen),
// stopMaps are the oldest (collection ends after the first one is seen).
type machine struct {
	state    State
	startMap string
	stopMaps map[string]struct{}
	sequence uint64
}

func newMachine(startMap string, stopMaps []string) *machine {
	m := &machine{
		state:    StateCollecting,
		startMap: startMap,
		stopMaps: make(map[string]struct{}, len(stopMaps)),
	}
	if startMap != "" {
		m.state = StateAwaitingStart
	}
	for _, name := range stopMaps {
		if name == "" {
			continue
		}
		m.stopMaps[name] = struct{}{}
	}
	return m
}

// scanOutcome is what a single listing page produced.
type scanOutcome struct {
	batch []MatchSummary
	// started is true when the start trigger was observed on this page.
	started bool
	// triggered is true when a stop trigger was observed, the triggering row
	// is the last one in batch (if it had a detail link).
	triggered bool
	// interrupted is true when cancelled() returned true midway.
	interrupted bool
	// unlinked counts collected rows without a detail locator.
	unlinked int
}

// scan walks rows in served order. cancelled is polled before each row.
func (m *machine) scan(rows []ListingRow, cancelled func() bool) scanOutcome {
	var out scanOutcome
	for _, row := range rows {
		if m.state == StateStopped {
			break
		}
		if cancelled() {
			out.interrupted = true
			break
		}

		if m.state == StateAwaitingStart {
			if row.Map != m.startMap {
				continue
			}
			m.state = StateCollecting
			out.started = true
		}

		if row.DetailLocator != "" {
			m.sequence++
			out.batch = append(out.batch, MatchSummary{
				Mode:          row.Mode,
				Map:           row.Map,
				StartTime:     row.StartTime,
				DetailLocator: row.DetailLocator,
				Sequence:      m.sequence,
			})
		} else {
			out.unlinked++
		}

		if _, ok := m.stopMaps[row.Map]; ok {
			m.state = StateStopped
			out.triggered = true
		}
	}
	return out
}
