package telemetry

import "sync"

// Report is a single ReportBroken or ReportWarning call captured by Recorder.
type Report struct {
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory so tests can make
// assertions on what a component reported. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	broken   []Report
	warnings []Report
	counts   map[string]int64
}

func NewRecorder() *Recorder {
	return &Recorder{counts: map[string]int64{}}
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broken = append(r.broken, Report{ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, Report{ID: id, Params: params})
}

func (r *Recorder) ReportDebug(string, ...any) {}

func (r *Recorder) ReportCount(id string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[id] = count
}

// Broken returns a copy of the broken reports received so far.
func (r *Recorder) Broken() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.broken...)
}

// Warnings returns a copy of the warnings received so far.
func (r *Recorder) Warnings() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.warnings...)
}

// Count returns the last count reported for id.
func (r *Recorder) Count(id string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}
