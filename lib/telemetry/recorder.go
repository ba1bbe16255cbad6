package telemetry

import (
	"strings"
	"sync"
)

type Report struct {
	Level  string
	Id     string
	Params []any
}

// Recorder is an API that keeps every report in memory, tests use it to
// assert that a component warned or broke.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(level, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Level: level, Id: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any)  { r.add("broken", id, params) }
func (r *Recorder) ReportWarning(id string, params ...any) { r.add("warning", id, params) }
func (r *Recorder) ReportDebug(msg string, params ...any)  { r.add("debug", msg, params) }
func (r *Recorder) ReportCount(id string, count int64)     { r.add("count", id, []any{count}) }

func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Count returns the number of reports at `level` whose id ends with `id`,
// scoped namespaces are ignored.
func (r *Recorder) Count(level, id string) int {
	n := 0
	for _, rep := range r.Reports() {
		if rep.Level == level && strings.HasSuffix(rep.Id, id) {
			n++
		}
	}
	return n
}
