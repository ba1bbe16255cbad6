package telemetry

import (
	"fmt"
)

// API is an abstraction over logging/metrics so that tests can assert on
// what a component reported.
type API interface {
	// ReportBroken reports a component that broke in a way that should be
	// addressed. `id` names the component (`<struct>.<method>`), all
	// lowercase, dashes between words.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that is not necessarily broken but
	// may be worth investigating, a skipped item or an exhausted retry.
	ReportWarning(id string, params ...any)

	// ReportDebug reports debug information that is ignored in production.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current value of a counter. Values are points
	// over time, they should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI attaches a namespace to every report, like a sub-logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
