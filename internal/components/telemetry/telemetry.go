package telemetry

import (
	"fmt"
)

// API is where components report problems and counts. Tests pass a Recorder to
// assert on what was reported.
//
// Ids name the component and method, `crawler.fetch-listing` or
// `client.login`. They are declared as `report_<component>_<method>` consts
// in the reporting package and get the ScopedAPI namespace prepended.
type API interface {
	// ReportBroken is for failures that end the operation, a listing page
	// that could not be fetched for example.
	ReportBroken(id string, params ...any)
	// ReportWarning is for recoverable problems, a failed match detail or an
	// unknown trigger map.
	ReportWarning(id string, params ...any)
	ReportDebug(msg string, params ...any)
	// ReportCount records the latest value of a count, not an increment.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with "<namespace>: ".
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
