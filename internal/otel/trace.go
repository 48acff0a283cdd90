package otel

import (
	"os"
	"strings"
	"sync/atomic"
)

// traceFilter is parsed from PULSE_TRACE once at init. A nil routes set
// means every route is traced.
type traceFilter struct {
	routes map[string]bool
}

var trace atomic.Pointer[traceFilter]

func init() {
	setTrace(os.Getenv("PULSE_TRACE"))
}

// setTrace parses a PULSE_TRACE value: empty or "0" disables tracing,
// "1", "all" or "true" traces every route, anything else is a comma
// separated list of route names.
func setTrace(v string) {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "0", "false", "off":
		trace.Store(nil)
		return
	case "1", "all", "true", "on":
		trace.Store(&traceFilter{})
		return
	}
	routes := make(map[string]bool)
	for _, r := range strings.Split(v, ",") {
		if r = strings.TrimSpace(r); r != "" {
			routes[r] = true
		}
	}
	trace.Store(&traceFilter{routes: routes})
}

// TraceEnabled reports whether any query tracing is on.
func TraceEnabled() bool {
	return trace.Load() != nil
}

// Traced reports whether queries answered by route are traced.
func Traced(route string) bool {
	f := trace.Load()
	if f == nil {
		return false
	}
	return f.routes == nil || f.routes[route]
}
