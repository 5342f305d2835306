package telemetry

import (
	"strconv"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newSampler maps an OTEL_TRACES_SAMPLER name to a sampler. Unknown or empty
// names sample everything.
func newSampler(name, arg string) sdktrace.Sampler {
	base, parentBased := strings.CutPrefix(name, "parentbased_")

	var s sdktrace.Sampler
	switch base {
	case "always_off":
		s = sdktrace.NeverSample()
	case "traceidratio":
		s = sdktrace.TraceIDRatioBased(parseRatio(arg))
	default:
		s = sdktrace.AlwaysSample()
	}
	if parentBased {
		return sdktrace.ParentBased(s)
	}
	return s
}

// parseRatio clamps the ratio to [0, 1]; unparsable input samples everything.
func parseRatio(s string) float64 {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 1
	}
	return min(max(ratio, 0), 1)
}
