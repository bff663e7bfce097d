package core

import (
	"context"
	"strings"
)

const metricPrefix = "accountlink."

// NopMetricsRecorder discards every measurement.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// metricName joins the accountlink prefix with an operation and a suffix,
// e.g. accountlink.register_link.total.
func metricName(operation string, suffix string) string {
	return metricPrefix + normalizeOperation(operation) + "." + strings.TrimSpace(suffix)
}

func (s *Service) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, mergeTags(tags))
}

func (s *Service) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, mergeTags(tags))
}

// mergeTags copies every set into a fresh map, later sets winning. Recorders
// may keep the map they receive.
func mergeTags(sets ...map[string]string) map[string]string {
	size := 0
	for _, set := range sets {
		size += len(set)
	}
	merged := make(map[string]string, size)
	for _, set := range sets {
		for key, value := range set {
			merged[key] = value
		}
	}
	return merged
}

var _ MetricsRecorder = NopMetricsRecorder{}
