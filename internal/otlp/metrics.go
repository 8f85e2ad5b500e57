package otlp

import (
	"strconv"

	"github.com/runmat-org/otell/internal/model"

	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
)

// DecodeMetrics flattens an OTLP metrics export request into
// MetricPoints, expanding histograms and summaries into one row per
// stat/bucket/quantile per spec.md §4.1.
func DecodeMetrics(req *colmetricspb.ExportMetricsServiceRequest) ([]model.MetricPoint, []model.DecodeError) {
	if req == nil {
		return nil, []model.DecodeError{{Kind: model.MalformedProtobuf, Count: 1}}
	}

	var out []model.MetricPoint
	var badTs, unsupported int

	for _, rm := range req.ResourceMetrics {
		resAttrs := resourceAttrs(rm.GetResource())
		service := resourceServiceName(resAttrs)

		for _, sm := range rm.ScopeMetrics {
			scopeAttrs := model.Attrs{}
			if sc := sm.GetScope(); sc != nil {
				scopeAttrs = model.WithScopePrefix(extractAttributes(sc.GetAttributes()), "scope.")
			}

			for _, metric := range sm.Metrics {
				name := metric.GetName()

				switch data := metric.Data.(type) {
				case *metricspb.Metric_Gauge:
					for _, dp := range data.Gauge.GetDataPoints() {
						pt, ok := numberPoint(name, service, model.MetricGauge, "", resAttrs, scopeAttrs, dp)
						if !ok {
							badTs++
							continue
						}
						out = append(out, pt)
					}

				case *metricspb.Metric_Sum:
					kind := model.MetricSumCumulative
					if data.Sum.GetAggregationTemporality() == metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_DELTA {
						kind = model.MetricSumDelta
					}
					for _, dp := range data.Sum.GetDataPoints() {
						pt, ok := numberPoint(name, service, kind, "", resAttrs, scopeAttrs, dp)
						if !ok {
							badTs++
							continue
						}
						out = append(out, pt)
					}

				case *metricspb.Metric_Histogram:
					for _, dp := range data.Histogram.GetDataPoints() {
						pts, ok := histogramPoints(name, service, resAttrs, scopeAttrs, dp)
						if !ok {
							badTs++
							continue
						}
						out = append(out, pts...)
					}

				case *metricspb.Metric_Summary:
					for _, dp := range data.Summary.GetDataPoints() {
						pts, ok := summaryPoints(name, service, resAttrs, scopeAttrs, dp)
						if !ok {
							badTs++
							continue
						}
						out = append(out, pts...)
					}

				default:
					// ExponentialHistogram and any future metric shape:
					// not part of the flat schema's expansion rules.
					unsupported++
				}
			}
		}
	}

	var errs []model.DecodeError
	if badTs > 0 {
		errs = append(errs, model.DecodeError{Kind: model.InvalidTimestamp, Count: badTs})
	}
	if unsupported > 0 {
		errs = append(errs, model.DecodeError{Kind: model.UnsupportedField, Count: unsupported})
	}
	return out, errs
}

func numberPoint(name, service string, kind model.MetricKind, stat string, resAttrs, scopeAttrs model.Attrs, dp *metricspb.NumberDataPoint) (model.MetricPoint, bool) {
	ts := dp.GetTimeUnixNano()
	if ts == 0 {
		return model.MetricPoint{}, false
	}
	var v float64
	switch t := dp.Value.(type) {
	case *metricspb.NumberDataPoint_AsDouble:
		v = t.AsDouble
	case *metricspb.NumberDataPoint_AsInt:
		v = float64(t.AsInt)
	}
	attrs := resAttrs.Merge(scopeAttrs).Merge(extractAttributes(dp.GetAttributes()))
	return model.MetricPoint{
		Name: name, Service: service, Ts: int64(ts), Value: v,
		Attrs: attrs, Kind: kind, Stat: stat,
	}, true
}

func histogramPoints(name, service string, resAttrs, scopeAttrs model.Attrs, dp *metricspb.HistogramDataPoint) ([]model.MetricPoint, bool) {
	ts := dp.GetTimeUnixNano()
	if ts == 0 {
		return nil, false
	}
	base := resAttrs.Merge(scopeAttrs).Merge(extractAttributes(dp.GetAttributes()))

	out := []model.MetricPoint{
		{Name: name, Service: service, Ts: int64(ts), Value: float64(dp.GetCount()), Attrs: base, Kind: model.MetricHistogram, Stat: "count"},
		{Name: name, Service: service, Ts: int64(ts), Value: dp.GetSum(), Attrs: base, Kind: model.MetricHistogram, Stat: "sum"},
	}

	bounds := dp.GetExplicitBounds()
	counts := dp.GetBucketCounts()
	for i, c := range counts {
		le := "+Inf"
		if i < len(bounds) {
			le = strconv.FormatFloat(bounds[i], 'g', -1, 64)
		}
		bucketAttrs := base.Merge(model.Attrs{"le": model.String(le)})
		out = append(out, model.MetricPoint{
			Name: name, Service: service, Ts: int64(ts), Value: float64(c),
			Attrs: bucketAttrs, Kind: model.MetricHistogram, Stat: "bucket_le",
		})
	}
	return out, true
}

func summaryPoints(name, service string, resAttrs, scopeAttrs model.Attrs, dp *metricspb.SummaryDataPoint) ([]model.MetricPoint, bool) {
	ts := dp.GetTimeUnixNano()
	if ts == 0 {
		return nil, false
	}
	base := resAttrs.Merge(scopeAttrs).Merge(extractAttributes(dp.GetAttributes()))

	out := []model.MetricPoint{
		{Name: name, Service: service, Ts: int64(ts), Value: float64(dp.GetCount()), Attrs: base, Kind: model.MetricSummary, Stat: "count"},
		{Name: name, Service: service, Ts: int64(ts), Value: dp.GetSum(), Attrs: base, Kind: model.MetricSummary, Stat: "sum"},
	}

	for _, q := range dp.GetQuantileValues() {
		qAttrs := base.Merge(model.Attrs{"q": model.Float(q.GetQuantile())})
		out = append(out, model.MetricPoint{
			Name: name, Service: service, Ts: int64(ts), Value: q.GetValue(),
			Attrs: qAttrs, Kind: model.MetricSummary, Stat: "quantile",
		})
	}
	return out, true
}
