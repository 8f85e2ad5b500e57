package store

import (
	"context"
	"testing"

	"github.com/runmat-org/otell/internal/model"
)

func TestMetricsAggregatesByService(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	points := []model.MetricPoint{
		{Name: "latency_ms", Service: "api", Ts: 1, Value: 10, Kind: model.MetricGauge},
		{Name: "latency_ms", Service: "api", Ts: 2, Value: 20, Kind: model.MetricGauge},
		{Name: "latency_ms", Service: "api", Ts: 3, Value: 30, Kind: model.MetricGauge},
		{Name: "latency_ms", Service: "worker", Ts: 1, Value: 100, Kind: model.MetricGauge},
	}
	if err := s.InsertMetricPoints(ctx, points); err != nil {
		t.Fatalf("InsertMetricPoints: %v", err)
	}

	resp, err := s.Metrics(ctx, model.MetricsRequest{Name: "latency_ms", GroupBy: "service", Agg: model.AggAvg})
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if resp.Points != 4 {
		t.Errorf("Points = %d, want 4", resp.Points)
	}
	if len(resp.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(resp.Groups))
	}

	byKey := map[string]model.MetricGroup{}
	for _, g := range resp.Groups {
		byKey[g.GroupKey] = g
	}
	if g, ok := byKey["api"]; !ok || g.Value != 20 {
		t.Errorf("api avg = %+v, want 20", g)
	}
	if g, ok := byKey["worker"]; !ok || g.Value != 100 {
		t.Errorf("worker avg = %+v, want 100", g)
	}
}

func TestMetricsPercentileNearestRank(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var points []model.MetricPoint
	for i := 1; i <= 10; i++ {
		points = append(points, model.MetricPoint{
			Name: "dur_ms", Service: "api", Ts: int64(i), Value: float64(i * 10), Kind: model.MetricGauge,
		})
	}
	if err := s.InsertMetricPoints(ctx, points); err != nil {
		t.Fatalf("InsertMetricPoints: %v", err)
	}

	resp, err := s.Metrics(ctx, model.MetricsRequest{Name: "dur_ms", Agg: model.AggP50})
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if len(resp.Groups) != 1 {
		t.Fatalf("len(Groups) = %d, want 1", len(resp.Groups))
	}
	// values 10..100 step 10, p50 index = round(0.5*9) = round(4.5) = 5 -> values[5] = 60.
	if got := resp.Groups[0].Value; got != 60 {
		t.Errorf("p50 = %v, want 60", got)
	}
}

func TestMetricsPercentileP95HundredSamples(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var points []model.MetricPoint
	for i := 1; i <= 100; i++ {
		points = append(points, model.MetricPoint{
			Name: "http.server.duration", Service: "api", Ts: int64(i), Value: float64(i), Kind: model.MetricGauge,
		})
	}
	if err := s.InsertMetricPoints(ctx, points); err != nil {
		t.Fatalf("InsertMetricPoints: %v", err)
	}

	resp, err := s.Metrics(ctx, model.MetricsRequest{Name: "http.server.duration", GroupBy: "service", Agg: model.AggP95})
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if len(resp.Groups) != 1 {
		t.Fatalf("len(Groups) = %d, want 1", len(resp.Groups))
	}
	// values 1..100, p95 index = round(0.95*99) = round(94.05) = 94 -> sorted[94] = 95.
	if got := resp.Groups[0].Value; got != 95 {
		t.Errorf("p95 = %v, want 95", got)
	}
}

func TestMetricsSingleSamplePercentile(t *testing.T) {
	if got := percentile([]float64{42}, 0.95); got != 42 {
		t.Errorf("percentile of single sample = %v, want 42", got)
	}
}

func TestMetricsListSortedByCountThenName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	points := []model.MetricPoint{
		{Name: "a_metric", Ts: 1, Value: 1, Kind: model.MetricGauge},
		{Name: "b_metric", Ts: 1, Value: 1, Kind: model.MetricGauge},
		{Name: "b_metric", Ts: 2, Value: 1, Kind: model.MetricGauge},
		{Name: "c_metric", Ts: 1, Value: 1, Kind: model.MetricGauge},
		{Name: "c_metric", Ts: 2, Value: 1, Kind: model.MetricGauge},
	}
	if err := s.InsertMetricPoints(ctx, points); err != nil {
		t.Fatalf("InsertMetricPoints: %v", err)
	}

	resp, err := s.MetricsList(ctx, model.MetricsListRequest{})
	if err != nil {
		t.Fatalf("MetricsList: %v", err)
	}
	if len(resp.Names) != 3 {
		t.Fatalf("len(Names) = %d, want 3", len(resp.Names))
	}
	// b_metric and c_metric tie at count 2, broken by name asc.
	if resp.Names[0].Name != "b_metric" || resp.Names[0].Count != 2 {
		t.Errorf("Names[0] = %+v, want b_metric/2", resp.Names[0])
	}
	if resp.Names[1].Name != "c_metric" || resp.Names[1].Count != 2 {
		t.Errorf("Names[1] = %+v, want c_metric/2", resp.Names[1])
	}
	if resp.Names[2].Name != "a_metric" || resp.Names[2].Count != 1 {
		t.Errorf("Names[2] = %+v, want a_metric/1", resp.Names[2])
	}
}
