package metrics

import "testing"

func TestParseTextMetricsAndLabels(t *testing.T) {
	input := `# HELP http_requests_total Total number of HTTP requests
# TYPE http_requests_total counter
http_requests_total{method="get",code="200"} 1027
http_requests_total{method="post",code="400"} 3

# HELP memory_usage_bytes Memory usage in bytes
# TYPE memory_usage_bytes gauge
memory_usage_bytes 1234567890
`

	metrics, err := ParseText(input)
	if err != nil {
		t.Fatalf("ParseText() error = %v", err)
	}
	if len(metrics) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(metrics))
	}

	byLabel := make(map[string]Metric)
	for _, m := range metrics {
		if m.Name == "http_requests_total" {
			byLabel[m.Labels["method"]] = m
		}
	}

	get, ok := byLabel["get"]
	if !ok {
		t.Fatal("expected a http_requests_total{method=\"get\"} sample")
	}
	if get.Value != 1027 {
		t.Errorf("Value = %v, want 1027", get.Value)
	}
	if get.Help != "Total number of HTTP requests" {
		t.Errorf("Help = %q", get.Help)
	}
	if get.Labels["code"] != "200" {
		t.Errorf("code label = %q, want 200", get.Labels["code"])
	}
}

func TestMetricAddLabels(t *testing.T) {
	m := Metric{Name: "test_metric", Labels: map[string]string{"existing": "value"}, Value: 123}
	m.AddLabels(map[string]string{"backend": "gpu-llama", "model": "test-model"})

	if len(m.Labels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(m.Labels))
	}
	if m.Labels["backend"] != "gpu-llama" {
		t.Errorf("backend label = %q", m.Labels["backend"])
	}
}

func TestMetricFormatMetricSortsLabels(t *testing.T) {
	m := Metric{
		Name:   "labeled_metric",
		Labels: map[string]string{"model": "test-model", "backend": "gpu-llama"},
		Value:  123,
	}
	want := `labeled_metric{backend="gpu-llama",model="test-model"} 123`
	if got := m.FormatMetric(); got != want {
		t.Errorf("FormatMetric() = %q, want %q", got, want)
	}
}

func TestMetricFormatMetricNoLabels(t *testing.T) {
	m := Metric{Name: "simple_metric", Value: 42}
	if got := m.FormatMetric(); got != "simple_metric 42" {
		t.Errorf("FormatMetric() = %q", got)
	}
}
