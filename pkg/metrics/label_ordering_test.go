package metrics

import "testing"

func TestConsistentLabelOrdering(t *testing.T) {
	metric := Metric{
		Name: "test_metric",
		Labels: map[string]string{
			"model":   "ai/llama3.2",
			"mode":    "completion",
			"backend": "llama.cpp",
		},
		Value: 123,
	}

	expected := `test_metric{backend="llama.cpp",mode="completion",model="ai/llama3.2"} 123`
	for i := 0; i < 10; i++ {
		if got := metric.FormatMetric(); got != expected {
			t.Errorf("iteration %d: got %q, want %q", i, got, expected)
		}
	}
}

func TestLabelOrderingWithDifferentKeys(t *testing.T) {
	tests := []struct {
		name     string
		labels   map[string]string
		expected string
	}{
		{
			name:     "backend_model_mode",
			labels:   map[string]string{"backend": "llama.cpp", "model": "ai/llama3.2", "mode": "completion"},
			expected: `test{backend="llama.cpp",mode="completion",model="ai/llama3.2"} 42`,
		},
		{
			name:     "alphabetical_order",
			labels:   map[string]string{"z_last": "last", "a_first": "first", "m_mid": "middle"},
			expected: `test{a_first="first",m_mid="middle",z_last="last"} 42`,
		},
		{
			name:     "single_label",
			labels:   map[string]string{"single": "value"},
			expected: `test{single="value"} 42`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metric := Metric{Name: "test", Labels: tt.labels, Value: 42}
			if got := metric.FormatMetric(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
