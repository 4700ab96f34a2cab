// Package metrics scrapes each ready engine's Prometheus text-exposition
// /metrics endpoint and merges the samples into the orchestrator's
// /stats/metrics response.
package metrics

import (
	"sort"
	"strconv"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric is one flattened sample: a name, its label set, and its numeric
// value, independent of the counter/gauge/untyped distinction the wire
// format carries (the aggregate only needs sums and rates, not types).
type Metric struct {
	Name   string
	Labels map[string]string
	Value  float64
	Help   string
}

// AddLabels merges additionalLabels into m.Labels, creating the map if
// necessary.
func (m *Metric) AddLabels(additionalLabels map[string]string) {
	if m.Labels == nil {
		m.Labels = make(map[string]string, len(additionalLabels))
	}
	for k, v := range additionalLabels {
		m.Labels[k] = v
	}
}

// FormatMetric renders m back to one Prometheus text-exposition line, with
// labels sorted for deterministic output.
func (m *Metric) FormatMetric() string {
	if len(m.Labels) == 0 {
		return m.Name + " " + strconv.FormatFloat(m.Value, 'g', -1, 64)
	}
	keys := make([]string, 0, len(m.Labels))
	for k := range m.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(m.Labels[k])
		b.WriteByte('"')
	}
	b.WriteByte('}')
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(m.Value, 'g', -1, 64))
	return b.String()
}

// ParseText parses a Prometheus text-exposition body (as served by an
// engine's --metrics endpoint) into flattened Metric samples, preserving
// each family's HELP string.
func ParseText(body string) ([]Metric, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []Metric
	for name, fam := range families {
		for _, m := range fam.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			out = append(out, Metric{
				Name:   name,
				Labels: labels,
				Value:  sampleValue(fam.GetType(), m),
				Help:   fam.GetHelp(),
			})
		}
	}
	return out, nil
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_SUMMARY:
		return m.GetSummary().GetSampleSum()
	case dto.MetricType_HISTOGRAM:
		return m.GetHistogram().GetSampleSum()
	default:
		return m.GetUntyped().GetValue()
	}
}
