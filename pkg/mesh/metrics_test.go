package mesh

import (
    "testing"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/require"
)

func TestMetricsMonotonic(t *testing.T) {
    m := &Metrics{}
    m.transmissions.Add(3)
    m.bytesSent.Add(1024)
    s1 := m.Snapshot()
    m.transmissions.Add(1)
    s2 := m.Snapshot()
    require.EqualValues(t, 3, s1.Transmissions)
    require.EqualValues(t, 4, s2.Transmissions)
    require.GreaterOrEqual(t, s2.Transmissions, s1.Transmissions)
    require.EqualValues(t, 1024, s2.BytesSent)
}

func TestMetricsCollector(t *testing.T) {
    m := &Metrics{}
    m.receptions.Add(7)

    reg := prometheus.NewPedanticRegistry()
    require.NoError(t, reg.Register(m))
    require.Equal(t, 12, testutil.CollectAndCount(m))

    got := testutil.ToFloat64(collectorFor(m, descReceptions))
    require.Equal(t, 7.0, got)
}

// collectorFor narrows a Metrics to a single series so testutil.ToFloat64
// can read it.
func collectorFor(m *Metrics, desc *prometheus.Desc) prometheus.Collector {
    return &singleCollector{m: m, desc: desc}
}

type singleCollector struct {
    m    *Metrics
    desc *prometheus.Desc
}

func (s *singleCollector) Describe(ch chan<- *prometheus.Desc) { ch <- s.desc }

func (s *singleCollector) Collect(ch chan<- prometheus.Metric) {
    inner := make(chan prometheus.Metric, 16)
    s.m.Collect(inner)
    close(inner)
    for metric := range inner {
        if metric.Desc() == s.desc { ch <- metric }
    }
}
