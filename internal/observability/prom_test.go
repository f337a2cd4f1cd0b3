package observability

import (
	"bytes"
	"strings"
	"testing"
)

func TestScalarSeries(t *testing.T) {
	g := NewGauge("g", "help")
	g.Inc()
	g.Inc()
	g.Dec()
	if g.Value() != 1 {
		t.Fatalf("gauge: want=1 got=%v", g.Value())
	}
	c := NewCounter("c", "help")
	c.Add(2)
	c.Add(-5)
	if c.Value() != 2 {
		t.Fatalf("counter ignores negative deltas: want=2 got=%v", c.Value())
	}

	var buf bytes.Buffer
	_ = NewCounter("fresh_total", "never touched").WritePrometheus(&buf)
	if !strings.Contains(buf.String(), "fresh_total 0.000000") {
		t.Fatalf("unlabelled series should export zero: %s", buf.String())
	}
}

func TestSeriesSortedOutput(t *testing.T) {
	v := NewCounterVec("v_total", "help", []string{"stage"})
	v.Inc("Storing")
	v.Inc("Analyzing")
	var buf bytes.Buffer
	_ = v.WritePrometheus(&buf)
	out := buf.String()
	if strings.Index(out, `stage="Analyzing"`) > strings.Index(out, `stage="Storing"`) {
		t.Fatalf("series should be sorted:\n%s", out)
	}
}
