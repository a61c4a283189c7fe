package stats

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestAverage(t *testing.T) {
	var s Average
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Add(x)
	}
	if s.Count != 8 || math.Abs(s.Mean-5) > eps {
		t.Errorf("got count=%v mean=%v expect 8 5", s.Count, s.Mean)
	}
	expect := math.Sqrt(32.0 / 7)
	if math.Abs(s.StdDev-expect) > eps {
		t.Errorf("got stddev %v expect %v", s.StdDev, expect)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Errorf("got min=%v max=%v", s.Min, s.Max)
	}
}

func TestMerge(t *testing.T) {
	var a, b, all Average
	for i := 0; i < 20; i++ {
		x := float64(i*i) / 7
		all.Add(x)
		if i < 7 {
			a.Add(x)
		} else {
			b.Add(x)
		}
	}
	a.Merge(&b)
	if a.Count != all.Count || math.Abs(a.Mean-all.Mean) > 1e-6 || math.Abs(a.StdDev-all.StdDev) > 1e-6 {
		t.Errorf("merged %s expect %s", a.String(), all.String())
	}
	var empty Average
	empty.Merge(&all)
	if empty.Mean != all.Mean {
		t.Error("merge into empty failed")
	}
}

func TestEMA(t *testing.T) {
	var e EMA
	v := e.Add(1, 10)
	if v != 1 {
		t.Errorf("first value got %v expect 1", v)
	}
	k := 2.0 / 11
	v2 := EMA(v).Add(2, 10)
	if math.Abs(v2-(2*k+1*(1-k))) > eps {
		t.Errorf("got %v", v2)
	}
}

func TestHTML(t *testing.T) {
	s := Average{Mean: 1.234, StdDev: 0.001}
	if got := string(s.HTML()); got != "1.23" {
		t.Errorf("got %q", got)
	}
	s = Average{Mean: 12.34, StdDev: 0.5}
	if got := string(s.HTML()); got != "12.3&PlusMinus;0.5" {
		t.Errorf("got %q", got)
	}
}
