// Package stats has helpers for accumulating summary statistics over a training run.
package stats

import (
	"fmt"
	"html/template"
	"math"
)

// Calc exponentional moving average over a window of n values
type EMA float64

func (e EMA) Add(val, n float64) float64 {
	if e == 0 {
		return val
	}
	k := 2.0 / (n + 1.0)
	return val*k + float64(e)*(1-k)
}

// Running mean and stddev using Welford's method.
type Average struct {
	Count, Mean float64
	Var, StdDev float64
	Min, Max    float64
	oldM, oldV  float64
}

func (s *Average) Add(x float64) {
	s.Count++
	if s.Count == 1 {
		s.oldM, s.Mean = x, x
		s.oldV = 0
		s.Min, s.Max = x, x
		return
	}
	s.Mean = s.oldM + (x-s.oldM)/s.Count
	s.Var = s.oldV + (x-s.oldM)*(x-s.Mean)
	s.oldM, s.oldV = s.Mean, s.Var
	s.StdDev = math.Sqrt(s.Var / (s.Count - 1))
	s.Min = math.Min(s.Min, x)
	s.Max = math.Max(s.Max, x)
}

// Merge combines the stats accumulated separately in another Average.
func (s *Average) Merge(o *Average) {
	if o.Count == 0 {
		return
	}
	if s.Count == 0 {
		*s = *o
		return
	}
	n := s.Count + o.Count
	delta := o.Mean - s.Mean
	mean := s.Mean + delta*o.Count/n
	m2 := s.Var + o.Var + delta*delta*s.Count*o.Count/n
	s.Count, s.Mean, s.Var = n, mean, m2
	s.oldM, s.oldV = mean, m2
	s.StdDev = math.Sqrt(m2 / (n - 1))
	s.Min = math.Min(s.Min, o.Min)
	s.Max = math.Max(s.Max, o.Max)
}

func (s *Average) String() string {
	return fmt.Sprintf("%.4g±%.4g", s.Mean, s.StdDev)
}

func (s *Average) HTML() template.HTML {
	var text string
	if s.Mean > 10 {
		if s.StdDev < 0.1 {
			text = fmt.Sprintf("%.1f", s.Mean)
		} else {
			text = fmt.Sprintf("%.1f&PlusMinus;%.1f", s.Mean, s.StdDev)
		}
	} else {
		if s.StdDev < 0.01 {
			text = fmt.Sprintf("%.2f", s.Mean)
		} else {
			text = fmt.Sprintf("%.2f&PlusMinus;%.2f", s.Mean, s.StdDev)
		}
	}
	return template.HTML(text)
}
