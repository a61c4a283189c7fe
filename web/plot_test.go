package web

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jnb666/mlptrain/nnet"
	"gonum.org/v1/plot"
)

func TestPlots(t *testing.T) {
	headers := []string{"loss", "test loss", "train error", "test error"}
	stats := []nnet.Stats{
		{Epoch: 1, Values: []float64{0.9, 0.8, 0.2, 0.25}, Elapsed: time.Second},
		{Epoch: 2, Values: []float64{0.5, 0.6, 0.1, 0.15}, Elapsed: 2 * time.Second},
	}
	loss, err := LossPlot(stats, headers)
	if err != nil {
		t.Fatal(err)
	}
	errPlot, err := ErrorPlot(stats, headers)
	if err != nil {
		t.Fatal(err)
	}
	probs, err := ClassifyPlot([]float32{0.1, 0.9}, []string{"top", "bottom"})
	if err != nil {
		t.Fatal(err)
	}
	for i, plt := range []*plot.Plot{loss, errPlot, probs} {
		var buf bytes.Buffer
		if err := WriteSVG(&buf, plt, 300, 200); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "<svg") {
			t.Errorf("plot %d: no svg output", i)
		}
	}
	file := filepath.Join(t.TempDir(), "loss.svg")
	if err := SavePlot(loss, 600, 400, file); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(file); err != nil || info.Size() == 0 {
		t.Errorf("plot file not written: %v", err)
	}
	if _, err := ClassifyPlot([]float32{1}, []string{"a", "b"}); err == nil {
		t.Error("expected class count error")
	}
}
