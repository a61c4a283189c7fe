package nnet

import (
	"math/rand"
	"reflect"
	"testing"
)

// two well separated clusters in 2 dimensions
func clusterData(n int, rng *rand.Rand) Data {
	inputs := make([]float32, 2*n)
	labels := make([]int32, n)
	for i := range labels {
		label := int32(i % 2)
		centre := float32(2*label - 1)
		inputs[2*i] = centre + 0.3*float32(rng.NormFloat64())
		inputs[2*i+1] = centre + 0.3*float32(rng.NormFloat64())
		labels[i] = label
	}
	return NewData(2, []int{2}, labels, inputs)
}

func TestDataset(t *testing.T) {
	inputs := make([]float32, 10)
	labels := make([]int32, 10)
	for i := range labels {
		inputs[i] = float32(i)
		labels[i] = int32(i % 3)
	}
	d := NewDataset(NewData(3, []int{1}, labels, inputs), 4, 0, 2, rand.New(rand.NewSource(1)))
	if d.Samples != 10 || d.BatchSize != 4 || d.Batches != 3 {
		t.Fatalf("got samples=%d batch=%d batches=%d", d.Samples, d.BatchSize, d.Batches)
	}
	d.Rewind()
	var seen []float32
	for batch := 0; batch < d.Batches; batch++ {
		b := d.NextBatch()
		x := b.X.Data().([]float32)
		seen = append(seen, x[:b.Samples]...)
		if batch == 2 {
			if b.Samples != 2 {
				t.Errorf("last batch has %d samples", b.Samples)
			}
			if !reflect.DeepEqual(b.Labels, []int32{2, 0, -1, -1}) {
				t.Errorf("got labels %v", b.Labels)
			}
			if !reflect.DeepEqual(x, []float32{8, 9, 0, 0}) {
				t.Errorf("got inputs %v", x)
			}
			y := b.Y.Data().([]float32)
			expect := []float32{0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0}
			if !reflect.DeepEqual(y, expect) {
				t.Errorf("got one hot %v", y)
			}
		}
	}
	if !reflect.DeepEqual(seen, inputs) {
		t.Errorf("got %v expect %v", seen, inputs)
	}
	if d.NextBatch() != nil {
		t.Error("expected nil batch at end of epoch")
	}
}

func TestShuffle(t *testing.T) {
	inputs := make([]float32, 20)
	labels := make([]int32, 20)
	for i := range inputs {
		inputs[i] = float32(i)
	}
	d := NewDataset(NewData(1, []int{1}, labels, inputs), 8, 8, 1, rand.New(rand.NewSource(3)))
	if d.Samples != 8 || d.Batches != 1 {
		t.Fatalf("got samples=%d batches=%d", d.Samples, d.Batches)
	}
	d.Shuffle()
	d.Rewind()
	x := d.NextBatch().X.Data().([]float32)
	seen := map[float32]bool{}
	for _, v := range x {
		if seen[v] {
			t.Errorf("duplicate sample %v in %v", v, x)
		}
		seen[v] = true
	}
}

func TestTrain(t *testing.T) {
	DataDir = t.TempDir()
	rng := rand.New(rand.NewSource(42))
	data := map[string]Data{
		"train": clusterData(200, rng),
		"test":  clusterData(50, rng),
		"valid": clusterData(50, rng),
	}
	conf := Config{Eta: 0.1, TrainBatch: 16, TestBatch: 32, MaxEpoch: 10, Shuffle: true, Threads: 2}.AddLayers(
		Linear{Nout: 8},
		Activation{Atype: "tanh"},
		Linear{Nout: 2},
		LogSoftmax{},
	)
	dset := NewDataset(data["train"], conf.TrainBatch, 0, conf.Threads, rng)
	net, err := New(conf, dset.BatchSize, dset.Shape(), true)
	if err != nil {
		t.Fatal(err)
	}
	net.InitWeights(rng)
	base, tester, err := NewTestLogger(conf, data, rng)
	if err != nil {
		t.Fatal(err)
	}
	base.Predict()
	if err = Train(net, dset, tester); err != nil {
		t.Fatal(err)
	}
	if len(base.Stats) != 10 || net.Epoch != 10 {
		t.Fatalf("got %d stats after epoch %d", len(base.Stats), net.Epoch)
	}
	expect := []string{"loss", "test loss", "train error", "test error", "valid error", "valid avg"}
	if !reflect.DeepEqual(base.Headers, expect) {
		t.Errorf("got headers %v", base.Headers)
	}
	first, last := base.Stats[0], base.Stats[9]
	if last.Values[0] >= first.Values[0] {
		t.Errorf("loss did not decrease: %v -> %v", first.Values[0], last.Values[0])
	}
	if last.Values[3] > 0.1 {
		t.Errorf("test error too high: %v", last.Values[3])
	}
	if len(base.Pred["test"]) != 50 {
		t.Errorf("got %d predictions", len(base.Pred["test"]))
	}

	// resuming at the final epoch does no more training
	if err = Train(net, dset, tester); err != nil || len(base.Stats) != 10 {
		t.Errorf("resume: err=%v stats=%d", err, len(base.Stats))
	}

	// checkpoint restores the same weights
	ckpt := net.Checkpoint("clusters", base.Stats)
	if err = SaveCheckpoint(ckpt); err != nil {
		t.Fatal(err)
	}
	ckpt2, err := LoadCheckpoint("clusters")
	if err != nil {
		t.Fatal(err)
	}
	net2, err := New(ckpt2.Conf, dset.BatchSize, dset.Shape(), false)
	if err != nil {
		t.Fatal(err)
	}
	if err = net2.Restore(ckpt2); err != nil {
		t.Fatal(err)
	}
	if net2.Epoch != 10 || len(ckpt2.Stats) != 10 {
		t.Errorf("restored epoch %d stats %d", net2.Epoch, len(ckpt2.Stats))
	}
	W1, _ := net.Layers[2].(ParamLayer).Weights()
	W2, _ := net2.Layers[2].(ParamLayer).Weights()
	if !reflect.DeepEqual(W1, W2) {
		t.Error("restored weights differ")
	}
	if err = net2.Import([]LayerData{{Layer: 1}}); err == nil {
		t.Error("expected import error for activation layer")
	}
}

func TestTrainClassMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	conf := Config{Eta: 0.1, MaxEpoch: 1}.AddLayers(Linear{Nout: 3}, LogSoftmax{})
	dset := NewDataset(clusterData(10, rng), 5, 0, 1, rng)
	net, err := New(conf, 5, []int{2}, true)
	if err != nil {
		t.Fatal(err)
	}
	if err = Train(net, dset, NewTestBase()); err == nil {
		t.Error("expected class mismatch error")
	}
}

func TestBestSince(t *testing.T) {
	history := []Stats{
		{Epoch: 1, Values: []float64{0, 0.5}},
		{Epoch: 2, Values: []float64{0, 0.3}},
		{Epoch: 3, Values: []float64{0, 0.4}},
	}
	if n := bestSince(history, Stats{Epoch: 4, Values: []float64{0, 0.35}}, 1); n != 2 {
		t.Errorf("got %d expect 2", n)
	}
	if n := bestSince(history, Stats{Epoch: 4, Values: []float64{0, 0.2}}, 1); n != 0 {
		t.Errorf("got %d expect 0", n)
	}
}

func TestStatsLine(t *testing.T) {
	s := Stats{Epoch: 3, Values: []float64{0.12346, 0.2, 0.0512}, BestSince: -1}
	cols := s.Columns([]string{"loss", "test loss", "test error"})
	if !reflect.DeepEqual(cols, []string{" 0.1235", " 0.2000", "  5.12%"}) {
		t.Errorf("got columns %q", cols)
	}
	got := s.Line([]string{"loss", "test loss", "test error"})
	expect := "epoch   3:  loss = 0.1235  test loss = 0.2000  test error =  5.12%"
	if got != expect {
		t.Errorf("got %q expect %q", got, expect)
	}
}
