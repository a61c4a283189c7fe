package nnet

import (
	"math"
	"math/rand"
	"testing"

	"gorgonia.org/tensor"
)

const eps = 1e-5

func abs(x float32) float32 {
	if x >= 0 {
		return x
	}
	return -x
}

func compare(t *testing.T, title string, got, expect []float32) {
	t.Logf("== %s ==\n%v", title, got)
	if len(got) != len(expect) {
		t.Fatal(title, " length mismatch!")
	}
	for i := range got {
		if abs(got[i]-expect[i]) > eps {
			t.Errorf("%s mismatch at %d: got %v expect %v", title, i, got[i], expect[i])
			return
		}
	}
}

func logRegConfig(eta float64) Config {
	return Config{Eta: eta, MaxEpoch: 1}.AddLayers(Linear{Nout: 2}, LogSoftmax{})
}

func batchTensors(rows, nin, nout int, x []float32, labels []int) (X, Y *tensor.Dense) {
	X = newTensor(rows, nin)
	copy(X.Data().([]float32), x)
	Y = newTensor(rows, nout)
	y := Y.Data().([]float32)
	for i, label := range labels {
		y[i*nout+label] = 1
	}
	return
}

func TestLossPadding(t *testing.T) {
	net, err := New(logRegConfig(0.1), 4, []int{2}, false)
	if err != nil {
		t.Fatal(err)
	}
	// zero weights give equal probability for each class
	X, Y := batchTensors(4, 2, 2, []float32{1, 2, 3, 4, 5, 6}, []int{0, 1, 1})
	loss, logp, err := net.Eval(X, Y, 3)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss-math.Ln2) > eps {
		t.Errorf("got loss %v expect %v", loss, math.Ln2)
	}
	if len(logp) != 8 || math.Abs(float64(logp[0])+math.Ln2) > eps {
		t.Errorf("got logp %v", logp)
	}
}

func TestStep(t *testing.T) {
	net, err := New(logRegConfig(0.1), 2, []int{2}, true)
	if err != nil {
		t.Fatal(err)
	}
	X, Y := batchTensors(2, 2, 2, []float32{1, 2, 3, -1}, []int{0, 1})
	loss, err := net.Step(X, Y, 2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss-math.Ln2) > eps {
		t.Errorf("got loss %v expect %v", loss, math.Ln2)
	}
	W, B := net.Layers[0].(ParamLayer).Weights()
	compare(t, "W", W, []float32{-0.05, 0.05, 0.075, -0.075})
	compare(t, "B", B, []float32{0, 0})
}

func TestNewErrors(t *testing.T) {
	bad := []Config{
		{},
		Config{Eta: 0.1}.AddLayers(Linear{Nout: 2}),
		Config{Eta: 0.1}.AddLayers(Linear{Nout: 2}, Activation{Atype: "bogus"}, LogSoftmax{}),
		Config{Eta: 0.1}.AddLayers(Linear{Nout: 0}, LogSoftmax{}),
		Config{Eta: 0.1, Optimizer: "bogus"}.AddLayers(Linear{Nout: 2}, LogSoftmax{}),
		Config{Eta: 0}.AddLayers(Linear{Nout: 2}, LogSoftmax{}),
		{Eta: 0.1, Layers: []LayerConfig{{Type: "conv"}}},
	}
	for i, conf := range bad {
		if _, err := New(conf, 4, []int{3}, true); err == nil {
			t.Errorf("config %d: expected error", i)
		} else {
			t.Logf("config %d: %s", i, err)
		}
	}
	if _, err := New(logRegConfig(0.1), 0, []int{3}, false); err == nil {
		t.Error("expected batch size error")
	}
}

func TestSolvers(t *testing.T) {
	for _, opt := range Optimizers {
		conf := logRegConfig(0.01)
		conf.Optimizer = opt
		conf.Momentum = 0.9
		net, err := New(conf, 2, []int{2}, true)
		if err != nil {
			t.Fatal(opt, err)
		}
		net.InitWeights(rand.New(rand.NewSource(1)))
		X, Y := batchTensors(2, 2, 2, []float32{1, 2, 3, -1}, []int{0, 1})
		before, _ := net.Layers[0].(ParamLayer).Weights()
		if _, err := net.Step(X, Y, 2); err != nil {
			t.Fatal(opt, err)
		}
		after, _ := net.Layers[0].(ParamLayer).Weights()
		changed := false
		for i := range before {
			if before[i] != after[i] {
				changed = true
			}
		}
		if !changed {
			t.Errorf("%s: weights not updated", opt)
		}
	}
}

func TestInitWeights(t *testing.T) {
	conf := DefaultConfig("mnist")
	conf.Bias = 0.1
	net, err := New(conf, 8, []int{28, 28}, false)
	if err != nil {
		t.Fatal(err)
	}
	net.InitWeights(rand.New(rand.NewSource(42)))
	scale := float32(1 / math.Sqrt(784))
	W, B := net.Layers[0].(ParamLayer).Weights()
	if len(W) != 784*128 || len(B) != 128 {
		t.Fatalf("got %d weights %d biases", len(W), len(B))
	}
	for _, w := range W {
		if abs(w) > scale {
			t.Fatalf("weight %v out of range %v", w, scale)
		}
	}
	if B[0] != 0.1 {
		t.Errorf("bias got %v expect 0.1", B[0])
	}
	if net.Classes() != 10 || net.Features() != 784 {
		t.Errorf("got classes=%d features=%d", net.Classes(), net.Features())
	}
	t.Log(net)
}

func TestClassify(t *testing.T) {
	net, err := New(DefaultConfig("mnist"), 4, []int{4, 4}, false)
	if err != nil {
		t.Fatal(err)
	}
	net.InitWeights(rand.New(rand.NewSource(1)))
	probs, err := net.Classify(make([]float32, 16))
	if err != nil {
		t.Fatal(err)
	}
	var sum float32
	for _, p := range probs {
		sum += p
	}
	if len(probs) != 10 || abs(sum-1) > 1e-4 {
		t.Errorf("got probs %v sum %v", probs, sum)
	}
	if _, err := net.Classify(make([]float32, 3)); err == nil {
		t.Error("expected input size error")
	}
}

// stepping a padded batch must give the same result as an unpadded batch of the valid rows
func TestPaddedStep(t *testing.T) {
	x := []float32{1, 2, 3, -1, -2, 0.5}
	labels := []int{0, 1, 1}
	for _, opt := range Optimizers {
		conf := logRegConfig(0.05)
		conf.Optimizer = opt
		conf.Lambda = 0.01
		conf.Momentum = 0.9
		padded, err := New(conf, 4, []int{2}, true)
		if err != nil {
			t.Fatal(opt, err)
		}
		exact, err := New(conf, 3, []int{2}, true)
		if err != nil {
			t.Fatal(opt, err)
		}
		padded.InitWeights(rand.New(rand.NewSource(7)))
		exact.InitWeights(rand.New(rand.NewSource(7)))
		X4, Y4 := batchTensors(4, 2, 2, x, labels)
		X3, Y3 := batchTensors(3, 2, 2, x, labels)
		for step := 0; step < 3; step++ {
			loss4, err := padded.Step(X4, Y4, 3)
			if err != nil {
				t.Fatal(opt, err)
			}
			loss3, err := exact.Step(X3, Y3, 3)
			if err != nil {
				t.Fatal(opt, err)
			}
			if math.Abs(loss4-loss3) > eps {
				t.Errorf("%s step %d: padded loss %v expect %v", opt, step, loss4, loss3)
			}
		}
		W4, B4 := padded.Layers[0].(ParamLayer).Weights()
		W3, B3 := exact.Layers[0].(ParamLayer).Weights()
		compare(t, opt+" W", W4, W3)
		compare(t, opt+" B", B4, B3)
	}
}

// restoring a checkpoint starts a new solver, so the next step does not depend on earlier moments
func TestRestoreSolver(t *testing.T) {
	conf := logRegConfig(0.05)
	conf.Optimizer = "adam"
	trained, err := New(conf, 2, []int{2}, true)
	if err != nil {
		t.Fatal(err)
	}
	trained.InitWeights(rand.New(rand.NewSource(1)))
	X, Y := batchTensors(2, 2, 2, []float32{1, 2, 3, -1}, []int{0, 1})
	for i := 0; i < 3; i++ {
		if _, err := trained.Step(X, Y, 2); err != nil {
			t.Fatal(err)
		}
	}
	trained.Epoch = 4
	ckpt := trained.Checkpoint("adam", nil)
	resumed, err := New(conf, 2, []int{2}, true)
	if err != nil {
		t.Fatal(err)
	}
	if err = resumed.Restore(ckpt); err != nil {
		t.Fatal(err)
	}
	if err = trained.Restore(ckpt); err != nil {
		t.Fatal(err)
	}
	if resumed.Epoch != 4 {
		t.Errorf("got epoch %d expect 4", resumed.Epoch)
	}
	for _, net := range []*Network{trained, resumed} {
		if _, err := net.Step(X, Y, 2); err != nil {
			t.Fatal(err)
		}
	}
	W1, B1 := trained.Layers[0].(ParamLayer).Weights()
	W2, B2 := resumed.Layers[0].(ParamLayer).Weights()
	compare(t, "W", W2, W1)
	compare(t, "B", B2, B1)
}
