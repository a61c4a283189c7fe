package nnet

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jnb666/mlptrain/stats"
)

// window size for averaging the validation error
const emaN = 10

// Training statistics
type Stats struct {
	Epoch     int
	Values    []float64
	BestSince int
	Elapsed   time.Duration
}

// StatsHeaders returns the column names for Stats.Values given the available data sets.
func StatsHeaders(d map[string]Data) []string {
	h := []string{"loss"}
	if _, ok := d["test"]; ok {
		h = append(h, "test loss")
	}
	for _, key := range DataTypes {
		if _, ok := d[key]; ok {
			h = append(h, key+" error")
			if key == "valid" {
				h = append(h, "valid avg")
			}
		}
	}
	return h
}

// Columns returns the loss values to 4 decimal places and errors as a percentage.
func (s Stats) Columns(headers []string) []string {
	str := make([]string, len(s.Values))
	for i, v := range s.Values {
		if i < len(headers) && strings.HasSuffix(headers[i], "loss") {
			str[i] = fmt.Sprintf("%7.4f", v)
		} else {
			str[i] = fmt.Sprintf("%6.2f%%", v*100)
		}
	}
	return str
}

// Line formats the stats for one epoch as a single log line.
func (s Stats) Line(headers []string) string {
	msg := fmt.Sprintf("epoch %3d:", s.Epoch)
	for i, val := range s.Columns(headers) {
		msg += fmt.Sprintf("  %s =%s", headers[i], val)
	}
	if s.BestSince >= 0 {
		msg += fmt.Sprintf(" [%d]", s.BestSince)
	}
	return msg
}

// Tester interface to evaluate the performance after each epoch, Test method returns true if training should stop.
type Tester interface {
	Test(net *Network, epoch int, loss float64, start time.Time) (bool, error)
}

// Tester which evaluates the loss and error for each of the data sets and updates the stats.
type TestBase struct {
	Net     *Network
	Data    map[string]*Dataset
	Pred    map[string][]int32
	Stats   []Stats
	Headers []string
}

// Create a new base class which implements the Tester interface.
func NewTestBase() *TestBase {
	return &TestBase{Stats: []Stats{}}
}

// Initialise the test datasets and a network without the backward pass to evaluate them.
func (t *TestBase) Init(conf Config, data map[string]Data, rng *rand.Rand) (*TestBase, error) {
	train, ok := data["train"]
	if !ok {
		return nil, fmt.Errorf("tester: no training data")
	}
	t.Data = make(map[string]*Dataset)
	t.Headers = StatsHeaders(data)
	t.Pred = nil
	samples := conf.MaxSamples
	if samples <= 0 || samples > train.Len() {
		samples = train.Len()
	}
	batch := conf.TestBatch
	if batch <= 0 || batch > samples {
		batch = samples
	}
	if conf.DebugLevel >= 1 {
		fmt.Printf("init tester: samples=%d batch size=%d\n", samples, batch)
	}
	for key, d := range data {
		if conf.DebugLevel >= 1 {
			fmt.Println("dataset =>", key)
		}
		t.Data[key] = NewDataset(d, batch, samples, conf.Threads, rng)
	}
	var err error
	t.Net, err = New(conf, batch, train.Shape(), false)
	return t, err
}

// Generate the predicted results when test is next run.
func (t *TestBase) Predict() *TestBase {
	t.Pred = make(map[string][]int32)
	for key, dset := range t.Data {
		t.Pred[key] = make([]int32, dset.Samples)
	}
	return t
}

// Reset stats prior to new run
func (t *TestBase) Reset() {
	t.Stats = t.Stats[:0]
}

// Test performance of the network, called from the Train function on completion of each epoch.
func (t *TestBase) Test(net *Network, epoch int, loss float64, start time.Time) (bool, error) {
	if err := net.CopyTo(t.Net); err != nil {
		return true, err
	}
	if net.DebugLevel >= 1 {
		fmt.Printf("== TEST EPOCH %d ==\n", epoch)
	}
	s := Stats{Epoch: epoch, Values: []float64{loss}, BestSince: -1}
	errs := make(map[string]float64)
	for _, key := range DataTypes {
		dset, ok := t.Data[key]
		if !ok {
			continue
		}
		if dset.Samples < dset.Len() {
			dset.Shuffle()
		}
		var pred []int32
		if t.Pred != nil {
			pred = t.Pred[key]
		}
		testLoss, errVal, err := t.Net.Error(dset, pred)
		if err != nil {
			return true, fmt.Errorf("%s: %w", key, err)
		}
		errs[key] = errVal
		if key == "test" {
			s.Values = append(s.Values, testLoss)
		}
	}
	validAvg := -1
	for _, key := range DataTypes {
		errVal, ok := errs[key]
		if !ok {
			continue
		}
		s.Values = append(s.Values, errVal)
		if key == "valid" {
			validAvg = len(s.Values)
			prev := 0.0
			if n := len(t.Stats); n > 0 {
				prev = t.Stats[n-1].Values[validAvg]
			}
			s.Values = append(s.Values, stats.EMA(prev).Add(errVal, emaN))
		}
	}
	if validAvg >= 0 {
		s.BestSince = bestSince(t.Stats, s, validAvg)
	}
	s.Elapsed = time.Since(start)
	t.Stats = append(t.Stats, s)
	done := epoch >= net.MaxEpoch || loss <= net.MinLoss || (net.StopAfter > 0 && s.BestSince >= net.StopAfter)
	return done, nil
}

// number of epochs since the lowest average validation error
func bestSince(history []Stats, s Stats, col int) int {
	best, bestEpoch := s.Values[col], s.Epoch
	for _, h := range history {
		if h.Values[col] < best {
			best, bestEpoch = h.Values[col], h.Epoch
		}
	}
	return s.Epoch - bestEpoch
}

type testLogger struct {
	*TestBase
}

// Create a new tester which logs stats to stdout.
func NewTestLogger(conf Config, data map[string]Data, rng *rand.Rand) (*TestBase, Tester, error) {
	base, err := NewTestBase().Init(conf, data, rng)
	if err != nil {
		return nil, nil, err
	}
	return base, testLogger{TestBase: base}, nil
}

func (t testLogger) Test(net *Network, epoch int, loss float64, start time.Time) (bool, error) {
	done, err := t.TestBase.Test(net, epoch, loss, start)
	if err != nil {
		return done, err
	}
	s := t.Stats[len(t.Stats)-1]
	if done || net.LogEvery == 0 || epoch%net.LogEvery == 0 {
		fmt.Println(s.Line(t.Headers))
	}
	if done {
		fmt.Printf("run time: %s\n", s.Elapsed.Round(10*time.Millisecond))
	}
	return done, nil
}

// Train the network on the given training set by updating the weights, continuing from
// the last completed epoch until the tester signals completion.
func Train(net *Network, dset *Dataset, test Tester) error {
	if dset.NumClasses() != net.Classes() {
		return fmt.Errorf("dataset has %d classes, network output %d", dset.NumClasses(), net.Classes())
	}
	start := time.Now()
	for done := net.Epoch >= net.MaxEpoch; !done; {
		loss, err := TrainEpoch(net, dset)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", net.Epoch+1, err)
		}
		net.Epoch++
		if done, err = test.Test(net, net.Epoch, loss, start); err != nil {
			return err
		}
	}
	return nil
}

// Perform one training epoch on dataset, returns the mean loss over the epoch with each
// batch loss taken prior to updating the weights.
func TrainEpoch(net *Network, dset *Dataset) (float64, error) {
	if dset.BatchSize != net.BatchSize {
		return 0, fmt.Errorf("dataset batch size %d does not match network %d", dset.BatchSize, net.BatchSize)
	}
	if net.Shuffle {
		dset.Shuffle()
	}
	dset.Rewind()
	var total float64
	for batch := 0; batch < dset.Batches; batch++ {
		b := dset.NextBatch()
		loss, err := net.Step(b.X, b.Y, b.Samples)
		if err != nil {
			return 0, fmt.Errorf("batch %d: %w", batch, err)
		}
		if net.DebugLevel >= 2 || (net.DebugLevel == 1 && batch == 0) {
			fmt.Printf("train batch %d: loss = %.4f\n", batch, loss)
		}
		total += loss * float64(b.Samples)
	}
	return total / float64(dset.Samples), nil
}
