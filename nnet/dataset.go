package nnet

import (
	"fmt"
	"image"
	"math/rand"
	"os"
	"path"
	"strconv"
	"sync"

	"github.com/jnb666/mlptrain/img"
	"github.com/jnb666/mlptrain/parallel"
	"gorgonia.org/tensor"
)

var (
	DataDir   = dataDir()
	DataTypes = []string{"train", "test", "valid"}
)

func dataDir() string {
	if dir := os.Getenv("MLPTRAIN_DATA"); dir != "" {
		return dir
	}
	return "data"
}

// Data interface type represents the raw data for a training or test set
type Data interface {
	Len() int
	Classes() []string
	Shape() []int
	Label(index []int, label []int32)
	Input(index []int, buf []float32)
	Image(i int) image.Image
}

// Batch holds one mini-batch of inputs and one hot encoded targets. Rows after Samples
// are zero padding.
type Batch struct {
	X, Y    *tensor.Dense
	Labels  []int32
	Samples int
}

// Dataset type encapsulates a set of training, test or validation data.
type Dataset struct {
	Data
	Samples   int
	BatchSize int
	Batches   int
	Threads   int
	batches   [2]Batch
	indexes   []int
	buf       int
	batch     int
	rng       *rand.Rand
	sync.WaitGroup
}

// Create a new Dataset struct, allocate array buffers and set the batch size and maxSamples.
// If there are fewer samples than the batch size then the batch is padded.
func NewDataset(data Data, batchSize, maxSamples, threads int, rng *rand.Rand) *Dataset {
	d := &Dataset{Data: data, Samples: data.Len(), Threads: threads, rng: rng}
	if maxSamples > 0 && d.Samples > maxSamples {
		d.Samples = maxSamples
	}
	if batchSize <= 0 {
		d.BatchSize = max(d.Samples, 1)
	} else {
		d.BatchSize = batchSize
	}
	d.Batches = d.Samples / d.BatchSize
	if d.Samples%d.BatchSize != 0 {
		d.Batches++
	}
	nfeat := prod(data.Shape())
	for i := range d.batches {
		d.batches[i] = Batch{
			X:      newTensor(d.BatchSize, nfeat),
			Y:      newTensor(d.BatchSize, d.NumClasses()),
			Labels: make([]int32, d.BatchSize),
		}
	}
	d.indexes = make([]int, d.Samples)
	for i := range d.indexes {
		d.indexes[i] = i
	}
	return d
}

// NumClasses returns the number of distinct labels.
func (d *Dataset) NumClasses() int {
	return len(d.Classes())
}

// kick off load of next batch of data in background
func (d *Dataset) loadBatch() {
	d.Add(1)
	go func(b *Batch, batch int) {
		defer d.Done()
		start := batch * d.BatchSize
		end := start + d.BatchSize
		if end > d.Samples {
			end = d.Samples
		}
		index := d.indexes[start:end]
		n := len(index)
		x := b.X.Data().([]float32)
		nfeat := len(x) / d.BatchSize
		parallel.Chunks(n, d.Threads, func(_, s, e int) {
			d.Input(index[s:e], x[s*nfeat:e*nfeat])
		})
		for i := n * nfeat; i < len(x); i++ {
			x[i] = 0
		}
		d.Label(index, b.Labels[:n])
		for i := n; i < d.BatchSize; i++ {
			b.Labels[i] = -1
		}
		y := b.Y.Data().([]float32)
		for i := range y {
			y[i] = 0
		}
		nclass := d.NumClasses()
		for i, label := range b.Labels[:n] {
			y[i*nclass+int(label)] = 1
		}
		b.Samples = n
	}(&d.batches[d.buf], d.batch)
}

// Get next batch of data, returns nil once all batches for this epoch have been read.
func (d *Dataset) NextBatch() *Batch {
	d.Wait()
	if d.batch >= d.Batches {
		return nil
	}
	b := &d.batches[d.buf]
	d.batch++
	d.buf = (d.buf + 1) % 2
	if d.batch < d.Batches {
		d.loadBatch()
	}
	return b
}

// Rewind to start of data
func (d *Dataset) Rewind() {
	d.Wait()
	d.batch = 0
	if d.Batches > 0 {
		d.loadBatch()
	}
}

// Shuffle the data set. If the number of samples is limited then a new random subset is selected.
func (d *Dataset) Shuffle() {
	d.Wait()
	d.indexes = d.rng.Perm(d.Len())[:d.Samples]
}

// Indexes returns the data index of each sample in the order they are read for this epoch.
func (d *Dataset) Indexes() []int {
	d.Wait()
	return append([]int{}, d.indexes...)
}

// Load data from disk given the data set name.
func LoadData(name string) (map[string]Data, error) {
	d := make(map[string]Data)
	for _, key := range DataTypes {
		file := name + "_" + key
		if FileExists(file + ".dat") {
			data, err := LoadDataFile(file)
			if err != nil {
				return nil, err
			}
			d[key] = data
		}
	}
	if _, ok := d["train"]; !ok {
		return nil, fmt.Errorf("no training data found for %s under %s", name, DataDir)
	}
	return d, nil
}

// Decode image data from file in gob format under DataDir
func LoadDataFile(name string) (*img.Data, error) {
	filePath := path.Join(DataDir, name+".dat")
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fmt.Printf("loading data from %s.dat:\t", name)
	d := new(img.Data)
	if err = d.Decode(f); err != nil {
		fmt.Println()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	fmt.Println(append(d.Shape(), d.Len()))
	return d, nil
}

// Encode in gob format and save to file under DataDir
func SaveDataFile(d *img.Data, name string) error {
	if err := os.MkdirAll(DataDir, 0755); err != nil {
		return err
	}
	filePath := path.Join(DataDir, name+".dat")
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	fmt.Println("saving data to", name+".dat")
	if err = d.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Check if file exists under DataDir
func FileExists(name string) bool {
	filePath := path.Join(DataDir, name)
	_, err := os.Stat(filePath)
	return err == nil
}

type data struct {
	Class  []string
	Dims   []int
	Labels []int32
	Inputs []float32
}

// NewData function creates a new in memory data set which implements the Data interface
func NewData(nclasses int, shape []int, labels []int32, inputs []float32) Data {
	classes := make([]string, nclasses)
	for i := range classes {
		classes[i] = strconv.Itoa(i)
	}
	return data{Class: classes, Dims: shape, Labels: labels, Inputs: inputs}
}

func (d data) Len() int { return len(d.Labels) }

func (d data) Classes() []string { return d.Class }

func (d data) Shape() []int { return d.Dims }

func (d data) Label(index []int, label []int32) {
	for i, ix := range index {
		label[i] = d.Labels[ix]
	}
}

func (d data) Input(index []int, buf []float32) {
	nfeat := prod(d.Dims)
	for i, ix := range index {
		copy(buf[i*nfeat:], d.Inputs[ix*nfeat:(ix+1)*nfeat])
	}
}

func (d data) Image(i int) image.Image { return nil }
