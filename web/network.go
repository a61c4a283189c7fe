// Package web has a web based interface for network training and visualisation.
package web

import (
	"fmt"
	"html/template"
	"log"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jnb666/mlptrain/nnet"
)

var tuneOpts = []string{"Eta", "Lambda", "TrainBatch"}

// Network and associated training / test data and configuration
type Network struct {
	*nnet.Network
	Model     string
	Conf      nnet.Config
	Data      map[string]nnet.Data
	Labels    map[string][]int32
	Pred      map[string][]int32 // predicted class by image index, -1 if not yet tested
	Stats     []nnet.Stats
	Headers   []string
	Tuners    []TuneParams
	Run       int
	MaxRun    int
	test      *nnet.TestBase
	view      *nnet.Network
	trainData *nnet.Dataset
	rng       *rand.Rand
	testRng   *rand.Rand
	conn      *websocket.Conn
	connMu    sync.Mutex
	running   bool
	stop      bool
	tuneMode  bool
	sync.Mutex
}

// Create a new network and load config from data given model name. If a checkpoint
// exists then the weights are restored from it.
func NewNetwork(model string) (*Network, error) {
	n := &Network{Model: model, MaxRun: 1}
	log.Println("load model:", model)
	conf, err := nnet.LoadConfig(model + ".conf")
	if err != nil {
		return nil, err
	}
	if err = n.Init(conf); err != nil {
		return nil, err
	}
	ckpt, err := nnet.LoadCheckpoint(model)
	if err == nil {
		log.Printf("import weights from epoch %d\n", ckpt.Epoch)
		if err = n.Restore(ckpt); err == nil {
			n.Stats = ckpt.Stats
			n.test.Stats = append(n.test.Stats[:0], ckpt.Stats...)
			return n, n.Network.CopyTo(n.view)
		}
	}
	if !os.IsNotExist(err) {
		log.Println("ignoring checkpoint:", err)
	}
	log.Println("init weights")
	n.InitWeights(n.rng)
	return n, n.Network.CopyTo(n.view)
}

// Initialise the network
func (n *Network) Init(conf nnet.Config) error {
	log.Printf("init network: dataSet=%s optimizer=%s\n", conf.DataSet, conf.Optimizer)
	if conf.Threads <= 0 {
		conf.Threads = nnet.DefaultThreads()
	}
	var err error
	if n.Data, err = nnet.LoadData(conf.DataSet); err != nil {
		return err
	}
	n.Conf = conf
	n.rng = nnet.SetSeed(conf.RandSeed)
	n.testRng = nnet.SetSeed(conf.RandSeed)
	n.trainData = nnet.NewDataset(n.Data["train"], conf.TrainBatch, conf.MaxSamples, conf.Threads, n.rng)
	if n.Network, err = nnet.New(conf, n.trainData.BatchSize, n.trainData.Shape(), true); err != nil {
		return err
	}
	if n.view, err = nnet.New(conf, 1, n.trainData.Shape(), false); err != nil {
		return err
	}
	if n.DebugLevel >= 1 {
		fmt.Println(n.Network)
	}
	if n.test, err = nnet.NewTestBase().Init(conf, n.Data, n.testRng); err != nil {
		return err
	}
	n.test.Predict()
	n.Headers = n.test.Headers
	n.Labels = make(map[string][]int32)
	n.Pred = make(map[string][]int32)
	for key, d := range n.Data {
		n.Labels[key] = make([]int32, d.Len())
		d.Label(seq(d.Len()), n.Labels[key])
		n.Pred[key] = make([]int32, d.Len())
		for i := range n.Pred[key] {
			n.Pred[key][i] = -1
		}
	}
	if n.Tuners == nil {
		for _, opt := range tuneOpts {
			n.Tuners = append(n.Tuners, TuneParams{Name: opt, Values: []string{fmt.Sprint(conf.Get(opt))}})
		}
	}
	return nil
}

// Initialise for new training run
func (n *Network) Start(conf nnet.Config, lock bool) error {
	if lock {
		n.Lock()
		defer n.Unlock()
	}
	if err := n.Init(conf); err != nil {
		return err
	}
	n.test.Reset()
	n.Stats = nil
	log.Println("init weights")
	n.InitWeights(n.rng)
	return n.Network.CopyTo(n.view)
}

// Perform training run in the background, if restart is set then begin again from new weights.
// Must be called with the lock held.
func (n *Network) Train(restart bool) error {
	log.Printf("train %s: restart=%v\n", n.Model, restart)
	runs := []nnet.Config{n.Conf}
	if n.tuneMode {
		var err error
		if runs, err = getRunConfig(n.Conf, n.Tuners); err != nil {
			return err
		}
	}
	n.MaxRun = len(runs)
	if restart {
		n.Run = 0
		if err := n.Start(runs[0], false); err != nil {
			return err
		}
	}
	if n.Epoch >= n.MaxEpoch {
		return nil
	}
	n.running = true
	n.stop = false
	go func() {
		quit := false
		for n.Run < n.MaxRun && !quit {
			if n.Run > 0 {
				if err := n.Start(runs[n.Run], true); err != nil {
					log.Println(err)
					break
				}
			}
			log.Printf("train run %d / %d epoch=%d\n", n.Run+1, len(runs), n.Epoch+1)
			done := false
			start := time.Now()
			for !done && !quit {
				loss, err := nnet.TrainEpoch(n.Network, n.trainData)
				if err != nil {
					log.Println("train error:", err)
					quit = true
					break
				}
				n.Lock()
				n.Epoch++
				n.Unlock()
				if done, err = n.test.Test(n.Network, n.Epoch, loss, start); err != nil {
					log.Println("test error:", err)
					quit = true
					break
				}
				quit = n.nextEpoch(done)
			}
			if last := len(n.test.Stats) - 1; last >= 0 {
				log.Println(n.test.Stats[last].Line(n.test.Headers))
			}
			if !quit {
				n.Run++
			}
		}
		n.Lock()
		n.running = false
		n.stop = false
		n.Unlock()
		log.Println("train: end - quit =", quit)
	}()
	return nil
}

// update state at the end of each epoch, returns true if training was interrupted
func (n *Network) nextEpoch(done bool) bool {
	n.Lock()
	quit := false
	if n.stop {
		n.stop = false
		quit = true
	}
	for key, pred := range n.test.Pred {
		index := n.test.Data[key].Indexes()
		for i, class := range pred {
			n.Pred[key][index[i]] = class
		}
	}
	n.Stats = append([]nnet.Stats{}, n.test.Stats...)
	if err := n.Network.CopyTo(n.view); err != nil {
		log.Println("nextEpoch: error copying weights:", err)
	}
	ckpt := n.Checkpoint(n.Model, n.Stats)
	n.Unlock()
	n.notify(strconv.Itoa(n.Run+1) + ":" + strconv.Itoa(ckpt.Epoch))
	if err := nnet.SaveCheckpoint(ckpt); err != nil {
		log.Println("nextEpoch: error saving checkpoint:", err)
	}
	return quit
}

// send message to the websocket client, if connected
func (n *Network) notify(msg string) {
	n.connMu.Lock()
	defer n.connMu.Unlock()
	if n.conn == nil {
		return
	}
	if err := n.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		log.Println("notify: error writing to websocket", err)
		n.conn.Close()
		n.conn = nil
	}
}

func (n *Network) setConn(conn *websocket.Conn) {
	n.connMu.Lock()
	defer n.connMu.Unlock()
	if n.conn != nil {
		n.conn.Close()
	}
	n.conn = conn
}

func (n *Network) heading() template.HTML {
	s := fmt.Sprintf(`%s: run <span id="run">%d</span>/%d  epoch <span id="epoch">%d</span>/%d`,
		n.Model, min(n.Run+1, n.MaxRun), n.MaxRun, n.Epoch, n.MaxEpoch)
	return template.HTML(s)
}

// Classify returns the class probabilities for the given image.
func (n *Network) Classify(dset string, index int) ([]float32, error) {
	d, ok := n.Data[dset]
	if !ok || index < 0 || index >= d.Len() {
		return nil, fmt.Errorf("image %s/%d not found", dset, index)
	}
	input := make([]float32, n.view.Features())
	d.Input([]int{index}, input)
	return n.view.Classify(input)
}

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

// class name of the label and prediction for the given image, prediction is blank if not yet tested
func (n *Network) label(dset string, index int) (label, pred string) {
	labels, ok := n.Labels[dset]
	if !ok || index < 0 || index >= len(labels) {
		return "", ""
	}
	classes := n.Data[dset].Classes()
	label = className(classes, labels[index])
	if p := n.Pred[dset][index]; p >= 0 {
		pred = className(classes, p)
	}
	return label, pred
}

func className(classes []string, class int32) string {
	if int(class) < len(classes) {
		return classes[class]
	}
	return strconv.Itoa(int(class))
}
