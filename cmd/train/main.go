// Train a network from the command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jnb666/mlptrain/nnet"
	"github.com/jnb666/mlptrain/web"
)

// print class probabilities for one image from the test set
func classify(net *nnet.Network, data nnet.Data, index int) error {
	if index < 0 || index >= data.Len() {
		return fmt.Errorf("classify: image %d out of range", index)
	}
	input := make([]float32, net.Features())
	data.Input([]int{index}, input)
	label := make([]int32, 1)
	data.Label([]int{index}, label)
	view, err := nnet.New(net.Config, 1, data.Shape(), false)
	if err != nil {
		return err
	}
	if err = net.CopyTo(view); err != nil {
		return err
	}
	probs, err := view.Classify(input)
	if err != nil {
		return err
	}
	classes := data.Classes()
	fmt.Printf("== test image %d: label %s ==\n", index, classes[label[0]])
	for i, p := range probs {
		fmt.Printf("%12s %6.2f%% %s\n", classes[i], 100*p, strings.Repeat("#", int(40*p+0.5)))
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: train [opts] <model>")
		os.Exit(1)
	}
	model := os.Args[len(os.Args)-1]
	fmt.Println("load model:", model)
	conf, err := nnet.LoadConfig(model + ".conf")
	nnet.CheckErr(err)

	// override config settings from command line
	var resume bool
	var plotFile string
	var image int
	flag.StringVar(&conf.Optimizer, "opt", conf.Optimizer, "optimizer: "+strings.Join(nnet.Optimizers, "|"))
	flag.Float64Var(&conf.Eta, "eta", conf.Eta, "learning rate")
	flag.Float64Var(&conf.Lambda, "lambda", conf.Lambda, "weight decay parameter")
	flag.Float64Var(&conf.Momentum, "momentum", conf.Momentum, "momentum")
	flag.Int64Var(&conf.RandSeed, "seed", conf.RandSeed, "random number seed")
	flag.IntVar(&conf.MaxEpoch, "epochs", conf.MaxEpoch, "max epochs")
	flag.IntVar(&conf.MaxSamples, "samples", conf.MaxSamples, "max samples")
	flag.IntVar(&conf.TrainBatch, "batch", conf.TrainBatch, "train batch size")
	flag.IntVar(&conf.TestBatch, "testbatch", conf.TestBatch, "test batch size")
	flag.IntVar(&conf.Threads, "threads", conf.Threads, "number of threads, default is one per core")
	flag.IntVar(&conf.DebugLevel, "debug", conf.DebugLevel, "debug logging level")
	flag.BoolVar(&conf.Shuffle, "shuffle", conf.Shuffle, "shuffle training data each epoch")
	flag.BoolVar(&resume, "resume", false, "continue from last checkpoint")
	flag.StringVar(&plotFile, "plot", "", "save plot of loss to svg file")
	flag.IntVar(&image, "classify", 0, "test image to classify after training, -1 for none")
	flag.Parse()
	if conf.Threads <= 0 {
		conf.Threads = nnet.DefaultThreads()
	}
	fmt.Println(nnet.Device())

	// load training and test data
	data, err := nnet.LoadData(conf.DataSet)
	nnet.CheckErr(err)
	rng := nnet.SetSeed(conf.RandSeed)
	trainData := nnet.NewDataset(data["train"], conf.TrainBatch, conf.MaxSamples, conf.Threads, rng)

	net, err := nnet.New(conf, trainData.BatchSize, trainData.Shape(), true)
	nnet.CheckErr(err)
	fmt.Println(net)
	base, tester, err := nnet.NewTestLogger(conf, data, rng)
	nnet.CheckErr(err)

	// initialise weights
	if resume {
		ckpt, err := nnet.LoadCheckpoint(model)
		nnet.CheckErr(err)
		nnet.CheckErr(net.Restore(ckpt))
		base.Stats = ckpt.Stats
		fmt.Printf("resume from epoch %d\n", net.Epoch)
	} else {
		net.InitWeights(rng)
	}

	// train the network
	nnet.CheckErr(nnet.Train(net, trainData, tester))
	nnet.CheckErr(nnet.SaveCheckpoint(net.Checkpoint(model, base.Stats)))

	if plotFile != "" {
		plt, err := web.LossPlot(base.Stats, base.Headers)
		nnet.CheckErr(err)
		nnet.CheckErr(web.SavePlot(plt, 600, 400, plotFile))
		fmt.Println("saved plot to", plotFile)
	}
	if test, ok := data["test"]; ok && image >= 0 {
		nnet.CheckErr(classify(net, test, image))
	}
}
