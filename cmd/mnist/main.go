// Convert MNIST or Fashion-MNIST IDX files to the data set format used by train and web.
package main

import (
	"flag"
	"fmt"
	"path"

	"github.com/jnb666/mlptrain/img"
	"github.com/jnb666/mlptrain/nnet"
)

func main() {
	var name, src, norm string
	var fashion bool
	var valid, threads int
	flag.StringVar(&name, "name", "mnist", "data set name")
	flag.StringVar(&src, "src", "", "directory with IDX files, default <DataDir>/<name>")
	flag.StringVar(&norm, "norm", "half", "normalisation: half or stats")
	flag.BoolVar(&fashion, "fashion", false, "use Fashion-MNIST class names")
	flag.IntVar(&valid, "valid", 0, "number of training images to hold back for validation")
	flag.IntVar(&threads, "threads", nnet.DefaultThreads(), "number of threads")
	flag.Parse()
	if src == "" {
		src = path.Join(nnet.DataDir, name)
	}
	classes := img.DigitClasses
	if fashion {
		classes = img.FashionClasses
	}

	// 60000 train + 10000 test images
	train, err := img.LoadMNIST(src, "train", classes)
	nnet.CheckErr(err)
	test, err := img.LoadMNIST(src, "t10k", classes)
	nnet.CheckErr(err)

	var mean, std float32
	switch norm {
	case "half":
		mean, std = img.HalfMean, img.HalfStdDev
	case "stats":
		mean, std = img.GetStats(threads, train.Images, test.Images)
	default:
		nnet.CheckErr(fmt.Errorf("invalid normalisation %q", norm))
	}
	train.SetNorm(mean, std)
	test.SetNorm(mean, std)

	if valid > 0 {
		if valid >= train.Len() {
			nnet.CheckErr(fmt.Errorf("validation set size %d must be less than %d", valid, train.Len()))
		}
		split := train.Len() - valid
		nnet.CheckErr(nnet.SaveDataFile(train.Slice(split, train.Len()), name+"_valid"))
		train = train.Slice(0, split)
	}
	nnet.CheckErr(nnet.SaveDataFile(train, name+"_train"))
	nnet.CheckErr(nnet.SaveDataFile(test, name+"_test"))

	conf := nnet.DefaultConfig(name)
	if valid > 0 {
		conf.StopAfter = 3
	}
	nnet.CheckErr(conf.SaveDefault("mlp"))
}
