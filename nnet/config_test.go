package nnet

import (
	"reflect"
	"testing"
)

func TestConfigSaveLoad(t *testing.T) {
	DataDir = t.TempDir()
	conf := DefaultConfig("mnist")
	if err := conf.SaveDefault("mlp"); err != nil {
		t.Fatal(err)
	}
	if !FileExists("mlp.default") {
		t.Error("default config not saved")
	}
	conf2, err := LoadConfig("mlp.conf")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(conf.Fields(), conf2.Fields()) || conf2.Eta != 0.003 || conf2.TrainBatch != 64 {
		t.Errorf("loaded config mismatch:\n%s", conf2)
	}
	if len(conf2.Layers) != 6 || conf2.Layers[4].String() != "linear {Nout:10}" || conf2.Layers[5].String() != "logSoftmax" {
		t.Errorf("got layers %v", conf2.Layers)
	}
	t.Log(conf2)
}

func TestConfigSet(t *testing.T) {
	conf := DefaultConfig("mnist")
	conf, err := conf.SetString("Eta", "0.5")
	if err != nil || conf.Eta != 0.5 {
		t.Errorf("Eta: err=%v got %v", err, conf.Eta)
	}
	if conf, err = conf.SetString("TrainBatch", "32"); err != nil || conf.TrainBatch != 32 {
		t.Errorf("TrainBatch: err=%v got %v", err, conf.TrainBatch)
	}
	if conf, err = conf.SetString("Optimizer", "adam"); err != nil || conf.Optimizer != "adam" {
		t.Errorf("Optimizer: err=%v got %v", err, conf.Optimizer)
	}
	if _, err = conf.SetString("Eta", "fast"); err == nil {
		t.Error("expected parse error")
	}
	if _, err = conf.SetString("Shuffle", "1"); err == nil {
		t.Error("expected type error")
	}
	if _, err = conf.SetString("Missing", "1"); err == nil {
		t.Error("expected invalid field error")
	}
	if conf, err = conf.SetBool("Shuffle", false); err != nil || conf.Shuffle {
		t.Errorf("Shuffle: err=%v got %v", err, conf.Shuffle)
	}
	if conf.Get("TrainBatch").(int) != 32 {
		t.Error("Get returned wrong value")
	}
	if conf.Get("Missing") != nil {
		t.Error("Get should return nil for unknown field")
	}
	if _, err = conf.SetString("Layers", "x"); err == nil {
		t.Error("expected error setting layers")
	}
	for _, name := range conf.Fields() {
		if name == "Layers" {
			t.Error("Fields should exclude layers")
		}
	}
}
