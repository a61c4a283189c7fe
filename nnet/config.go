package nnet

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"reflect"
	"strconv"
	"strings"
)

// Training configuration settings
type Config struct {
	DataSet       string
	Optimizer     string
	Eta           float64
	Lambda        float64
	Momentum      float64
	Bias          float64
	NormalWeights bool
	Shuffle       bool
	TrainBatch    int
	TestBatch     int
	MaxEpoch      int
	MaxSamples    int
	LogEvery      int
	StopAfter     int
	MinLoss       float64
	RandSeed      int64
	Threads       int
	DebugLevel    int
	Layers        []LayerConfig
}

// DefaultConfig returns the 784-128-64-10 multilayer perceptron trained with plain SGD.
func DefaultConfig(dataSet string) Config {
	conf := Config{
		DataSet:    dataSet,
		Optimizer:  "sgd",
		Eta:        0.003,
		Shuffle:    true,
		TrainBatch: 64,
		TestBatch:  1000,
		MaxEpoch:   5,
		LogEvery:   1,
	}
	return conf.AddLayers(
		Linear{Nout: 128},
		Activation{Atype: "relu"},
		Linear{Nout: 64},
		Activation{Atype: "relu"},
		Linear{Nout: 10},
		LogSoftmax{},
	)
}

// LoadConfig reads a JSON network definition from DataDir.
func LoadConfig(name string) (Config, error) {
	var c Config
	f, err := os.Open(path.Join(DataDir, name))
	if err != nil {
		return c, err
	}
	defer f.Close()
	fmt.Println("loading network config from", name)
	if err = json.NewDecoder(f).Decode(&c); err != nil {
		return c, fmt.Errorf("error decoding %s: %w", name, err)
	}
	return c, nil
}

// AddLayers returns a copy of the config with the given layers appended.
func (c Config) AddLayers(layers ...ConfigLayer) Config {
	c.Layers = append([]LayerConfig{}, c.Layers...)
	for _, l := range layers {
		c.Layers = append(c.Layers, l.Marshal())
	}
	return c
}

// SaveDefault writes name.default, which the web config page resets to, and name.conf.
func (c Config) SaveDefault(name string) error {
	for _, ext := range []string{".default", ".conf"} {
		if err := c.Save(name + ext); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the config as indented JSON under DataDir.
func (c Config) Save(name string) error {
	fmt.Println("saving network config to", name)
	return saveFile(name, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	})
}

// write to a hidden temporary file then rename so readers never see a partial file
func saveFile(name string, encode func(io.Writer) error) error {
	if err := os.MkdirAll(DataDir, 0755); err != nil {
		return err
	}
	tmp := path.Join(DataDir, "."+name)
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err = encode(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%s: %w", name, err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path.Join(DataDir, name))
}

// Fields lists the scalar settings in declaration order. Layers are not included.
func (c Config) Fields() []string {
	var names []string
	t := reflect.TypeOf(c)
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Type.Kind() != reflect.Slice {
			names = append(names, t.Field(i).Name)
		}
	}
	return names
}

// Get returns the value of the named setting, or nil if there is no such field.
func (c Config) Get(key string) interface{} {
	v := reflect.ValueOf(c).FieldByName(key)
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

func (c Config) configString() string {
	var b strings.Builder
	b.WriteString("== Config ==")
	for _, key := range c.Fields() {
		fmt.Fprintf(&b, "\n%-14s: %v", key, c.Get(key))
	}
	return b.String()
}

func (c Config) String() string {
	var b strings.Builder
	b.WriteString(c.configString())
	if len(c.Layers) > 0 {
		b.WriteString("\n== Network ==")
		for i, layer := range c.Layers {
			fmt.Fprintf(&b, "\n%2d: %s", i, layer)
		}
	}
	return b.String()
}

// SetString parses val and assigns it to the named numeric or string field.
func (c Config) SetString(key, val string) (Config, error) {
	err := c.set(key, func(f reflect.Value) error {
		switch f.Kind() {
		case reflect.Int, reflect.Int64:
			x, err := strconv.ParseInt(val, 10, 64)
			if err == nil {
				f.SetInt(x)
			}
			return err
		case reflect.Float64:
			x, err := strconv.ParseFloat(val, 64)
			if err == nil {
				f.SetFloat(x)
			}
			return err
		case reflect.String:
			f.SetString(val)
			return nil
		}
		return fmt.Errorf("invalid type for SetString: %v", f.Kind())
	})
	return c, err
}

// SetBool assigns a boolean field.
func (c Config) SetBool(key string, val bool) (Config, error) {
	err := c.set(key, func(f reflect.Value) error {
		if f.Kind() != reflect.Bool {
			return fmt.Errorf("invalid type for SetBool: %v", f.Kind())
		}
		f.SetBool(val)
		return nil
	})
	return c, err
}

func (c *Config) set(key string, update func(reflect.Value) error) error {
	f := reflect.ValueOf(c).Elem().FieldByName(key)
	if !f.IsValid() || f.Kind() == reflect.Slice {
		return fmt.Errorf("invalid config field %q", key)
	}
	return update(f)
}
