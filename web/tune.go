package web

import (
	"fmt"
	"log"
	"strings"

	"github.com/jnb666/mlptrain/nnet"
)

// Values to try for one config field when tuning hyperparameters
type TuneParams struct {
	Name   string
	Values []string
}

// For hyperparameter tuning, get config per run covering every combination of values.
func getRunConfig(conf nnet.Config, params []TuneParams) ([]nnet.Config, error) {
	var err error
	for _, p := range params {
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("tune %s: no values", p.Name)
		}
		if conf, err = conf.SetString(p.Name, p.Values[0]); err != nil {
			return nil, fmt.Errorf("tune %s: %w", p.Name, err)
		}
	}
	logConfig(conf)
	list, err := permute(conf, params, len(params)-1, []nnet.Config{conf})
	if err != nil {
		return nil, err
	}
	log.Printf("getRunConfig: cases=%d\n", len(list))
	return list, nil
}

func permute(conf nnet.Config, params []TuneParams, n int, list []nnet.Config) ([]nnet.Config, error) {
	if n < 0 {
		return list, nil
	}
	var err error
	for i, val := range params[n].Values {
		if i > 0 {
			if conf, err = conf.SetString(params[n].Name, val); err != nil {
				return nil, fmt.Errorf("tune %s: %w", params[n].Name, err)
			}
			logConfig(conf)
			list = append(list, conf)
		}
		if list, err = permute(conf, params, n-1, list); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func logConfig(c nnet.Config) {
	var s string
	for _, name := range tuneOpts {
		s += fmt.Sprintf("%s=%v ", name, c.Get(name))
	}
	log.Println("getRunConfig:", s)
}

// parse comma separated list of values
func parseValues(s string) []string {
	var vals []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	return vals
}
