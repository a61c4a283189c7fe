package web

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/jnb666/mlptrain/nnet"
)

const (
	tunePrefix = "tune."
	tuneMode   = "TuneMode"
)

type ConfigPage struct {
	*Templates
	Fields []Field
	Layers []Layer
	net    *Network
}

type Field struct {
	Name    string
	Value   string
	Error   string
	Boolean bool
	On      bool
}

type Layer struct {
	Index int
	Desc  string
}

// Base data for handler functions to view and update the network config
func NewConfigPage(t *Templates, net *Network) *ConfigPage {
	p := &ConfigPage{net: net}
	p.Templates = t.Clone().Select("/config")
	p.AddOption(Link{Name: "save", Url: "/config/save", Submit: true})
	p.AddOption(Link{Name: "reset", Url: "/config/reset"})
	p.Fields = p.getFields(net.Conf)
	p.Layers = getLayers(net.Conf)
	return p
}

// Handler function for the config template
func (p *ConfigPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		p.Heading = template.HTML("model: " + template.HTMLEscapeString(p.net.Model))
		p.Exec(w, "config", p)
	}
}

// Handler function for the config form save action. Changes are applied on the next start.
func (p *ConfigPage) Save() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		haveErrors := false
		conf := p.net.Conf
		tuners := []TuneParams{}
		tune := false
		for i, fld := range p.Fields {
			val := r.Form.Get(fld.Name)
			var err error
			switch {
			case fld.Name == tuneMode:
				p.Fields[i].On = val != ""
				tune = p.Fields[i].On
			case strings.HasPrefix(fld.Name, tunePrefix):
				p.Fields[i].Value = val
				tp := TuneParams{Name: strings.TrimPrefix(fld.Name, tunePrefix), Values: parseValues(val)}
				for _, v := range tp.Values {
					if _, err = conf.SetString(tp.Name, v); err != nil {
						break
					}
				}
				if err == nil && len(tp.Values) == 0 {
					err = fmt.Errorf("no values")
				}
				tuners = append(tuners, tp)
			case fld.Boolean:
				p.Fields[i].On = val != ""
				conf, err = conf.SetBool(fld.Name, p.Fields[i].On)
			default:
				p.Fields[i].Value = val
				conf, err = conf.SetString(fld.Name, val)
			}
			p.Fields[i].Error = ""
			if err != nil {
				p.Fields[i].Error = "invalid syntax"
				haveErrors = true
			}
		}
		if !haveErrors {
			if err := conf.Save(p.net.Model + ".conf"); err != nil {
				logError(w, err)
				return
			}
			p.net.Conf = conf
			p.net.Tuners = tuners
			p.net.tuneMode = tune
			log.Println("config saved")
		}
		http.Redirect(w, r, "/config", http.StatusFound)
	}
}

// Handler function to restore the default config
func (p *ConfigPage) Reset() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		conf, err := nnet.LoadConfig(p.net.Model + ".default")
		if err != nil {
			logError(w, err)
			return
		}
		if err = conf.Save(p.net.Model + ".conf"); err != nil {
			logError(w, err)
			return
		}
		p.net.Conf = conf
		p.net.tuneMode = false
		p.Fields = p.getFields(conf)
		p.Layers = getLayers(conf)
		http.Redirect(w, r, "/config", http.StatusFound)
	}
}

func (p *ConfigPage) getFields(conf nnet.Config) []Field {
	var flds []Field
	for _, key := range conf.Fields() {
		f := Field{Name: key, Value: fmt.Sprint(conf.Get(key))}
		f.On, f.Boolean = conf.Get(key).(bool)
		flds = append(flds, f)
	}
	flds = append(flds, Field{Name: tuneMode, Boolean: true, On: p.net.tuneMode})
	for _, tp := range p.net.Tuners {
		flds = append(flds, Field{Name: tunePrefix + tp.Name, Value: strings.Join(tp.Values, ",")})
	}
	return flds
}

func getLayers(conf nnet.Config) []Layer {
	layers := make([]Layer, len(conf.Layers))
	for i, l := range conf.Layers {
		layers[i].Index = i
		if layer, err := l.Unmarshal(); err == nil {
			layers[i].Desc = layer.ToString()
		} else {
			layers[i].Desc = err.Error()
		}
	}
	return layers
}
