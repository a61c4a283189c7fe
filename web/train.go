package web

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jnb666/mlptrain/nnet"
	"github.com/jnb666/mlptrain/stats"
	"gonum.org/v1/plot"
)

const (
	plotWidth  = 600
	plotHeight = 400
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type TrainPage struct {
	*Templates
	net *Network
}

// Base data for handler functions to perform network training and display the stats
func NewTrainPage(t *Templates, net *Network) *TrainPage {
	p := &TrainPage{net: net}
	p.Templates = t.Clone().Select("/train")
	p.AddOption(Link{Name: "start", Url: "/train/start"})
	p.AddOption(Link{Name: "stop", Url: "/train/stop"})
	p.AddOption(Link{Name: "continue", Url: "/train/continue"})
	return p
}

// Handler function for the train template
func (p *TrainPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd := mux.Vars(r)["cmd"]
		p.net.Lock()
		defer p.net.Unlock()
		switch cmd {
		case "start", "continue":
			if p.net.running {
				log.Println("skip start - already running")
			} else if err := p.net.Train(cmd == "start"); err != nil {
				logError(w, err)
				return
			}
			http.Redirect(w, r, "/train/stats", http.StatusFound)
		case "stop":
			if p.net.running {
				p.net.stop = true
			}
			http.Redirect(w, r, "/train/stats", http.StatusFound)
		case "stats":
			p.Heading = p.net.heading()
			p.Exec(w, "train", p)
		default:
			http.NotFound(w, r)
		}
	}
}

// Handler function for the stats frame
func (p *TrainPage) Stats() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		p.Exec(w, "stats", p)
	}
}

// Handler function for websocket connection
func (p *TrainPage) Websocket() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("websocket:", err)
			return
		}
		p.net.setConn(conn)
	}
}

// Handler function for the loss and error plots
func (p *TrainPage) Plot() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var plt *plot.Plot
		var err error
		p.net.Lock()
		switch mux.Vars(r)["name"] {
		case "loss":
			plt, err = LossPlot(p.net.Stats, p.net.Headers)
		case "error":
			plt, err = ErrorPlot(p.net.Stats, p.net.Headers)
		default:
			p.net.Unlock()
			http.NotFound(w, r)
			return
		}
		p.net.Unlock()
		if err != nil {
			logError(w, err)
			return
		}
		writeSVG(w, r, plt)
	}
}

func (p *TrainPage) Headers() []string {
	return p.net.Headers
}

// LatestStats returns up to n entries with the most recent first.
func (p *TrainPage) LatestStats(n int) []nnet.Stats {
	last := len(p.net.Stats) - 1
	res := []nnet.Stats{}
	for i := last; i >= 0 && i > last-n; i-- {
		res = append(res, p.net.Stats[i])
	}
	return res
}

func (p *TrainPage) RunTime() string {
	if len(p.net.Stats) == 0 {
		return ""
	}
	elapsed := p.net.Stats[len(p.net.Stats)-1].Elapsed
	return fmt.Sprintf("run time: %s", elapsed.Round(10*time.Millisecond))
}

// EpochTime returns the mean and standard deviation of the time per epoch in seconds.
func (p *TrainPage) EpochTime() template.HTML {
	var avg stats.Average
	var prev time.Duration
	for _, s := range p.net.Stats {
		if d := s.Elapsed - prev; d > 0 {
			avg.Add(d.Seconds())
		}
		prev = s.Elapsed
	}
	if avg.Count == 0 {
		return ""
	}
	return "epoch time: " + avg.HTML() + "s"
}

// render plot as SVG, size may be overridden with the w and h query parameters
func writeSVG(w http.ResponseWriter, r *http.Request, plt *plot.Plot) {
	width, height := plotWidth, plotHeight
	if v, err := strconv.Atoi(r.FormValue("w")); err == nil && v > 0 {
		width = v
	}
	if v, err := strconv.Atoi(r.FormValue("h")); err == nil && v > 0 {
		height = v
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := WriteSVG(w, plt, width, height); err != nil {
		log.Println("plot:", err)
	}
}
