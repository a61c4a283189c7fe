package web

import (
	"image"
	"image/png"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/jnb666/mlptrain/img"
)

type ImagePage struct {
	*Templates
	Dset   string
	Page   int
	Errors bool
	Rows   []int
	Cols   []int
	Width  int
	Height int
	Pages  int
	Total  int
	index  []int
	net    *Network
}

// Base data for handler functions to view input image dataset
func NewImagePage(t *Templates, net *Network, scale float64, rows, cols int) *ImagePage {
	p := &ImagePage{net: net, Page: 1, Rows: seq(rows), Cols: seq(cols)}
	p.Templates = t.Clone().Select("/images")
	for _, name := range []string{"all", "errors", "prev", "next"} {
		p.AddOption(Link{Name: name})
	}
	if dims := net.Data["train"].Shape(); len(dims) >= 2 {
		p.Width = int(float64(dims[1]) * scale)
		p.Height = int(float64(dims[0]) * scale)
	}
	return p
}

// Handler function for the grid of images
func (p *ImagePage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		vars := mux.Vars(r)
		p.Dset = vars["dset"]
		p.Errors = vars["mode"] == "errors"
		p.Page, _ = strconv.Atoi(vars["page"])
		p.Heading = p.net.heading()
		if _, ok := p.net.Data[p.Dset]; !ok {
			p.Exec(w, "blank", p)
			return
		}
		p.index = p.selected()
		p.Total = len(p.index)
		perPage := len(p.Rows) * len(p.Cols)
		p.Pages = max((p.Total+perPage-1)/perPage, 1)
		if p.Page < 1 || p.Page > p.Pages {
			p.Page = 1
		}
		base := "/images/" + vars["mode"] + "/" + p.Dset + "/"
		for i, opt := range p.Options {
			switch opt.Name {
			case "all":
				p.Options[i].Url = "/images/all/" + p.Dset + "/1"
			case "errors":
				p.Options[i].Url = "/images/errors/" + p.Dset + "/1"
			case "prev":
				p.Options[i].Url = base + strconv.Itoa(mod(p.Page-1, 1, p.Pages))
			case "next":
				p.Options[i].Url = base + strconv.Itoa(mod(p.Page+1, 1, p.Pages))
			}
		}
		p.SelectOptions([]string{vars["mode"]})
		p.Exec(w, "images", p)
	}
}

// indexes of images to display, if Errors is set then only those which are misclassified
func (p *ImagePage) selected() []int {
	labels := p.net.Labels[p.Dset]
	pred := p.net.Pred[p.Dset]
	index := make([]int, 0, len(labels))
	for i, label := range labels {
		if !p.Errors || (pred[i] >= 0 && pred[i] != label) {
			index = append(index, i)
		}
	}
	return index
}

// Index returns the image id at this grid position, or a blank string if past the end.
func (p *ImagePage) Index(row, col int) string {
	i := (p.Page-1)*len(p.Rows)*len(p.Cols) + row*len(p.Cols) + col
	if i >= len(p.index) {
		return ""
	}
	return strconv.Itoa(p.index[i])
}

// Label returns the class name, followed by the prediction if it is incorrect.
func (p *ImagePage) Label(id string) string {
	i, _ := strconv.Atoi(id)
	label, pred := p.net.label(p.Dset, i)
	if pred != "" && pred != label {
		return label + " => " + pred
	}
	return label
}

// Handler function for the image data
func (p *ImagePage) Image() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		vars := mux.Vars(r)
		dset := vars["dset"]
		id, err := strconv.Atoi(vars["id"])
		data, ok := p.net.Data[dset]
		if !ok || err != nil || id < 0 || id >= data.Len() {
			http.NotFound(w, r)
			return
		}
		var m image.Image = data.Image(id)
		if src, ok := m.(*img.Image); ok {
			label, pred := p.net.label(dset, id)
			m = img.Highlight(src, pred != "" && pred != label)
		}
		if m == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-type", "image/png")
		if err := png.Encode(w, m); err != nil {
			log.Println("image:", err)
		}
	}
}

type ClassifyPage struct {
	*Templates
	Dset      string
	ID        int
	Width     int
	Height    int
	Label     string
	Predicted string
	net       *Network
}

// Base data for handler functions to show the class probabilities for a single image
func NewClassifyPage(t *Templates, net *Network, scale float64) *ClassifyPage {
	p := &ClassifyPage{net: net}
	p.Templates = t.Clone().Select("/images")
	if dims := net.Data["train"].Shape(); len(dims) >= 2 {
		p.Width = int(float64(dims[1]) * scale)
		p.Height = int(float64(dims[0]) * scale)
	}
	return p
}

// Handler function for the classify page
func (p *ClassifyPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		vars := mux.Vars(r)
		id, err := strconv.Atoi(vars["id"])
		data, ok := p.net.Data[vars["dset"]]
		if !ok || err != nil || id < 0 || id >= data.Len() {
			http.NotFound(w, r)
			return
		}
		p.Dset, p.ID = vars["dset"], id
		p.Label, p.Predicted = p.net.label(p.Dset, id)
		p.Heading = p.net.heading()
		p.Exec(w, "classify", p)
	}
}

// Handler function for the class probability plot
func (p *ClassifyPage) Plot() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		vars := mux.Vars(r)
		dset := vars["dset"]
		id, err := strconv.Atoi(vars["id"])
		if err != nil {
			p.net.Unlock()
			http.NotFound(w, r)
			return
		}
		probs, err := p.net.Classify(dset, id)
		var classes []string
		if err == nil {
			classes = p.net.Data[dset].Classes()
		}
		p.net.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		plt, err := ClassifyPlot(probs, classes)
		if err != nil {
			logError(w, err)
			return
		}
		writeSVG(w, r, plt)
	}
}

func mod(i, min, max int) int {
	if i < min {
		i = max
	}
	if i > max {
		i = min
	}
	return i
}
